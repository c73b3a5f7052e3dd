package netdiag

import (
	"bytes"
	"testing"
	"time"
)

func TestTCPStateString(t *testing.T) {
	cases := map[TCPState]string{
		Established: "ESTABLISHED",
		Listen:      "LISTEN",
		TCPState(99): "UNKNOWN_STATE_99",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestTCPStateIsClosed(t *testing.T) {
	if !Close.IsClosed() {
		t.Error("Close.IsClosed() = false, want true")
	}
	if !Closing.IsClosed() {
		t.Error("Closing.IsClosed() = false, want true")
	}
	if Established.IsClosed() {
		t.Error("Established.IsClosed() = true, want false")
	}
}

func TestCacheUpdateAndEndCycle(t *testing.T) {
	c := NewCache()

	c.Update(1, Info{State: Established})
	c.Update(2, Info{State: Established})
	stale := c.EndCycle()
	if len(stale) != 0 {
		t.Fatalf("first EndCycle returned %d stale entries, want 0", len(stale))
	}

	// Second round: only cookie 1 reappears; cookie 2 should be reported
	// stale once its absence survives a full cycle.
	c.Update(1, Info{State: Established})
	stale = c.EndCycle()
	if _, ok := stale[2]; !ok {
		t.Fatalf("expected cookie 2 to be stale after not reappearing, stale = %v", stale)
	}
	if _, ok := stale[1]; ok {
		t.Fatalf("cookie 1 was updated this round and should not be stale")
	}
	if c.CycleCount() != 2 {
		t.Fatalf("CycleCount() = %d, want 2", c.CycleCount())
	}
}

func TestUpdateOperationRoundTrip(t *testing.T) {
	info := Info{
		State:   Established,
		RTT:     25 * time.Millisecond,
		SndCwnd: 10,
	}
	op := updateOperation(0xdeadbeef, info)
	if op.Opcode != opcodeUpdate {
		t.Fatalf("opcode = %d, want %d", op.Opcode, opcodeUpdate)
	}

	m := NewMonitor(time.Second)
	if err := m.ApplyOperation(op); err != nil {
		t.Fatalf("ApplyOperation: %v", err)
	}
	got, ok := m.cache.current[0xdeadbeef]
	if !ok {
		t.Fatal("cookie not present in cache after ApplyOperation")
	}
	if got.State != Established || got.SndCwnd != 10 || got.RTT != 25*time.Millisecond {
		t.Fatalf("got %+v, want state=Established cwnd=10 rtt=25ms", got)
	}
}

func TestMonitorSnapshotRestoreRoundTrip(t *testing.T) {
	m := NewMonitor(time.Second)
	m.cache.current[1] = Info{State: Established, RTT: 5 * time.Millisecond, SndCwnd: 20}
	m.cache.current[2] = Info{State: TimeWait, RTT: 1 * time.Millisecond, SndCwnd: 4}

	var buf bytes.Buffer
	if err := m.Snapshot(&buf); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	m2 := NewMonitor(time.Second)
	if err := m2.Restore(&buf); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(m2.cache.current) != 2 {
		t.Fatalf("restored %d entries, want 2", len(m2.cache.current))
	}
	if m2.cache.current[1].SndCwnd != 20 {
		t.Fatalf("restored cookie 1 cwnd = %d, want 20", m2.cache.current[1].SndCwnd)
	}
}
