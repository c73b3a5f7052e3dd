package netdiag

import (
	"context"
	"encoding/binary"
	"io"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ymarkovitch/pcomn-go/journal"
	"github.com/ymarkovitch/pcomn-go/metrics"
)

// Socket is the minimal surface Monitor needs from a tracked connection:
// its raw file descriptor, for getsockopt(TCP_INFO)/SO_COOKIE calls.
// *netsock.Stream satisfies this directly.
type Socket interface {
	FD() int
}

const (
	// opcodeUpdate records one socket's latest Info (a reduced
	// representation: state, RTT, congestion window); opcodeEvict
	// records that a tracked cookie was dropped from the cache.
	opcodeUpdate uint32 = 1
	opcodeEvict  uint32 = 2
)

// Monitor periodically snapshots TCP_INFO for a set of tracked sockets and
// maintains a Cache of the results. It embeds journal.Core so a Monitor can
// optionally be attached to a journal.Port: every cache update/eviction is
// then replayed as an operation, giving this repository's socket and
// journal halves one concrete point of composition.
//
// Only a reduced slice of Info (state, RTT, send congestion window) is
// journaled; the full snapshot remains available from Cache for callers
// that read it directly, e.g. for metrics or logging.
type Monitor struct {
	journal.Core

	mu       sync.Mutex
	tracked  map[uint64]Socket
	cache    *Cache
	interval time.Duration
	lastPoll time.Time
}

// NewMonitor creates a Monitor that polls every interval.
func NewMonitor(interval time.Duration) *Monitor {
	m := &Monitor{
		tracked:  make(map[uint64]Socket),
		cache:    NewCache(),
		interval: interval,
	}
	m.Init(m)
	return m
}

// Track registers sock for periodic polling and returns its stable cookie.
func (m *Monitor) Track(sock Socket) (uint64, error) {
	cookie, err := socketCookie(sock.FD())
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	m.tracked[cookie] = sock
	m.mu.Unlock()
	return cookie, nil
}

// Untrack stops polling the socket registered under cookie.
func (m *Monitor) Untrack(cookie uint64) {
	m.mu.Lock()
	delete(m.tracked, cookie)
	m.mu.Unlock()
}

// Cache returns the Monitor's snapshot cache.
func (m *Monitor) Cache() *Cache { return m.cache }

// Run polls every Monitor.interval until ctx is cancelled. Each poll round
// snapshots every tracked socket, threading failures into a log line rather
// than aborting the round (an unreadable socket just means it closed
// between Track and this tick).
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *Monitor) poll() {
	now := time.Now()
	m.mu.Lock()
	if !m.lastPoll.IsZero() {
		metrics.PollingIntervalHistogram.Observe(now.Sub(m.lastPoll).Seconds())
	}
	m.lastPoll = now
	sockets := make(map[uint64]Socket, len(m.tracked))
	for cookie, sock := range m.tracked {
		sockets[cookie] = sock
	}
	m.mu.Unlock()

	for cookie, sock := range sockets {
		info, err := snapshotFD(sock.FD())
		if err != nil {
			log.Printf("netdiag: snapshot failed for cookie %x: %v", cookie, err)
			continue
		}
		if m.Core.State() == journal.StateActive {
			// ApplyOperation performs the actual Cache mutation, so the
			// journaled and in-memory views never diverge.
			if err := m.Core.Apply(updateOperation(cookie, info)); err != nil {
				log.Printf("netdiag: journal apply failed for cookie %x: %v", cookie, err)
				metrics.ErrorCount.With(prometheus.Labels{"type": "netdiag_journal_apply"}).Inc()
			}
		} else {
			m.cache.Update(cookie, info)
		}
		if info.State.IsClosed() {
			m.Untrack(cookie)
		}
	}

	stale := m.cache.EndCycle()
	for cookie := range stale {
		if m.Core.State() == journal.StateActive {
			if err := m.Core.Apply(evictOperation(cookie)); err != nil {
				log.Printf("netdiag: journal evict failed for cookie %x: %v", cookie, err)
				metrics.ErrorCount.With(prometheus.Labels{"type": "netdiag_journal_apply"}).Inc()
			}
		}
	}

	metrics.TrackedSocketsHistogram.Observe(float64(len(sockets)))
}

func updateOperation(cookie uint64, info Info) journal.Operation {
	body := make([]byte, 8+1+4+4)
	binary.LittleEndian.PutUint64(body[0:8], cookie)
	body[8] = uint8(info.State)
	binary.LittleEndian.PutUint32(body[9:13], uint32(info.RTT.Microseconds()))
	binary.LittleEndian.PutUint32(body[13:17], info.SndCwnd)
	return journal.Operation{Opcode: opcodeUpdate, Opversion: 1, Body: body}
}

func evictOperation(cookie uint64) journal.Operation {
	body := make([]byte, 8)
	binary.LittleEndian.PutUint64(body, cookie)
	return journal.Operation{Opcode: opcodeEvict, Opversion: 1, Body: body}
}

// ApplyOperation implements journal.Target, replaying a journaled update or
// eviction against the in-memory Cache.
func (m *Monitor) ApplyOperation(op journal.Operation) error {
	switch op.Opcode {
	case opcodeUpdate:
		cookie := binary.LittleEndian.Uint64(op.Body[0:8])
		info := Info{
			State:   TCPState(op.Body[8]),
			RTT:     time.Duration(binary.LittleEndian.Uint32(op.Body[9:13])) * time.Microsecond,
			SndCwnd: binary.LittleEndian.Uint32(op.Body[13:17]),
		}
		m.cache.Update(cookie, info)
		return nil
	case opcodeEvict:
		cookie := binary.LittleEndian.Uint64(op.Body[0:8])
		delete(m.cache.current, cookie)
		return nil
	default:
		return journal.ErrOpError
	}
}

// Snapshot writes every currently-cached Info record as a length-prefixed
// sequence of update operations' bodies.
func (m *Monitor) Snapshot(w io.Writer) error {
	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, uint32(len(m.cache.current)))
	if _, err := w.Write(count); err != nil {
		return err
	}
	for cookie, info := range m.cache.current {
		op := updateOperation(cookie, info)
		if _, err := w.Write(op.Body); err != nil {
			return err
		}
	}
	return nil
}

// Restore reads a snapshot written by Snapshot and replaces the Cache
// contents with it.
func (m *Monitor) Restore(r io.Reader) error {
	countBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, countBuf); err != nil {
		return err
	}
	count := binary.LittleEndian.Uint32(countBuf)

	m.cache = NewCache()
	body := make([]byte, 17)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, body); err != nil {
			return err
		}
		cookie := binary.LittleEndian.Uint64(body[0:8])
		info := Info{
			State:   TCPState(body[8]),
			RTT:     time.Duration(binary.LittleEndian.Uint32(body[9:13])) * time.Microsecond,
			SndCwnd: binary.LittleEndian.Uint32(body[13:17]),
		}
		m.cache.current[cookie] = info
	}
	return nil
}

// IgnorableOnRestore reports that no replay-time ApplyOperation error is
// ever expected for this target's simple update/evict operations.
func (m *Monitor) IgnorableOnRestore(err error) bool { return false }
