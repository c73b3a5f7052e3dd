package journal_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/ymarkovitch/pcomn-go/journal"
)

// memStorage is an in-memory journal.Storage for tests: a slice of
// records plus a single checkpoint slot.
type memStorage struct {
	records []memRecord

	pending       *bytes.Buffer
	pendingGen    uint32
	hasPending    bool
	checkpoint    []byte
	checkpointGen uint32
	hasCheckpoint bool

	nextGen uint32
}

type memRecord struct {
	op         journal.Operation
	generation uint32
}

func newMemStorage() *memStorage { return &memStorage{} }

func (m *memStorage) AppendRecord(generation uint32, op journal.Operation) (int64, error) {
	m.records = append(m.records, memRecord{op: op, generation: generation})
	return int64(len(m.records) - 1), nil
}

func (m *memStorage) ReplayRecords(fromGeneration uint32, handler journal.RecordHandler) error {
	for _, rec := range m.records {
		if rec.generation < fromGeneration {
			continue
		}
		if err := handler(rec.op, rec.generation); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStorage) CreateCheckpoint() (io.WriteCloser, uint32, error) {
	m.pending = &bytes.Buffer{}
	m.nextGen++
	m.pendingGen = m.nextGen
	m.hasPending = true
	return nopWriteCloser{m.pending}, m.pendingGen, nil
}

func (m *memStorage) CloseCheckpoint(commit bool) error {
	if !m.hasPending {
		return journal.ErrStateError
	}
	if commit {
		m.checkpoint = m.pending.Bytes()
		m.checkpointGen = m.pendingGen
		m.hasCheckpoint = true
		// A committed checkpoint discards log records older than it.
		kept := m.records[:0]
		for _, rec := range m.records {
			if rec.generation >= m.pendingGen {
				kept = append(kept, rec)
			}
		}
		m.records = kept
	}
	m.pending = nil
	m.hasPending = false
	return nil
}

func (m *memStorage) ReplayCheckpoint(handler func(r io.Reader) error) (uint32, error) {
	if !m.hasCheckpoint {
		return 0, journal.ErrNoCheckpoint
	}
	if err := handler(bytes.NewReader(m.checkpoint)); err != nil {
		return 0, err
	}
	return m.checkpointGen, nil
}

func (m *memStorage) SetUserMagic(magic uint32) error { return nil }
func (m *memStorage) MakeWritable() error             { return nil }

type nopWriteCloser struct{ *bytes.Buffer }

func (nopWriteCloser) Close() error { return nil }

// intCounter is a trivial journalled target: a single int64 counter with
// ADD and MUL operations, used to exercise Core's state machine.
type intCounter struct {
	journal.Core
	value int64
}

const (
	opAdd uint32 = 1
	opMul uint32 = 2
)

func newIntCounter() *intCounter {
	c := &intCounter{}
	c.Init(c)
	return c
}

func addOp(delta int64) journal.Operation {
	body := make([]byte, 8)
	binary.LittleEndian.PutUint64(body, uint64(delta))
	return journal.Operation{Opcode: opAdd, Opversion: 1, Body: body}
}

func mulOp(factor int64) journal.Operation {
	body := make([]byte, 8)
	binary.LittleEndian.PutUint64(body, uint64(factor))
	return journal.Operation{Opcode: opMul, Opversion: 1, Body: body}
}

func (c *intCounter) ApplyOperation(op journal.Operation) error {
	n := int64(binary.LittleEndian.Uint64(op.Body))
	switch op.Opcode {
	case opAdd:
		c.value += n
	case opMul:
		c.value *= n
	default:
		return journal.ErrOpError
	}
	return nil
}

func (c *intCounter) Snapshot(w io.Writer) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(c.value))
	_, err := w.Write(buf)
	return err
}

func (c *intCounter) Restore(r io.Reader) error {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	c.value = int64(binary.LittleEndian.Uint64(buf))
	return nil
}

func (c *intCounter) IgnorableOnRestore(err error) bool { return false }

func (c *intCounter) Value() int64 {
	c.RLock()
	defer c.RUnlock()
	return c.value
}

func TestJournalRecoveryAfterOperations(t *testing.T) {
	storage := newMemStorage()
	port := journal.NewPort(storage)

	target := newIntCounter()
	if err := target.RestoreFrom(port, true); err != nil {
		t.Fatalf("RestoreFrom: %v", err)
	}
	if target.State() != journal.StateActive {
		t.Fatalf("state = %v, want ACTIVE", target.State())
	}

	if err := target.Apply(addOp(5)); err != nil {
		t.Fatalf("Apply add: %v", err)
	}
	if err := target.Apply(mulOp(3)); err != nil {
		t.Fatalf("Apply mul: %v", err)
	}
	if target.Value() != 15 {
		t.Fatalf("value = %d, want 15", target.Value())
	}

	// Restart: replay from an empty target should reach the same value.
	target2 := newIntCounter()
	if err := target2.RestoreFrom(journal.NewPort(storage), true); err != nil {
		t.Fatalf("RestoreFrom after restart: %v", err)
	}
	if target2.Value() != 15 {
		t.Fatalf("value after replay = %d, want 15", target2.Value())
	}

	if err := target2.Apply(addOp(2)); err != nil {
		t.Fatalf("Apply add 2: %v", err)
	}
	if _, err := target2.TakeCheckpoint(); err != nil {
		t.Fatalf("TakeCheckpoint: %v", err)
	}
	if err := target2.Apply(addOp(1)); err != nil {
		t.Fatalf("Apply add 1: %v", err)
	}
	if target2.Value() != 18 {
		t.Fatalf("value = %d, want 18", target2.Value())
	}

	target3 := newIntCounter()
	if err := target3.RestoreFrom(journal.NewPort(storage), true); err != nil {
		t.Fatalf("RestoreFrom after checkpoint: %v", err)
	}
	if target3.Value() != 18 {
		t.Fatalf("value after final replay = %d, want 18", target3.Value())
	}
}

func TestApplyRejectedOutsideLiveStates(t *testing.T) {
	target := newIntCounter()
	if err := target.Apply(addOp(1)); err != journal.ErrStateError {
		t.Errorf("Apply in INITIAL: got %v, want ErrStateError", err)
	}
}

func TestRestoreFromRejectedOutsideInitial(t *testing.T) {
	storage := newMemStorage()
	port := journal.NewPort(storage)
	target := newIntCounter()
	if err := target.RestoreFrom(port, true); err != nil {
		t.Fatalf("first RestoreFrom: %v", err)
	}
	if err := target.RestoreFrom(port, true); err != journal.ErrStateError {
		t.Errorf("second RestoreFrom: got %v, want ErrStateError", err)
	}
}

func TestRecordFramingRoundTrip(t *testing.T) {
	op := addOp(42)
	encoded := journal.EncodeRecord(0xC0FFEE, 7, op)
	decoded, generation, err := journal.DecodeRecord(bytes.NewReader(encoded), 0xC0FFEE)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if generation != 7 {
		t.Errorf("generation = %d, want 7", generation)
	}
	if decoded.Opcode != op.Opcode || decoded.Opversion != op.Opversion {
		t.Errorf("opcode/opversion mismatch: %+v", decoded)
	}
	if !bytes.Equal(decoded.Body, op.Body) {
		t.Errorf("body mismatch: got %v want %v", decoded.Body, op.Body)
	}
}

func TestRecordFramingDetectsCorruption(t *testing.T) {
	op := addOp(42)
	encoded := journal.EncodeRecord(1, 0, op)
	encoded[len(encoded)-1] ^= 0xFF // corrupt the CRC's last byte
	if _, _, err := journal.DecodeRecord(bytes.NewReader(encoded), 1); err != journal.ErrCRCMismatch {
		t.Errorf("got %v, want ErrCRCMismatch", err)
	}
}

func TestRecordFramingBadMagic(t *testing.T) {
	op := addOp(1)
	encoded := journal.EncodeRecord(1, 0, op)
	if _, _, err := journal.DecodeRecord(bytes.NewReader(encoded), 2); err != journal.ErrBadMagic {
		t.Errorf("got %v, want ErrBadMagic", err)
	}
}
