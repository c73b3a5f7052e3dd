package journal

import (
	"errors"
	"io"
	"log"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ymarkovitch/pcomn-go/metrics"
)

// State is a journalled target's lifecycle state.
type State int

const (
	StateInitial State = iota
	StateRestoring
	StateRestored
	StateActive
	StateCheckpoint
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "INITIAL"
	case StateRestoring:
		return "RESTORING"
	case StateRestored:
		return "RESTORED"
	case StateActive:
		return "ACTIVE"
	case StateCheckpoint:
		return "CHECKPOINT"
	case StateInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// Target is the interface a journalled application object implements. It
// embeds Core for the state machine and locking, and supplies the
// domain-specific operations: applying one decoded operation, writing a
// full snapshot, restoring from a snapshot, and classifying restore-time
// errors as ignorable.
type Target interface {
	// ApplyOperation decodes and applies op to the target's own state.
	// Apply calls it with the Core write lock held; RestoreFrom's replay
	// calls it without the lock, while the target is in StateRestoring.
	ApplyOperation(op Operation) error
	// Snapshot writes a complete, self-describing image of the target's
	// current state to w.
	Snapshot(w io.Writer) error
	// Restore reads a complete image previously written by Snapshot and
	// replaces the target's state with it.
	Restore(r io.Reader) error
	// IgnorableOnRestore reports whether err, raised by ApplyOperation
	// during replay, is expected (the target is already consistent
	// because the original forward application failed the same way) and
	// should be logged and swallowed rather than aborting recovery.
	IgnorableOnRestore(err error) bool
}

// Core is the embeddable state machine, lock pair, and change counter
// described by the journal target contract. A journalled application
// object embeds Core and calls Init(self) once, at construction, so Core
// can call back into the object's Target methods.
//
// Core embeds sync.RWMutex directly: the embedding object's own methods
// take Core's Lock/RLock the same way they would a plain field, giving
// the target data lock described by the spec without a second named
// field. ckptMu is the separate checkpoint-in-progress mutex; lock order
// is always the target RW-lock first, the checkpoint mutex second, and
// TakeCheckpoint releases the RW-lock before doing the (possibly slow)
// checkpoint body write, so ordinary Apply calls are not blocked by it.
type Core struct {
	sync.RWMutex
	ckptMu sync.Mutex

	state      State
	generation uint32
	changes    uint64
	port       *Port
	self       Target
}

// Init must be called once, before any other Core method, with the
// embedding object as self.
func (c *Core) Init(self Target) {
	c.Lock()
	defer c.Unlock()
	c.self = self
	c.state = StateInitial
}

// State returns the target's current lifecycle state.
func (c *Core) State() State {
	c.RLock()
	defer c.RUnlock()
	return c.state
}

// Generation returns the generation id of the most recent checkpoint
// this target has restored from or committed.
func (c *Core) Generation() uint32 {
	c.RLock()
	defer c.RUnlock()
	return c.generation
}

// Changes returns the monotonic count of operations successfully applied
// since construction (across restore and live Apply calls).
func (c *Core) Changes() uint64 {
	c.RLock()
	defer c.RUnlock()
	return c.changes
}

// RestoreFrom is valid only in StateInitial. It replays the Port
// storage's latest checkpoint (if any) into self.Restore, then replays
// every subsequent operation into self.ApplyOperation, then transitions
// to StateRestored. If setJournal is true, it additionally attaches port
// and transitions to StateActive — taking an immediate checkpoint first
// if the storage held none.
func (c *Core) RestoreFrom(port *Port, setJournal bool) error {
	c.Lock()
	if c.state != StateInitial {
		c.Unlock()
		return ErrStateError
	}
	c.state = StateRestoring
	c.Unlock()

	genID, foundCheckpoint, err := c.replayCheckpoint(port)
	if err != nil {
		c.invalidate()
		return err
	}

	if err := c.replayOperations(port, genID); err != nil {
		c.invalidate()
		return err
	}

	c.Lock()
	c.state = StateRestored
	c.generation = genID
	c.Unlock()

	if !setJournal {
		return nil
	}

	if err := port.attach(c); err != nil {
		c.invalidate()
		return err
	}
	c.Lock()
	c.port = port
	c.state = StateActive
	c.Unlock()

	if !foundCheckpoint {
		if _, err := c.TakeCheckpoint(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Core) replayCheckpoint(port *Port) (genID uint32, found bool, err error) {
	genID, err = port.Storage().ReplayCheckpoint(func(r io.Reader) error {
		return c.self.Restore(r)
	})
	if err == nil {
		return genID, true, nil
	}
	if errors.Is(err, ErrNoCheckpoint) {
		return 0, false, nil
	}
	return 0, false, err
}

func (c *Core) replayOperations(port *Port, fromGeneration uint32) error {
	return port.Storage().ReplayRecords(fromGeneration, func(op Operation, generation uint32) error {
		if err := c.self.ApplyOperation(op); err != nil {
			if c.self.IgnorableOnRestore(err) {
				log.Printf("journal: ignoring restore-time error for opcode %d/%d: %v", op.Opcode, op.Opversion, err)
				return nil
			}
			return err
		}
		c.Lock()
		c.changes++
		c.Unlock()
		return nil
	})
}

func (c *Core) invalidate() {
	c.Lock()
	c.state = StateInvalid
	c.Unlock()
}

// Apply applies op to the target. It is valid in StateRestored (applies
// without persisting — there is no attached Port), and in StateActive or
// StateCheckpoint (persists through the Port first, then applies). A
// failure persisting fails the operation outright; a failure applying an
// already-persisted operation is returned to the caller, but the storage
// record remains (the log is not rolled back).
func (c *Core) Apply(op Operation) error {
	c.Lock()
	defer c.Unlock()

	switch c.state {
	case StateRestored:
		if err := c.self.ApplyOperation(op); err != nil {
			return err
		}
		c.changes++
		return nil

	case StateActive, StateCheckpoint:
		if c.port == nil {
			return ErrStateError
		}
		if _, err := c.port.storeOperation(c.generation, op); err != nil {
			return err
		}
		if err := c.self.ApplyOperation(op); err != nil {
			log.Printf("journal: operation persisted but not applied: %v", err)
			return err
		}
		c.changes++
		return nil

	default:
		return ErrStateError
	}
}

// TakeCheckpoint is valid only in StateActive. It transitions briefly to
// StateCheckpoint to mark the attempt, then releases the target lock
// before writing the (possibly slow) checkpoint body, so Apply calls
// continue to make progress concurrently. On success it returns to
// StateActive with the new generation id; on any failure the checkpoint
// is rolled back and the target transitions to StateInvalid.
func (c *Core) TakeCheckpoint() (uint32, error) {
	c.Lock()
	if c.state != StateActive {
		c.Unlock()
		return 0, ErrStateError
	}
	c.state = StateCheckpoint
	port := c.port
	c.Unlock()

	c.ckptMu.Lock()

	w, genID, err := port.Storage().CreateCheckpoint()
	if err != nil {
		c.ckptMu.Unlock()
		c.invalidate()
		metrics.ErrorCount.With(prometheus.Labels{"type": "journal_checkpoint"}).Inc()
		return 0, err
	}

	if err := c.self.Snapshot(w); err != nil {
		port.Storage().CloseCheckpoint(false)
		c.ckptMu.Unlock()
		c.invalidate()
		metrics.ErrorCount.With(prometheus.Labels{"type": "journal_checkpoint"}).Inc()
		return 0, err
	}
	if err := port.Storage().CloseCheckpoint(true); err != nil {
		c.ckptMu.Unlock()
		c.invalidate()
		metrics.ErrorCount.With(prometheus.Labels{"type": "journal_checkpoint"}).Inc()
		return 0, err
	}
	c.ckptMu.Unlock()

	c.Lock()
	c.generation = genID
	c.state = StateActive
	c.Unlock()
	metrics.JournalCheckpointCount.Inc()
	return genID, nil
}
