// Package journal implements a write-ahead checkpoint+operation log that
// lets an in-memory object (a "journalled target") be persisted,
// recovered, and evolved through applied operations, with crash-safe
// checkpointing overlapped with live operation traffic.
package journal

import "errors"

var (
	// ErrStateError is returned for an illegal state transition (e.g.
	// RestoreFrom called outside INITIAL, Apply called outside
	// RESTORED/ACTIVE/CHECKPOINT, TakeCheckpoint called outside ACTIVE).
	ErrStateError = errors.New("journal: illegal state transition")
	// ErrOpError is returned during replay when a record's opcode or
	// opversion is not recognized by the target.
	ErrOpError = errors.New("journal: bad opcode/opversion on restore")
	// ErrBadMagic is returned when a record's leading magic does not
	// match the storage's expected magic.
	ErrBadMagic = errors.New("journal: bad record magic")
	// ErrCRCMismatch is returned when a record's trailing CRC32 does not
	// match its header+body+tail-prefix bytes.
	ErrCRCMismatch = errors.New("journal: record CRC mismatch")
	// ErrSizeMismatch is returned when a record's header data_size
	// disagrees with its tail data_size.
	ErrSizeMismatch = errors.New("journal: header/tail data_size mismatch")
	// ErrNoCheckpoint is returned replaying a Storage that has never had
	// a checkpoint committed.
	ErrNoCheckpoint = errors.New("journal: no checkpoint present")
)
