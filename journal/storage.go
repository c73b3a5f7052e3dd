package journal

import "io"

// RecordHandler processes one replayed operation record, tagged with the
// generation epoch it was appended under.
type RecordHandler func(op Operation, generation uint32) error

// Storage is an append-only operation log plus a single checkpoint slot.
// Implementations must make AppendRecord and CreateCheckpoint/
// CloseCheckpoint safe to call concurrently with each other (live traffic
// continues while a checkpoint is being written), though a Storage itself
// does not need to serialize concurrent AppendRecord calls — Port does
// that with its own mutex.
type Storage interface {
	// AppendRecord serialises op as one record tagged with generation and
	// appends it to the log, returning its byte offset.
	AppendRecord(generation uint32, op Operation) (offset int64, err error)

	// ReplayRecords calls handler once per record whose generation is >=
	// fromGeneration, in append order. A non-nil handler error aborts
	// replay and is returned to the caller.
	ReplayRecords(fromGeneration uint32, handler RecordHandler) error

	// CreateCheckpoint opens a new checkpoint artifact for writing and
	// allocates the next monotonic generation id. The caller writes the
	// target's full snapshot to the returned writer, then calls
	// CloseCheckpoint.
	CreateCheckpoint() (w io.WriteCloser, generationID uint32, err error)

	// CloseCheckpoint finalises the checkpoint opened by CreateCheckpoint.
	// commit=false rolls it back (the prior checkpoint, if any, remains
	// the latest valid one).
	CloseCheckpoint(commit bool) error

	// ReplayCheckpoint calls handler with a reader over the most recent
	// committed checkpoint's bytes, and reports the checkpoint's
	// generation id. ErrNoCheckpoint is returned if none was ever
	// committed.
	ReplayCheckpoint(handler func(r io.Reader) error) (generationID uint32, err error)

	// SetUserMagic stores a target-supplied magic word that the Storage
	// combines with its own magic, so data written under a different user
	// magic is rejected when it is read back.
	SetUserMagic(magic uint32) error

	// MakeWritable transitions a Storage opened read-only (e.g. for
	// recovery inspection) into one that accepts AppendRecord/
	// CreateCheckpoint calls.
	MakeWritable() error
}
