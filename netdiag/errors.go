// Package netdiag reads and tracks kernel TCP socket state (TCP_INFO) for
// sockets this process holds open, and optionally journals the history of
// that state through the journal package.
package netdiag

import "fmt"

// SnapshotError wraps a failure reading a socket's kernel state.
type SnapshotError struct {
	Op  string
	Err error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("netdiag: %s: %v", e.Op, e.Err)
}

func (e *SnapshotError) Unwrap() error { return e.Err }
