package journal

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ymarkovitch/pcomn-go/metrics"
)

// Port is the association of a Storage with at most one Target. Its mutex
// guards both the Storage handle and the attached target pointer; its
// event counter is incremented on every operation appended through it.
type Port struct {
	mu      sync.Mutex
	storage Storage
	target  *Core
	events  uint64
}

// NewPort wraps storage in a Port with no attached target.
func NewPort(storage Storage) *Port {
	return &Port{storage: storage}
}

// Storage returns the underlying Storage.
func (p *Port) Storage() Storage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.storage
}

// Events returns the number of operations appended through this Port.
func (p *Port) Events() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events
}

// attach associates target with this Port. It fails if a different target
// is already attached.
func (p *Port) attach(target *Core) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.target != nil && p.target != target {
		return ErrStateError
	}
	p.target = target
	return nil
}

// storeOperation appends op tagged with generation to storage, counting
// the event. Called by Core.Apply while holding the target's write lock.
func (p *Port) storeOperation(generation uint32, op Operation) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	offset, err := p.storage.AppendRecord(generation, op)
	if err != nil {
		return offset, err
	}
	p.events++
	metrics.JournalOperationCount.With(prometheus.Labels{"opcode": strconv.FormatUint(uint64(op.Opcode), 10)}).Inc()
	return offset, nil
}
