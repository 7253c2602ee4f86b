package failure

import (
	"context"
	"sync"
)

// MemoryPublisher accumulates Records in memory. Used in worker tests to
// assert which outbound messages were failed out and why.
type MemoryPublisher struct {
	mu      sync.Mutex
	Records []Record
}

// NewMemoryPublisher creates an empty MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish implements Publisher.
func (p *MemoryPublisher) Publish(ctx context.Context, rec Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Records = append(p.Records, rec)
	return nil
}

// All returns a snapshot of the recorded failures.
func (p *MemoryPublisher) All() []Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Record, len(p.Records))
	copy(out, p.Records)
	return out
}
