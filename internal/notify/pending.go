package notify

import (
	"context"
	"sync"
)

// Pending is the eventual outcome of one send.
type Pending struct {
	done    chan struct{}
	once    sync.Once
	receipt Receipt
	err     error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(receipt Receipt, err error) {
	p.once.Do(func() {
		p.receipt = receipt
		p.err = err
		close(p.done)
	})
}

// Done is closed once the transport has answered.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the send finishes or ctx ends. A ctx error does not
// cancel the send itself.
func (p *Pending) Wait(ctx context.Context) (Receipt, error) {
	select {
	case <-p.done:
		return p.receipt, p.err
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	}
}
