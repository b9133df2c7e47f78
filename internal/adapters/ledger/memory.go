package ledger

import (
	"context"
	"errors"
	"sync"
)

// Movement records one settled transfer for inspection in tests.
type Movement struct {
	Asset  string
	From   string
	To     string
	Amount int64
	Inward bool
}

// MemoryTransferClient is a test double for the external value-transfer
// primitive. FailNext makes the next call report failure without recording
// a movement, mirroring the all-or-nothing contract.
type MemoryTransferClient struct {
	mu        sync.Mutex
	movements []Movement
	failIn    int
}

func NewMemoryTransferClient() *MemoryTransferClient {
	return &MemoryTransferClient{}
}

func (c *MemoryTransferClient) FailNext() {
	c.FailOn(1)
}

// FailOn makes the nth upcoming call fail, counting from 1. Calls before
// it settle normally.
func (c *MemoryTransferClient) FailOn(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failIn = n
}

func (c *MemoryTransferClient) Movements() []Movement {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Movement, len(c.movements))
	copy(out, c.movements)
	return out
}

func (c *MemoryTransferClient) TransferIn(_ context.Context, asset, from string, amount int64) error {
	return c.record(Movement{Asset: asset, From: from, Amount: amount, Inward: true})
}

func (c *MemoryTransferClient) Transfer(_ context.Context, asset, from, to string, amount int64) error {
	return c.record(Movement{Asset: asset, From: from, To: to, Amount: amount})
}

func (c *MemoryTransferClient) record(m Movement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failIn > 0 {
		c.failIn--
		if c.failIn == 0 {
			return errors.New("transfer rejected")
		}
	}
	c.movements = append(c.movements, m)
	return nil
}

// StubLedgerClock serves a settable height for tests.
type StubLedgerClock struct {
	mu     sync.Mutex
	height int64
}

func NewStubLedgerClock(height int64) *StubLedgerClock {
	return &StubLedgerClock{height: height}
}

func (c *StubLedgerClock) SetHeight(h int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height = h
}

func (c *StubLedgerClock) CurrentHeight(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height, nil
}
