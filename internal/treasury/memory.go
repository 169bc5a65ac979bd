package treasury

import (
	"context"
	"sync"

	"fundledger/pkg/identity"
	"fundledger/pkg/money"
)

// MemoryRail keeps custody and payout totals in process. Default rail for
// development and tests.
type MemoryRail struct {
	mu      sync.RWMutex
	custody money.Amount
	paid    map[identity.Address]money.Amount
}

func NewMemoryRail() *MemoryRail {
	return &MemoryRail{paid: make(map[identity.Address]money.Amount)}
}

func (r *MemoryRail) Deposit(_ context.Context, amount money.Amount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	custody, err := r.custody.Add(amount)
	if err != nil {
		return err
	}
	r.custody = custody
	return nil
}

func (r *MemoryRail) Withdraw(_ context.Context, amount money.Amount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	custody, err := r.custody.Sub(amount)
	if err != nil {
		return ErrInsufficientFunds
	}
	r.custody = custody
	return nil
}

func (r *MemoryRail) Transfer(_ context.Context, to identity.Address, amount money.Amount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	custody, err := r.custody.Sub(amount)
	if err != nil {
		return ErrInsufficientFunds
	}
	paid, err := r.paid[to].Add(amount)
	if err != nil {
		return err
	}
	r.custody = custody
	r.paid[to] = paid
	return nil
}

func (r *MemoryRail) CustodyBalance(_ context.Context) (money.Amount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.custody, nil
}

func (r *MemoryRail) PaidTo(_ context.Context, to identity.Address) (money.Amount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paid[to], nil
}
