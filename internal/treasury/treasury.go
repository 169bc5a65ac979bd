// Package treasury is the value-custody rail: it holds donated funds and
// executes payouts requested by settlement. The ledger never assumes funds
// moved except on an explicit success from Transfer.
package treasury

import (
	"context"
	"errors"

	"fundledger/pkg/identity"
	"fundledger/pkg/money"
)

// ErrInsufficientFunds is returned when custody cannot cover a withdrawal
// or payout. Seeing it from Transfer means the boundary failed to deposit
// donations into custody, which is a wiring bug, not a ledger state.
var ErrInsufficientFunds = errors.New("treasury: insufficient custody funds")

// Rail moves value in and out of the ledger's custody. All methods report
// success or failure synchronously; nothing retries.
type Rail interface {
	// Deposit moves incoming donation value into custody. The boundary
	// calls it before the ledger records the donation.
	Deposit(ctx context.Context, amount money.Amount) error

	// Withdraw refunds a deposit after a rejected donation so custody
	// never holds orphaned funds.
	Withdraw(ctx context.Context, amount money.Amount) error

	// Transfer pays out custody funds to a recipient.
	Transfer(ctx context.Context, to identity.Address, amount money.Amount) error

	// CustodyBalance reports funds currently held.
	CustodyBalance(ctx context.Context) (money.Amount, error)

	// PaidTo reports the cumulative amount transferred to a recipient.
	PaidTo(ctx context.Context, to identity.Address) (money.Amount, error)
}
