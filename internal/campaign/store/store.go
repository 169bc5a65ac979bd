// Package store declares the persistence contract for the campaign ledger.
// Stores are interface-driven so the in-memory and Postgres implementations
// stay swappable without rewiring domain logic.
package store

import (
	"context"
	"errors"

	"fundledger/internal/campaign"
	"fundledger/pkg/identity"
	"fundledger/pkg/money"
)

// ErrNotFound keeps out-of-range lookups consistent across implementations.
// The service translates it to the domain's InvalidIndex error.
var ErrNotFound = errors.New("campaign not found")

// CampaignStore persists the ordered campaign sequence. Implementations are
// pure I/O: lifecycle checks and invariant enforcement belong to the service,
// which serializes mutating calls per index.
type CampaignStore interface {
	// Append adds a campaign at the next index and returns that index.
	// Indices start at zero and are never reused.
	Append(ctx context.Context, c campaign.Campaign) (uint64, error)

	// Get returns the campaign at index, or ErrNotFound.
	Get(ctx context.Context, index uint64) (campaign.Campaign, error)

	// Count returns the number of campaigns ever created.
	Count(ctx context.Context) (uint64, error)

	// List returns all campaigns in creation order.
	List(ctx context.Context) ([]campaign.Campaign, error)

	// ListByCreator returns every campaign registered by the given
	// address, in creation order.
	ListByCreator(ctx context.Context, creator identity.Address) ([]campaign.Campaign, error)

	// SetRaised overwrites the running total for an open campaign.
	SetRaised(ctx context.Context, index uint64, raised money.Amount) error

	// MarkSettled flips Ended to true and zeroes the balance in one write.
	MarkSettled(ctx context.Context, index uint64) error

	// ReverseSettlement undoes MarkSettled after a failed payout,
	// restoring the prior balance and reopening settlement eligibility.
	ReverseSettlement(ctx context.Context, index uint64, raised money.Amount) error
}
