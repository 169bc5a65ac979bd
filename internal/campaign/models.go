// Package campaign defines the fundraising campaign model and the error
// kinds the ledger can raise.
package campaign

import (
	"time"

	"fundledger/pkg/identity"
	"fundledger/pkg/money"
)

// Status describes where a campaign sits in its lifecycle.
type Status string

const (
	// StatusOpen means the campaign accepts donations until its deadline
	// and has not yet been settled.
	StatusOpen Status = "open"
	// StatusSettled means funds were paid out; the record stays queryable
	// forever with a zero balance.
	StatusSettled Status = "settled"
)

// Campaign is one fundraising effort. Records are append-only: an index is
// assigned at creation and never reused or renumbered.
type Campaign struct {
	Index        uint64
	Creator      identity.Address
	Name         string
	Description  string
	Benefactor   identity.Address
	Goal         money.Amount
	Deadline     time.Time
	AmountRaised money.Amount
	Ended        bool
	CreatedAt    time.Time
}

// Status derives the lifecycle state from the Ended marker. Ended is the
// authoritative settlement signal; a zero balance alone proves nothing.
func (c Campaign) Status() Status {
	if c.Ended {
		return StatusSettled
	}
	return StatusOpen
}

// AcceptsDonations reports whether a donation at the given instant would
// pass the deadline check. Donations are rejected from the deadline onward.
func (c Campaign) AcceptsDonations(now time.Time) bool {
	return now.Before(c.Deadline)
}

// SettleableAt reports whether the deadline has passed at the given instant.
func (c Campaign) SettleableAt(now time.Time) bool {
	return !now.Before(c.Deadline)
}
