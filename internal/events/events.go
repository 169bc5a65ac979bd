// Package events broadcasts ledger notifications to downstream observers.
// Delivery is fire-and-forget: a sink failure is logged and never rolls
// back the state change that produced the event.
package events

import (
	"time"

	"fundledger/internal/campaign"
	"fundledger/pkg/identity"
	"fundledger/pkg/money"
)

// Type names a ledger notification.
type Type string

const (
	TypeCampaignCreated Type = "campaign.created"
	TypeDonation        Type = "campaign.donation"
	TypeCampaignEnded   Type = "campaign.ended"
)

// Event is one ledger notification. Keep it transport-agnostic so sinks can
// fan out to channels, Kafka, and websockets without translation.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	Index  uint64           `json:"index"`
	Caller identity.Address `json:"caller,omitempty"`

	// Amount carries the donation value for TypeDonation and the payout
	// for TypeCampaignEnded.
	Amount money.Amount `json:"amount"`

	// Benefactor is set on TypeCampaignEnded.
	Benefactor identity.Address `json:"benefactor,omitempty"`

	// Campaign is the full snapshot, set on TypeCampaignCreated.
	Campaign *campaign.Campaign `json:"campaign,omitempty"`
}

// CampaignCreated builds the creation notification with a full snapshot.
func CampaignCreated(caller identity.Address, c campaign.Campaign) Event {
	snapshot := c
	return Event{
		Type:     TypeCampaignCreated,
		Index:    c.Index,
		Caller:   caller,
		Campaign: &snapshot,
	}
}

// Donation builds the donation notification.
func Donation(caller identity.Address, value money.Amount, index uint64) Event {
	return Event{
		Type:   TypeDonation,
		Index:  index,
		Caller: caller,
		Amount: value,
	}
}

// CampaignEnded builds the settlement notification.
func CampaignEnded(index uint64, benefactor identity.Address, payout money.Amount) Event {
	return Event{
		Type:       TypeCampaignEnded,
		Index:      index,
		Benefactor: benefactor,
		Amount:     payout,
	}
}
