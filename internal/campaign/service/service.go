// Package service implements the campaign ledger: the lifecycle state
// machine, its invariants, and the one-shot settlement discipline.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"fundledger/internal/campaign"
	"fundledger/internal/campaign/metrics"
	"fundledger/internal/campaign/store"
	"fundledger/internal/events"
	"fundledger/internal/policy"
	"fundledger/internal/treasury"
	"fundledger/pkg/apperr"
	"fundledger/pkg/identity"
	"fundledger/pkg/money"
)

// lockStripes sizes the per-index lock table. Two campaigns may share a
// stripe; that only costs parallelism, never correctness.
const lockStripes = 64

// Ledger owns the ordered campaign sequence and the four mutating
// operations. Creation is single-writer so index assignment is race-free
// on every backend; mutations on an existing index are serialized through
// a striped lock; settlement additionally holds a global guard so no two
// End calls ever overlap, anywhere in the ledger.
type Ledger struct {
	store   store.CampaignStore
	rail    treasury.Rail
	events  *events.Publisher
	authz   *policy.Authorizer
	metrics *metrics.Metrics
	log     zerolog.Logger

	now func() time.Time

	createMu sync.Mutex
	locks    [lockStripes]sync.Mutex
	settling atomic.Bool
}

// Option tweaks ledger construction.
type Option func(*Ledger)

// WithClock replaces the time source; tests drive deadlines with it.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New wires a Ledger. Store, rail, publisher, and authorizer are required;
// metrics may be nil.
func New(
	st store.CampaignStore,
	rail treasury.Rail,
	publisher *events.Publisher,
	authz *policy.Authorizer,
	m *metrics.Metrics,
	log zerolog.Logger,
	opts ...Option,
) (*Ledger, error) {
	if st == nil {
		return nil, errors.New("campaign store is required")
	}
	if rail == nil {
		return nil, errors.New("treasury rail is required")
	}
	if publisher == nil {
		return nil, errors.New("event publisher is required")
	}
	if authz == nil {
		return nil, errors.New("authorizer is required")
	}
	l := &Ledger{
		store:   st,
		rail:    rail,
		events:  publisher,
		authz:   authz,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// CreateInput carries the campaign registration fields. Benefactor may be
// zero at creation; settlement requires it to be set.
type CreateInput struct {
	Name        string
	Description string
	Benefactor  identity.Address
	Goal        money.Amount
	Duration    time.Duration
}

// Create registers a campaign and returns its index. The deadline is
// fixed as now+Duration at the moment of the call and never re-derived.
func (l *Ledger) Create(ctx context.Context, caller identity.Address, in CreateInput) (uint64, error) {
	if !l.authz.CanCreate(caller) {
		return 0, campaign.ErrNotAuthorized
	}
	if in.Name == "" {
		return 0, apperr.New(apperr.CodeBadRequest, "campaign name is required")
	}
	if in.Description == "" {
		return 0, apperr.New(apperr.CodeBadRequest, "campaign description is required")
	}
	if in.Duration <= 0 {
		return 0, apperr.New(apperr.CodeBadRequest, "campaign duration must be positive")
	}

	now := l.now()
	c := campaign.Campaign{
		Creator:      caller,
		Name:         in.Name,
		Description:  in.Description,
		Benefactor:   in.Benefactor,
		Goal:         in.Goal,
		Deadline:     now.Add(in.Duration),
		AmountRaised: money.Zero(),
		CreatedAt:    now,
	}
	// The next index is derived from the current sequence length, so two
	// appends must never interleave.
	l.createMu.Lock()
	index, err := l.store.Append(ctx, c)
	l.createMu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("append campaign: %w", err)
	}
	c.Index = index

	l.metrics.CampaignCreated()
	l.events.Emit(ctx, events.CampaignCreated(caller, c))
	l.log.Info().
		Uint64("index", index).
		Str("creator", caller.String()).
		Time("deadline", c.Deadline).
		Msg("campaign created")
	return index, nil
}

// Donate adds value to an open campaign and returns the new running total.
// The transferred value is already in the ledger's custody; the boundary
// deposits it as part of invoking this call. Preconditions run in a fixed
// order: bounds, deadline, settlement marker, overflow.
func (l *Ledger) Donate(ctx context.Context, caller identity.Address, index uint64, value money.Amount) (money.Amount, error) {
	lock := l.indexLock(index)
	lock.Lock()
	defer lock.Unlock()

	c, err := l.getCampaign(ctx, index)
	if err != nil {
		l.metrics.DonationRejected(string(apperr.CodeOf(err)))
		return money.Zero(), err
	}
	if !c.AcceptsDonations(l.now()) {
		l.metrics.DonationRejected(string(apperr.CodeCampaignClosed))
		return money.Zero(), campaign.ErrClosed
	}
	if c.Ended {
		l.metrics.DonationRejected(string(apperr.CodeCampaignAlreadySettled))
		return money.Zero(), campaign.ErrAlreadySettled
	}
	newTotal, err := c.AmountRaised.Add(value)
	if err != nil {
		l.metrics.DonationRejected(string(apperr.CodeOverflow))
		return money.Zero(), campaign.ErrOverflow
	}

	if err := l.store.SetRaised(ctx, index, newTotal); err != nil {
		return money.Zero(), fmt.Errorf("record donation: %w", err)
	}

	l.metrics.DonationAccepted()
	l.events.Emit(ctx, events.Donation(caller, value, index))
	l.log.Info().
		Uint64("index", index).
		Str("caller", caller.String()).
		Str("value", value.String()).
		Str("total", newTotal.String()).
		Msg("donation recorded")
	return newTotal, nil
}

// End settles a campaign exactly once, paying out the accumulated balance
// to the benefactor. The global guard is try-acquired before anything
// else, including the index lock, so a concurrent or re-entrant End
// anywhere in the ledger fails fast with ReentrantCall instead of queueing
// behind a settlement in flight. State is mutated before the external
// transfer and the balance zeroed before a single unit moves. A failed
// transfer rolls everything back; the campaign stays eligible for a retry.
func (l *Ledger) End(ctx context.Context, caller identity.Address, index uint64) (money.Amount, error) {
	if !l.settling.CompareAndSwap(false, true) {
		l.metrics.SettlementFailed(string(apperr.CodeReentrantCall))
		return money.Zero(), campaign.ErrReentrantCall
	}
	defer l.settling.Store(false)

	lock := l.indexLock(index)
	lock.Lock()
	defer lock.Unlock()

	payout, err := l.end(ctx, caller, index)
	if err != nil {
		l.metrics.SettlementFailed(string(apperr.CodeOf(err)))
		return money.Zero(), err
	}
	l.metrics.SettlementCompleted()
	return payout, nil
}

func (l *Ledger) end(ctx context.Context, caller identity.Address, index uint64) (money.Amount, error) {
	c, err := l.getCampaign(ctx, index)
	if err != nil {
		return money.Zero(), err
	}
	if !l.authz.CanSettle(caller) {
		return money.Zero(), campaign.ErrNotAuthorized
	}
	if !c.SettleableAt(l.now()) {
		return money.Zero(), campaign.ErrStillOpen
	}
	if c.Ended {
		return money.Zero(), campaign.ErrAlreadySettled
	}
	if c.Benefactor.IsZero() {
		return money.Zero(), campaign.ErrNoBenefactor
	}
	if c.AmountRaised.IsZero() {
		return money.Zero(), campaign.ErrNothingToSettle
	}

	// Effects before the external call: mark settled and zero the
	// balance, then transfer the snapshot.
	payout := c.AmountRaised
	if err := l.store.MarkSettled(ctx, index); err != nil {
		return money.Zero(), fmt.Errorf("mark settled: %w", err)
	}

	if err := l.rail.Transfer(ctx, c.Benefactor, payout); err != nil {
		if revErr := l.store.ReverseSettlement(ctx, index, payout); revErr != nil {
			// Rollback is a same-store write and should never fail
			// while holding the index lock; if it does, refuse to
			// hide it.
			l.log.Error().
				Err(revErr).
				Uint64("index", index).
				Msg("settlement rollback failed")
			return money.Zero(), fmt.Errorf("reverse settlement after failed transfer: %w", revErr)
		}
		l.log.Warn().
			Err(err).
			Uint64("index", index).
			Str("payout", payout.String()).
			Msg("payout transfer failed; settlement rolled back")
		return money.Zero(), apperr.Wrap(apperr.CodeTransferFailed, "payout transfer failed; settlement rolled back", err)
	}

	l.events.Emit(ctx, events.CampaignEnded(index, c.Benefactor, payout))
	l.log.Info().
		Uint64("index", index).
		Str("benefactor", c.Benefactor.String()).
		Str("payout", payout.String()).
		Msg("campaign settled")
	return payout, nil
}

// Count returns the number of campaigns ever created.
func (l *Ledger) Count(ctx context.Context) (uint64, error) {
	return l.store.Count(ctx)
}

// CampaignAt returns the campaign record at the given index.
func (l *Ledger) CampaignAt(ctx context.Context, index uint64) (campaign.Campaign, error) {
	return l.getCampaign(ctx, index)
}

// BalanceOf returns the running total for the campaign at index. Settled
// campaigns report zero; Ended is the authoritative settlement signal.
func (l *Ledger) BalanceOf(ctx context.Context, index uint64) (money.Amount, error) {
	c, err := l.getCampaign(ctx, index)
	if err != nil {
		return money.Zero(), err
	}
	return c.AmountRaised, nil
}

// List returns all campaigns in creation order.
func (l *Ledger) List(ctx context.Context) ([]campaign.Campaign, error) {
	return l.store.List(ctx)
}

// CampaignsByCreator returns every campaign registered by the given
// address, in creation order.
func (l *Ledger) CampaignsByCreator(ctx context.Context, creator identity.Address) ([]campaign.Campaign, error) {
	return l.store.ListByCreator(ctx, creator)
}

func (l *Ledger) getCampaign(ctx context.Context, index uint64) (campaign.Campaign, error) {
	c, err := l.store.Get(ctx, index)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return campaign.Campaign{}, campaign.ErrInvalidIndex
		}
		return campaign.Campaign{}, fmt.Errorf("load campaign %d: %w", index, err)
	}
	return c, nil
}

func (l *Ledger) indexLock(index uint64) *sync.Mutex {
	return &l.locks[index%lockStripes]
}
