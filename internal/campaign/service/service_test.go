package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"fundledger/internal/campaign"
	"fundledger/internal/campaign/store/memory"
	"fundledger/internal/events"
	"fundledger/internal/policy"
	"fundledger/internal/treasury"
	"fundledger/pkg/apperr"
	"fundledger/pkg/identity"
	"fundledger/pkg/money"
)

const authority = identity.Address("ledger-authority")

// fakeClock drives deadlines without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// blockingRail lets a test hold a transfer open to provoke overlap.
type blockingRail struct {
	*treasury.MemoryRail
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRail) Transfer(ctx context.Context, to identity.Address, amount money.Amount) error {
	select {
	case r.entered <- struct{}{}:
	default:
	}
	<-r.release
	return r.MemoryRail.Transfer(ctx, to, amount)
}

// failingRail rejects every payout.
type failingRail struct {
	*treasury.MemoryRail
}

func (r *failingRail) Transfer(context.Context, identity.Address, money.Amount) error {
	return errors.New("rail unavailable")
}

type LedgerSuite struct {
	suite.Suite
	store  *memory.Store
	rail   *treasury.MemoryRail
	sink   *capturedEvents
	clock  *fakeClock
	ledger *Ledger
}

type capturedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capturedEvents) Publish(_ context.Context, ev events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capturedEvents) byType(t events.Type) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.store = memory.New()
	s.rail = treasury.NewMemoryRail()
	s.sink = &capturedEvents{}
	s.clock = newFakeClock()
	s.ledger = s.newLedger(s.rail)
}

func (s *LedgerSuite) newLedger(rail treasury.Rail) *Ledger {
	publisher := events.NewPublisher(zerolog.Nop(), s.sink)
	ledger, err := New(
		s.store, rail, publisher,
		policy.Default(authority),
		nil, zerolog.Nop(),
		WithClock(s.clock.Now),
	)
	s.Require().NoError(err)
	return ledger
}

func (s *LedgerSuite) create(duration time.Duration) uint64 {
	index, err := s.ledger.Create(context.Background(), "alice", CreateInput{
		Name:        "clean water well",
		Description: "dig a well for the village",
		Benefactor:  "charity",
		Goal:        money.FromUint64(100),
		Duration:    duration,
	})
	s.Require().NoError(err)
	return index
}

func (s *LedgerSuite) TestNew() {
	publisher := events.NewPublisher(zerolog.Nop())
	_, err := New(nil, s.rail, publisher, policy.Default(authority), nil, zerolog.Nop())
	s.ErrorContains(err, "campaign store is required")

	_, err = New(s.store, nil, publisher, policy.Default(authority), nil, zerolog.Nop())
	s.ErrorContains(err, "treasury rail is required")

	_, err = New(s.store, s.rail, nil, policy.Default(authority), nil, zerolog.Nop())
	s.ErrorContains(err, "event publisher is required")

	_, err = New(s.store, s.rail, publisher, nil, nil, zerolog.Nop())
	s.ErrorContains(err, "authorizer is required")
}

func (s *LedgerSuite) TestCreate() {
	ctx := context.Background()

	s.Run("assigns sequential indices and absolute deadlines", func() {
		first := s.create(1000 * time.Second)
		second := s.create(2000 * time.Second)
		s.Equal(uint64(0), first)
		s.Equal(uint64(1), second)

		c, err := s.ledger.CampaignAt(ctx, first)
		s.Require().NoError(err)
		s.Equal(s.clock.Now().Add(1000*time.Second), c.Deadline)
		s.False(c.Ended)
		s.True(c.AmountRaised.IsZero())
		s.Equal(campaign.StatusOpen, c.Status())
	})

	s.Run("emits creation event with snapshot", func() {
		created := s.sink.byType(events.TypeCampaignCreated)
		s.Require().NotEmpty(created)
		s.Require().NotNil(created[0].Campaign)
		s.Equal("clean water well", created[0].Campaign.Name)
		s.Equal(identity.Address("alice"), created[0].Caller)
	})

	s.Run("rejects blank fields and non-positive durations", func() {
		_, err := s.ledger.Create(ctx, "alice", CreateInput{Description: "d", Duration: time.Hour})
		s.True(apperr.Is(err, apperr.CodeBadRequest))

		_, err = s.ledger.Create(ctx, "alice", CreateInput{Name: "n", Duration: time.Hour})
		s.True(apperr.Is(err, apperr.CodeBadRequest))

		_, err = s.ledger.Create(ctx, "alice", CreateInput{Name: "n", Description: "d"})
		s.True(apperr.Is(err, apperr.CodeBadRequest))
	})

	s.Run("allows zero benefactor at creation", func() {
		_, err := s.ledger.Create(ctx, "alice", CreateInput{
			Name: "tbd", Description: "benefactor decided later", Duration: time.Hour,
		})
		s.NoError(err)
	})
}

func (s *LedgerSuite) TestDonate() {
	ctx := context.Background()
	index := s.create(1000 * time.Second)

	s.Run("accumulates past the goal", func() {
		s.clock.Advance(10 * time.Second)
		total, err := s.ledger.Donate(ctx, "bob", index, money.FromUint64(40))
		s.Require().NoError(err)
		s.Equal("40", total.String())

		s.clock.Advance(10 * time.Second)
		total, err = s.ledger.Donate(ctx, "carol", index, money.FromUint64(70))
		s.Require().NoError(err)
		s.Equal("110", total.String())

		balance, err := s.ledger.BalanceOf(ctx, index)
		s.Require().NoError(err)
		// goal is 100 and never enforced
		s.Equal("110", balance.String())
	})

	s.Run("emits donation events", func() {
		donations := s.sink.byType(events.TypeDonation)
		s.Require().Len(donations, 2)
		s.Equal(identity.Address("bob"), donations[0].Caller)
		s.Equal("40", donations[0].Amount.String())
		s.Equal(index, donations[0].Index)
	})

	s.Run("out of range index", func() {
		_, err := s.ledger.Donate(ctx, "bob", 5, money.FromUint64(1))
		s.ErrorIs(err, campaign.ErrInvalidIndex)
	})

	s.Run("rejected at the deadline", func() {
		// advance exactly to the deadline; now >= deadline closes it
		s.clock.Advance(980 * time.Second)
		_, err := s.ledger.Donate(ctx, "bob", index, money.FromUint64(1))
		s.ErrorIs(err, campaign.ErrClosed)

		balance, berr := s.ledger.BalanceOf(ctx, index)
		s.Require().NoError(berr)
		s.Equal("110", balance.String())
	})
}

func (s *LedgerSuite) TestDonateOverflow() {
	ctx := context.Background()
	index := s.create(time.Hour)

	nearMax, err := money.Max().Sub(money.FromUint64(5))
	s.Require().NoError(err)
	_, err = s.ledger.Donate(ctx, "whale", index, nearMax)
	s.Require().NoError(err)

	_, err = s.ledger.Donate(ctx, "bob", index, money.FromUint64(6))
	s.ErrorIs(err, campaign.ErrOverflow)

	// balance unchanged by the rejected donation
	balance, berr := s.ledger.BalanceOf(ctx, index)
	s.Require().NoError(berr)
	s.Equal(0, balance.Cmp(nearMax))
}

func (s *LedgerSuite) TestEndLifecycle() {
	ctx := context.Background()
	index := s.create(1000 * time.Second)

	s.clock.Advance(10 * time.Second)
	_, err := s.ledger.Donate(ctx, "bob", index, money.FromUint64(40))
	s.Require().NoError(err)
	s.clock.Advance(10 * time.Second)
	_, err = s.ledger.Donate(ctx, "carol", index, money.FromUint64(70))
	s.Require().NoError(err)
	s.Require().NoError(s.rail.Deposit(ctx, money.FromUint64(110)))

	s.Run("too early", func() {
		_, err := s.ledger.End(ctx, authority, index)
		s.ErrorIs(err, campaign.ErrStillOpen)
	})

	s.Run("unauthorized caller", func() {
		s.clock.Advance(981 * time.Second) // t=1001, past the deadline
		_, err := s.ledger.End(ctx, "mallory", index)
		s.ErrorIs(err, campaign.ErrNotAuthorized)
	})

	s.Run("settles exactly once", func() {
		payout, err := s.ledger.End(ctx, authority, index)
		s.Require().NoError(err)
		s.Equal("110", payout.String())

		c, err := s.ledger.CampaignAt(ctx, index)
		s.Require().NoError(err)
		s.True(c.Ended)
		s.True(c.AmountRaised.IsZero())
		s.Equal(campaign.StatusSettled, c.Status())

		paid, err := s.rail.PaidTo(ctx, "charity")
		s.Require().NoError(err)
		s.Equal("110", paid.String())

		ended := s.sink.byType(events.TypeCampaignEnded)
		s.Require().Len(ended, 1)
		s.Equal("110", ended[0].Amount.String())
		s.Equal(identity.Address("charity"), ended[0].Benefactor)
	})

	s.Run("second settlement fails", func() {
		s.clock.Advance(time.Second) // t=1002
		_, err := s.ledger.End(ctx, authority, index)
		s.ErrorIs(err, campaign.ErrAlreadySettled)

		// still exactly one payout
		paid, err := s.rail.PaidTo(ctx, "charity")
		s.Require().NoError(err)
		s.Equal("110", paid.String())
	})

	s.Run("record remains queryable after settlement", func() {
		c, err := s.ledger.CampaignAt(ctx, index)
		s.Require().NoError(err)
		s.Equal("clean water well", c.Name)
		s.Equal(identity.Address("alice"), c.Creator)
		s.Equal("100", c.Goal.String())
	})
}

func (s *LedgerSuite) TestEndPreconditions() {
	ctx := context.Background()

	s.Run("invalid index", func() {
		_, err := s.ledger.End(ctx, authority, 42)
		s.ErrorIs(err, campaign.ErrInvalidIndex)
	})

	s.Run("no benefactor", func() {
		index, err := s.ledger.Create(ctx, "alice", CreateInput{
			Name: "orphan", Description: "no benefactor yet", Duration: time.Second,
		})
		s.Require().NoError(err)
		_, err = s.ledger.Donate(ctx, "bob", index, money.FromUint64(5))
		s.Require().NoError(err)

		s.clock.Advance(2 * time.Second)
		_, err = s.ledger.End(ctx, authority, index)
		s.ErrorIs(err, campaign.ErrNoBenefactor)
	})

	s.Run("nothing to settle", func() {
		index := s.create(time.Second)
		s.clock.Advance(2 * time.Second)
		_, err := s.ledger.End(ctx, authority, index)
		s.ErrorIs(err, campaign.ErrNothingToSettle)
	})
}

func (s *LedgerSuite) TestEndTransferFailureRollsBack() {
	ctx := context.Background()
	rail := &failingRail{MemoryRail: treasury.NewMemoryRail()}
	ledger := s.newLedger(rail)

	index, err := ledger.Create(ctx, "alice", CreateInput{
		Name: "well", Description: "d", Benefactor: "charity",
		Duration: time.Second,
	})
	s.Require().NoError(err)
	_, err = ledger.Donate(ctx, "bob", index, money.FromUint64(40))
	s.Require().NoError(err)

	s.clock.Advance(2 * time.Second)
	_, err = ledger.End(ctx, authority, index)
	s.ErrorIs(err, campaign.ErrTransferFailed)

	// full rollback: not ended, balance unchanged, retry possible
	c, err := ledger.CampaignAt(ctx, index)
	s.Require().NoError(err)
	s.False(c.Ended)
	s.Equal("40", c.AmountRaised.String())
	s.Empty(s.sink.byType(events.TypeCampaignEnded))
}

func (s *LedgerSuite) TestConcurrentEndIsRejected() {
	ctx := context.Background()
	rail := &blockingRail{
		MemoryRail: treasury.NewMemoryRail(),
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	ledger := s.newLedger(rail)

	var indices [2]uint64
	for i := range indices {
		index, err := ledger.Create(ctx, "alice", CreateInput{
			Name: "well", Description: "d", Benefactor: "charity",
			Duration: time.Second,
		})
		s.Require().NoError(err)
		_, err = ledger.Donate(ctx, "bob", index, money.FromUint64(10))
		s.Require().NoError(err)
		indices[i] = index
	}
	s.Require().NoError(rail.Deposit(ctx, money.FromUint64(20)))
	s.clock.Advance(2 * time.Second)

	first := make(chan error, 1)
	go func() {
		_, err := ledger.End(ctx, authority, indices[0])
		first <- err
	}()
	<-rail.entered // settlement of index 0 is mid-transfer

	// a settlement anywhere else in the ledger is rejected while one is
	// in flight
	_, err := ledger.End(ctx, authority, indices[1])
	s.ErrorIs(err, campaign.ErrReentrantCall)

	// same index too: the guard is checked before the index lock, so the
	// call fails fast instead of queueing behind the in-flight transfer
	_, err = ledger.End(ctx, authority, indices[0])
	s.ErrorIs(err, campaign.ErrReentrantCall)

	close(rail.release)
	s.Require().NoError(<-first)

	// guard released on exit: the second settlement now succeeds
	payout, err := ledger.End(ctx, authority, indices[1])
	s.Require().NoError(err)
	s.Equal("10", payout.String())
}

func (s *LedgerSuite) TestConcurrentDonationsDistinctIndices() {
	ctx := context.Background()
	a := s.create(time.Hour)
	b := s.create(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ledger.Donate(ctx, "bob", a, money.FromUint64(1))
			s.NoError(err)
			_, err = s.ledger.Donate(ctx, "bob", b, money.FromUint64(2))
			s.NoError(err)
		}()
	}
	wg.Wait()

	balanceA, err := s.ledger.BalanceOf(ctx, a)
	s.Require().NoError(err)
	s.Equal("50", balanceA.String())

	balanceB, err := s.ledger.BalanceOf(ctx, b)
	s.Require().NoError(err)
	s.Equal("100", balanceB.String())
}

// appendTrackingStore flags overlapping Append calls; backends that derive
// the next index from the sequence length corrupt it if two appends ever
// interleave.
type appendTrackingStore struct {
	*memory.Store
	inFlight   atomic.Int32
	overlapped atomic.Bool
}

func (t *appendTrackingStore) Append(ctx context.Context, c campaign.Campaign) (uint64, error) {
	if t.inFlight.Add(1) > 1 {
		t.overlapped.Store(true)
	}
	defer t.inFlight.Add(-1)
	time.Sleep(time.Millisecond) // keep the section open long enough to observe overlap
	return t.Store.Append(ctx, c)
}

func (s *LedgerSuite) TestConcurrentCreatesAreSerialized() {
	ctx := context.Background()
	tracking := &appendTrackingStore{Store: memory.New()}
	publisher := events.NewPublisher(zerolog.Nop(), s.sink)
	ledger, err := New(
		tracking, s.rail, publisher,
		policy.Default(authority),
		nil, zerolog.Nop(),
		WithClock(s.clock.Now),
	)
	s.Require().NoError(err)

	const creators = 20
	indices := make(chan uint64, creators)
	var wg sync.WaitGroup
	for i := 0; i < creators; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			index, err := ledger.Create(ctx, "alice", CreateInput{
				Name: "well", Description: "d", Duration: time.Hour,
			})
			s.NoError(err)
			indices <- index
		}()
	}
	wg.Wait()
	close(indices)

	s.False(tracking.overlapped.Load(), "appends interleaved")

	seen := make(map[uint64]bool, creators)
	for index := range indices {
		s.False(seen[index], "index assigned twice")
		seen[index] = true
	}
	s.Len(seen, creators)
}

func (s *LedgerSuite) TestQueries() {
	ctx := context.Background()

	_, err := s.ledger.Create(ctx, "alice", CreateInput{Name: "a", Description: "d", Duration: time.Hour})
	s.Require().NoError(err)
	_, err = s.ledger.Create(ctx, "bob", CreateInput{Name: "b", Description: "d", Duration: time.Hour})
	s.Require().NoError(err)
	_, err = s.ledger.Create(ctx, "alice", CreateInput{Name: "c", Description: "d", Duration: time.Hour})
	s.Require().NoError(err)

	count, err := s.ledger.Count(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(3), count)

	mine, err := s.ledger.CampaignsByCreator(ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.Equal("a", mine[0].Name)
	s.Equal("c", mine[1].Name)

	all, err := s.ledger.List(ctx)
	s.Require().NoError(err)
	s.Len(all, 3)

	_, err = s.ledger.BalanceOf(ctx, 99)
	s.ErrorIs(err, campaign.ErrInvalidIndex)
	_, err = s.ledger.CampaignAt(ctx, 99)
	s.ErrorIs(err, campaign.ErrInvalidIndex)
}
