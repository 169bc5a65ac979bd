package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fundledger/internal/campaign"
	"fundledger/internal/campaign/store"
	"fundledger/pkg/identity"
	"fundledger/pkg/money"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
}

func (s *MemoryStoreSuite) newCampaign(creator identity.Address) campaign.Campaign {
	return campaign.Campaign{
		Creator:    creator,
		Name:       "well",
		Benefactor: identity.Address("charity"),
		Goal:       money.FromUint64(100),
		Deadline:   time.Now().Add(time.Hour),
		CreatedAt:  time.Now(),
	}
}

func (s *MemoryStoreSuite) TestAppendAssignsSequentialIndices() {
	ctx := context.Background()
	for i := uint64(0); i < 3; i++ {
		idx, err := s.store.Append(ctx, s.newCampaign("alice"))
		s.Require().NoError(err)
		s.Equal(i, idx)
	}
	count, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(3), count)
}

func (s *MemoryStoreSuite) TestGetOutOfRange() {
	_, err := s.store.Get(context.Background(), 0)
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *MemoryStoreSuite) TestListByCreatorPreservesCreationOrder() {
	ctx := context.Background()
	_, err := s.store.Append(ctx, s.newCampaign("alice"))
	s.Require().NoError(err)
	_, err = s.store.Append(ctx, s.newCampaign("bob"))
	s.Require().NoError(err)
	_, err = s.store.Append(ctx, s.newCampaign("alice"))
	s.Require().NoError(err)

	mine, err := s.store.ListByCreator(ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.Equal(uint64(0), mine[0].Index)
	s.Equal(uint64(2), mine[1].Index)

	none, err := s.store.ListByCreator(ctx, "mallory")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *MemoryStoreSuite) TestSettlementRoundTrip() {
	ctx := context.Background()
	idx, err := s.store.Append(ctx, s.newCampaign("alice"))
	s.Require().NoError(err)

	s.Require().NoError(s.store.SetRaised(ctx, idx, money.FromUint64(110)))

	s.Require().NoError(s.store.MarkSettled(ctx, idx))
	c, err := s.store.Get(ctx, idx)
	s.Require().NoError(err)
	s.True(c.Ended)
	s.True(c.AmountRaised.IsZero())

	s.Require().NoError(s.store.ReverseSettlement(ctx, idx, money.FromUint64(110)))
	c, err = s.store.Get(ctx, idx)
	s.Require().NoError(err)
	s.False(c.Ended)
	s.Equal("110", c.AmountRaised.String())
}

func (s *MemoryStoreSuite) TestMutationsOnMissingIndex() {
	ctx := context.Background()
	s.ErrorIs(s.store.SetRaised(ctx, 9, money.FromUint64(1)), store.ErrNotFound)
	s.ErrorIs(s.store.MarkSettled(ctx, 9), store.ErrNotFound)
	s.ErrorIs(s.store.ReverseSettlement(ctx, 9, money.Zero()), store.ErrNotFound)
}
