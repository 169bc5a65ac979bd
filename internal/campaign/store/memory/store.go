// Package memory holds the in-memory campaign store. It favors clarity over
// performance and doubles as the reference implementation for tests.
package memory

import (
	"context"
	"sync"

	"fundledger/internal/campaign"
	"fundledger/internal/campaign/store"
	"fundledger/pkg/identity"
	"fundledger/pkg/money"
)

// Store keeps the ledger as an append-only slice indexed by creation order,
// with a creator index maintained transactionally alongside Append.
type Store struct {
	mu        sync.RWMutex
	campaigns []campaign.Campaign
	byCreator map[identity.Address][]uint64
}

func New() *Store {
	return &Store{byCreator: make(map[identity.Address][]uint64)}
}

func (s *Store) Append(_ context.Context, c campaign.Campaign) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := uint64(len(s.campaigns))
	c.Index = index
	s.campaigns = append(s.campaigns, c)
	s.byCreator[c.Creator] = append(s.byCreator[c.Creator], index)
	return index, nil
}

func (s *Store) Get(_ context.Context, index uint64) (campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index >= uint64(len(s.campaigns)) {
		return campaign.Campaign{}, store.ErrNotFound
	}
	return s.campaigns[index], nil
}

func (s *Store) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.campaigns)), nil
}

func (s *Store) List(_ context.Context) ([]campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]campaign.Campaign{}, s.campaigns...), nil
}

func (s *Store) ListByCreator(_ context.Context, creator identity.Address) ([]campaign.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	indices := s.byCreator[creator]
	matches := make([]campaign.Campaign, 0, len(indices))
	for _, idx := range indices {
		matches = append(matches, s.campaigns[idx])
	}
	return matches, nil
}

func (s *Store) SetRaised(_ context.Context, index uint64, raised money.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= uint64(len(s.campaigns)) {
		return store.ErrNotFound
	}
	s.campaigns[index].AmountRaised = raised
	return nil
}

func (s *Store) MarkSettled(_ context.Context, index uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= uint64(len(s.campaigns)) {
		return store.ErrNotFound
	}
	s.campaigns[index].Ended = true
	s.campaigns[index].AmountRaised = money.Zero()
	return nil
}

func (s *Store) ReverseSettlement(_ context.Context, index uint64, raised money.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= uint64(len(s.campaigns)) {
		return store.ErrNotFound
	}
	s.campaigns[index].Ended = false
	s.campaigns[index].AmountRaised = raised
	return nil
}
