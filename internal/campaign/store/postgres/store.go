// Package postgres persists the campaign ledger in PostgreSQL via
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fundledger/internal/campaign"
	"fundledger/internal/campaign/store"
	"fundledger/pkg/identity"
	"fundledger/pkg/money"
)

// Schema creates the campaigns table. Amounts live in NUMERIC(39,0), wide
// enough for the full 128-bit unsigned domain.
const Schema = `
CREATE TABLE IF NOT EXISTS campaigns (
	idx           BIGINT PRIMARY KEY,
	creator       TEXT NOT NULL,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL,
	benefactor    TEXT NOT NULL DEFAULT '',
	goal          NUMERIC(39,0) NOT NULL,
	deadline      TIMESTAMPTZ NOT NULL,
	amount_raised NUMERIC(39,0) NOT NULL DEFAULT 0,
	ended         BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS campaigns_creator_idx ON campaigns (creator, idx);
`

// Store is pure I/O; the service serializes mutating calls, so statements
// here stay simple single-row reads and writes.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema applies the table definition. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure campaigns schema: %w", err)
	}
	return nil
}

const campaignColumns = `idx, creator, name, description, benefactor, goal, deadline, amount_raised, ended, created_at`

func scanCampaign(row interface{ Scan(...any) error }) (campaign.Campaign, error) {
	var (
		c          campaign.Campaign
		creator    string
		benefactor string
	)
	err := row.Scan(&c.Index, &creator, &c.Name, &c.Description, &benefactor,
		&c.Goal, &c.Deadline, &c.AmountRaised, &c.Ended, &c.CreatedAt)
	if err != nil {
		return campaign.Campaign{}, err
	}
	c.Creator = identity.Address(creator)
	c.Benefactor = identity.Address(benefactor)
	return c, nil
}

func (s *Store) Append(ctx context.Context, c campaign.Campaign) (uint64, error) {
	// Next index = current length of the sequence. The service holds a
	// create lock across this call; the subselect would otherwise race
	// itself to a duplicate key on concurrent inserts.
	query := `
		INSERT INTO campaigns (` + campaignColumns + `)
		VALUES ((SELECT COALESCE(MAX(idx)+1, 0) FROM campaigns), $1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING idx
	`
	var index uint64
	err := s.db.QueryRowContext(ctx, query,
		c.Creator.String(), c.Name, c.Description, c.Benefactor.String(),
		c.Goal, c.Deadline, c.AmountRaised, c.Ended, c.CreatedAt,
	).Scan(&index)
	if err != nil {
		return 0, fmt.Errorf("append campaign: %w", err)
	}
	return index, nil
}

func (s *Store) Get(ctx context.Context, index uint64) (campaign.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE idx = $1`
	c, err := scanCampaign(s.db.QueryRowContext(ctx, query, index))
	if err != nil {
		if err == sql.ErrNoRows {
			return campaign.Campaign{}, store.ErrNotFound
		}
		return campaign.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (s *Store) Count(ctx context.Context) (uint64, error) {
	var count uint64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count campaigns: %w", err)
	}
	return count, nil
}

func (s *Store) List(ctx context.Context) ([]campaign.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY idx`
	return s.queryCampaigns(ctx, query)
}

func (s *Store) ListByCreator(ctx context.Context, creator identity.Address) ([]campaign.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE creator = $1 ORDER BY idx`
	return s.queryCampaigns(ctx, query, creator.String())
}

func (s *Store) queryCampaigns(ctx context.Context, query string, args ...any) ([]campaign.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []campaign.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign row: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign rows: %w", err)
	}
	return campaigns, nil
}

func (s *Store) SetRaised(ctx context.Context, index uint64, raised money.Amount) error {
	return s.updateOne(ctx, `UPDATE campaigns SET amount_raised = $2 WHERE idx = $1`, index, raised)
}

func (s *Store) MarkSettled(ctx context.Context, index uint64) error {
	return s.updateOne(ctx, `UPDATE campaigns SET ended = TRUE, amount_raised = 0 WHERE idx = $1`, index)
}

func (s *Store) ReverseSettlement(ctx context.Context, index uint64, raised money.Amount) error {
	return s.updateOne(ctx, `UPDATE campaigns SET ended = FALSE, amount_raised = $2 WHERE idx = $1`, index, raised)
}

func (s *Store) updateOne(ctx context.Context, query string, index uint64, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, append([]any{index}, args...)...)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update campaign rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
