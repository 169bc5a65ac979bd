package treasury

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fundledger/pkg/identity"
	"fundledger/pkg/money"
)

const (
	custodyKey    = "treasury:custody"
	paidKeyPrefix = "treasury:paid:"
)

// maxTxRetries bounds optimistic-lock retries before giving up; the caller
// treats the failure like any other transfer failure and state rolls back.
const maxTxRetries = 5

// RedisRail keeps custody and payout totals in Redis. Balances are stored
// as base-10 strings because they exceed the 64-bit range Redis counters
// support; writes go through WATCH transactions so concurrent movements
// never lose updates.
type RedisRail struct {
	client *redis.Client
}

func NewRedisRail(client *redis.Client) *RedisRail {
	return &RedisRail{client: client}
}

func (r *RedisRail) Deposit(ctx context.Context, amount money.Amount) error {
	return r.adjustCustody(ctx, func(custody money.Amount) (money.Amount, error) {
		return custody.Add(amount)
	})
}

func (r *RedisRail) Withdraw(ctx context.Context, amount money.Amount) error {
	return r.adjustCustody(ctx, func(custody money.Amount) (money.Amount, error) {
		next, err := custody.Sub(amount)
		if err != nil {
			return money.Amount{}, ErrInsufficientFunds
		}
		return next, nil
	})
}

func (r *RedisRail) Transfer(ctx context.Context, to identity.Address, amount money.Amount) error {
	paidKey := paidKeyPrefix + to.String()
	txf := func(tx *redis.Tx) error {
		custody, err := readAmount(ctx, tx, custodyKey)
		if err != nil {
			return err
		}
		newCustody, err := custody.Sub(amount)
		if err != nil {
			return ErrInsufficientFunds
		}
		paid, err := readAmount(ctx, tx, paidKey)
		if err != nil {
			return err
		}
		newPaid, err := paid.Add(amount)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, custodyKey, newCustody.String(), 0)
			pipe.Set(ctx, paidKey, newPaid.String(), 0)
			return nil
		})
		return err
	}
	return r.watch(ctx, txf, custodyKey, paidKey)
}

func (r *RedisRail) CustodyBalance(ctx context.Context) (money.Amount, error) {
	return readAmount(ctx, r.client, custodyKey)
}

func (r *RedisRail) PaidTo(ctx context.Context, to identity.Address) (money.Amount, error) {
	return readAmount(ctx, r.client, paidKeyPrefix+to.String())
}

func (r *RedisRail) adjustCustody(ctx context.Context, apply func(money.Amount) (money.Amount, error)) error {
	txf := func(tx *redis.Tx) error {
		custody, err := readAmount(ctx, tx, custodyKey)
		if err != nil {
			return err
		}
		next, err := apply(custody)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, custodyKey, next.String(), 0)
			return nil
		})
		return err
	}
	return r.watch(ctx, txf, custodyKey)
}

func (r *RedisRail) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("treasury: redis transaction contention after %d attempts", maxTxRetries)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readAmount(ctx context.Context, c stringGetter, key string) (money.Amount, error) {
	raw, err := c.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return money.Zero(), nil
		}
		return money.Amount{}, fmt.Errorf("read %s: %w", key, err)
	}
	amount, err := money.Parse(raw)
	if err != nil {
		return money.Amount{}, fmt.Errorf("parse %s: %w", key, err)
	}
	return amount, nil
}
