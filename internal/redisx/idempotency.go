package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/redis/go-redis/v9"
)

const pending = "pending"

// Idempotency maps client supplied idempotency keys to created purchase order
// ids. Keys are scoped per actor. A key is reserved as "pending" with SETNX
// before the order is created and replaced by the order id afterwards.
type Idempotency struct {
	rdb *redis.Client
}

func NewIdempotency(rdb *redis.Client) *Idempotency {
	return &Idempotency{rdb: rdb}
}

// Reserve claims key. It returns reserved=true when the caller owns the key
// and must call Complete or Release. Otherwise it returns the order id of the
// earlier request, or a Conflict error while that request is still running.
func (i *Idempotency) Reserve(ctx context.Context, actorID, key string) (orderID string, reserved bool, err error) {
	k := fmt.Sprintf(KeyIdemPOCreate, actorID, key)
	ok, err := i.rdb.SetNX(ctx, k, pending, TTLPending).Result()
	if err != nil {
		return "", false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}
	v, err := i.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; the earlier request gave up
		return i.Reserve(ctx, actorID, key)
	}
	if err != nil {
		return "", false, fmt.Errorf("read idempotency key: %w", err)
	}
	if v == pending {
		return "", false, apperr.Conflict(nil, "request with idempotency key %q is still in progress", key)
	}
	return v, false, nil
}

// Complete records the created order id for replays.
func (i *Idempotency) Complete(ctx context.Context, actorID, key, orderID string) error {
	return i.rdb.Set(ctx, fmt.Sprintf(KeyIdemPOCreate, actorID, key), orderID, TTLIdempotency).Err()
}

// Release drops a reservation after a failed request so the client can retry.
func (i *Idempotency) Release(ctx context.Context, actorID, key string) error {
	return i.rdb.Del(ctx, fmt.Sprintf(KeyIdemPOCreate, actorID, key)).Err()
}
