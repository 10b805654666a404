package redisx

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-retail-ledger/internal/apperr"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestIdempotencyLifecycle(t *testing.T) {
	mr, rdb := newTestRedis(t)
	idem := NewIdempotency(rdb)
	ctx := context.Background()

	_, reserved, err := idem.Reserve(ctx, "u-1", "abc")
	if err != nil || !reserved {
		t.Fatalf("first reserve: reserved=%v err=%v", reserved, err)
	}
	if ttl := mr.TTL(fmt.Sprintf(KeyIdemPOCreate, "u-1", "abc")); ttl != TTLPending {
		t.Fatalf("expected pending ttl %v, got %v", TTLPending, ttl)
	}

	_, _, err = idem.Reserve(ctx, "u-1", "abc")
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict while pending, got %v", err)
	}

	if err := idem.Complete(ctx, "u-1", "abc", "po-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	id, reserved, err := idem.Reserve(ctx, "u-1", "abc")
	if err != nil || reserved || id != "po-1" {
		t.Fatalf("replay: id=%q reserved=%v err=%v", id, reserved, err)
	}
	if ttl := mr.TTL(fmt.Sprintf(KeyIdemPOCreate, "u-1", "abc")); ttl != TTLIdempotency {
		t.Fatalf("expected completed ttl %v, got %v", TTLIdempotency, ttl)
	}
}

func TestIdempotencyScopedPerActor(t *testing.T) {
	_, rdb := newTestRedis(t)
	idem := NewIdempotency(rdb)
	ctx := context.Background()

	if _, _, err := idem.Reserve(ctx, "u-1", "shared"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := idem.Complete(ctx, "u-1", "shared", "po-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	id, reserved, err := idem.Reserve(ctx, "u-2", "shared")
	if err != nil || !reserved || id != "" {
		t.Fatalf("another actor must get its own reservation: id=%q reserved=%v err=%v", id, reserved, err)
	}
}

func TestIdempotencyReleaseAllowsRetry(t *testing.T) {
	_, rdb := newTestRedis(t)
	idem := NewIdempotency(rdb)
	ctx := context.Background()

	if _, _, err := idem.Reserve(ctx, "u-1", "k"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := idem.Release(ctx, "u-1", "k"); err != nil {
		t.Fatalf("release: %v", err)
	}
	_, reserved, err := idem.Reserve(ctx, "u-1", "k")
	if err != nil || !reserved {
		t.Fatalf("expected a fresh reservation, reserved=%v err=%v", reserved, err)
	}
}

func TestIdempotencyPendingExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	idem := NewIdempotency(rdb)
	ctx := context.Background()

	if _, _, err := idem.Reserve(ctx, "u-1", "slow"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	mr.FastForward(TTLPending + 1)
	_, reserved, err := idem.Reserve(ctx, "u-1", "slow")
	if err != nil || !reserved {
		t.Fatalf("expected reservation after expiry, reserved=%v err=%v", reserved, err)
	}
}

func TestDedupClaim(t *testing.T) {
	_, rdb := newTestRedis(t)
	d := NewDedup(rdb, "notifier")
	ctx := context.Background()

	first, err := d.Claim(ctx, "ev-1")
	if err != nil || !first {
		t.Fatalf("first claim: %v %v", first, err)
	}
	again, err := d.Claim(ctx, "ev-1")
	if err != nil || again {
		t.Fatalf("second claim should be false: %v %v", again, err)
	}
	if ok, _ := Exists(ctx, rdb, fmt.Sprintf(KeyDedup, "notifier", "ev-1")); !ok {
		t.Fatalf("expected dedup key to exist")
	}
	if err := d.Forget(ctx, "ev-1"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if ok, _ := d.Claim(ctx, "ev-1"); !ok {
		t.Fatalf("expected claim after forget")
	}
}
