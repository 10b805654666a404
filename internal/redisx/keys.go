package redisx

import "time"

const (
	// Idempotency create purchase order: idem:po:create:{actor_id}:{idempotency_key} -> order_id | "pending"
	KeyIdemPOCreate = "idem:po:create:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLPending     = 30 * time.Second // max waktu request pertama boleh "in flight"
	TTLDedup       = 48 * time.Hour
)
