package redisx

import "time"

const (
	// Cached order read: order:{order_id} -> order JSON
	KeyOrder = "order:%s"

	// Idempotent create: idem:order:create:{seller_id}:{idempotency_key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Dedup event processing: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache  = 5 * time.Minute
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
