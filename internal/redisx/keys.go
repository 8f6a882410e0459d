package redisx

import "time"

const (
	// Order intake idempotency: idem:order:intent:{intent_id} -> order_id
	KeyOrderIntent = "idem:order:intent:%s"

	// Cached derived subscription status: sub_status:{subscription_id} -> JSON view
	KeySubStatus = "sub_status:%s"

	// Dedup for event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Sweeper publish guard: expired:notified:{subscription_id}
	KeyExpiredNotified = "expired:notified:%s"
)

var (
	TTLIdempotency     = 24 * time.Hour
	TTLStatusCache     = 5 * time.Minute
	TTLDedup           = 48 * time.Hour
	TTLExpiredNotified = 7 * 24 * time.Hour
)
