package sweeper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/servexlb/wholesale-harmony-system-sub000/internal/events"
	kafkax "github.com/servexlb/wholesale-harmony-system-sub000/internal/kafka"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/redisx"
	"github.com/servexlb/wholesale-harmony-system-sub000/internal/subscription"
)

// Service flips stored status for subscriptions past their end date and
// publishes the expired transition exactly once. It also consumes
// subscription events to keep the redis derived-status cache warm.
type Service struct {
	Subs        *subscription.Repo
	Redis       *redis.Client
	Producer    *kafkax.Producer // publishes subscription.expired-transition
	Log         *zap.Logger
	ServiceName string
	Batch       int
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := s.Sweep(ctx); err != nil {
				s.Log.Warn("sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep drains expired subscriptions in batches until a batch comes back
// short.
func (s *Service) Sweep(ctx context.Context) error {
	batch := s.Batch
	if batch <= 0 {
		batch = 200
	}
	for {
		expired, err := s.Subs.MarkExpired(ctx, time.Now().UTC(), batch)
		if err != nil {
			return err
		}
		for _, e := range expired {
			s.publishExpired(ctx, e)
		}
		if len(expired) < batch {
			return nil
		}
	}
}

func (s *Service) publishExpired(ctx context.Context, e subscription.ExpiredRow) {
	// guard against republishing when a sweep races a crash-restart
	key := fmt.Sprintf(redisx.KeyExpiredNotified, e.ID)
	if exists, _ := redisx.Exists(ctx, s.Redis, key); exists {
		return
	}
	_ = s.Redis.Set(ctx, key, "1", redisx.TTLExpiredNotified).Err()

	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventSubscriptionExpired,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: e.ID,
		Payload: kafkax.MustMarshal(events.SubscriptionExpiredPayload{
			SubscriptionID: e.ID,
			OwnerAccountID: e.OwnerAccountID,
			EndAt:          e.EndAt,
		}),
	}
	s.Producer.Publish(events.PartitionKey(e.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventSubscriptionExpired)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	s.Log.Info("subscription expired", zap.String("subscription_id", e.ID))
}

// HandleSubscriptionEvent refreshes the cached derived status whenever a
// subscription is created or renewed.
func (s *Service) HandleSubscriptionEvent(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	switch env.EventType {
	case events.EventSubscriptionCreated, events.EventSubscriptionRenewed:
	default:
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "sweeper", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	sub, err := s.Subs.Get(ctx, env.CorrelationID)
	if err != nil {
		// record may be gone; nothing to cache
		s.Log.Debug("subscription lookup failed", zap.String("id", env.CorrelationID), zap.Error(err))
		return nil
	}
	view := subscription.View(sub, time.Now().UTC(), subscription.DefaultRetailThresholdDays)
	key := fmt.Sprintf(redisx.KeySubStatus, sub.ID)
	return s.Redis.Set(ctx, key, kafkax.MustMarshal(view), redisx.TTLStatusCache).Err()
}
