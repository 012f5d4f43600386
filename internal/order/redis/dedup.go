package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Dedup filters duplicate webhook deliveries. Stripe delivers at least once,
// so the same event id can arrive repeatedly; SetNX on the id lets the first
// delivery through and short-circuits the rest. This is only a front filter:
// the conditional updates in the order store stay correct without it.
type Dedup struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewDedup(client *redis.Client) *Dedup {
	return &Dedup{
		Client: client,
		// Stripe retries webhooks for up to three days
		TTL: 72 * time.Hour,
	}
}

// FirstDelivery reports whether this event id has not been seen before.
// A Redis error is returned as seen=true so an outage degrades to the
// store-level idempotency guard instead of dropping confirmations.
func (d *Dedup) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.Client.SetNX(ctx, "stripe_event:"+eventID, 1, d.TTL).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}
