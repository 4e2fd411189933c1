package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const checkoutDedupTTL = 24 * time.Hour

// CheckoutDedup is the fast-path idempotency check for webhook redelivery,
// keyed on the provider's checkout session id. It is advisory only: the
// unique session index on the bookings collection remains the authority, so
// a Redis outage degrades to slightly more duplicate-key conflicts, never to
// duplicate bookings.
type CheckoutDedup struct {
	client *redis.Client
}

// NewCheckoutDedup creates a CheckoutDedup wrapping the given client.
func NewCheckoutDedup(client *redis.Client) *CheckoutDedup {
	return &CheckoutDedup{client: client}
}

// Seen reports whether this checkout session was already processed.
func (d *CheckoutDedup) Seen(ctx context.Context, sessionID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("checkout dedup check: %w", err)
	}
	return n > 0, nil
}

// Mark records the session as processed (expires after checkoutDedupTTL).
func (d *CheckoutDedup) Mark(ctx context.Context, sessionID string) error {
	return d.client.Set(ctx, d.key(sessionID), "1", checkoutDedupTTL).Err()
}

func (d *CheckoutDedup) key(sessionID string) string {
	return "checkout:" + sessionID
}
