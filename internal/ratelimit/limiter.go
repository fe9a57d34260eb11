package ratelimit

import (
	"context"
	"strings"
)

// Limiter is the admission-control port. Admit is the fast ingress
// check: false means the caller is over its window budget and nothing
// else happened. Wait blocks until a slot opens, used by workers to
// throttle provider calls.
type Limiter interface {
	Admit(ctx context.Context, key string) (bool, error)
	Wait(ctx context.Context, key string) error
}

// Key builds the admission key for a caller and channel pair.
func Key(userID, channel string) string {
	return strings.ToLower(strings.TrimSpace(userID)) + ":" + strings.ToLower(strings.TrimSpace(channel))
}

// DeliveryKey builds the worker-side throttle key for a channel. It
// lives in its own namespace so provider pacing never draws down the
// caller's admission budget.
func DeliveryKey(channel string) string {
	return "deliver:" + strings.ToLower(strings.TrimSpace(channel))
}
