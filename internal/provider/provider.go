package provider

import (
	"context"

	"github.com/pulselabs/pulse/internal/domain"
)

// Provider is the outbound delivery port for one channel. Adapters are
// stateless and never touch the record store; they only report the
// outcome of one send and the dispatch worker owns every transition.
type Provider interface {
	Send(ctx context.Context, notification *domain.Notification) (*Response, error)
}

// Response stores provider call metadata for audit and persistence.
// MessageID is the provider's confirmation id when one is returned.
type Response struct {
	StatusCode int
	Body       string
	MessageID  string
}
