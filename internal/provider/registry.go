package provider

import (
	"fmt"

	"github.com/pulselabs/pulse/internal/domain"
)

// Registry holds one provider per supported channel. The set is
// closed at compile time; adding a channel means adding a field here
// and a case in ForChannel.
type Registry struct {
	Email Provider
	SMS   Provider
	Push  Provider
}

func NewRegistry(email, sms, push Provider) (*Registry, error) {
	if email == nil || sms == nil || push == nil {
		return nil, fmt.Errorf("all channel providers are required")
	}

	return &Registry{Email: email, SMS: sms, Push: push}, nil
}

// ForChannel returns the provider for the given channel, or
// domain.ErrUnsupportedChannel when no adapter exists.
func (r *Registry) ForChannel(channel domain.Channel) (Provider, error) {
	switch channel {
	case domain.ChannelEmail:
		return r.Email, nil
	case domain.ChannelSMS:
		return r.SMS, nil
	case domain.ChannelPush:
		return r.Push, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedChannel, channel)
	}
}
