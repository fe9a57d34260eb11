package provider

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/pulselabs/pulse/internal/domain"
)

type pushRequest struct {
	Token string `json:"token"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// PushProvider delivers PUSH notifications through an HTTP push
// gateway. The recipient field carries the device token.
type PushProvider struct {
	gateway gateway
	title   string
}

var _ Provider = (*PushProvider)(nil)

func NewPushProvider(endpoint string, client *resty.Client) (*PushProvider, error) {
	g, err := newGateway(endpoint, client)
	if err != nil {
		return nil, err
	}

	return &PushProvider{
		gateway: g,
		title:   "Pulse",
	}, nil
}

func (p *PushProvider) Send(ctx context.Context, notification *domain.Notification) (*Response, error) {
	if notification == nil {
		return nil, &Error{Message: "notification is required"}
	}

	return p.gateway.post(ctx, pushRequest{
		Token: notification.Recipient,
		Title: p.title,
		Body:  notification.Content,
	})
}
