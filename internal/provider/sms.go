package provider

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/pulselabs/pulse/internal/domain"
)

type smsRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// SMSProvider delivers SMS notifications through an HTTP SMS gateway.
type SMSProvider struct {
	gateway gateway
}

var _ Provider = (*SMSProvider)(nil)

func NewSMSProvider(endpoint string, client *resty.Client) (*SMSProvider, error) {
	g, err := newGateway(endpoint, client)
	if err != nil {
		return nil, err
	}

	return &SMSProvider{gateway: g}, nil
}

func (p *SMSProvider) Send(ctx context.Context, notification *domain.Notification) (*Response, error) {
	if notification == nil {
		return nil, &Error{Message: "notification is required"}
	}

	return p.gateway.post(ctx, smsRequest{
		To:   notification.Recipient,
		Body: notification.Content,
	})
}
