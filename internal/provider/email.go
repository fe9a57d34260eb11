package provider

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/pulselabs/pulse/internal/domain"
)

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailProvider delivers EMAIL notifications through an HTTP mail
// gateway. The subject is fixed because notification content carries
// the full message body only.
type EmailProvider struct {
	gateway gateway
	subject string
}

var _ Provider = (*EmailProvider)(nil)

func NewEmailProvider(endpoint string, client *resty.Client) (*EmailProvider, error) {
	g, err := newGateway(endpoint, client)
	if err != nil {
		return nil, err
	}

	return &EmailProvider{
		gateway: g,
		subject: "Pulse notification",
	}, nil
}

func (p *EmailProvider) Send(ctx context.Context, notification *domain.Notification) (*Response, error) {
	if notification == nil {
		return nil, &Error{Message: "notification is required"}
	}

	return p.gateway.post(ctx, emailRequest{
		To:      notification.Recipient,
		Subject: p.subject,
		Body:    notification.Content,
	})
}
