package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultGatewayTimeout = 10 * time.Second

// gateway is the shared HTTP plumbing behind the three channel
// adapters: one resty client, one endpoint, uniform status
// classification. Retries live in the dispatch worker, never here.
type gateway struct {
	client   *resty.Client
	endpoint string
}

func newGateway(endpoint string, client *resty.Client) (gateway, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return gateway{}, fmt.Errorf("gateway endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return gateway{}, fmt.Errorf("invalid gateway endpoint: %w", err)
	}

	if client == nil {
		client = resty.New()
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGatewayTimeout)
	}
	client.SetRetryCount(0)

	return gateway{client: client, endpoint: trimmed}, nil
}

func (g gateway) post(ctx context.Context, body any) (*Response, error) {
	if g.client == nil {
		return nil, fmt.Errorf("gateway is not initialized")
	}

	response, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(g.endpoint)
	if err != nil {
		return nil, &Error{
			Message:   "gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &Error{
			Message:   "gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Response{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  confirmationID(response),
		}, nil
	}

	return nil, &Error{
		StatusCode: statusCode,
		Message:    gatewayErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func gatewayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("gateway returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func confirmationID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
