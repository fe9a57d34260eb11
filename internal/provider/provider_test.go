package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pulselabs/pulse/internal/domain"
)

func testNotification(channel domain.Channel) *domain.Notification {
	return &domain.Notification{
		ID:        "e3a1f6c2-0b9d-4c1e-8f4a-2d7b6c5a9e01",
		UserID:    "user-42",
		Channel:   channel,
		Priority:  domain.PriorityNormal,
		Recipient: "user@example.com",
		Content:   "your order has shipped",
		Status:    domain.StatusSending,
	}
}

func TestEmailProviderSend(t *testing.T) {
	t.Parallel()

	var received emailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %s, want application/json", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("X-Message-ID", "msg-123")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider, err := NewEmailProvider(server.URL, nil)
	if err != nil {
		t.Fatalf("NewEmailProvider: %v", err)
	}

	response, err := provider.Send(context.Background(), testNotification(domain.ChannelEmail))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if received.To != "user@example.com" {
		t.Errorf("to = %q, want user@example.com", received.To)
	}
	if received.Body != "your order has shipped" {
		t.Errorf("body = %q", received.Body)
	}
	if received.Subject == "" {
		t.Error("subject should not be empty")
	}
	if response.StatusCode != http.StatusOK {
		t.Errorf("status code = %d, want 200", response.StatusCode)
	}
	if response.MessageID != "msg-123" {
		t.Errorf("message id = %q, want msg-123", response.MessageID)
	}
}

func TestSMSProviderSend(t *testing.T) {
	t.Parallel()

	var received smsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	provider, err := NewSMSProvider(server.URL, nil)
	if err != nil {
		t.Fatalf("NewSMSProvider: %v", err)
	}

	notification := testNotification(domain.ChannelSMS)
	notification.Recipient = "+15550001111"

	response, err := provider.Send(context.Background(), notification)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if received.To != "+15550001111" {
		t.Errorf("to = %q, want +15550001111", received.To)
	}
	if response.StatusCode != http.StatusAccepted {
		t.Errorf("status code = %d, want 202", response.StatusCode)
	}
	if response.MessageID != "" {
		t.Errorf("message id = %q, want empty when no header set", response.MessageID)
	}
}

func TestPushProviderSend(t *testing.T) {
	t.Parallel()

	var received pushRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("X-Request-ID", "req-789")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider, err := NewPushProvider(server.URL, nil)
	if err != nil {
		t.Fatalf("NewPushProvider: %v", err)
	}

	notification := testNotification(domain.ChannelPush)
	notification.Recipient = "device-token-abc"

	response, err := provider.Send(context.Background(), notification)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if received.Token != "device-token-abc" {
		t.Errorf("token = %q, want device-token-abc", received.Token)
	}
	if received.Title == "" {
		t.Error("title should not be empty")
	}
	if response.MessageID != "req-789" {
		t.Errorf("message id = %q, want req-789", response.MessageID)
	}
}

func TestSendStatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{name: "bad request is permanent", statusCode: http.StatusBadRequest, wantTransient: false},
		{name: "unauthorized is permanent", statusCode: http.StatusUnauthorized, wantTransient: false},
		{name: "not found is permanent", statusCode: http.StatusNotFound, wantTransient: false},
		{name: "unprocessable entity is permanent", statusCode: http.StatusUnprocessableEntity, wantTransient: false},
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "internal server error is transient", statusCode: http.StatusInternalServerError, wantTransient: true},
		{name: "bad gateway is transient", statusCode: http.StatusBadGateway, wantTransient: true},
		{name: "service unavailable is transient", statusCode: http.StatusServiceUnavailable, wantTransient: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gateway says no", tt.statusCode)
			}))
			defer server.Close()

			provider, err := NewSMSProvider(server.URL, nil)
			if err != nil {
				t.Fatalf("NewSMSProvider: %v", err)
			}

			_, err = provider.Send(context.Background(), testNotification(domain.ChannelSMS))
			if err == nil {
				t.Fatal("Send should return an error")
			}

			var providerErr *Error
			if !errors.As(err, &providerErr) {
				t.Fatalf("error type = %T, want *Error", err)
			}
			if providerErr.StatusCode != tt.statusCode {
				t.Errorf("status code = %d, want %d", providerErr.StatusCode, tt.statusCode)
			}
			if providerErr.Transient != tt.wantTransient {
				t.Errorf("transient = %v, want %v", providerErr.Transient, tt.wantTransient)
			}
			if IsTransient(err) != tt.wantTransient {
				t.Errorf("IsTransient = %v, want %v", IsTransient(err), tt.wantTransient)
			}
		})
	}
}

func TestSendConnectionFailureIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	provider, err := NewEmailProvider(server.URL, nil)
	if err != nil {
		t.Fatalf("NewEmailProvider: %v", err)
	}

	_, err = provider.Send(context.Background(), testNotification(domain.ChannelEmail))
	if err == nil {
		t.Fatal("Send should fail against a closed server")
	}
	if !IsTransient(err) {
		t.Error("connection failure should classify as transient")
	}
}

func TestSendCanceledContextIsPermanent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	provider, err := NewEmailProvider(server.URL, nil)
	if err != nil {
		t.Fatalf("NewEmailProvider: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = provider.Send(ctx, testNotification(domain.ChannelEmail))
	if err == nil {
		t.Fatal("Send should fail with a canceled context")
	}
	if IsTransient(err) {
		t.Error("canceled context should not classify as transient")
	}
}

func TestNewProviderInvalidEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
	}{
		{name: "empty", endpoint: ""},
		{name: "whitespace", endpoint: "   "},
		{name: "not a url", endpoint: "::not-a-url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := NewEmailProvider(tt.endpoint, nil); err == nil {
				t.Error("NewEmailProvider should reject invalid endpoint")
			}
		})
	}
}

func TestRegistryForChannel(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	email, _ := NewEmailProvider(server.URL, nil)
	sms, _ := NewSMSProvider(server.URL, nil)
	push, _ := NewPushProvider(server.URL, nil)

	registry, err := NewRegistry(email, sms, push)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if got, err := registry.ForChannel(domain.ChannelEmail); err != nil || got != Provider(email) {
		t.Errorf("ForChannel(EMAIL) = %v, %v", got, err)
	}
	if got, err := registry.ForChannel(domain.ChannelSMS); err != nil || got != Provider(sms) {
		t.Errorf("ForChannel(SMS) = %v, %v", got, err)
	}
	if got, err := registry.ForChannel(domain.ChannelPush); err != nil || got != Provider(push) {
		t.Errorf("ForChannel(PUSH) = %v, %v", got, err)
	}

	if _, err := registry.ForChannel(domain.Channel("FAX")); !errors.Is(err, domain.ErrUnsupportedChannel) {
		t.Errorf("ForChannel(FAX) error = %v, want ErrUnsupportedChannel", err)
	}
}

func TestNewRegistryRequiresAllProviders(t *testing.T) {
	t.Parallel()

	if _, err := NewRegistry(nil, nil, nil); err == nil {
		t.Error("NewRegistry should reject nil providers")
	}
}
