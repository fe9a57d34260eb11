package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pulselabs/pulse/internal/domain"
	"github.com/pulselabs/pulse/internal/queue"
)

func dueRetryNotification(id string) domain.Notification {
	return domain.Notification{
		ID:          id,
		UserID:      "user-42",
		Channel:     domain.ChannelEmail,
		Priority:    domain.PriorityHigh,
		Recipient:   "user@example.com",
		Content:     "retry me",
		Status:      domain.StatusRetrying,
		Attempts:    1,
		MaxAttempts: 5,
	}
}

func TestRetryScannerRequeuesDueNotifications(t *testing.T) {
	t.Parallel()

	requeued := map[string]bool{}
	repo := &fakeNotificationRepo{
		getDueForRetryFn: func(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
			return []domain.Notification{dueRetryNotification("r-1"), dueRetryNotification("r-2")}, nil
		},
		markRequeuedFn: func(ctx context.Context, id string) (bool, error) {
			requeued[id] = true
			return true, nil
		},
	}

	published := map[string]queue.DeliveryMessage{}
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.DeliveryMessage) error {
			if queueName != queue.WorkQueue(domain.ChannelEmail) {
				t.Fatalf("queue = %s, want %s", queueName, queue.WorkQueue(domain.ChannelEmail))
			}
			published[msg.NotificationID] = msg
			return nil
		},
	}

	scanner, err := NewRetryScanner(repo, publisher, time.Minute, 100, nil)
	if err != nil {
		t.Fatalf("NewRetryScanner() error = %v", err)
	}

	if err := scanner.scanDue(context.Background()); err != nil {
		t.Fatalf("scanDue() error = %v", err)
	}

	if len(published) != 2 {
		t.Fatalf("published = %d messages, want 2", len(published))
	}
	if msg := published["r-1"]; msg.Priority != domain.PriorityHigh {
		t.Fatalf("requeued priority = %s, want the record's own priority", msg.Priority)
	}
	if !requeued["r-1"] || !requeued["r-2"] {
		t.Fatal("both due records should be marked requeued")
	}
}

func TestRetryScannerPublishFailureSkipsRequeueMark(t *testing.T) {
	t.Parallel()

	repo := &fakeNotificationRepo{
		getDueForRetryFn: func(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
			return []domain.Notification{dueRetryNotification("r-1")}, nil
		},
		markRequeuedFn: func(ctx context.Context, id string) (bool, error) {
			t.Fatal("MarkRequeued must not run when publish fails")
			return false, nil
		},
	}
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.DeliveryMessage) error {
			return errors.New("broker unavailable")
		},
	}

	scanner, err := NewRetryScanner(repo, publisher, time.Minute, 100, nil)
	if err != nil {
		t.Fatalf("NewRetryScanner() error = %v", err)
	}

	// The record stays RETRYING and is picked up on the next pass.
	if err := scanner.scanDue(context.Background()); err != nil {
		t.Fatalf("scanDue() error = %v", err)
	}
}

func TestRetryScannerStoreErrorSurfaces(t *testing.T) {
	t.Parallel()

	repo := &fakeNotificationRepo{
		getDueForRetryFn: func(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
			return nil, errors.New("connection reset")
		},
	}

	scanner, err := NewRetryScanner(repo, &fakePublisher{}, time.Minute, 100, nil)
	if err != nil {
		t.Fatalf("NewRetryScanner() error = %v", err)
	}

	if err := scanner.scanDue(context.Background()); err == nil {
		t.Fatal("scanDue() should surface store errors")
	}
}

func TestRetryScannerStartStopsOnCancel(t *testing.T) {
	t.Parallel()

	scanner, err := NewRetryScanner(&fakeNotificationRepo{}, &fakePublisher{}, 10*time.Millisecond, 100, nil)
	if err != nil {
		t.Fatalf("NewRetryScanner() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scanner.Start(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not stop after cancellation")
	}
}
