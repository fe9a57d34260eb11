package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pulselabs/pulse/internal/domain"
	"github.com/pulselabs/pulse/internal/queue"
)

func TestScheduleScannerEnqueuesDueNotifications(t *testing.T) {
	t.Parallel()

	scheduledAt := time.Now().UTC().Add(-time.Minute)
	due := domain.Notification{
		ID:          "s-1",
		UserID:      "user-42",
		Channel:     domain.ChannelPush,
		Priority:    domain.PriorityLow,
		Recipient:   "device-token",
		Content:     "scheduled",
		Status:      domain.StatusPending,
		ScheduledAt: &scheduledAt,
	}

	markedQueued := false
	repo := &fakeNotificationRepo{
		getDueForScheduleFn: func(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
			return []domain.Notification{due}, nil
		},
		markQueuedFn: func(ctx context.Context, id string) (bool, error) {
			if id != due.ID {
				t.Fatalf("queued id = %s, want %s", id, due.ID)
			}
			markedQueued = true
			return true, nil
		},
	}

	published := false
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.DeliveryMessage) error {
			if queueName != queue.WorkQueue(domain.ChannelPush) {
				t.Fatalf("queue = %s, want %s", queueName, queue.WorkQueue(domain.ChannelPush))
			}
			published = true
			return nil
		},
	}

	scanner, err := NewScheduleScanner(repo, publisher, time.Minute, 100, nil)
	if err != nil {
		t.Fatalf("NewScheduleScanner() error = %v", err)
	}

	if err := scanner.scanDue(context.Background()); err != nil {
		t.Fatalf("scanDue() error = %v", err)
	}

	if !published {
		t.Fatal("due scheduled notification should be published")
	}
	if !markedQueued {
		t.Fatal("due scheduled notification should be marked QUEUED")
	}
}

func TestScheduleScannerToleratesConcurrentStatusChange(t *testing.T) {
	t.Parallel()

	repo := &fakeNotificationRepo{
		getDueForScheduleFn: func(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
			return []domain.Notification{{
				ID:       "s-2",
				UserID:   "user-42",
				Channel:  domain.ChannelEmail,
				Priority: domain.PriorityNormal,
				Status:   domain.StatusPending,
			}}, nil
		},
		markQueuedFn: func(ctx context.Context, id string) (bool, error) {
			return false, nil // another publisher won
		},
	}

	scanner, err := NewScheduleScanner(repo, &fakePublisher{}, time.Minute, 100, nil)
	if err != nil {
		t.Fatalf("NewScheduleScanner() error = %v", err)
	}

	if err := scanner.scanDue(context.Background()); err != nil {
		t.Fatalf("scanDue() error = %v", err)
	}
}

func TestScheduleScannerStoreErrorSurfaces(t *testing.T) {
	t.Parallel()

	repo := &fakeNotificationRepo{
		getDueForScheduleFn: func(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
			return nil, errors.New("connection reset")
		},
	}

	scanner, err := NewScheduleScanner(repo, &fakePublisher{}, time.Minute, 100, nil)
	if err != nil {
		t.Fatalf("NewScheduleScanner() error = %v", err)
	}

	if err := scanner.scanDue(context.Background()); err == nil {
		t.Fatal("scanDue() should surface store errors")
	}
}
