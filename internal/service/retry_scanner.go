package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pulselabs/pulse/internal/queue"
	"github.com/pulselabs/pulse/internal/repository"
)

const (
	defaultRetryScanInterval = 30 * time.Second
	defaultRetryScanLimit    = 100
)

// RetryScanner re-enqueues RETRYING notifications whose backoff has
// elapsed. Requeued messages keep the record's priority, so a retried
// urgent notification still jumps the queue.
type RetryScanner struct {
	notifications repository.NotificationRepository
	publisher     queue.Publisher
	logger        *zap.Logger
	interval      time.Duration
	limit         int
	now           func() time.Time
}

func NewRetryScanner(
	notifications repository.NotificationRepository,
	publisher queue.Publisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*RetryScanner, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultRetryScanInterval
	}
	if limit <= 0 {
		limit = defaultRetryScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetryScanner{
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
		interval:      interval,
		limit:         limit,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *RetryScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Initial scan so already-due retries do not wait for the first
	// ticker edge.
	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("retry scanner initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scanDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("retry scanner scan failed", zap.Error(err))
			}
		}
	}
}

func (s *RetryScanner) scanDue(ctx context.Context) error {
	dueNotifications, err := s.notifications.GetDueForRetry(ctx, s.now(), s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due retries: %w", err)
	}

	for i := range dueNotifications {
		notification := dueNotifications[i]
		msg := queue.DeliveryMessage{
			NotificationID: notification.ID,
			Channel:        notification.Channel,
			Priority:       notification.Priority,
		}

		queueName := queue.WorkQueue(notification.Channel)
		if err := s.publisher.Publish(ctx, queueName, msg); err != nil {
			s.logger.Error("failed to enqueue retry",
				zap.String("notificationId", notification.ID),
				zap.String("queue", queueName),
				zap.Error(err),
			)
			continue
		}

		requeued, err := s.notifications.MarkRequeued(ctx, notification.ID)
		if err != nil {
			s.logger.Error("failed to mark retry as requeued",
				zap.String("notificationId", notification.ID),
				zap.Error(err),
			)
			continue
		}
		if !requeued {
			s.logger.Info("retry status changed before requeue mark",
				zap.String("notificationId", notification.ID),
			)
		}
	}

	return nil
}
