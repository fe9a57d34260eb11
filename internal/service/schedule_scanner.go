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
	defaultScheduleScanInterval = 5 * time.Second
	defaultScheduleScanLimit    = 100
)

// ScheduleScanner enqueues PENDING notifications that are due: records
// submitted with a scheduled time that has now passed, plus records
// whose initial publish failed and that are waiting for a second
// chance.
type ScheduleScanner struct {
	notifications repository.NotificationRepository
	publisher     queue.Publisher
	logger        *zap.Logger
	interval      time.Duration
	limit         int
	now           func() time.Time
}

func NewScheduleScanner(
	notifications repository.NotificationRepository,
	publisher queue.Publisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*ScheduleScanner, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultScheduleScanInterval
	}
	if limit <= 0 {
		limit = defaultScheduleScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ScheduleScanner{
		notifications: notifications,
		publisher:     publisher,
		logger:        logger,
		interval:      interval,
		limit:         limit,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *ScheduleScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("schedule scanner initial scan failed", zap.Error(err))
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
				s.logger.Error("schedule scanner scan failed", zap.Error(err))
			}
		}
	}
}

func (s *ScheduleScanner) scanDue(ctx context.Context) error {
	dueNotifications, err := s.notifications.GetDueForSchedule(ctx, s.now(), s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due scheduled notifications: %w", err)
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
			s.logger.Error("failed to enqueue scheduled notification",
				zap.String("notificationId", notification.ID),
				zap.String("queue", queueName),
				zap.Error(err),
			)
			continue
		}

		queued, err := s.notifications.MarkQueued(ctx, notification.ID)
		if err != nil {
			s.logger.Error("failed to mark scheduled notification as queued",
				zap.String("notificationId", notification.ID),
				zap.Error(err),
			)
			continue
		}
		if !queued {
			s.logger.Info("scheduled notification status changed before queue mark",
				zap.String("notificationId", notification.ID),
			)
		}
	}

	return nil
}
