package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pulselabs/pulse/internal/domain"
	"github.com/pulselabs/pulse/internal/observability"
	"github.com/pulselabs/pulse/internal/provider"
	"github.com/pulselabs/pulse/internal/queue"
	"github.com/pulselabs/pulse/internal/ratelimit"
	"github.com/pulselabs/pulse/internal/repository"
	"github.com/pulselabs/pulse/internal/retry"
)

const minWorkerConcurrency = 1

// WorkerService drains the channel work queues and drives each
// notification through delivery: claim, throttle, send, and record the
// outcome through the repository's guarded transitions.
type WorkerService struct {
	notifications repository.NotificationRepository
	attempts      repository.AttemptRepository
	consumer      queue.Consumer
	providers     *provider.Registry
	limiter       ratelimit.Limiter
	logger        *zap.Logger
	metrics       *observability.Metrics
	concurrency   int
	now           func() time.Time
}

func NewWorkerService(
	notifications repository.NotificationRepository,
	attempts repository.AttemptRepository,
	consumer queue.Consumer,
	providers *provider.Registry,
	limiter ratelimit.Limiter,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt repository is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("queue consumer is required")
	}
	if providers == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		notifications: notifications,
		attempts:      attempts,
		consumer:      consumer,
		providers:     providers,
		limiter:       limiter,
		logger:        logger,
		concurrency:   concurrency,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes the channel work queues until context cancellation.
// Workers are spread round-robin across the queues so every channel
// keeps draining even under uneven load.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	queueNames := queue.WorkQueues()
	if len(queueNames) == 0 {
		return fmt.Errorf("no work queues configured")
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		queueName := queueNames[i%len(queueNames)]
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)

			err := s.consumer.Consume(groupCtx, queueName, s.processMessage)
			if err != nil {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", queueName),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)
			return nil
		})
	}

	return g.Wait()
}

func (s *WorkerService) processMessage(ctx context.Context, msg queue.DeliveryMessage) error {
	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}
	logger := observability.WithContextLogger(s.logger, ctx)

	notification, err := s.notifications.ClaimForDelivery(ctx, msg.NotificationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("notification not found during claim, skipping",
				zap.String("notificationId", msg.NotificationID),
			)
			return nil
		}
		return fmt.Errorf("failed to claim notification for delivery: %w", err)
	}

	// Nil means terminal or already claimed elsewhere; ack and skip.
	if notification == nil {
		return nil
	}

	channelName := string(notification.Channel)
	s.metrics.IncWorkerInFlight(channelName)
	defer s.metrics.DecWorkerInFlight(channelName)

	channelProvider, err := s.providers.ForChannel(notification.Channel)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedChannel) {
			return s.failPermanently(ctx, logger, notification, err.Error(), false, "unsupported_channel")
		}
		return err
	}

	// Delivery throttle: blocks until the per-channel window admits the
	// send, so a requeued burst drains at the configured rate instead
	// of failing. Keyed off its own namespace; the caller's admission
	// counter is never touched here.
	if err := s.limiter.Wait(ctx, ratelimit.DeliveryKey(channelName)); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	attemptNumber := notification.Attempts + 1
	sendStart := s.now()
	response, sendErr := channelProvider.Send(ctx, notification)
	s.metrics.ObserveProviderSendDuration(channelName, s.now().Sub(sendStart))

	if err := s.recordAttempt(ctx, notification.ID, attemptNumber, response, sendErr); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	if sendErr == nil {
		return s.finishDelivered(ctx, logger, notification, response)
	}

	if provider.IsTransient(sendErr) {
		delay, stop := retry.Next(attemptNumber, notification.MaxAttempts)
		if !stop {
			return s.scheduleRetry(ctx, logger, notification, sendErr, delay)
		}
		return s.failPermanently(ctx, logger, notification, sendErr.Error(), true, "retry_exhausted")
	}

	return s.failPermanently(ctx, logger, notification, sendErr.Error(), true, "permanent_error")
}

func (s *WorkerService) finishDelivered(
	ctx context.Context,
	logger *zap.Logger,
	notification *domain.Notification,
	response *provider.Response,
) error {
	var providerMessageID *string
	if response != nil {
		if id := strings.TrimSpace(response.MessageID); id != "" {
			providerMessageID = &id
		}
	}

	now := s.now()
	transitioned, err := s.notifications.MarkSent(ctx, notification.ID, providerMessageID, now)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	if !transitioned {
		logger.Info("notification already terminal, send outcome discarded",
			zap.String("notificationId", notification.ID),
		)
		return nil
	}

	channelName := string(notification.Channel)
	s.metrics.IncNotificationSent(channelName)
	s.metrics.ObserveDeliveryLatency(channelName, now.Sub(notification.CreatedAt))
	logger.Info("notification delivered",
		zap.String("notificationId", notification.ID),
		zap.String("channel", channelName),
	)
	return nil
}

func (s *WorkerService) scheduleRetry(
	ctx context.Context,
	logger *zap.Logger,
	notification *domain.Notification,
	sendErr error,
	delay time.Duration,
) error {
	now := s.now()
	nextRetryAt := now.Add(delay)

	transitioned, err := s.notifications.MarkRetrying(ctx, notification.ID, sendErr.Error(), nextRetryAt, now)
	if err != nil {
		return fmt.Errorf("failed to mark notification retrying: %w", err)
	}
	if !transitioned {
		logger.Info("notification already terminal, retry not scheduled",
			zap.String("notificationId", notification.ID),
		)
		return nil
	}

	s.metrics.IncRetryScheduled(string(notification.Channel))
	logger.Info("retry scheduled",
		zap.String("notificationId", notification.ID),
		zap.Int("attempt", notification.Attempts+1),
		zap.Time("nextRetryAt", nextRetryAt),
		zap.String("error", sendErr.Error()),
	)
	return nil
}

func (s *WorkerService) failPermanently(
	ctx context.Context,
	logger *zap.Logger,
	notification *domain.Notification,
	reason string,
	attempted bool,
	reasonLabel string,
) error {
	transitioned, err := s.notifications.MarkFailed(ctx, notification.ID, reason, attempted, s.now())
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	if !transitioned {
		logger.Info("notification already terminal, failure discarded",
			zap.String("notificationId", notification.ID),
		)
		return nil
	}

	s.metrics.IncNotificationFailed(string(notification.Channel), reasonLabel)
	logger.Warn("notification failed",
		zap.String("notificationId", notification.ID),
		zap.String("channel", string(notification.Channel)),
		zap.String("reason", reason),
	)
	return nil
}

func (s *WorkerService) recordAttempt(
	ctx context.Context,
	notificationID string,
	attemptNumber int,
	response *provider.Response,
	sendErr error,
) error {
	var statusCode *int
	var responseBody *string
	var attemptErr *string

	if response != nil {
		if response.StatusCode > 0 {
			value := response.StatusCode
			statusCode = &value
		}
		if body := strings.TrimSpace(response.Body); body != "" {
			responseBody = &body
		}
	}

	if sendErr != nil {
		value := sendErr.Error()
		attemptErr = &value

		var providerErr *provider.Error
		if errors.As(sendErr, &providerErr) && providerErr.StatusCode > 0 && statusCode == nil {
			code := providerErr.StatusCode
			statusCode = &code
		}
	}

	attempt := &domain.DeliveryAttempt{
		ID:             uuid.NewString(),
		NotificationID: notificationID,
		AttemptNumber:  attemptNumber,
		StatusCode:     statusCode,
		ResponseBody:   responseBody,
		Error:          attemptErr,
		CreatedAt:      s.now(),
	}

	return s.attempts.Create(ctx, attempt)
}
