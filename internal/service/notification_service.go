package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pulselabs/pulse/internal/domain"
	"github.com/pulselabs/pulse/internal/observability"
	"github.com/pulselabs/pulse/internal/queue"
	"github.com/pulselabs/pulse/internal/ratelimit"
	"github.com/pulselabs/pulse/internal/repository"
)

// NotificationService owns the ingress path: rate limiting, idempotent
// record creation, and handoff to the channel work queues.
type NotificationService struct {
	notifications repository.NotificationRepository
	templates     repository.TemplateRepository
	publisher     queue.Publisher
	limiter       ratelimit.Limiter
	metrics       *observability.Metrics
	logger        *zap.Logger
	maxAttempts   int
	now           func() time.Time
}

func NewNotificationService(
	notifications repository.NotificationRepository,
	templates repository.TemplateRepository,
	publisher queue.Publisher,
	limiter ratelimit.Limiter,
	metrics *observability.Metrics,
	logger *zap.Logger,
	maxAttempts int,
) (*NotificationService, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("queue publisher is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}

	return &NotificationService{
		notifications: notifications,
		templates:     templates,
		publisher:     publisher,
		limiter:       limiter,
		metrics:       metrics,
		logger:        logger,
		maxAttempts:   maxAttempts,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// Submit accepts one notification. The returned bool reports whether a
// new record was created; false means an idempotency-key replay resolved
// to the existing record, which is returned untouched.
//
// The rate limit is checked before anything is persisted: a rejected
// submission leaves no record behind. An unsupported channel is the one
// validation failure that still creates a record, immediately failed,
// so the outcome stays queryable.
func (s *NotificationService) Submit(ctx context.Context, notification *domain.Notification) (*domain.Notification, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.prepareForSubmit(notification); err != nil {
		return nil, false, err
	}

	admitted, err := s.limiter.Admit(ctx, ratelimit.Key(notification.UserID, string(notification.Channel)))
	if err != nil {
		return nil, false, fmt.Errorf("rate limiter unavailable: %w", err)
	}
	if !admitted {
		s.metrics.IncRateLimited(string(notification.Channel))
		return nil, false, fmt.Errorf("%w: user %s exceeded the %s limit",
			domain.ErrRateLimited, notification.UserID, notification.Channel)
	}

	if err := s.notifications.Create(ctx, notification); err != nil {
		existing, resolved, resolveErr := s.resolveIdempotencyConflict(ctx, err, notification.IdempotencyKey)
		if resolveErr != nil {
			return nil, false, resolveErr
		}
		if resolved {
			return existing, false, nil
		}
		return nil, false, err
	}

	now := s.now()

	if !notification.Channel.IsValid() {
		reason := fmt.Sprintf("unsupported channel: %s", notification.Channel)
		if _, failErr := s.notifications.MarkFailed(ctx, notification.ID, reason, false, now); failErr != nil {
			return nil, false, fmt.Errorf("failed to mark unsupported-channel notification: %w", failErr)
		}
		s.metrics.IncNotificationFailed(string(notification.Channel), "unsupported_channel")
		s.logger.Warn("rejected unsupported channel",
			zap.String("notificationId", notification.ID),
			zap.String("channel", string(notification.Channel)),
		)
		notification.Status = domain.StatusFailed
		notification.LastError = &reason
		return notification, true, nil
	}

	if !notification.DueAt(now) {
		// Deferred delivery: the schedule scanner enqueues it when due.
		return notification, true, nil
	}

	if err := s.enqueue(ctx, notification); err != nil {
		// The record stays PENDING and the schedule scanner picks it
		// up on its next pass, so a broker blip does not lose work.
		s.logger.Error("failed to publish notification, leaving pending for rescan",
			zap.String("notificationId", notification.ID),
			zap.String("channel", string(notification.Channel)),
			zap.Error(err),
		)
		return notification, true, nil
	}

	return notification, true, nil
}

// SubmitWithTemplate renders a stored template into the notification
// content before submitting. The template's channel must match the
// notification's channel.
func (s *NotificationService) SubmitWithTemplate(
	ctx context.Context,
	notification *domain.Notification,
	templateName string,
	vars map[string]string,
) (*domain.Notification, bool, error) {
	if s.templates == nil {
		return nil, false, fmt.Errorf("template store is not configured")
	}
	templateName = strings.TrimSpace(templateName)
	if templateName == "" {
		return nil, false, fmt.Errorf("%w: template name is required", domain.ErrValidation)
	}
	if notification == nil {
		return nil, false, fmt.Errorf("%w: notification is required", domain.ErrValidation)
	}

	template, err := s.templates.GetByName(ctx, templateName)
	if err != nil {
		return nil, false, err
	}
	if template.Channel != notification.Channel {
		return nil, false, fmt.Errorf("%w: template %s targets channel %s, not %s",
			domain.ErrValidation, templateName, template.Channel, notification.Channel)
	}

	notification.Content = template.Render(vars)
	return s.Submit(ctx, notification)
}

func (s *NotificationService) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: notification id is required", domain.ErrValidation)
	}
	return s.notifications.GetByID(ctx, strings.TrimSpace(id))
}

func (s *NotificationService) List(
	ctx context.Context,
	params repository.ListParams,
) ([]domain.Notification, int64, error) {
	return s.notifications.List(ctx, params)
}

func (s *NotificationService) enqueue(ctx context.Context, notification *domain.Notification) error {
	msg := queue.DeliveryMessage{
		NotificationID: notification.ID,
		Channel:        notification.Channel,
		Priority:       notification.Priority,
	}
	if correlationID, ok := observability.CorrelationIDFromContext(ctx); ok {
		msg.CorrelationID = correlationID
	}

	if err := s.publisher.Publish(ctx, queue.WorkQueue(notification.Channel), msg); err != nil {
		return err
	}

	transitioned, err := s.notifications.MarkQueued(ctx, notification.ID)
	if err != nil {
		return fmt.Errorf("failed to mark notification queued: %w", err)
	}
	if transitioned {
		notification.Status = domain.StatusQueued
	}
	return nil
}

func (s *NotificationService) prepareForSubmit(n *domain.Notification) error {
	if n == nil {
		return fmt.Errorf("%w: notification is required", domain.ErrValidation)
	}

	n.ID = strings.TrimSpace(n.ID)
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.UserID = strings.TrimSpace(n.UserID)
	n.Recipient = strings.TrimSpace(n.Recipient)
	n.Content = strings.TrimSpace(n.Content)
	n.IdempotencyKey = normalizeOptionalString(n.IdempotencyKey)

	if n.Priority == "" {
		n.Priority = domain.PriorityNormal
	}

	n.Status = domain.StatusPending
	n.Attempts = 0
	if n.MaxAttempts <= 0 {
		n.MaxAttempts = s.maxAttempts
	}
	n.ProviderMessageID = nil
	n.LastError = nil
	n.LastAttemptAt = nil
	n.NextRetryAt = nil
	n.TerminalAt = nil

	return n.Validate()
}

func (s *NotificationService) resolveIdempotencyConflict(
	ctx context.Context,
	createErr error,
	idempotencyKey *string,
) (*domain.Notification, bool, error) {
	if idempotencyKey == nil {
		return nil, false, nil
	}
	if !isUniqueViolationError(createErr) {
		return nil, false, nil
	}

	existing, err := s.notifications.GetByIdempotencyKey(ctx, *idempotencyKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing notification after idempotency conflict: %w", err)
	}
	s.logger.Info("idempotency conflict resolved",
		zap.String("existingId", existing.ID),
		zap.String("idempotencyKey", *idempotencyKey),
	)
	return existing, true, nil
}

func normalizeOptionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, domain.ErrConflict) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
