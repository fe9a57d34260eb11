package repository

import (
	"context"
	"errors"
	"time"

	"github.com/pulselabs/pulse/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListParams struct {
	UserID   *string
	Status   *domain.Status
	Channel  *domain.Channel
	Page     int
	PageSize int
}

// NotificationRepository is the record store. Every status mutation goes
// through one of the Mark* operations, whose WHERE clauses encode the
// state machine guards: transitions out of PENDING are strictly guarded,
// terminal records are never overwritten, and among the remaining
// non-terminal states the most recent writer wins. The Mark* methods
// report false when no row transitioned so callers can treat a terminal
// record as a logged no-op.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*domain.Notification, error)
	List(ctx context.Context, params ListParams) ([]domain.Notification, int64, error)
	MarkQueued(ctx context.Context, id string) (bool, error)
	ClaimForDelivery(ctx context.Context, id string) (*domain.Notification, error)
	MarkSent(ctx context.Context, id string, providerMessageID *string, at time.Time) (bool, error)
	MarkRetrying(ctx context.Context, id string, deliveryErr string, nextRetryAt time.Time, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id string, deliveryErr string, attempted bool, at time.Time) (bool, error)
	MarkRequeued(ctx context.Context, id string) (bool, error)
	GetDueForRetry(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
	GetDueForSchedule(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
}

type GormNotificationRepo struct {
	db *gorm.DB
}

func NewGormNotificationRepo(db *gorm.DB) *GormNotificationRepo {
	return &GormNotificationRepo{db: db}
}

func (r *GormNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	model := notificationModelFromDomain(n)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if n != nil {
		*n = *notificationModelToDomain(model)
	}
	return nil
}

func (r *GormNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	var model NotificationModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return notificationModelToDomain(&model), nil
}

func (r *GormNotificationRepo) GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*domain.Notification, error) {
	var model NotificationModel
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", idempotencyKey).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return notificationModelToDomain(&model), nil
}

func (r *GormNotificationRepo) List(ctx context.Context, params ListParams) ([]domain.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&NotificationModel{})

	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Channel != nil {
		query = query.Where("channel = ?", *params.Channel)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []NotificationModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	notifications := make([]domain.Notification, 0, len(models))
	for i := range models {
		notifications = append(notifications, *notificationModelToDomain(&models[i]))
	}

	return notifications, total, nil
}

// MarkQueued flips PENDING to QUEUED after a successful publish. The
// PENDING guard keeps a record that already progressed from regressing.
func (r *GormNotificationRepo) MarkQueued(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Update("status", domain.StatusQueued)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// errClaimSkipped aborts the claim transaction without surfacing an
// error: the record is terminal or another worker holds it.
var errClaimSkipped = errors.New("claim skipped")

// ClaimForDelivery locks the row, skips it when another worker already
// claimed it or it reached a terminal state, and otherwise marks it
// SENDING. The SELECT FOR UPDATE and the status flip run in one
// transaction, so the lock is held until the claim is committed and two
// workers racing on a duplicate delivery cannot both claim the record.
// A nil, nil return tells the caller to ack and move on.
func (r *GormNotificationRepo) ClaimForDelivery(ctx context.Context, id string) (*domain.Notification, error) {
	var model NotificationModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", id).Error; err != nil {
			return err
		}

		switch model.Status {
		case domain.StatusSent, domain.StatusFailed, domain.StatusSending:
			return errClaimSkipped
		}

		model.Status = domain.StatusSending
		return tx.Model(&model).Update("status", domain.StatusSending).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if errors.Is(err, errClaimSkipped) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return notificationModelToDomain(&model), nil
}

func (r *GormNotificationRepo) MarkSent(ctx context.Context, id string, providerMessageID *string, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":          domain.StatusSent,
		"attempts":        gorm.Expr("attempts + 1"),
		"last_error":      nil,
		"next_retry_at":   nil,
		"last_attempt_at": at,
		"terminal_at":     at,
	}
	if providerMessageID != nil {
		updates["provider_message_id"] = *providerMessageID
	}

	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses()).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormNotificationRepo) MarkRetrying(ctx context.Context, id string, deliveryErr string, nextRetryAt time.Time, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses()).
		Updates(map[string]any{
			"status":          domain.StatusRetrying,
			"attempts":        gorm.Expr("attempts + 1"),
			"last_error":      deliveryErr,
			"next_retry_at":   nextRetryAt,
			"last_attempt_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed terminates the record. attempted is false when no provider
// call was made (unsupported channel), so the attempt count stays honest.
func (r *GormNotificationRepo) MarkFailed(ctx context.Context, id string, deliveryErr string, attempted bool, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":        domain.StatusFailed,
		"last_error":    deliveryErr,
		"next_retry_at": nil,
		"terminal_at":   at,
	}
	if attempted {
		updates["attempts"] = gorm.Expr("attempts + 1")
		updates["last_attempt_at"] = at
	}

	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses()).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkRequeued moves a due RETRYING record back to QUEUED and clears
// next_retry_at in the same statement, keeping the "next_retry_at is
// set iff retrying" invariant.
func (r *GormNotificationRepo) MarkRequeued(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("id = ? AND status = ?", id, domain.StatusRetrying).
		Updates(map[string]any{
			"status":        domain.StatusQueued,
			"next_retry_at": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormNotificationRepo) GetDueForRetry(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	var models []NotificationModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", domain.StatusRetrying, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	notifications := make([]domain.Notification, 0, len(models))
	for i := range models {
		notifications = append(notifications, *notificationModelToDomain(&models[i]))
	}

	return notifications, nil
}

// GetDueForSchedule also picks up records with no scheduled_at that are
// still PENDING: those missed their publish at submit time (broker
// outage) and get re-enqueued here.
func (r *GormNotificationRepo) GetDueForSchedule(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	var models []NotificationModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND (scheduled_at IS NULL OR scheduled_at <= ?)", domain.StatusPending, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	notifications := make([]domain.Notification, 0, len(models))
	for i := range models {
		notifications = append(notifications, *notificationModelToDomain(&models[i]))
	}

	return notifications, nil
}

func terminalStatuses() []domain.Status {
	return []domain.Status{domain.StatusSent, domain.StatusFailed}
}
