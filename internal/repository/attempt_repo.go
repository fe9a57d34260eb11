package repository

import (
	"context"

	"github.com/pulselabs/pulse/internal/domain"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	Create(ctx context.Context, a *domain.DeliveryAttempt) error
	GetByNotificationID(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error)
}

type GormAttemptRepo struct {
	db *gorm.DB
}

func NewGormAttemptRepo(db *gorm.DB) *GormAttemptRepo {
	return &GormAttemptRepo{db: db}
}

func (r *GormAttemptRepo) Create(ctx context.Context, a *domain.DeliveryAttempt) error {
	model := attemptModelFromDomain(a)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if a != nil {
		*a = *attemptModelToDomain(model)
	}
	return nil
}

func (r *GormAttemptRepo) GetByNotificationID(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error) {
	var models []DeliveryAttemptModel
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("attempt_number ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.DeliveryAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, *attemptModelToDomain(&models[i]))
	}

	return attempts, nil
}
