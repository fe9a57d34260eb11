package repository

import (
	"context"
	"time"

	"github.com/pulselabs/pulse/internal/domain"
	"gorm.io/gorm"
)

// StatusCount and ChannelCount are aggregation rows for the stats views.
type StatusCount struct {
	Status domain.Status `gorm:"column:status"`
	Count  int64         `gorm:"column:count"`
}

type ChannelCount struct {
	Channel domain.Channel `gorm:"column:channel"`
	Count   int64          `gorm:"column:count"`
}

// ChannelFailureRate is the share of terminal records that failed,
// per channel, within a window.
type ChannelFailureRate struct {
	Channel     domain.Channel `gorm:"column:channel"`
	Total       int64          `gorm:"column:total"`
	Failed      int64          `gorm:"column:failed"`
	FailureRate float64        `gorm:"column:failure_rate"`
}

// DeliveryLatency is the creation-to-sent duration of a completed record.
type DeliveryLatency struct {
	NotificationID string         `gorm:"column:id"`
	Channel        domain.Channel `gorm:"column:channel"`
	Seconds        float64        `gorm:"column:seconds"`
}

// StatsRepository is the read-only aggregation boundary consumed by the
// stats endpoint and the observability exporter. Nothing here sits on
// the dispatch hot path.
type StatsRepository interface {
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	CountByChannel(ctx context.Context) ([]ChannelCount, error)
	FailureRateSince(ctx context.Context, since time.Time) ([]ChannelFailureRate, error)
	AvgRetryAttempts(ctx context.Context) (float64, error)
	DeliveryLatencies(ctx context.Context, limit int) ([]DeliveryLatency, error)
}

type GormStatsRepo struct {
	db *gorm.DB
}

func NewGormStatsRepo(db *gorm.DB) *GormStatsRepo {
	return &GormStatsRepo{db: db}
}

func (r *GormStatsRepo) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *GormStatsRepo) CountByChannel(ctx context.Context) ([]ChannelCount, error) {
	var counts []ChannelCount
	err := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Select("channel, COUNT(*) as count").
		Group("channel").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *GormStatsRepo) FailureRateSince(ctx context.Context, since time.Time) ([]ChannelFailureRate, error) {
	var rates []ChannelFailureRate
	err := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Select(`channel,
			COUNT(*) as total,
			COUNT(*) FILTER (WHERE status = ?) as failed,
			COUNT(*) FILTER (WHERE status = ?)::float / COUNT(*) as failure_rate`,
			domain.StatusFailed, domain.StatusFailed).
		Where("status IN ? AND terminal_at >= ?", terminalStatuses(), since).
		Group("channel").
		Scan(&rates).Error
	if err != nil {
		return nil, err
	}
	return rates, nil
}

func (r *GormStatsRepo) AvgRetryAttempts(ctx context.Context) (float64, error) {
	var avg *float64
	err := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Select("AVG(attempts)").
		Where("status = ?", domain.StatusRetrying).
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

func (r *GormStatsRepo) DeliveryLatencies(ctx context.Context, limit int) ([]DeliveryLatency, error) {
	if limit < 1 {
		limit = 100
	}

	var latencies []DeliveryLatency
	err := r.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Select("id, channel, EXTRACT(EPOCH FROM terminal_at - created_at) as seconds").
		Where("status = ? AND terminal_at IS NOT NULL", domain.StatusSent).
		Order("terminal_at DESC").
		Limit(limit).
		Scan(&latencies).Error
	if err != nil {
		return nil, err
	}
	return latencies, nil
}
