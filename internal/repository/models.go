package repository

import (
	"time"

	"github.com/pulselabs/pulse/internal/domain"
)

// NotificationModel is the persistence model for the notifications table.
type NotificationModel struct {
	ID                string          `gorm:"type:uuid;primaryKey"`
	IdempotencyKey    *string         `gorm:"type:varchar(255)"`
	UserID            string          `gorm:"type:varchar(255);not null"`
	Channel           domain.Channel  `gorm:"type:varchar(32);not null"`
	Priority          domain.Priority `gorm:"type:varchar(10);not null"`
	Recipient         string          `gorm:"type:varchar(255);not null"`
	Content           string          `gorm:"type:text;not null"`
	Status            domain.Status   `gorm:"type:varchar(20);not null"`
	ProviderMessageID *string         `gorm:"type:varchar(255)"`
	Attempts          int             `gorm:"not null;default:0"`
	MaxAttempts       int             `gorm:"not null;default:5"`
	LastError         *string         `gorm:"type:text"`
	LastAttemptAt     *time.Time
	NextRetryAt       *time.Time
	ScheduledAt       *time.Time `gorm:"type:timestamptz"`
	TerminalAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (NotificationModel) TableName() string {
	return "notifications"
}

// DeliveryAttemptModel is the persistence model for delivery_attempts.
type DeliveryAttemptModel struct {
	ID             string  `gorm:"type:uuid;primaryKey"`
	NotificationID string  `gorm:"type:uuid;not null"`
	AttemptNumber  int     `gorm:"not null"`
	StatusCode     *int    `gorm:"type:int"`
	ResponseBody   *string `gorm:"type:text"`
	Error          *string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (DeliveryAttemptModel) TableName() string {
	return "delivery_attempts"
}

// TemplateModel is the persistence model for templates.
type TemplateModel struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	Name      string         `gorm:"type:varchar(255);not null;uniqueIndex"`
	Channel   domain.Channel `gorm:"type:varchar(32);not null"`
	Subject   *string        `gorm:"type:varchar(255)"`
	Body      string         `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TemplateModel) TableName() string {
	return "templates"
}

func notificationModelFromDomain(n *domain.Notification) *NotificationModel {
	if n == nil {
		return nil
	}

	return &NotificationModel{
		ID:                n.ID,
		IdempotencyKey:    n.IdempotencyKey,
		UserID:            n.UserID,
		Channel:           n.Channel,
		Priority:          n.Priority,
		Recipient:         n.Recipient,
		Content:           n.Content,
		Status:            n.Status,
		ProviderMessageID: n.ProviderMessageID,
		Attempts:          n.Attempts,
		MaxAttempts:       n.MaxAttempts,
		LastError:         n.LastError,
		LastAttemptAt:     n.LastAttemptAt,
		NextRetryAt:       n.NextRetryAt,
		ScheduledAt:       n.ScheduledAt,
		TerminalAt:        n.TerminalAt,
		CreatedAt:         n.CreatedAt,
		UpdatedAt:         n.UpdatedAt,
	}
}

func notificationModelToDomain(m *NotificationModel) *domain.Notification {
	if m == nil {
		return nil
	}

	return &domain.Notification{
		ID:                m.ID,
		IdempotencyKey:    m.IdempotencyKey,
		UserID:            m.UserID,
		Channel:           m.Channel,
		Priority:          m.Priority,
		Recipient:         m.Recipient,
		Content:           m.Content,
		Status:            m.Status,
		ProviderMessageID: m.ProviderMessageID,
		Attempts:          m.Attempts,
		MaxAttempts:       m.MaxAttempts,
		LastError:         m.LastError,
		LastAttemptAt:     m.LastAttemptAt,
		NextRetryAt:       m.NextRetryAt,
		ScheduledAt:       m.ScheduledAt,
		TerminalAt:        m.TerminalAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.DeliveryAttempt) *DeliveryAttemptModel {
	if a == nil {
		return nil
	}

	return &DeliveryAttemptModel{
		ID:             a.ID,
		NotificationID: a.NotificationID,
		AttemptNumber:  a.AttemptNumber,
		StatusCode:     a.StatusCode,
		ResponseBody:   a.ResponseBody,
		Error:          a.Error,
		CreatedAt:      a.CreatedAt,
	}
}

func attemptModelToDomain(m *DeliveryAttemptModel) *domain.DeliveryAttempt {
	if m == nil {
		return nil
	}

	return &domain.DeliveryAttempt{
		ID:             m.ID,
		NotificationID: m.NotificationID,
		AttemptNumber:  m.AttemptNumber,
		StatusCode:     m.StatusCode,
		ResponseBody:   m.ResponseBody,
		Error:          m.Error,
		CreatedAt:      m.CreatedAt,
	}
}

func templateModelFromDomain(t *domain.Template) *TemplateModel {
	if t == nil {
		return nil
	}

	return &TemplateModel{
		ID:        t.ID,
		Name:      t.Name,
		Channel:   t.Channel,
		Subject:   t.Subject,
		Body:      t.Body,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func templateModelToDomain(m *TemplateModel) *domain.Template {
	if m == nil {
		return nil
	}

	return &domain.Template{
		ID:        m.ID,
		Name:      m.Name,
		Channel:   m.Channel,
		Subject:   m.Subject,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
