package service

import (
	"context"
	"time"

	"github.com/pulselabs/pulse/internal/domain"
	"github.com/pulselabs/pulse/internal/provider"
	"github.com/pulselabs/pulse/internal/queue"
	"github.com/pulselabs/pulse/internal/repository"
)

type fakeNotificationRepo struct {
	createFn              func(ctx context.Context, n *domain.Notification) error
	getByIDFn             func(ctx context.Context, id string) (*domain.Notification, error)
	getByIdempotencyKeyFn func(ctx context.Context, idempotencyKey string) (*domain.Notification, error)
	listFn                func(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error)
	markQueuedFn          func(ctx context.Context, id string) (bool, error)
	claimForDeliveryFn    func(ctx context.Context, id string) (*domain.Notification, error)
	markSentFn            func(ctx context.Context, id string, providerMessageID *string, at time.Time) (bool, error)
	markRetryingFn        func(ctx context.Context, id string, deliveryErr string, nextRetryAt time.Time, at time.Time) (bool, error)
	markFailedFn          func(ctx context.Context, id string, deliveryErr string, attempted bool, at time.Time) (bool, error)
	markRequeuedFn        func(ctx context.Context, id string) (bool, error)
	getDueForRetryFn      func(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
	getDueForScheduleFn   func(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, n)
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	if f.getByIDFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeNotificationRepo) GetByIdempotencyKey(ctx context.Context, idempotencyKey string) (*domain.Notification, error) {
	if f.getByIdempotencyKeyFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByIdempotencyKeyFn(ctx, idempotencyKey)
}

func (f *fakeNotificationRepo) List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error) {
	if f.listFn == nil {
		return nil, 0, nil
	}
	return f.listFn(ctx, params)
}

func (f *fakeNotificationRepo) MarkQueued(ctx context.Context, id string) (bool, error) {
	if f.markQueuedFn == nil {
		return true, nil
	}
	return f.markQueuedFn(ctx, id)
}

func (f *fakeNotificationRepo) ClaimForDelivery(ctx context.Context, id string) (*domain.Notification, error) {
	if f.claimForDeliveryFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.claimForDeliveryFn(ctx, id)
}

func (f *fakeNotificationRepo) MarkSent(ctx context.Context, id string, providerMessageID *string, at time.Time) (bool, error) {
	if f.markSentFn == nil {
		return true, nil
	}
	return f.markSentFn(ctx, id, providerMessageID, at)
}

func (f *fakeNotificationRepo) MarkRetrying(ctx context.Context, id string, deliveryErr string, nextRetryAt time.Time, at time.Time) (bool, error) {
	if f.markRetryingFn == nil {
		return true, nil
	}
	return f.markRetryingFn(ctx, id, deliveryErr, nextRetryAt, at)
}

func (f *fakeNotificationRepo) MarkFailed(ctx context.Context, id string, deliveryErr string, attempted bool, at time.Time) (bool, error) {
	if f.markFailedFn == nil {
		return true, nil
	}
	return f.markFailedFn(ctx, id, deliveryErr, attempted, at)
}

func (f *fakeNotificationRepo) MarkRequeued(ctx context.Context, id string) (bool, error) {
	if f.markRequeuedFn == nil {
		return true, nil
	}
	return f.markRequeuedFn(ctx, id)
}

func (f *fakeNotificationRepo) GetDueForRetry(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	if f.getDueForRetryFn == nil {
		return nil, nil
	}
	return f.getDueForRetryFn(ctx, now, limit)
}

func (f *fakeNotificationRepo) GetDueForSchedule(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	if f.getDueForScheduleFn == nil {
		return nil, nil
	}
	return f.getDueForScheduleFn(ctx, now, limit)
}

type fakeTemplateRepo struct {
	createFn    func(ctx context.Context, t *domain.Template) error
	getByIDFn   func(ctx context.Context, id string) (*domain.Template, error)
	getByNameFn func(ctx context.Context, name string) (*domain.Template, error)
	listFn      func(ctx context.Context) ([]domain.Template, error)
}

func (f *fakeTemplateRepo) Create(ctx context.Context, t *domain.Template) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, t)
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	if f.getByIDFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByIDFn(ctx, id)
}

func (f *fakeTemplateRepo) GetByName(ctx context.Context, name string) (*domain.Template, error) {
	if f.getByNameFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByNameFn(ctx, name)
}

func (f *fakeTemplateRepo) List(ctx context.Context) ([]domain.Template, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx)
}

type fakeAttemptRepo struct {
	createFn              func(ctx context.Context, attempt *domain.DeliveryAttempt) error
	getByNotificationIDFn func(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error)
}

func (f *fakeAttemptRepo) Create(ctx context.Context, attempt *domain.DeliveryAttempt) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, attempt)
}

func (f *fakeAttemptRepo) GetByNotificationID(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error) {
	if f.getByNotificationIDFn == nil {
		return nil, nil
	}
	return f.getByNotificationIDFn(ctx, notificationID)
}

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, msg queue.DeliveryMessage) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.DeliveryMessage) error {
	if f.publishFn == nil {
		return nil
	}
	return f.publishFn(ctx, queueName, msg)
}

func (f *fakePublisher) Close() error { return nil }

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn == nil {
		<-ctx.Done()
		return nil
	}
	return f.consumeFn(ctx, queueName, handler)
}

func (f *fakeConsumer) Close() error { return nil }

type fakeLimiter struct {
	admitFn func(ctx context.Context, key string) (bool, error)
	waitFn  func(ctx context.Context, key string) error
}

func (f *fakeLimiter) Admit(ctx context.Context, key string) (bool, error) {
	if f.admitFn == nil {
		return true, nil
	}
	return f.admitFn(ctx, key)
}

func (f *fakeLimiter) Wait(ctx context.Context, key string) error {
	if f.waitFn == nil {
		return nil
	}
	return f.waitFn(ctx, key)
}

type fakeProvider struct {
	sendFn func(ctx context.Context, n *domain.Notification) (*provider.Response, error)
}

func (f *fakeProvider) Send(ctx context.Context, n *domain.Notification) (*provider.Response, error) {
	if f.sendFn == nil {
		return &provider.Response{StatusCode: 200}, nil
	}
	return f.sendFn(ctx, n)
}
