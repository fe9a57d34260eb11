package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pulselabs/pulse/internal/domain"
	"github.com/pulselabs/pulse/internal/observability"
	"github.com/pulselabs/pulse/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type NotificationService interface {
	Submit(ctx context.Context, n *domain.Notification) (*domain.Notification, bool, error)
	SubmitWithTemplate(ctx context.Context, n *domain.Notification, templateName string, vars map[string]string) (*domain.Notification, bool, error)
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Notification, int64, error)
}

type AttemptStore interface {
	GetByNotificationID(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error)
}

type NotificationHandler struct {
	service  NotificationService
	attempts AttemptStore
}

func NewNotificationHandler(service NotificationService, attempts AttemptStore) (*NotificationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("notification service is required")
	}
	return &NotificationHandler{service: service, attempts: attempts}, nil
}

func RegisterNotificationRoutes(router fiber.Router, service NotificationService, attempts AttemptStore) error {
	h, err := NewNotificationHandler(service, attempts)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications", h.SubmitNotification)
	v1.Get("/notifications/:id", h.GetNotification)
	v1.Get("/notifications/:id/attempts", h.ListAttempts)
	v1.Get("/notifications", h.ListNotifications)

	return nil
}

type submitNotificationRequest struct {
	UserID         string            `json:"userId"`
	IdempotencyKey *string           `json:"idempotencyKey"`
	Channel        string            `json:"channel"`
	Priority       string            `json:"priority"`
	Recipient      string            `json:"recipient"`
	Content        string            `json:"content"`
	Template       string            `json:"template,omitempty"`
	TemplateVars   map[string]string `json:"templateVars,omitempty"`
	ScheduledAt    *time.Time        `json:"scheduledAt,omitempty"`
	MaxAttempts    *int              `json:"maxAttempts,omitempty"`
}

type notificationResponse struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	IdempotencyKey    *string    `json:"idempotencyKey,omitempty"`
	Channel           string     `json:"channel"`
	Priority          string     `json:"priority"`
	Recipient         string     `json:"recipient"`
	Content           string     `json:"content"`
	Status            string     `json:"status"`
	ProviderMessageID *string    `json:"providerMessageId,omitempty"`
	Attempts          int        `json:"attempts"`
	MaxAttempts       int        `json:"maxAttempts"`
	LastError         *string    `json:"lastError,omitempty"`
	LastAttemptAt     *time.Time `json:"lastAttemptAt,omitempty"`
	NextRetryAt       *time.Time `json:"nextRetryAt,omitempty"`
	ScheduledAt       *time.Time `json:"scheduledAt,omitempty"`
	TerminalAt        *time.Time `json:"terminalAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type attemptResponse struct {
	ID            string    `json:"id"`
	AttemptNumber int       `json:"attemptNumber"`
	StatusCode    *int      `json:"statusCode,omitempty"`
	ResponseBody  *string   `json:"responseBody,omitempty"`
	Error         *string   `json:"error,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type listNotificationsResponse struct {
	Data []notificationResponse `json:"data"`
	Meta listMeta               `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *NotificationHandler) SubmitNotification(c *fiber.Ctx) error {
	var req submitNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	notification, err := requestToDomainNotification(req)
	if err != nil {
		return toHTTPError(err)
	}

	ctx := requestContext(c)

	var result *domain.Notification
	var created bool
	if strings.TrimSpace(req.Template) != "" {
		result, created, err = h.service.SubmitWithTemplate(ctx, &notification, req.Template, req.TemplateVars)
	} else {
		result, created, err = h.service.Submit(ctx, &notification)
	}
	if err != nil {
		return toHTTPError(err)
	}

	// A replayed idempotency key returns the original record, not a
	// fresh acceptance.
	status := fiber.StatusAccepted
	if !created {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(toNotificationResponse(result))
}

func (h *NotificationHandler) GetNotification(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	notification, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toNotificationResponse(notification))
}

func (h *NotificationHandler) ListAttempts(c *fiber.Ctx) error {
	if h.attempts == nil {
		return fiber.NewError(fiber.StatusNotFound, "attempt history is not available")
	}

	id := strings.TrimSpace(c.Params("id"))
	// Resolve the notification first so an unknown id is a 404, not an
	// empty list.
	if _, err := h.service.GetByID(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	attempts, err := h.attempts.GetByNotificationID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]attemptResponse, 0, len(attempts))
	for _, attempt := range attempts {
		responses = append(responses, attemptResponse{
			ID:            attempt.ID,
			AttemptNumber: attempt.AttemptNumber,
			StatusCode:    attempt.StatusCode,
			ResponseBody:  attempt.ResponseBody,
			Error:         attempt.Error,
			CreatedAt:     attempt.CreatedAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"notificationId": id,
		"attempts":       responses,
	})
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	notifications, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listNotificationsResponse{
		Data: toNotificationResponses(notifications),
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawUser := strings.TrimSpace(c.Query("userId")); rawUser != "" {
		params.UserID = &rawUser
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	if rawChannel := strings.TrimSpace(c.Query("channel")); rawChannel != "" {
		channel, err := domain.ParseChannelFromString(rawChannel)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Channel = &channel
	}

	return params, nil
}

func requestToDomainNotification(req submitNotificationRequest) (domain.Notification, error) {
	priorityRaw := strings.TrimSpace(req.Priority)
	priority := domain.PriorityNormal
	if priorityRaw != "" {
		parsed, err := domain.ParsePriorityFromString(priorityRaw)
		if err != nil {
			return domain.Notification{}, err
		}
		priority = parsed
	}

	// The channel is not validated here: an unknown channel still
	// produces a record, which the ingress path immediately fails.
	channel := domain.Channel(strings.ToUpper(strings.TrimSpace(req.Channel)))
	if channel == "" {
		return domain.Notification{}, fmt.Errorf("%w: channel is required", domain.ErrValidation)
	}

	n := domain.Notification{
		UserID:         strings.TrimSpace(req.UserID),
		IdempotencyKey: req.IdempotencyKey,
		Channel:        channel,
		Priority:       priority,
		Recipient:      strings.TrimSpace(req.Recipient),
		Content:        strings.TrimSpace(req.Content),
		ScheduledAt:    req.ScheduledAt,
	}
	if req.MaxAttempts != nil {
		n.MaxAttempts = *req.MaxAttempts
	}

	return n, nil
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.Context()
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return observability.WithCorrelationID(ctx, value)
	}
	if value, ok := c.Locals("requestid").(string); ok && strings.TrimSpace(value) != "" {
		return observability.WithCorrelationID(ctx, strings.TrimSpace(value))
	}
	return ctx
}

func toNotificationResponses(notifications []domain.Notification) []notificationResponse {
	responses := make([]notificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		n := notification
		responses = append(responses, toNotificationResponse(&n))
	}
	return responses
}

func toNotificationResponse(n *domain.Notification) notificationResponse {
	if n == nil {
		return notificationResponse{}
	}

	return notificationResponse{
		ID:                n.ID,
		UserID:            n.UserID,
		IdempotencyKey:    n.IdempotencyKey,
		Channel:           n.Channel.String(),
		Priority:          n.Priority.String(),
		Recipient:         n.Recipient,
		Content:           n.Content,
		Status:            n.Status.String(),
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
