package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pulselabs/pulse/internal/domain"
)

type TemplateService interface {
	Create(ctx context.Context, t *domain.Template) (*domain.Template, error)
	GetByID(ctx context.Context, id string) (*domain.Template, error)
	List(ctx context.Context) ([]domain.Template, error)
}

type TemplateHandler struct {
	service TemplateService
}

func NewTemplateHandler(service TemplateService) (*TemplateHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("template service is required")
	}
	return &TemplateHandler{service: service}, nil
}

func RegisterTemplateRoutes(router fiber.Router, service TemplateService) error {
	h, err := NewTemplateHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/templates", h.CreateTemplate)
	v1.Get("/templates", h.ListTemplates)
	v1.Get("/templates/:id", h.GetTemplate)

	return nil
}

type createTemplateRequest struct {
	Name    string  `json:"name"`
	Channel string  `json:"channel"`
	Subject *string `json:"subject,omitempty"`
	Body    string  `json:"body"`
}

type templateResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Channel   string    `json:"channel"`
	Subject   *string   `json:"subject,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

func (h *TemplateHandler) CreateTemplate(c *fiber.Ctx) error {
	var req createTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := domain.ParseChannelFromString(req.Channel)
	if err != nil {
		return toHTTPError(err)
	}

	created, err := h.service.Create(c.Context(), &domain.Template{
		Name:    strings.TrimSpace(req.Name),
		Channel: channel,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toTemplateResponse(created))
}

func (h *TemplateHandler) GetTemplate(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	template, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toTemplateResponse(template))
}

func (h *TemplateHandler) ListTemplates(c *fiber.Ctx) error {
	templates, err := h.service.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]templateResponse, 0, len(templates))
	for i := range templates {
		responses = append(responses, toTemplateResponse(&templates[i]))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": responses})
}

func toTemplateResponse(t *domain.Template) templateResponse {
	if t == nil {
		return templateResponse{}
	}

	return templateResponse{
		ID:        t.ID,
		Name:      t.Name,
		Channel:   string(t.Channel),
		Subject:   t.Subject,
		Body:      t.Body,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
