package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulselabs/pulse/internal/domain"
	"github.com/pulselabs/pulse/internal/repository"
)

// TemplateService manages reusable message templates.
type TemplateService struct {
	templates repository.TemplateRepository
	logger    *zap.Logger
}

func NewTemplateService(templates repository.TemplateRepository, logger *zap.Logger) (*TemplateService, error) {
	if templates == nil {
		return nil, fmt.Errorf("template repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TemplateService{templates: templates, logger: logger}, nil
}

func (s *TemplateService) Create(ctx context.Context, template *domain.Template) (*domain.Template, error) {
	if template == nil {
		return nil, fmt.Errorf("%w: template is required", domain.ErrValidation)
	}

	template.ID = strings.TrimSpace(template.ID)
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	template.Name = strings.TrimSpace(template.Name)

	if err := template.Validate(); err != nil {
		return nil, err
	}

	if err := s.templates.Create(ctx, template); err != nil {
		return nil, err
	}

	s.logger.Info("template created",
		zap.String("templateId", template.ID),
		zap.String("name", template.Name),
		zap.String("channel", string(template.Channel)),
	)
	return template, nil
}

func (s *TemplateService) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: template id is required", domain.ErrValidation)
	}
	return s.templates.GetByID(ctx, strings.TrimSpace(id))
}

func (s *TemplateService) GetByName(ctx context.Context, name string) (*domain.Template, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: template name is required", domain.ErrValidation)
	}
	return s.templates.GetByName(ctx, strings.TrimSpace(name))
}

func (s *TemplateService) List(ctx context.Context) ([]domain.Template, error) {
	return s.templates.List(ctx)
}
