package repository

import (
	"context"
	"errors"

	"github.com/pulselabs/pulse/internal/domain"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	Create(ctx context.Context, t *domain.Template) error
	GetByID(ctx context.Context, id string) (*domain.Template, error)
	GetByName(ctx context.Context, name string) (*domain.Template, error)
	List(ctx context.Context) ([]domain.Template, error)
}

type GormTemplateRepo struct {
	db *gorm.DB
}

func NewGormTemplateRepo(db *gorm.DB) *GormTemplateRepo {
	return &GormTemplateRepo{db: db}
}

func (r *GormTemplateRepo) Create(ctx context.Context, t *domain.Template) error {
	model := templateModelFromDomain(t)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	if t != nil {
		*t = *templateModelToDomain(model)
	}
	return nil
}

func (r *GormTemplateRepo) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	var model TemplateModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return templateModelToDomain(&model), nil
}

func (r *GormTemplateRepo) GetByName(ctx context.Context, name string) (*domain.Template, error) {
	var model TemplateModel
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return templateModelToDomain(&model), nil
}

func (r *GormTemplateRepo) List(ctx context.Context) ([]domain.Template, error) {
	var models []TemplateModel
	err := r.db.WithContext(ctx).Order("name ASC").Find(&models).Error
	if err != nil {
		return nil, err
	}

	templates := make([]domain.Template, 0, len(models))
	for i := range models {
		templates = append(templates, *templateModelToDomain(&models[i]))
	}

	return templates, nil
}
