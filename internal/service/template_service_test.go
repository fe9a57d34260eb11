package service

import (
	"context"
	"errors"
	"testing"

	"github.com/pulselabs/pulse/internal/domain"
)

func TestTemplateServiceCreate(t *testing.T) {
	t.Parallel()

	var stored *domain.Template
	repo := &fakeTemplateRepo{
		createFn: func(ctx context.Context, template *domain.Template) error {
			stored = template
			return nil
		},
	}

	svc, err := NewTemplateService(repo, nil)
	if err != nil {
		t.Fatalf("NewTemplateService() error = %v", err)
	}

	created, err := svc.Create(context.Background(), &domain.Template{
		Name:    "  order-shipped  ",
		Channel: domain.ChannelEmail,
		Body:    "Hi {name}",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created.ID == "" {
		t.Fatal("template id should be generated")
	}
	if created.Name != "order-shipped" {
		t.Fatalf("name = %q, want trimmed order-shipped", created.Name)
	}
	if stored == nil {
		t.Fatal("template should be persisted")
	}
}

func TestTemplateServiceCreateValidation(t *testing.T) {
	t.Parallel()

	svc, err := NewTemplateService(&fakeTemplateRepo{}, nil)
	if err != nil {
		t.Fatalf("NewTemplateService() error = %v", err)
	}

	tests := []struct {
		name     string
		template *domain.Template
	}{
		{name: "nil template", template: nil},
		{name: "missing name", template: &domain.Template{Channel: domain.ChannelSMS, Body: "b"}},
		{name: "missing body", template: &domain.Template{Name: "t", Channel: domain.ChannelSMS}},
		{name: "invalid channel", template: &domain.Template{Name: "t", Channel: domain.Channel("FAX"), Body: "b"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := svc.Create(context.Background(), tt.template); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestTemplateServiceCreateDuplicateName(t *testing.T) {
	t.Parallel()

	repo := &fakeTemplateRepo{
		createFn: func(ctx context.Context, template *domain.Template) error {
			return domain.ErrConflict
		},
	}

	svc, err := NewTemplateService(repo, nil)
	if err != nil {
		t.Fatalf("NewTemplateService() error = %v", err)
	}

	_, err = svc.Create(context.Background(), &domain.Template{
		Name:    "order-shipped",
		Channel: domain.ChannelEmail,
		Body:    "Hi {name}",
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
}

func TestTemplateServiceGetByNameRequiresName(t *testing.T) {
	t.Parallel()

	svc, err := NewTemplateService(&fakeTemplateRepo{}, nil)
	if err != nil {
		t.Fatalf("NewTemplateService() error = %v", err)
	}

	if _, err := svc.GetByName(context.Background(), " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("GetByName() error = %v, want ErrValidation", err)
	}
}
