package practice

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Practice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Practice, error)
	Update(ctx context.Context, p *Practice) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Practice, int, error)

	CreateProvider(ctx context.Context, p *Provider) error
	GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error)
	UpdateProvider(ctx context.Context, p *Provider) error
	DeleteProvider(ctx context.Context, id uuid.UUID) error
	ListProviders(ctx context.Context, practiceID uuid.UUID) ([]*Provider, error)
}
