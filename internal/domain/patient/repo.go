package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	// All returns every patient with insurance loaded, for in-memory search
	// and export.
	All(ctx context.Context) ([]*Patient, error)

	UpsertInsurance(ctx context.Context, ins *Insurance) error
	DeleteInsurance(ctx context.Context, patientID uuid.UUID, rank Rank) error
}
