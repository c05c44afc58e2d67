package documents

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create stores d under its preassigned ID.
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByPatient filters by category when it is non-empty.
	ListByPatient(ctx context.Context, patientID uuid.UUID, category string, limit, offset int) ([]*Document, int, error)
}
