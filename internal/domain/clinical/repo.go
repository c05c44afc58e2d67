package clinical

import (
	"context"

	"github.com/google/uuid"
)

type VitalsRepository interface {
	Create(ctx context.Context, v *VitalSigns) error
	GetByID(ctx context.Context, id uuid.UUID) (*VitalSigns, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalSigns, int, error)
}

type NoteRepository interface {
	Create(ctx context.Context, n *ProgressNote) error
	GetByID(ctx context.Context, id uuid.UUID) (*ProgressNote, error)
	Update(ctx context.Context, n *ProgressNote) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ProgressNote, int, error)
}

type PlanRepository interface {
	Create(ctx context.Context, p *TreatmentPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error)
	Update(ctx context.Context, p *TreatmentPlan) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*TreatmentPlan, int, error)
}
