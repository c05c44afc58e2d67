package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Range bounds a calendar query. ProviderID narrows it to one provider.
type Range struct {
	From       time.Time
	To         time.Time
	ProviderID *uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListRange(ctx context.Context, r Range) ([]*Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	// DueForReminder returns open appointments starting in [from, to) that
	// have not been reminded yet.
	DueForReminder(ctx context.Context, from, to time.Time) ([]*Appointment, error)
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error
}
