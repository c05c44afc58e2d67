package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/practicehub/practicehub/internal/platform/apierr"
	"github.com/practicehub/practicehub/internal/platform/db"
	"github.com/practicehub/practicehub/internal/platform/validate"
)

// MaxRange caps a calendar query.
const MaxRange = 92 * 24 * time.Hour

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Schedule books a new appointment. A provider cannot hold two open
// appointments that overlap.
func (s *Service) Schedule(ctx context.Context, a *Appointment) error {
	a.applyDefaults()
	if errs := a.Validate(); len(errs) > 0 {
		return errs
	}
	a.ReminderSentAt = nil
	return db.Atomic(ctx, func(ctx context.Context) error {
		if err := s.checkConflict(ctx, a); err != nil {
			return err
		}
		return s.repo.Create(ctx, a)
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListRange(ctx context.Context, r Range) ([]*Appointment, error) {
	if !r.To.After(r.From) {
		return nil, apierr.BadRequest("to must be after from")
	}
	if r.To.Sub(r.From) > MaxRange {
		return nil, apierr.BadRequest("date range may not exceed 92 days")
	}
	return s.repo.ListRange(ctx, r)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// Update replaces the editable fields of an appointment. The patient and
// creator never change; moving the start time clears the reminder mark.
func (s *Service) Update(ctx context.Context, a *Appointment) error {
	return db.Atomic(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, a.ID)
		if err != nil {
			return err
		}
		if existing.Status == StatusCancelled {
			return apierr.Conflict("cancelled appointments cannot be edited")
		}
		a.PatientID = existing.PatientID
		a.CreatedBy = existing.CreatedBy
		a.CreatedAt = existing.CreatedAt
		a.ReminderSentAt = existing.ReminderSentAt
		if a.StartTime.IsZero() {
			a.StartTime = existing.StartTime
		}
		if !a.StartTime.Equal(existing.StartTime) {
			a.ReminderSentAt = nil
		}
		if a.Type == "" {
			a.Type = existing.Type
		}
		a.applyDefaults()
		if errs := a.Validate(); len(errs) > 0 {
			return errs
		}
		if err := s.checkConflict(ctx, a); err != nil {
			return err
		}
		return s.repo.Update(ctx, a)
	})
}

// Reschedule moves an open appointment. A zero duration keeps the current
// one. The appointment goes back to scheduled and will be reminded again.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, start time.Time, duration int) (*Appointment, error) {
	errs := validate.Errors{}
	if start.IsZero() {
		errs.Add("start_time", "Start time is required")
	}
	if duration != 0 {
		validateDuration(errs, duration)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	var out *Appointment
	err := db.Atomic(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if a.Status.Closed() {
			return apierr.Conflict(fmt.Sprintf("%s appointments cannot be rescheduled", a.Status))
		}
		a.StartTime = start
		if duration != 0 {
			a.DurationMinutes = duration
		}
		a.Status = StatusScheduled
		a.ReminderSentAt = nil
		if err := s.checkConflict(ctx, a); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

// Cancel closes an open appointment, noting the reason when given.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	var out *Appointment
	err := db.Atomic(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if a.Status.Closed() {
			return apierr.Conflict(fmt.Sprintf("%s appointments cannot be cancelled", a.Status))
		}
		a.Status = StatusCancelled
		if reason != "" {
			if a.Notes != "" {
				a.Notes += "\n"
			}
			a.Notes += "Cancelled: " + reason
		}
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// DueForReminder lists open, unreminded appointments starting within lead
// of now.
func (s *Service) DueForReminder(ctx context.Context, now time.Time, lead time.Duration) ([]*Appointment, error) {
	return s.repo.DueForReminder(ctx, now, now.Add(lead))
}

func (s *Service) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.repo.MarkReminded(ctx, id, at)
}

// checkConflict rejects a when its provider already has an open appointment
// overlapping it.
func (s *Service) checkConflict(ctx context.Context, a *Appointment) error {
	if a.ProviderID == nil || a.Status.Closed() {
		return nil
	}
	others, err := s.repo.ListRange(ctx, Range{
		From:       a.StartTime.Add(-MaxDuration * time.Minute),
		To:         a.EndTime(),
		ProviderID: a.ProviderID,
	})
	if err != nil {
		return err
	}
	for _, o := range others {
		if o.ID == a.ID || o.Status.Closed() {
			continue
		}
		if a.Overlaps(o) {
			return apierr.Conflict("provider already has an appointment at " + o.StartTime.UTC().Format(time.RFC3339))
		}
	}
	return nil
}
