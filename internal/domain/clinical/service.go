package clinical

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/practicehub/practicehub/internal/platform/apierr"
	"github.com/practicehub/practicehub/internal/platform/db"
)

type Service struct {
	vitals VitalsRepository
	notes  NoteRepository
	plans  PlanRepository
	now    func() time.Time
}

func NewService(vitals VitalsRepository, notes NoteRepository, plans PlanRepository) *Service {
	return &Service{vitals: vitals, notes: notes, plans: plans, now: time.Now}
}

func (s *Service) today() time.Time {
	y, m, d := s.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// -- Vital signs --

// RecordVitals validates v, derives BMI and stores it. RecordedAt defaults
// to now and may not be in the future.
func (s *Service) RecordVitals(ctx context.Context, patientID uuid.UUID, v *VitalSigns) error {
	v.PatientID = patientID
	errs := v.Validate()
	now := s.now().UTC()
	if v.RecordedAt.IsZero() {
		v.RecordedAt = now
	} else if v.RecordedAt.After(now.Add(5 * time.Minute)) {
		errs.Add("recorded_at", "Recorded time cannot be in the future")
	}
	if len(errs) > 0 {
		return errs
	}
	v.derive()
	return s.vitals.Create(ctx, v)
}

func (s *Service) GetVitals(ctx context.Context, id uuid.UUID) (*VitalSigns, error) {
	return s.vitals.GetByID(ctx, id)
}

func (s *Service) ListVitals(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalSigns, int, error) {
	return s.vitals.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) DeleteVitals(ctx context.Context, id uuid.UUID) error {
	return s.vitals.Delete(ctx, id)
}

// -- Progress notes --

func (s *Service) CreateNote(ctx context.Context, patientID uuid.UUID, f *NoteForm) (*ProgressNote, error) {
	if errs := f.Validate(s.today()); len(errs) > 0 {
		return nil, errs
	}
	n := &ProgressNote{PatientID: patientID, Status: NoteDraft}
	f.Apply(n)
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*ProgressNote, error) {
	return s.notes.GetByID(ctx, id)
}

func (s *Service) ListNotes(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*ProgressNote, int, error) {
	return s.notes.ListByPatient(ctx, patientID, limit, offset)
}

var errSigned = apierr.Conflict("signed notes cannot be changed")

// UpdateNote rewrites a draft note.
func (s *Service) UpdateNote(ctx context.Context, id uuid.UUID, f *NoteForm) (*ProgressNote, error) {
	if errs := f.Validate(s.today()); len(errs) > 0 {
		return nil, errs
	}
	var out *ProgressNote
	err := db.Atomic(ctx, func(ctx context.Context) error {
		n, err := s.notes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if n.Signed() {
			return errSigned
		}
		f.Apply(n)
		if err := s.notes.Update(ctx, n); err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

// SignNote locks a draft. The assessment and plan must be written first.
func (s *Service) SignNote(ctx context.Context, id, signer uuid.UUID) (*ProgressNote, error) {
	var out *ProgressNote
	err := db.Atomic(ctx, func(ctx context.Context) error {
		n, err := s.notes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if n.Signed() {
			return apierr.Conflict("note is already signed")
		}
		if errs := n.readyToSign(); len(errs) > 0 {
			return errs
		}
		at := s.now().UTC()
		n.Status = NoteSigned
		n.SignedAt = &at
		n.SignedBy = nil
		if signer != uuid.Nil {
			n.SignedBy = &signer
		}
		if err := s.notes.Update(ctx, n); err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

func (s *Service) DeleteNote(ctx context.Context, id uuid.UUID) error {
	return db.Atomic(ctx, func(ctx context.Context) error {
		n, err := s.notes.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if n.Signed() {
			return errSigned
		}
		return s.notes.Delete(ctx, id)
	})
}

// -- Treatment plans --

func (s *Service) CreatePlan(ctx context.Context, patientID uuid.UUID, f *PlanForm) (*TreatmentPlan, error) {
	if errs := f.Validate(); len(errs) > 0 {
		return nil, errs
	}
	p := &TreatmentPlan{PatientID: patientID}
	f.Apply(p)
	if err := s.plans.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error) {
	return s.plans.GetByID(ctx, id)
}

func (s *Service) ListPlans(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*TreatmentPlan, int, error) {
	return s.plans.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) UpdatePlan(ctx context.Context, id uuid.UUID, f *PlanForm) (*TreatmentPlan, error) {
	if errs := f.Validate(); len(errs) > 0 {
		return nil, errs
	}
	var out *TreatmentPlan
	err := db.Atomic(ctx, func(ctx context.Context) error {
		p, err := s.plans.GetByID(ctx, id)
		if err != nil {
			return err
		}
		f.Apply(p)
		if err := s.plans.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func (s *Service) DeletePlan(ctx context.Context, id uuid.UUID) error {
	return s.plans.Delete(ctx, id)
}
