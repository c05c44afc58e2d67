package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/practicehub/practicehub/internal/platform/apierr"
	"github.com/practicehub/practicehub/internal/platform/db"
	"github.com/practicehub/practicehub/internal/platform/validate"
)

type Service struct {
	repo  Repository
	loads singleflight.Group
	now   func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register validates the form and stores a new patient with its primary
// insurance, if given.
func (s *Service) Register(ctx context.Context, form RegistrationForm) (*Patient, error) {
	if errs := form.ValidateAt(s.now()); len(errs) > 0 {
		return nil, errs
	}
	p := form.ToPatient()
	err := db.Atomic(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// loadAll collapses overlapping full loads for the same company into one
// store round-trip. The shared load ignores the first caller's cancellation
// so callers that joined it still get a result; the first caller stays
// blocked in Do, which keeps its company connection held.
func (s *Service) loadAll(ctx context.Context) ([]*Patient, error) {
	key := db.CompanyFromContext(ctx)
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		return s.repo.All(shared)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Patient), nil
}

func (s *Service) Search(ctx context.Context, f Filter) (Result, error) {
	all, err := s.loadAll(ctx)
	if err != nil {
		return Result{}, err
	}
	return Apply(all, f, s.now()), nil
}

// Update applies a full edit. Fields absent from the form are cleared; the
// account number and secondary policies are kept.
func (s *Service) Update(ctx context.Context, id uuid.UUID, form RegistrationForm) (*Patient, error) {
	if errs := form.ValidateAt(s.now()); len(errs) > 0 {
		return nil, errs
	}
	var p *Patient
	err := db.Atomic(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.repo.GetByID(ctx, id); err != nil {
			return err
		}
		form.ApplyTo(p)
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		if ins := p.PrimaryInsurance(); ins != nil && form.InsuranceProvider != "" {
			ins.PatientID = p.ID
			return s.repo.UpsertInsurance(ctx, ins)
		}
		return nil
	})
	return p, err
}

func (s *Service) modify(ctx context.Context, id uuid.UUID, apply func(p *Patient)) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(p)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdateContact(ctx context.Context, id uuid.UUID, form ContactForm) (*Patient, error) {
	if errs := form.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return s.modify(ctx, id, form.ApplyTo)
}

func (s *Service) UpdateMedicalHistory(ctx context.Context, id uuid.UUID, form MedicalHistoryForm) (*Patient, error) {
	if errs := form.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return s.modify(ctx, id, form.ApplyTo)
}

func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status Status) (*Patient, error) {
	if status != StatusActive && status != StatusInactive {
		return nil, validate.Errors{"status": "must be one of: active, inactive"}
	}
	return s.modify(ctx, id, func(p *Patient) { p.Status = status })
}

// UpdateInsurance inserts or replaces the policy at the form's rank.
func (s *Service) UpdateInsurance(ctx context.Context, id uuid.UUID, form InsuranceForm) (*Patient, error) {
	if errs := form.Validate(); len(errs) > 0 {
		return nil, errs
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ins := form.ToInsurance(p.ID)
	for _, existing := range p.Insurance {
		if existing.Rank == ins.Rank {
			ins.ID = existing.ID
		}
	}
	if err := s.repo.UpsertInsurance(ctx, &ins); err != nil {
		return nil, err
	}
	p.SetInsurance(ins)
	return p, nil
}

func (s *Service) RemoveInsurance(ctx context.Context, id uuid.UUID, rank Rank) error {
	switch rank {
	case RankPrimary, RankSecondary, RankTertiary:
	default:
		return apierr.BadRequest(fmt.Sprintf("unknown insurance rank %q", rank))
	}
	return s.repo.DeleteInsurance(ctx, id, rank)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// RowError reports why one import row was skipped.
type RowError struct {
	Row    int             `json:"row"`
	Errors validate.Errors `json:"errors,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type ImportResult struct {
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Failed  []RowError `json:"failed"`
}

// Import stores each valid row. A row whose account number matches an
// existing patient updates that patient; other rows register new patients.
// Failures are collected per row and do not stop the import.
func (s *Service) Import(ctx context.Context, rows []ImportRow) ImportResult {
	res := ImportResult{Failed: []RowError{}}
	for _, row := range rows {
		if len(row.Errors) > 0 {
			res.Failed = append(res.Failed, RowError{Row: row.Row, Errors: row.Errors})
			continue
		}
		created, err := s.importRow(ctx, row)
		if err != nil {
			res.Failed = append(res.Failed, RowError{Row: row.Row, Error: db.FriendlyMessage(err, "patient")})
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res
}

func (s *Service) importRow(ctx context.Context, row ImportRow) (bool, error) {
	created := false
	err := db.Atomic(ctx, func(ctx context.Context) error {
		if row.AccountNumber != "" {
			if existing, err := s.repo.GetByAccountNumber(ctx, row.AccountNumber); err == nil {
				row.Form.ApplyTo(existing)
				if err := s.repo.Update(ctx, existing); err != nil {
					return err
				}
				if ins := existing.PrimaryInsurance(); ins != nil && row.Form.InsuranceProvider != "" {
					ins.PatientID = existing.ID
					return s.repo.UpsertInsurance(ctx, ins)
				}
				return nil
			} else if db.Classify(err) != db.KindNotFound {
				return err
			}
		}
		p := row.Form.ToPatient()
		p.AccountNumber = row.AccountNumber
		created = true
		return s.repo.Create(ctx, p)
	})
	return created, err
}

func (s *Service) Export(ctx context.Context) ([]*Patient, error) {
	return s.loadAll(ctx)
}

// Summary counts patients by status and risk level.
type Summary struct {
	Total    int               `json:"total"`
	ByStatus map[Status]int    `json:"by_status"`
	ByRisk   map[RiskLevel]int `json:"by_risk"`
	Insured  int               `json:"insured"`
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	all, err := s.loadAll(ctx)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{ByStatus: map[Status]int{}, ByRisk: map[RiskLevel]int{}}
	for _, p := range all {
		sum.Total++
		sum.ByStatus[p.Status]++
		sum.ByRisk[p.RiskLevel]++
		if len(p.Insurance) > 0 {
			sum.Insured++
		}
	}
	return sum, nil
}
