package practice

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/practicehub/practicehub/internal/platform/apierr"
	"github.com/practicehub/practicehub/internal/platform/db"
	"github.com/practicehub/practicehub/internal/platform/npi"
)

// Registry looks NPIs up. *npi.Client satisfies it.
type Registry interface {
	Lookup(ctx context.Context, number string) (*npi.ProviderInfo, error)
}

type Service struct {
	repo     Repository
	registry Registry
}

func NewService(repo Repository, registry Registry) *Service {
	return &Service{repo: repo, registry: registry}
}

func (s *Service) CreatePractice(ctx context.Context, p *Practice) error {
	p.Normalize()
	if errs := p.Validate(); len(errs) > 0 {
		return errs
	}
	p.Active = true
	return s.repo.Create(ctx, p)
}

func (s *Service) GetPractice(ctx context.Context, id uuid.UUID) (*Practice, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListPractices(ctx context.Context, limit, offset int) ([]*Practice, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) UpdatePractice(ctx context.Context, p *Practice) error {
	p.Normalize()
	if errs := p.Validate(); len(errs) > 0 {
		return errs
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) DeletePractice(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) CreateProvider(ctx context.Context, practiceID uuid.UUID, p *Provider) error {
	if errs := p.Validate(); len(errs) > 0 {
		return errs
	}
	p.PracticeID = practiceID
	p.Active = true
	return db.Atomic(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, practiceID); err != nil {
			return err
		}
		return s.repo.CreateProvider(ctx, p)
	})
}

func (s *Service) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return s.repo.GetProvider(ctx, id)
}

func (s *Service) ListProviders(ctx context.Context, practiceID uuid.UUID) ([]*Provider, error) {
	return s.repo.ListProviders(ctx, practiceID)
}

func (s *Service) UpdateProvider(ctx context.Context, p *Provider) error {
	if errs := p.Validate(); len(errs) > 0 {
		return errs
	}
	return s.repo.UpdateProvider(ctx, p)
}

func (s *Service) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteProvider(ctx, id)
}

// LookupNPI queries the registry and maps its failures to API errors.
func (s *Service) LookupNPI(ctx context.Context, number string) (*npi.ProviderInfo, error) {
	if s.registry == nil {
		return nil, apierr.Upstream("NPI registry lookups are not configured")
	}
	info, err := s.registry.Lookup(ctx, number)
	switch {
	case err == nil:
		return info, nil
	case errors.Is(err, npi.ErrInvalidNumber):
		return nil, apierr.BadRequest(err.Error())
	case errors.Is(err, npi.ErrNotFound):
		return nil, apierr.NotFound("NPI " + number + " was not found in the registry")
	}
	return nil, apierr.Upstream("NPI registry is unavailable, please try again")
}

// PrefillPractice fills the draft's empty fields from the registry record
// for its NPI. Nothing is saved.
func (s *Service) PrefillPractice(ctx context.Context, p *Practice) (*npi.ProviderInfo, error) {
	info, err := s.LookupNPI(ctx, p.NPI)
	if err != nil {
		return nil, err
	}
	ApplyRegistry(p, info)
	return info, nil
}

func (s *Service) PrefillProvider(ctx context.Context, p *Provider) (*npi.ProviderInfo, error) {
	info, err := s.LookupNPI(ctx, p.NPI)
	if err != nil {
		return nil, err
	}
	ApplyRegistryToProvider(p, info)
	return info, nil
}
