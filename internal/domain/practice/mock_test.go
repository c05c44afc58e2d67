package practice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/practicehub/practicehub/internal/platform/npi"
)

type mockRepo struct {
	practices map[uuid.UUID]*Practice
	providers map[uuid.UUID]*Provider
}

func newMockRepo() *mockRepo {
	return &mockRepo{practices: map[uuid.UUID]*Practice{}, providers: map[uuid.UUID]*Provider{}}
}

func (m *mockRepo) Create(_ context.Context, p *Practice) error {
	p.ID = uuid.New()
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	cp := *p
	m.practices[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Practice, error) {
	p, ok := m.practices[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, p *Practice) error {
	if _, ok := m.practices[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *p
	m.practices[p.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.practices[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.practices, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Practice, int, error) {
	var out []*Practice
	for _, p := range m.practices {
		out = append(out, p)
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (m *mockRepo) CreateProvider(_ context.Context, p *Provider) error {
	p.ID = uuid.New()
	cp := *p
	m.providers[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetProvider(_ context.Context, id uuid.UUID) (*Provider, error) {
	p, ok := m.providers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) UpdateProvider(_ context.Context, p *Provider) error {
	old, ok := m.providers[p.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	p.PracticeID = old.PracticeID
	cp := *p
	m.providers[p.ID] = &cp
	return nil
}

func (m *mockRepo) DeleteProvider(_ context.Context, id uuid.UUID) error {
	if _, ok := m.providers[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.providers, id)
	return nil
}

func (m *mockRepo) ListProviders(_ context.Context, practiceID uuid.UUID) ([]*Provider, error) {
	var out []*Provider
	for _, p := range m.providers {
		if p.PracticeID == practiceID {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubRegistry struct {
	info *npi.ProviderInfo
	err  error
}

func (s *stubRegistry) Lookup(_ context.Context, number string) (*npi.ProviderInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	info := *s.info
	info.NPI = number
	return &info, nil
}

const validNPI = "1234567893"

func validPractice() *Practice {
	return &Practice{
		Name:                "Springfield Family Medicine",
		NPI:                 validNPI,
		TaxID:               "12-3456789",
		Phone:               "(217) 555-0100",
		Email:               "office@springfieldfm.example",
		PhysicalAddress:     Address{Line1: "100 Main St", City: "Springfield", State: "il", Zip: "62701"},
		PayToSameAsPhysical: true,
	}
}

func validProvider() *Provider {
	return &Provider{FirstName: "Jane", LastName: "Smith", Credential: "MD", NPI: validNPI}
}

func registryInfo() *npi.ProviderInfo {
	return &npi.ProviderInfo{
		Type:         "Organization",
		Name:         "SPRINGFIELD CLINIC LLC",
		Organization: "SPRINGFIELD CLINIC LLC",
		FirstName:    "Jane",
		LastName:     "Smith",
		Credential:   "MD",
		TaxonomyCode: "207Q00000X",
		TaxonomyDesc: "Family Medicine",
		Address:      npi.Address{Line1: "1 ELM ST", City: "Peoria", State: "IL", Zip: "61602"},
		Phone:        "(309) 555-0199",
	}
}
