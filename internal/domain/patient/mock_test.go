package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockRepo struct {
	store    map[uuid.UUID]*Patient
	allCalls int
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Patient)}
}

func clonePatient(p *Patient) *Patient {
	cp := *p
	cp.Insurance = append([]Insurance(nil), p.Insurance...)
	return &cp
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.AccountNumber == "" {
		p.AccountNumber = NewAccountNumber()
	}
	p.Version = 1
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	for i := range p.Insurance {
		p.Insurance[i].ID = uuid.New()
		p.Insurance[i].PatientID = p.ID
	}
	m.store[p.ID] = clonePatient(p)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return clonePatient(p), nil
}

func (m *mockRepo) GetByAccountNumber(_ context.Context, acct string) (*Patient, error) {
	for _, p := range m.store {
		if p.AccountNumber == acct {
			return clonePatient(p), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	existing, ok := m.store[p.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Version = existing.Version + 1
	p.UpdatedAt = time.Now()
	cp := clonePatient(p)
	cp.Insurance = existing.Insurance
	m.store[p.ID] = cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.store, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.store {
		out = append(out, clonePatient(p))
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockRepo) All(_ context.Context) ([]*Patient, error) {
	m.allCalls++
	out := make([]*Patient, 0, len(m.store))
	for _, p := range m.store {
		out = append(out, clonePatient(p))
	}
	return out, nil
}

func (m *mockRepo) UpsertInsurance(_ context.Context, ins *Insurance) error {
	p, ok := m.store[ins.PatientID]
	if !ok {
		return pgx.ErrNoRows
	}
	if ins.ID == uuid.Nil {
		ins.ID = uuid.New()
	}
	p.SetInsurance(*ins)
	return nil
}

func (m *mockRepo) DeleteInsurance(_ context.Context, patientID uuid.UUID, rank Rank) error {
	p, ok := m.store[patientID]
	if !ok {
		return pgx.ErrNoRows
	}
	kept := p.Insurance[:0]
	found := false
	for _, ins := range p.Insurance {
		if ins.Rank == rank {
			found = true
			continue
		}
		kept = append(kept, ins)
	}
	if !found {
		return pgx.ErrNoRows
	}
	p.Insurance = kept
	return nil
}

func validForm() RegistrationForm {
	return RegistrationForm{
		FirstName:   "Jane",
		LastName:    "Doe",
		DateOfBirth: "1990-01-15",
		Gender:      "female",
		Email:       "patient@example.com",
		Phone:       "(555) 123-4567",
		City:        "Springfield",
		State:       "IL",
		ZipCode:     "62701",
	}
}

func validPatient() *Patient {
	f := validForm()
	return f.ToPatient()
}
