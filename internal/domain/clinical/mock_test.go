package clinical

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// table is a map-backed store shared by the three mock repositories.
type table[T any] struct {
	rows    map[uuid.UUID]*T
	order   []uuid.UUID
	idOf    func(*T) *uuid.UUID
	patient func(*T) uuid.UUID
}

func newTable[T any](idOf func(*T) *uuid.UUID, patient func(*T) uuid.UUID) *table[T] {
	return &table[T]{rows: map[uuid.UUID]*T{}, idOf: idOf, patient: patient}
}

func (t *table[T]) create(v *T) {
	id := uuid.New()
	*t.idOf(v) = id
	cp := *v
	t.rows[id] = &cp
	t.order = append(t.order, id)
}

func (t *table[T]) get(id uuid.UUID) (*T, error) {
	v, ok := t.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *v
	return &cp, nil
}

func (t *table[T]) update(v *T) error {
	id := *t.idOf(v)
	if _, ok := t.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	cp := *v
	t.rows[id] = &cp
	return nil
}

func (t *table[T]) delete(id uuid.UUID) error {
	if _, ok := t.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(t.rows, id)
	return nil
}

func (t *table[T]) list(patientID uuid.UUID, limit, offset int) ([]*T, int, error) {
	var out []*T
	for _, id := range t.order {
		if v, ok := t.rows[id]; ok && t.patient(v) == patientID {
			cp := *v
			out = append(out, &cp)
		}
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

type mockVitals struct{ *table[VitalSigns] }

func (m mockVitals) Create(_ context.Context, v *VitalSigns) error {
	v.CreatedAt = time.Now()
	m.create(v)
	return nil
}
func (m mockVitals) GetByID(_ context.Context, id uuid.UUID) (*VitalSigns, error) { return m.get(id) }
func (m mockVitals) Delete(_ context.Context, id uuid.UUID) error                 { return m.delete(id) }
func (m mockVitals) ListByPatient(_ context.Context, p uuid.UUID, limit, offset int) ([]*VitalSigns, int, error) {
	return m.list(p, limit, offset)
}

type mockNotes struct{ *table[ProgressNote] }

func (m mockNotes) Create(_ context.Context, n *ProgressNote) error {
	n.CreatedAt, n.UpdatedAt = time.Now(), time.Now()
	m.create(n)
	return nil
}
func (m mockNotes) GetByID(_ context.Context, id uuid.UUID) (*ProgressNote, error) { return m.get(id) }
func (m mockNotes) Update(_ context.Context, n *ProgressNote) error                { return m.update(n) }
func (m mockNotes) Delete(_ context.Context, id uuid.UUID) error                   { return m.delete(id) }
func (m mockNotes) ListByPatient(_ context.Context, p uuid.UUID, limit, offset int) ([]*ProgressNote, int, error) {
	return m.list(p, limit, offset)
}

type mockPlans struct{ *table[TreatmentPlan] }

func (m mockPlans) Create(_ context.Context, p *TreatmentPlan) error {
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	m.create(p)
	return nil
}
func (m mockPlans) GetByID(_ context.Context, id uuid.UUID) (*TreatmentPlan, error) { return m.get(id) }
func (m mockPlans) Update(_ context.Context, p *TreatmentPlan) error                { return m.update(p) }
func (m mockPlans) Delete(_ context.Context, id uuid.UUID) error                    { return m.delete(id) }
func (m mockPlans) ListByPatient(_ context.Context, p uuid.UUID, limit, offset int) ([]*TreatmentPlan, int, error) {
	return m.list(p, limit, offset)
}

var now = time.Date(2024, 6, 3, 15, 30, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	vitals mockVitals
	notes  mockNotes
	plans  mockPlans
}

func newFixture() *fixture {
	f := &fixture{
		vitals: mockVitals{newTable(func(v *VitalSigns) *uuid.UUID { return &v.ID }, func(v *VitalSigns) uuid.UUID { return v.PatientID })},
		notes:  mockNotes{newTable(func(n *ProgressNote) *uuid.UUID { return &n.ID }, func(n *ProgressNote) uuid.UUID { return n.PatientID })},
		plans:  mockPlans{newTable(func(p *TreatmentPlan) *uuid.UUID { return &p.ID }, func(p *TreatmentPlan) uuid.UUID { return p.PatientID })},
	}
	f.svc = NewService(f.vitals, f.notes, f.plans)
	f.svc.now = func() time.Time { return now }
	return f
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func soapForm() *NoteForm {
	return &NoteForm{
		VisitDate:  "2024-06-03",
		Subjective: "Headaches for two weeks",
		Objective:  "BP 150/95",
		Assessment: "Hypertension, stage 2",
		Plan:       "Start lisinopril 10mg",
	}
}

func planForm() *PlanForm {
	return &PlanForm{
		Title:         "Hypertension management",
		Diagnosis:     "I10",
		Goals:         []string{" BP below 130/80 ", ""},
		Interventions: []string{"Lisinopril 10mg daily", "Low sodium diet"},
		StartDate:     "2024-06-03",
		EndDate:       "2024-09-03",
	}
}
