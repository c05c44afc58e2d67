package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mockRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: map[uuid.UUID]*Appointment{}}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt, a.UpdatedAt = time.Now(), time.Now()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	a.UpdatedAt = time.Now()
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.appts[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.appts, id)
	return nil
}

func (m *mockRepo) sorted(keep func(*Appointment) bool) []*Appointment {
	var out []*Appointment
	for _, a := range m.appts {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (m *mockRepo) ListRange(_ context.Context, r Range) ([]*Appointment, error) {
	return m.sorted(func(a *Appointment) bool {
		if a.StartTime.Before(r.From) || !a.StartTime.Before(r.To) {
			return false
		}
		return r.ProviderID == nil || (a.ProviderID != nil && *a.ProviderID == *r.ProviderID)
	}), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	items := m.sorted(func(a *Appointment) bool { return a.PatientID == patientID })
	total := len(items)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], total, nil
}

func (m *mockRepo) DueForReminder(_ context.Context, from, to time.Time) ([]*Appointment, error) {
	return m.sorted(func(a *Appointment) bool {
		return !a.StartTime.Before(from) && a.StartTime.Before(to) &&
			a.ReminderSentAt == nil && a.Status.Remindable()
	}), nil
}

func (m *mockRepo) MarkReminded(_ context.Context, id uuid.UUID, at time.Time) error {
	a, ok := m.appts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.ReminderSentAt = &at
	return nil
}

var t0 = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

func newAppointment(start time.Time) *Appointment {
	return &Appointment{
		PatientID: uuid.New(),
		StartTime: start,
		Type:      TypeFollowUp,
		Reason:    "Blood pressure check",
	}
}

func ptr[T any](v T) *T { return &v }
