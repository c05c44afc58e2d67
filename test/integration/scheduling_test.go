//go:build integration

package integration

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/practicehub/practicehub/internal/domain/patient"
	"github.com/practicehub/practicehub/internal/domain/scheduling"
	"github.com/practicehub/practicehub/internal/platform/apierr"
)

func TestScheduling_ConflictsAndReminders(t *testing.T) {
	ctx, _ := newCompany(t)
	p := registerPatient(t, ctx, patient.NewService(patient.NewRepo(pool)), "Jane", "Doe")
	prov := createProvider(t, ctx)
	svc := scheduling.NewService(scheduling.NewRepo(pool))

	start := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Minute)
	first := &scheduling.Appointment{PatientID: p.ID, ProviderID: &prov.ID, StartTime: start, Type: scheduling.TypeFollowUp}
	if err := svc.Schedule(ctx, first); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if first.ID == uuid.Nil || first.DurationMinutes != scheduling.DefaultDuration {
		t.Errorf("unexpected appointment %+v", first)
	}

	clash := &scheduling.Appointment{PatientID: p.ID, ProviderID: &prov.ID, StartTime: start.Add(15 * time.Minute), Type: scheduling.TypeFollowUp}
	var ae *apierr.Error
	if err := svc.Schedule(ctx, clash); !errors.As(err, &ae) || ae.Status != http.StatusConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	back := &scheduling.Appointment{PatientID: p.ID, ProviderID: &prov.ID, StartTime: start.Add(30 * time.Minute), Type: scheduling.TypeFollowUp}
	if err := svc.Schedule(ctx, back); err != nil {
		t.Fatalf("back-to-back appointment rejected: %v", err)
	}

	items, err := svc.ListRange(ctx, scheduling.Range{From: start.Add(-time.Hour), To: start.Add(2 * time.Hour), ProviderID: &prov.ID})
	if err != nil || len(items) != 2 {
		t.Fatalf("expected 2 appointments, got %d (%v)", len(items), err)
	}

	due, err := svc.DueForReminder(ctx, time.Now(), 24*time.Hour)
	if err != nil || len(due) != 2 {
		t.Fatalf("expected 2 due, got %d (%v)", len(due), err)
	}
	if err := svc.MarkReminded(ctx, first.ID, time.Now()); err != nil {
		t.Fatalf("mark reminded: %v", err)
	}
	if _, err := svc.Cancel(ctx, back.ID, "patient request"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	due, _ = svc.DueForReminder(ctx, time.Now(), 24*time.Hour)
	if len(due) != 0 {
		t.Errorf("reminded and cancelled appointments must not be due, got %d", len(due))
	}

	moved, err := svc.Reschedule(ctx, first.ID, start.Add(3*time.Hour), 45)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.ReminderSentAt != nil || moved.DurationMinutes != 45 {
		t.Errorf("reschedule must clear the reminder: %+v", moved)
	}

	list, total, err := svc.ListByPatient(ctx, p.ID, 10, 0)
	if err != nil || total != 2 || len(list) != 2 {
		t.Errorf("expected 2 for patient, got %d (%v)", total, err)
	}
}
