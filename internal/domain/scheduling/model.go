package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/practicehub/practicehub/internal/platform/validate"
)

const (
	DefaultDuration = 30
	MinDuration     = 5
	MaxDuration     = 480
)

type AppointmentType string

const (
	TypeNewPatient   AppointmentType = "new-patient"
	TypeFollowUp     AppointmentType = "follow-up"
	TypeConsultation AppointmentType = "consultation"
	TypeProcedure    AppointmentType = "procedure"
	TypeTelehealth   AppointmentType = "telehealth"
)

var appointmentTypes = []string{
	string(TypeNewPatient), string(TypeFollowUp), string(TypeConsultation),
	string(TypeProcedure), string(TypeTelehealth),
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCheckedIn Status = "checked-in"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

var statuses = []string{
	string(StatusScheduled), string(StatusConfirmed), string(StatusCheckedIn),
	string(StatusCompleted), string(StatusCancelled), string(StatusNoShow),
}

// Closed reports whether the appointment can no longer change time or be
// cancelled.
func (s Status) Closed() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Remindable reports whether a reminder should still go out.
func (s Status) Remindable() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

type Appointment struct {
	ID              uuid.UUID       `json:"id"`
	PatientID       uuid.UUID       `json:"patient_id"`
	ProviderID      *uuid.UUID      `json:"provider_id,omitempty"`
	PracticeID      *uuid.UUID      `json:"practice_id,omitempty"`
	StartTime       time.Time       `json:"start_time"`
	DurationMinutes int             `json:"duration_minutes"`
	Type            AppointmentType `json:"type"`
	Status          Status          `json:"status"`
	Reason          string          `json:"reason,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	ReminderSentAt  *time.Time      `json:"reminder_sent_at,omitempty"`
	CreatedBy       *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Overlaps reports whether a and b share any minute. Back-to-back
// appointments do not overlap.
func (a *Appointment) Overlaps(b *Appointment) bool {
	return a.StartTime.Before(b.EndTime()) && b.StartTime.Before(a.EndTime())
}

// applyDefaults fills the duration and status a new appointment starts with.
func (a *Appointment) applyDefaults() {
	if a.DurationMinutes == 0 {
		a.DurationMinutes = DefaultDuration
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	a.Reason = strings.TrimSpace(a.Reason)
	a.Notes = strings.TrimSpace(a.Notes)
}

func (a *Appointment) Validate() validate.Errors {
	errs := validate.Errors{}
	if a.PatientID == uuid.Nil {
		errs.Add("patient_id", "Patient is required")
	}
	if a.StartTime.IsZero() {
		errs.Add("start_time", "Start time is required")
	}
	validateDuration(errs, a.DurationMinutes)
	if validate.Required(errs, "type", string(a.Type), "Appointment type") {
		validate.OneOf(errs, "type", string(a.Type), appointmentTypes...)
	}
	validate.OneOf(errs, "status", string(a.Status), statuses...)
	return errs
}

func validateDuration(errs validate.Errors, minutes int) {
	if minutes < MinDuration || minutes > MaxDuration {
		errs.Add("duration_minutes", "Duration must be between 5 and 480 minutes")
	}
}
