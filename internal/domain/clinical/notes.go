package clinical

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/practicehub/practicehub/internal/platform/validate"
)

type NoteStatus string

const (
	NoteDraft  NoteStatus = "draft"
	NoteSigned NoteStatus = "signed"
)

// ProgressNote is a SOAP visit note. Once signed it cannot change.
type ProgressNote struct {
	ID         uuid.UUID  `json:"id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	ProviderID *uuid.UUID `json:"provider_id,omitempty"`
	VisitDate  time.Time  `json:"visit_date"`
	Subjective string     `json:"subjective"`
	Objective  string     `json:"objective"`
	Assessment string     `json:"assessment"`
	Plan       string     `json:"plan"`
	Status     NoteStatus `json:"status"`
	SignedBy   *uuid.UUID `json:"signed_by,omitempty"`
	SignedAt   *time.Time `json:"signed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (n *ProgressNote) Signed() bool { return n.Status == NoteSigned }

// NoteForm is the note editor's submission.
type NoteForm struct {
	ProviderID *uuid.UUID `json:"providerId"`
	VisitDate  string     `json:"visitDate"`
	Subjective string     `json:"subjective"`
	Objective  string     `json:"objective"`
	Assessment string     `json:"assessment"`
	Plan       string     `json:"plan"`
}

func (f *NoteForm) Validate(today time.Time) validate.Errors {
	errs := validate.Errors{}
	if validate.Required(errs, "visitDate", f.VisitDate, "Visit date") {
		d := validate.Date(errs, "visitDate", f.VisitDate)
		if !d.IsZero() && d.After(today) {
			errs.Add("visitDate", "Visit date cannot be in the future")
		}
	}
	if strings.TrimSpace(f.Subjective+f.Objective+f.Assessment+f.Plan) == "" {
		errs.Add("note", "At least one SOAP section must be filled in")
	}
	return errs
}

func (f *NoteForm) Apply(n *ProgressNote) {
	n.ProviderID = f.ProviderID
	n.VisitDate, _ = time.Parse(validate.DateLayout, strings.TrimSpace(f.VisitDate))
	n.Subjective = strings.TrimSpace(f.Subjective)
	n.Objective = strings.TrimSpace(f.Objective)
	n.Assessment = strings.TrimSpace(f.Assessment)
	n.Plan = strings.TrimSpace(f.Plan)
}

// readyToSign checks the sections a signed note must carry.
func (n *ProgressNote) readyToSign() validate.Errors {
	errs := validate.Errors{}
	validate.Required(errs, "assessment", n.Assessment, "Assessment")
	validate.Required(errs, "plan", n.Plan, "Plan")
	return errs
}
