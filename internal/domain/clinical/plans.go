package clinical

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/practicehub/practicehub/internal/platform/validate"
)

type PlanStatus string

const (
	PlanActive       PlanStatus = "active"
	PlanCompleted    PlanStatus = "completed"
	PlanDiscontinued PlanStatus = "discontinued"
)

type TreatmentPlan struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	ProviderID    *uuid.UUID `json:"provider_id,omitempty"`
	Title         string     `json:"title"`
	Diagnosis     string     `json:"diagnosis,omitempty"`
	Goals         []string   `json:"goals"`
	Interventions []string   `json:"interventions"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Status        PlanStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type PlanForm struct {
	ProviderID    *uuid.UUID `json:"providerId"`
	Title         string     `json:"title"`
	Diagnosis     string     `json:"diagnosis"`
	Goals         []string   `json:"goals"`
	Interventions []string   `json:"interventions"`
	StartDate     string     `json:"startDate"`
	EndDate       string     `json:"endDate"`
	Status        string     `json:"status"`
}

func (f *PlanForm) Validate() validate.Errors {
	errs := validate.Errors{}
	validate.Required(errs, "title", f.Title, "Title")
	var start time.Time
	if validate.Required(errs, "startDate", f.StartDate, "Start date") {
		start = validate.Date(errs, "startDate", f.StartDate)
	}
	end := validate.Date(errs, "endDate", f.EndDate)
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		errs.Add("endDate", "End date cannot be before the start date")
	}
	validate.OneOf(errs, "status", f.Status, string(PlanActive), string(PlanCompleted), string(PlanDiscontinued))
	if len(compact(f.Goals)) == 0 {
		errs.Add("goals", "At least one goal is required")
	}
	return errs
}

func (f *PlanForm) Apply(p *TreatmentPlan) {
	p.ProviderID = f.ProviderID
	p.Title = strings.TrimSpace(f.Title)
	p.Diagnosis = strings.TrimSpace(f.Diagnosis)
	p.Goals = compact(f.Goals)
	p.Interventions = compact(f.Interventions)
	p.StartDate, _ = time.Parse(validate.DateLayout, strings.TrimSpace(f.StartDate))
	p.EndDate = nil
	if end, err := time.Parse(validate.DateLayout, strings.TrimSpace(f.EndDate)); err == nil {
		p.EndDate = &end
	}
	p.Status = PlanStatus(f.Status)
	if p.Status == "" {
		p.Status = PlanActive
	}
}

// compact trims items and drops the empty ones.
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
