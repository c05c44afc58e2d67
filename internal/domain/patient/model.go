package patient

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// riskOrder ranks risk levels for sorting.
var riskOrder = map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2}

type Rank string

const (
	RankPrimary   Rank = "primary"
	RankSecondary Rank = "secondary"
	RankTertiary  Rank = "tertiary"
)

var Genders = []string{"male", "female", "other", "prefer-not-to-say"}

type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2,omitempty"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

func (a Address) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Line1, a.Line2, a.City, strings.TrimSpace(a.State + " " + a.Zip)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

type MedicalHistory struct {
	Allergies     []string `json:"allergies"`
	Medications   []string `json:"medications"`
	Conditions    []string `json:"conditions"`
	Surgeries     []string `json:"surgeries"`
	FamilyHistory []string `json:"family_history"`
}

// Patient maps to the patient table. Insurance rows live in
// patient_insurance and are loaded alongside.
type Patient struct {
	ID                uuid.UUID        `json:"id"`
	AccountNumber     string           `json:"account_number"`
	FirstName         string           `json:"first_name"`
	MiddleName        string           `json:"middle_name,omitempty"`
	LastName          string           `json:"last_name"`
	DateOfBirth       time.Time        `json:"date_of_birth"`
	Gender            string           `json:"gender"`
	Email             string           `json:"email,omitempty"`
	Phone             string           `json:"phone"`
	AltPhone          string           `json:"alt_phone,omitempty"`
	Address           Address          `json:"address"`
	EmergencyContact  EmergencyContact `json:"emergency_contact"`
	Status            Status           `json:"status"`
	RiskLevel         RiskLevel        `json:"risk_level"`
	MedicalHistory    MedicalHistory   `json:"medical_history"`
	PrimaryProviderID *uuid.UUID       `json:"primary_provider_id,omitempty"`
	PracticeID        *uuid.UUID       `json:"practice_id,omitempty"`
	LastVisit         *time.Time       `json:"last_visit,omitempty"`
	Version           int              `json:"version"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	Insurance         []Insurance      `json:"insurance"`
}

func (p *Patient) FullName() string {
	return strings.Join(strings.Fields(p.FirstName+" "+p.MiddleName+" "+p.LastName), " ")
}

// PrimaryInsurance returns the primary policy, if any.
func (p *Patient) PrimaryInsurance() *Insurance {
	for i := range p.Insurance {
		if p.Insurance[i].Rank == RankPrimary {
			return &p.Insurance[i]
		}
	}
	return nil
}

// SetInsurance replaces the policy with the same rank, or appends it.
func (p *Patient) SetInsurance(ins Insurance) {
	for i := range p.Insurance {
		if p.Insurance[i].Rank == ins.Rank {
			p.Insurance[i] = ins
			return
		}
	}
	p.Insurance = append(p.Insurance, ins)
}

type Insurance struct {
	ID                     uuid.UUID  `json:"id"`
	PatientID              uuid.UUID  `json:"patient_id"`
	Rank                   Rank       `json:"rank"`
	ProviderName           string     `json:"provider_name"`
	PolicyNumber           string     `json:"policy_number"`
	GroupNumber            string     `json:"group_number,omitempty"`
	SubscriberName         string     `json:"subscriber_name,omitempty"`
	SubscriberRelationship string     `json:"subscriber_relationship,omitempty"`
	EffectiveDate          *time.Time `json:"effective_date,omitempty"`
	ExpirationDate         *time.Time `json:"expiration_date,omitempty"`
}

// NewAccountNumber returns a "PT-" prefixed six digit account number.
func NewAccountNumber() string {
	return fmt.Sprintf("PT-%06d", rand.Intn(1000000))
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}
