package practice

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/practicehub/practicehub/internal/platform/npi"
	"github.com/practicehub/practicehub/internal/platform/validate"
)

type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2,omitempty"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

func (a Address) Empty() bool {
	return strings.TrimSpace(a.Line1+a.Line2+a.City+a.State+a.Zip) == ""
}

func (a *Address) trim() {
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.ToUpper(strings.TrimSpace(a.State))
	a.Zip = strings.TrimSpace(a.Zip)
}

// validate checks a required address, keying errors as prefix.line1 etc.
func (a Address) validate(errs validate.Errors, prefix string) {
	validate.Required(errs, prefix+".line1", a.Line1, "Street address")
	validate.Required(errs, prefix+".city", a.City, "City")
	if validate.Required(errs, prefix+".state", a.State, "State") {
		validate.State(errs, prefix+".state", a.State)
	}
	if validate.Required(errs, prefix+".zip", a.Zip, "ZIP code") {
		validate.PostalCode(errs, prefix+".zip", a.Zip)
	}
}

// Practice is a billing entity: the organisation claims are filed under.
type Practice struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	LegalName           string    `json:"legal_name,omitempty"`
	NPI                 string    `json:"npi"`
	TaxID               string    `json:"tax_id,omitempty"`
	TaxonomyCode        string    `json:"taxonomy_code,omitempty"`
	Specialty           string    `json:"specialty,omitempty"`
	Phone               string    `json:"phone,omitempty"`
	Fax                 string    `json:"fax,omitempty"`
	Email               string    `json:"email,omitempty"`
	Website             string    `json:"website,omitempty"`
	PhysicalAddress     Address   `json:"physical_address"`
	MailingAddress      Address   `json:"mailing_address"`
	PayToAddress        Address   `json:"pay_to_address"`
	PayToSameAsPhysical bool      `json:"pay_to_same_as_physical"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Normalize trims input and copies the physical address to pay-to when the
// practice is paid at its physical location.
func (p *Practice) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.LegalName = strings.TrimSpace(p.LegalName)
	p.NPI = strings.TrimSpace(p.NPI)
	p.TaxID = strings.TrimSpace(p.TaxID)
	p.Email = strings.TrimSpace(p.Email)
	p.PhysicalAddress.trim()
	p.MailingAddress.trim()
	p.PayToAddress.trim()
	if p.PayToSameAsPhysical {
		p.PayToAddress = p.PhysicalAddress
	}
}

func (p *Practice) Validate() validate.Errors {
	errs := validate.Errors{}
	validate.Required(errs, "name", p.Name, "Practice name")
	if validate.Required(errs, "npi", p.NPI, "NPI") {
		validate.NPI(errs, "npi", p.NPI)
	}
	validate.TaxID(errs, "tax_id", p.TaxID)
	validate.Phone(errs, "phone", p.Phone)
	validate.Phone(errs, "fax", p.Fax)
	validate.Email(errs, "email", p.Email)
	p.PhysicalAddress.validate(errs, "physical_address")
	if !p.MailingAddress.Empty() {
		p.MailingAddress.validate(errs, "mailing_address")
	}
	if !p.PayToSameAsPhysical {
		p.PayToAddress.validate(errs, "pay_to_address")
	}
	return errs
}

// Provider is a rendering clinician billed under a practice.
type Provider struct {
	ID           uuid.UUID `json:"id"`
	PracticeID   uuid.UUID `json:"practice_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Credential   string    `json:"credential,omitempty"`
	NPI          string    `json:"npi"`
	TaxonomyCode string    `json:"taxonomy_code,omitempty"`
	Specialty    string    `json:"specialty,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Provider) FullName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if p.Credential != "" {
		name += ", " + p.Credential
	}
	return name
}

func (p *Provider) Validate() validate.Errors {
	errs := validate.Errors{}
	validate.Required(errs, "first_name", p.FirstName, "First name")
	validate.Required(errs, "last_name", p.LastName, "Last name")
	if validate.Required(errs, "npi", p.NPI, "NPI") {
		validate.NPI(errs, "npi", p.NPI)
	}
	validate.Email(errs, "email", p.Email)
	validate.Phone(errs, "phone", p.Phone)
	return errs
}

func fill(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" && v != "" {
		*dst = v
	}
}

// ApplyRegistry fills empty practice fields from a registry record. Values
// the user already typed are kept.
func ApplyRegistry(p *Practice, info *npi.ProviderInfo) {
	fill(&p.NPI, info.NPI)
	fill(&p.Name, info.Name)
	fill(&p.LegalName, info.Organization)
	fill(&p.TaxonomyCode, info.TaxonomyCode)
	fill(&p.Specialty, info.TaxonomyDesc)
	fill(&p.Phone, info.Phone)
	if p.PhysicalAddress.Empty() {
		p.PhysicalAddress = Address(info.Address)
	}
}

// ApplyRegistryToProvider fills empty provider fields from a registry record.
func ApplyRegistryToProvider(p *Provider, info *npi.ProviderInfo) {
	fill(&p.NPI, info.NPI)
	fill(&p.FirstName, info.FirstName)
	fill(&p.LastName, info.LastName)
	fill(&p.Credential, info.Credential)
	fill(&p.TaxonomyCode, info.TaxonomyCode)
	fill(&p.Specialty, info.TaxonomyDesc)
	fill(&p.Phone, info.Phone)
}
