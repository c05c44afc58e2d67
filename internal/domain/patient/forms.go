package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/practicehub/practicehub/internal/platform/validate"
)

// RegistrationForm is the new-patient form as the dashboard submits it.
// Field names double as validation error keys.
type RegistrationForm struct {
	FirstName   string `json:"firstName"`
	MiddleName  string `json:"middleName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
	Gender      string `json:"gender"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	AltPhone    string `json:"altPhone"`

	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`

	EmergencyContactName         string `json:"emergencyContactName"`
	EmergencyContactPhone        string `json:"emergencyContactPhone"`
	EmergencyContactRelationship string `json:"emergencyContactRelationship"`

	InsuranceProvider      string `json:"insuranceProvider"`
	PolicyNumber           string `json:"policyNumber"`
	GroupNumber            string `json:"groupNumber"`
	SubscriberName         string `json:"subscriberName"`
	SubscriberRelationship string `json:"subscriberRelationship"`

	Allergies     []string `json:"allergies"`
	Medications   []string `json:"medications"`
	Conditions    []string `json:"conditions"`
	Surgeries     []string `json:"surgeries"`
	FamilyHistory []string `json:"familyHistory"`

	Status            string `json:"status"`
	RiskLevel         string `json:"riskLevel"`
	PrimaryProviderID string `json:"primaryProviderId"`
	PracticeID        string `json:"practiceId"`
}

func (f *RegistrationForm) Validate() validate.Errors {
	return f.ValidateAt(time.Now())
}

// ValidateAt validates the form with today as the reference date for the
// date-of-birth check.
func (f *RegistrationForm) ValidateAt(today time.Time) validate.Errors {
	errs := validate.Errors{}

	validate.Required(errs, "firstName", f.FirstName, "First name")
	validate.Required(errs, "lastName", f.LastName, "Last name")
	if validate.Required(errs, "dateOfBirth", f.DateOfBirth, "Date of birth") {
		dob := validate.Date(errs, "dateOfBirth", f.DateOfBirth)
		if !dob.IsZero() && dob.After(today) {
			errs.Add("dateOfBirth", "Date of birth cannot be in the future")
		}
	}
	if validate.Required(errs, "gender", f.Gender, "Gender") {
		validate.OneOf(errs, "gender", strings.ToLower(f.Gender), Genders...)
	}
	if validate.Required(errs, "phone", f.Phone, "Phone") {
		validate.Phone(errs, "phone", f.Phone)
	}

	validate.Email(errs, "email", f.Email)
	validate.Phone(errs, "altPhone", f.AltPhone)
	validate.State(errs, "state", f.State)
	validate.PostalCode(errs, "zipCode", f.ZipCode)
	validate.Phone(errs, "emergencyContactPhone", f.EmergencyContactPhone)

	if strings.TrimSpace(f.InsuranceProvider) != "" {
		validate.Required(errs, "policyNumber", f.PolicyNumber, "Policy number")
	}

	validate.OneOf(errs, "status", f.Status, string(StatusActive), string(StatusInactive))
	validate.OneOf(errs, "riskLevel", f.RiskLevel, string(RiskLow), string(RiskMedium), string(RiskHigh))
	uuidField(errs, "primaryProviderId", f.PrimaryProviderID)
	uuidField(errs, "practiceId", f.PracticeID)

	return errs
}

func uuidField(errs validate.Errors, field, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if _, err := uuid.Parse(strings.TrimSpace(value)); err != nil {
		errs.Add(field, "must be a valid id")
	}
}

func optionalUUID(value string) *uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return nil
	}
	return &id
}

// ToPatient builds a new active patient from a validated form.
func (f *RegistrationForm) ToPatient() *Patient {
	p := &Patient{Status: StatusActive, RiskLevel: RiskLow}
	f.ApplyTo(p)
	return p
}

// ApplyTo copies every form field onto p. Identity, account number and
// timestamps are left alone. First and last name are always written, so
// a full edit can never drop them.
func (f *RegistrationForm) ApplyTo(p *Patient) {
	p.FirstName = strings.TrimSpace(f.FirstName)
	p.MiddleName = strings.TrimSpace(f.MiddleName)
	p.LastName = strings.TrimSpace(f.LastName)
	p.DateOfBirth, _ = time.Parse(validate.DateLayout, strings.TrimSpace(f.DateOfBirth))
	p.Gender = strings.ToLower(strings.TrimSpace(f.Gender))
	p.Email = strings.TrimSpace(f.Email)
	p.Phone = strings.TrimSpace(f.Phone)
	p.AltPhone = strings.TrimSpace(f.AltPhone)
	p.Address = Address{
		Line1: strings.TrimSpace(f.AddressLine1),
		Line2: strings.TrimSpace(f.AddressLine2),
		City:  strings.TrimSpace(f.City),
		State: strings.ToUpper(strings.TrimSpace(f.State)),
		Zip:   strings.TrimSpace(f.ZipCode),
	}
	p.EmergencyContact = EmergencyContact{
		Name:         strings.TrimSpace(f.EmergencyContactName),
		Phone:        strings.TrimSpace(f.EmergencyContactPhone),
		Relationship: strings.TrimSpace(f.EmergencyContactRelationship),
	}
	p.MedicalHistory = MedicalHistory{
		Allergies:     cleanList(f.Allergies),
		Medications:   cleanList(f.Medications),
		Conditions:    cleanList(f.Conditions),
		Surgeries:     cleanList(f.Surgeries),
		FamilyHistory: cleanList(f.FamilyHistory),
	}
	if f.Status != "" {
		p.Status = Status(f.Status)
	}
	if f.RiskLevel != "" {
		p.RiskLevel = RiskLevel(f.RiskLevel)
	}
	p.PrimaryProviderID = optionalUUID(f.PrimaryProviderID)
	p.PracticeID = optionalUUID(f.PracticeID)

	if strings.TrimSpace(f.InsuranceProvider) != "" {
		p.SetInsurance(Insurance{
			PatientID:              p.ID,
			Rank:                   RankPrimary,
			ProviderName:           strings.TrimSpace(f.InsuranceProvider),
			PolicyNumber:           strings.TrimSpace(f.PolicyNumber),
			GroupNumber:            strings.TrimSpace(f.GroupNumber),
			SubscriberName:         strings.TrimSpace(f.SubscriberName),
			SubscriberRelationship: strings.TrimSpace(f.SubscriberRelationship),
		})
	}
}

// FormFromPatient is the inverse of ApplyTo, used by CSV export and the edit
// dialog prefill.
func FormFromPatient(p *Patient) RegistrationForm {
	f := RegistrationForm{
		FirstName:                    p.FirstName,
		MiddleName:                   p.MiddleName,
		LastName:                     p.LastName,
		Gender:                       p.Gender,
		Email:                        p.Email,
		Phone:                        p.Phone,
		AltPhone:                     p.AltPhone,
		AddressLine1:                 p.Address.Line1,
		AddressLine2:                 p.Address.Line2,
		City:                         p.Address.City,
		State:                        p.Address.State,
		ZipCode:                      p.Address.Zip,
		EmergencyContactName:         p.EmergencyContact.Name,
		EmergencyContactPhone:        p.EmergencyContact.Phone,
		EmergencyContactRelationship: p.EmergencyContact.Relationship,
		Allergies:                    p.MedicalHistory.Allergies,
		Medications:                  p.MedicalHistory.Medications,
		Conditions:                   p.MedicalHistory.Conditions,
		Surgeries:                    p.MedicalHistory.Surgeries,
		FamilyHistory:                p.MedicalHistory.FamilyHistory,
		Status:                       string(p.Status),
		RiskLevel:                    string(p.RiskLevel),
	}
	if !p.DateOfBirth.IsZero() {
		f.DateOfBirth = p.DateOfBirth.Format(validate.DateLayout)
	}
	if p.PrimaryProviderID != nil {
		f.PrimaryProviderID = p.PrimaryProviderID.String()
	}
	if p.PracticeID != nil {
		f.PracticeID = p.PracticeID.String()
	}
	if ins := p.PrimaryInsurance(); ins != nil {
		f.InsuranceProvider = ins.ProviderName
		f.PolicyNumber = ins.PolicyNumber
		f.GroupNumber = ins.GroupNumber
		f.SubscriberName = ins.SubscriberName
		f.SubscriberRelationship = ins.SubscriberRelationship
	}
	return f
}

// ContactForm edits phone, email, address and emergency contact only.
type ContactForm struct {
	Email                        string `json:"email"`
	Phone                        string `json:"phone"`
	AltPhone                     string `json:"altPhone"`
	AddressLine1                 string `json:"addressLine1"`
	AddressLine2                 string `json:"addressLine2"`
	City                         string `json:"city"`
	State                        string `json:"state"`
	ZipCode                      string `json:"zipCode"`
	EmergencyContactName         string `json:"emergencyContactName"`
	EmergencyContactPhone        string `json:"emergencyContactPhone"`
	EmergencyContactRelationship string `json:"emergencyContactRelationship"`
}

func (f *ContactForm) Validate() validate.Errors {
	errs := validate.Errors{}
	if validate.Required(errs, "phone", f.Phone, "Phone") {
		validate.Phone(errs, "phone", f.Phone)
	}
	validate.Email(errs, "email", f.Email)
	validate.Phone(errs, "altPhone", f.AltPhone)
	validate.State(errs, "state", f.State)
	validate.PostalCode(errs, "zipCode", f.ZipCode)
	validate.Phone(errs, "emergencyContactPhone", f.EmergencyContactPhone)
	return errs
}

func (f *ContactForm) ApplyTo(p *Patient) {
	p.Email = strings.TrimSpace(f.Email)
	p.Phone = strings.TrimSpace(f.Phone)
	p.AltPhone = strings.TrimSpace(f.AltPhone)
	p.Address = Address{
		Line1: strings.TrimSpace(f.AddressLine1),
		Line2: strings.TrimSpace(f.AddressLine2),
		City:  strings.TrimSpace(f.City),
		State: strings.ToUpper(strings.TrimSpace(f.State)),
		Zip:   strings.TrimSpace(f.ZipCode),
	}
	p.EmergencyContact = EmergencyContact{
		Name:         strings.TrimSpace(f.EmergencyContactName),
		Phone:        strings.TrimSpace(f.EmergencyContactPhone),
		Relationship: strings.TrimSpace(f.EmergencyContactRelationship),
	}
}

// InsuranceForm adds or replaces the policy at one rank.
type InsuranceForm struct {
	Rank                   string `json:"rank"`
	ProviderName           string `json:"providerName"`
	PolicyNumber           string `json:"policyNumber"`
	GroupNumber            string `json:"groupNumber"`
	SubscriberName         string `json:"subscriberName"`
	SubscriberRelationship string `json:"subscriberRelationship"`
	EffectiveDate          string `json:"effectiveDate"`
	ExpirationDate         string `json:"expirationDate"`
}

func (f *InsuranceForm) Validate() validate.Errors {
	errs := validate.Errors{}
	if f.Rank == "" {
		f.Rank = string(RankPrimary)
	}
	validate.OneOf(errs, "rank", f.Rank, string(RankPrimary), string(RankSecondary), string(RankTertiary))
	validate.Required(errs, "providerName", f.ProviderName, "Insurance provider")
	validate.Required(errs, "policyNumber", f.PolicyNumber, "Policy number")
	eff := validate.Date(errs, "effectiveDate", f.EffectiveDate)
	exp := validate.Date(errs, "expirationDate", f.ExpirationDate)
	if !eff.IsZero() && !exp.IsZero() && exp.Before(eff) {
		errs.Add("expirationDate", "Expiration date must be on or after the effective date")
	}
	return errs
}

func (f *InsuranceForm) ToInsurance(patientID uuid.UUID) Insurance {
	ins := Insurance{
		PatientID:              patientID,
		Rank:                   Rank(f.Rank),
		ProviderName:           strings.TrimSpace(f.ProviderName),
		PolicyNumber:           strings.TrimSpace(f.PolicyNumber),
		GroupNumber:            strings.TrimSpace(f.GroupNumber),
		SubscriberName:         strings.TrimSpace(f.SubscriberName),
		SubscriberRelationship: strings.TrimSpace(f.SubscriberRelationship),
	}
	if ins.Rank == "" {
		ins.Rank = RankPrimary
	}
	if t, err := time.Parse(validate.DateLayout, f.EffectiveDate); err == nil {
		ins.EffectiveDate = &t
	}
	if t, err := time.Parse(validate.DateLayout, f.ExpirationDate); err == nil {
		ins.ExpirationDate = &t
	}
	return ins
}

// MedicalHistoryForm replaces the history lists and optionally the risk level.
type MedicalHistoryForm struct {
	Allergies     []string `json:"allergies"`
	Medications   []string `json:"medications"`
	Conditions    []string `json:"conditions"`
	Surgeries     []string `json:"surgeries"`
	FamilyHistory []string `json:"familyHistory"`
	RiskLevel     string   `json:"riskLevel"`
}

func (f *MedicalHistoryForm) Validate() validate.Errors {
	errs := validate.Errors{}
	validate.OneOf(errs, "riskLevel", f.RiskLevel, string(RiskLow), string(RiskMedium), string(RiskHigh))
	return errs
}

func (f *MedicalHistoryForm) ApplyTo(p *Patient) {
	p.MedicalHistory = MedicalHistory{
		Allergies:     cleanList(f.Allergies),
		Medications:   cleanList(f.Medications),
		Conditions:    cleanList(f.Conditions),
		Surgeries:     cleanList(f.Surgeries),
		FamilyHistory: cleanList(f.FamilyHistory),
	}
	if f.RiskLevel != "" {
		p.RiskLevel = RiskLevel(f.RiskLevel)
	}
}
