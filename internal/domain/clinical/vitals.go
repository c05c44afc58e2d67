package clinical

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/practicehub/practicehub/internal/platform/validate"
)

// VitalSigns is one set of measurements taken at a visit. Every measurement
// is optional but at least one must be present.
type VitalSigns struct {
	ID               uuid.UUID  `json:"id"`
	PatientID        uuid.UUID  `json:"patient_id"`
	RecordedBy       *uuid.UUID `json:"recorded_by,omitempty"`
	RecordedAt       time.Time  `json:"recorded_at"`
	Systolic         *int       `json:"systolic,omitempty"`
	Diastolic        *int       `json:"diastolic,omitempty"`
	HeartRate        *int       `json:"heart_rate,omitempty"`
	RespiratoryRate  *int       `json:"respiratory_rate,omitempty"`
	TemperatureF     *float64   `json:"temperature_f,omitempty"`
	OxygenSaturation *int       `json:"oxygen_saturation,omitempty"`
	HeightIn         *float64   `json:"height_in,omitempty"`
	WeightLb         *float64   `json:"weight_lb,omitempty"`
	BMI              *float64   `json:"bmi,omitempty"`
	PainLevel        *int       `json:"pain_level,omitempty"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type intRange struct {
	field    string
	label    string
	min, max int
}

type floatRange struct {
	field    string
	label    string
	min, max float64
}

func checkInt(errs validate.Errors, v *int, r intRange) {
	if v != nil && (*v < r.min || *v > r.max) {
		errs.Add(r.field, r.label+" is out of range")
	}
}

func checkFloat(errs validate.Errors, v *float64, r floatRange) {
	if v != nil && (*v < r.min || *v > r.max) {
		errs.Add(r.field, r.label+" is out of range")
	}
}

func (v *VitalSigns) Validate() validate.Errors {
	errs := validate.Errors{}
	if v.Systolic == nil && v.Diastolic == nil && v.HeartRate == nil && v.RespiratoryRate == nil &&
		v.TemperatureF == nil && v.OxygenSaturation == nil && v.HeightIn == nil && v.WeightLb == nil &&
		v.PainLevel == nil {
		errs.Add("vitals", "At least one measurement is required")
		return errs
	}
	checkInt(errs, v.Systolic, intRange{"systolic", "Systolic pressure", 50, 300})
	checkInt(errs, v.Diastolic, intRange{"diastolic", "Diastolic pressure", 20, 200})
	checkInt(errs, v.HeartRate, intRange{"heart_rate", "Heart rate", 20, 300})
	checkInt(errs, v.RespiratoryRate, intRange{"respiratory_rate", "Respiratory rate", 4, 80})
	checkFloat(errs, v.TemperatureF, floatRange{"temperature_f", "Temperature", 90, 110})
	checkInt(errs, v.OxygenSaturation, intRange{"oxygen_saturation", "Oxygen saturation", 50, 100})
	checkFloat(errs, v.HeightIn, floatRange{"height_in", "Height", 10, 108})
	checkFloat(errs, v.WeightLb, floatRange{"weight_lb", "Weight", 1, 1000})
	checkInt(errs, v.PainLevel, intRange{"pain_level", "Pain level", 0, 10})

	if (v.Systolic == nil) != (v.Diastolic == nil) {
		errs.Add("blood_pressure", "Systolic and diastolic pressure are recorded together")
	} else if v.Systolic != nil && *v.Diastolic >= *v.Systolic {
		errs.Add("diastolic", "Diastolic pressure must be below systolic")
	}
	return errs
}

// ComputeBMI returns the body-mass index for a height in inches and a
// weight in pounds, rounded to one decimal.
func ComputeBMI(heightIn, weightLb float64) float64 {
	if heightIn <= 0 {
		return 0
	}
	bmi := 703 * weightLb / (heightIn * heightIn)
	return math.Round(bmi*10) / 10
}

// derive fills BMI from height and weight. A client-sent BMI is ignored.
func (v *VitalSigns) derive() {
	v.BMI = nil
	if v.HeightIn != nil && v.WeightLb != nil {
		bmi := ComputeBMI(*v.HeightIn, *v.WeightLb)
		v.BMI = &bmi
	}
	v.Notes = strings.TrimSpace(v.Notes)
}
