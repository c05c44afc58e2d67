package patient

import "time"

// Age returns the whole years elapsed between dob and today. Missing or
// future dates of birth yield 0.
func Age(dob, today time.Time) int {
	if dob.IsZero() {
		return 0
	}
	y1, m1, d1 := dob.Date()
	y2, m2, d2 := today.Date()
	years := y2 - y1
	if m2 < m1 || (m2 == m1 && d2 < d1) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// AgeRange is a named bucket used by the patient list filter.
type AgeRange struct {
	Key string
	Min int
	Max int // inclusive; -1 means unbounded
}

// AgeRanges do not overlap. The "65+" key means over 65, so a patient aged
// exactly 65 is only in "51-65".
var AgeRanges = []AgeRange{
	{Key: "0-17", Min: 0, Max: 17},
	{Key: "18-35", Min: 18, Max: 35},
	{Key: "36-50", Min: 36, Max: 50},
	{Key: "51-65", Min: 51, Max: 65},
	{Key: "65+", Min: 66, Max: -1},
}

func ageRangeFor(key string) (AgeRange, bool) {
	for _, r := range AgeRanges {
		if r.Key == key {
			return r, true
		}
	}
	return AgeRange{}, false
}

func (r AgeRange) Contains(age int) bool {
	if age < r.Min {
		return false
	}
	return r.Max < 0 || age <= r.Max
}
