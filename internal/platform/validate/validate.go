// Package validate holds the field checks shared by every form in the API.
// Checks add messages to an Errors map keyed by the form's field name, so a
// client can render them next to the offending input.
package validate

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern  = regexp.MustCompile(`^(\+?1[\s.-]?)?(\(\d{3}\)|\d{3})[\s.-]?\d{3}[\s.-]?\d{4}$`)
	zipPattern    = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	statePattern  = regexp.MustCompile(`^[A-Za-z]{2}$`)
	npiPattern    = regexp.MustCompile(`^\d{10}$`)
	taxIDPattern  = regexp.MustCompile(`^(\d{2}-\d{7}|\d{9})$`)
	nonDigitsExpr = regexp.MustCompile(`\D`)
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Errors maps a field name to its first validation message.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg for field unless the field already has a message.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Err returns nil when no errors were recorded.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Merge copies other into e, prefixing field names with prefix.
func (e Errors) Merge(prefix string, other Errors) {
	for k, v := range other {
		e.Add(prefix+k, v)
	}
}

// HTTPError renders e as a 422 with the field map in the body.
func (e Errors) HTTPError() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
		"message": "validation failed",
		"errors":  map[string]string(e),
	})
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Required reports a missing value; whitespace-only input is missing.
func Required(errs Errors, field, value, label string) bool {
	if blank(value) {
		errs.Add(field, label+" is required")
		return false
	}
	return true
}

// Email checks value when it is non-empty.
func Email(errs Errors, field, value string) {
	if !blank(value) && !IsEmail(value) {
		errs.Add(field, "Please enter a valid email address")
	}
}

// Phone checks value when it is non-empty.
func Phone(errs Errors, field, value string) {
	if !blank(value) && !IsPhone(value) {
		errs.Add(field, "Please enter a valid phone number")
	}
}

func PostalCode(errs Errors, field, value string) {
	if !blank(value) && !zipPattern.MatchString(strings.TrimSpace(value)) {
		errs.Add(field, "ZIP code must be 5 digits or ZIP+4")
	}
}

func State(errs Errors, field, value string) {
	if !blank(value) && !statePattern.MatchString(strings.TrimSpace(value)) {
		errs.Add(field, "State must be a 2-letter code")
	}
}

func NPI(errs Errors, field, value string) {
	if !blank(value) && !IsNPI(value) {
		errs.Add(field, "NPI must be a valid 10-digit number")
	}
}

func TaxID(errs Errors, field, value string) {
	if !blank(value) && !taxIDPattern.MatchString(strings.TrimSpace(value)) {
		errs.Add(field, "Tax ID must be in the format XX-XXXXXXX")
	}
}

// Date parses value as YYYY-MM-DD. It returns the zero time and records an
// error when value is present but malformed.
func Date(errs Errors, field, value string) time.Time {
	if blank(value) {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		errs.Add(field, "Date must be in YYYY-MM-DD format")
		return time.Time{}
	}
	return t
}

// OneOf checks value against allowed when it is non-empty.
func OneOf(errs Errors, field, value string, allowed ...string) {
	if blank(value) {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	errs.Add(field, "must be one of: "+strings.Join(allowed, ", "))
}

func IsEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

func IsPhone(s string) bool {
	return phonePattern.MatchString(strings.TrimSpace(s))
}

// Digits strips everything but digits, for comparing phone numbers.
func Digits(s string) string {
	return nonDigitsExpr.ReplaceAllString(s, "")
}

// IsNPI checks the 10-digit format and the Luhn check digit computed over
// the number prefixed with the 80840 health-industry issuer code.
func IsNPI(s string) bool {
	s = strings.TrimSpace(s)
	if !npiPattern.MatchString(s) {
		return false
	}
	return luhnValid("80840" + s)
}

func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
