package db

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorKind groups store failures the dashboard knows how to explain.
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindNotFound         ErrorKind = "not_found"
	KindMissingTable     ErrorKind = "missing_table"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindEnumViolation    ErrorKind = "enum_violation"
	KindMissingColumn    ErrorKind = "missing_column"
	KindUniqueViolation  ErrorKind = "unique_violation"
	KindOther            ErrorKind = "other"
)

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	codeUndefinedTable       = "42P01"
	codeUndefinedColumn      = "42703"
	codeInsufficientPrivlege = "42501"
	codeInvalidTextRepr      = "22P02"
	codeUniqueViolation      = "23505"
)

var (
	relationPattern = regexp.MustCompile(`relation "([^"]+)" does not exist`)
	columnPattern   = regexp.MustCompile(`column "([^"]+)"`)
	missingColumn   = regexp.MustCompile(`column \S+( of relation "[^"]+")? does not exist`)
	enumPattern     = regexp.MustCompile(`invalid input value for enum ([a-zA-Z0-9_.]+): "([^"]*)"`)
)

// Classify maps an error from pgx to an ErrorKind. SQLSTATE codes are used
// when available; otherwise the message text is inspected, since errors that
// crossed a wrapping boundary may only keep their text.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return KindNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUndefinedTable:
			return KindMissingTable
		case codeUndefinedColumn:
			return KindMissingColumn
		case codeInsufficientPrivlege:
			return KindPermissionDenied
		case codeUniqueViolation:
			return KindUniqueViolation
		case codeInvalidTextRepr:
			if strings.Contains(pgErr.Message, "enum") {
				return KindEnumViolation
			}
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no rows in result set"):
		return KindNotFound
	case missingColumn.MatchString(msg):
		return KindMissingColumn
	case relationPattern.MatchString(msg):
		return KindMissingTable
	case strings.Contains(msg, "row-level security"), strings.Contains(msg, "permission denied"):
		return KindPermissionDenied
	case strings.Contains(msg, "invalid input value for enum"):
		return KindEnumViolation
	case strings.Contains(msg, "duplicate key value"):
		return KindUniqueViolation
	}
	return KindOther
}

// FriendlyMessage turns a classified store error into text fit for a toast.
// resource names the record being handled, e.g. "patient".
func FriendlyMessage(err error, resource string) string {
	msg := err.Error()
	switch Classify(err) {
	case KindNotFound:
		return fmt.Sprintf("%s not found", resource)
	case KindMissingTable:
		table := resource
		if m := relationPattern.FindStringSubmatch(msg); len(m) == 2 {
			table = m[1]
		}
		return fmt.Sprintf("The %s table is missing. Please run database migrations for this company.", table)
	case KindPermissionDenied:
		return fmt.Sprintf("You do not have permission to modify this %s.", resource)
	case KindEnumViolation:
		if m := enumPattern.FindStringSubmatch(msg); len(m) == 3 {
			return fmt.Sprintf("%q is not an allowed value for %s.", m[2], m[1])
		}
		return fmt.Sprintf("One of the %s fields has a value that is not allowed.", resource)
	case KindMissingColumn:
		if m := columnPattern.FindStringSubmatch(msg); len(m) == 2 {
			return fmt.Sprintf("The database is missing the %q column. Please run database migrations.", m[1])
		}
		return "The database schema is out of date. Please run database migrations."
	case KindUniqueViolation:
		return fmt.Sprintf("A %s with the same details already exists.", resource)
	}
	return fmt.Sprintf("Failed to save %s. Please try again.", resource)
}

func statusFor(kind ErrorKind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindEnumViolation:
		return http.StatusBadRequest
	case KindUniqueViolation:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// HTTPError logs a store failure once and converts it into an echo error with
// a friendly message. The operation is not retried.
func HTTPError(logger zerolog.Logger, err error, resource string) *echo.HTTPError {
	kind := Classify(err)
	evt := logger.Error()
	if kind == KindNotFound {
		evt = logger.Debug()
	}
	evt.Err(err).Str("resource", resource).Str("kind", string(kind)).Msg("store call failed")
	return echo.NewHTTPError(statusFor(kind), FriendlyMessage(err, resource))
}
