package db

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

func TestClassify_PgCodes(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{pgx.ErrNoRows, KindNotFound},
		{fmt.Errorf("get patient: %w", pgx.ErrNoRows), KindNotFound},
		{&pgconn.PgError{Code: "42P01", Message: `relation "patient" does not exist`}, KindMissingTable},
		{&pgconn.PgError{Code: "42501", Message: "permission denied for table patient"}, KindPermissionDenied},
		{&pgconn.PgError{Code: "22P02", Message: `invalid input value for enum patient_status: "archived"`}, KindEnumViolation},
		{&pgconn.PgError{Code: "42703", Message: `column "risk_level" does not exist`}, KindMissingColumn},
		{&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}, KindUniqueViolation},
		{errors.New("connection reset by peer"), KindOther},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestClassify_TextFallback(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorKind
	}{
		{`ERROR: relation "company_acme.patient" does not exist`, KindMissingTable},
		{"new row violates row-level security policy for table patient", KindPermissionDenied},
		{`invalid input value for enum gender: "x"`, KindEnumViolation},
		{`column "mailing_address" of relation "practice" does not exist`, KindMissingColumn},
		{`ERROR: column "dob" does not exist (SQLSTATE 42703)`, KindMissingColumn},
		{`column p.dob does not exist`, KindMissingColumn},
	}
	for _, tt := range tests {
		if got := Classify(errors.New(tt.msg)); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestFriendlyMessage(t *testing.T) {
	msg := FriendlyMessage(errors.New(`column "mailing_address" of relation "practice" does not exist`), "practice")
	if !strings.Contains(msg, `"mailing_address" column`) {
		t.Errorf("unexpected missing column message: %s", msg)
	}

	msg = FriendlyMessage(errors.New(`relation "patient_insurance" does not exist`), "insurance")
	if !strings.Contains(msg, "patient_insurance") || !strings.Contains(msg, "migrations") {
		t.Errorf("unexpected message: %s", msg)
	}

	msg = FriendlyMessage(errors.New(`invalid input value for enum patient_status: "archived"`), "patient")
	if !strings.Contains(msg, `"archived"`) || !strings.Contains(msg, "patient_status") {
		t.Errorf("unexpected enum message: %s", msg)
	}

	msg = FriendlyMessage(errors.New("boom"), "practice")
	if msg != "Failed to save practice. Please try again." {
		t.Errorf("unexpected generic message: %s", msg)
	}
}

func TestHTTPError_Status(t *testing.T) {
	log := zerolog.Nop()
	tests := []struct {
		err  error
		code int
	}{
		{pgx.ErrNoRows, http.StatusNotFound},
		{&pgconn.PgError{Code: "42501"}, http.StatusForbidden},
		{&pgconn.PgError{Code: "23505"}, http.StatusConflict},
		{&pgconn.PgError{Code: "22P02", Message: "invalid input value for enum x"}, http.StatusBadRequest},
		{&pgconn.PgError{Code: "42P01"}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		he := HTTPError(log, tt.err, "patient")
		if he.Code != tt.code {
			t.Errorf("HTTPError(%v) code = %d, want %d", tt.err, he.Code, tt.code)
		}
	}
}
