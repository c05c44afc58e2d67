package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/practicehub/practicehub/internal/platform/auth"
	"github.com/practicehub/practicehub/internal/platform/db"
)

// AccessEntry describes one request that touched patient data.
type AccessEntry struct {
	UserID     string
	UserRoles  []string
	CompanyID  string
	Resource   string
	PatientID  string
	Action     string // read, create, update, delete
	Method     string
	Path       string
	IPAddress  string
	StatusCode int
	RequestID  string
	Timestamp  time.Time
}

// Audit logs an access entry for every /api/v1 request under a patient-data
// resource. Entries go to logger with type "patient_access".
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			resource := extractResource(req.URL.Path)
			if !patientResources[resource] {
				return next(c)
			}

			err := next(c)

			ctx := c.Request().Context()
			entry := AccessEntry{
				UserID:     auth.UserIDFromContext(ctx),
				UserRoles:  auth.RolesFromContext(ctx),
				CompanyID:  db.CompanyFromContext(ctx),
				Resource:   resource,
				PatientID:  extractPatientID(c),
				Action:     httpMethodToAction(req.Method),
				Method:     req.Method,
				Path:       req.URL.Path,
				IPAddress:  c.RealIP(),
				StatusCode: responseStatus(c, err),
				Timestamp:  time.Now().UTC(),
			}
			entry.RequestID, _ = c.Get("request_id").(string)

			logger.Info().
				Str("type", "patient_access").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Strs("user_roles", entry.UserRoles).
				Str("company_id", entry.CompanyID).
				Str("resource", entry.Resource).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Time("at", entry.Timestamp).
				Msg("patient data access")

			return err
		}
	}
}

var patientResources = map[string]bool{
	"patients":  true,
	"documents": true,
	"notes":     true,
	"messages":  true,
}

func httpMethodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// extractResource returns the first segment after /api/v1/, e.g.
// /api/v1/patients/123 -> patients.
func extractResource(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok {
		return ""
	}
	seg, _, _ := strings.Cut(rest, "/")
	return seg
}

// extractPatientID reads the patient id from /api/v1/patients/<id>/... or a
// patient_id query parameter.
func extractPatientID(c echo.Context) string {
	if rest, ok := strings.CutPrefix(c.Request().URL.Path, "/api/v1/patients/"); ok {
		seg, _, _ := strings.Cut(rest, "/")
		if _, err := uuid.Parse(seg); err == nil {
			return seg
		}
	}
	return c.QueryParam("patient_id")
}
