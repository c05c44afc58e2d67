// Package apierr converts service errors into echo HTTP errors.
package apierr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/practicehub/practicehub/internal/platform/db"
	"github.com/practicehub/practicehub/internal/platform/validate"
)

// Error is a domain failure with a fixed HTTP status, e.g. editing a signed
// note.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func Conflict(msg string) error   { return &Error{Status: http.StatusConflict, Message: msg} }
func BadRequest(msg string) error { return &Error{Status: http.StatusBadRequest, Message: msg} }
func Forbidden(msg string) error  { return &Error{Status: http.StatusForbidden, Message: msg} }
func NotFound(msg string) error   { return &Error{Status: http.StatusNotFound, Message: msg} }

// Upstream reports a failed call to an outside service, e.g. the NPI
// registry.
func Upstream(msg string) error { return &Error{Status: http.StatusBadGateway, Message: msg} }

// From maps err for a handler. Validation errors become 422 with the field
// map, domain errors keep their status, and everything else is classified as
// a store failure and logged with the request logger.
func From(c echo.Context, err error, resource string) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	var verrs validate.Errors
	if errors.As(err, &verrs) {
		return verrs.HTTPError()
	}
	var de *Error
	if errors.As(err, &de) {
		return echo.NewHTTPError(de.Status, de.Message)
	}
	return db.HTTPError(*zerolog.Ctx(c.Request().Context()), err, resource)
}
