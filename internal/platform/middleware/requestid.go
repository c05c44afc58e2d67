package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const RequestIDHeader = echo.HeaderXRequestID

// RequestID reuses an incoming X-Request-ID or generates one, echoes it on
// the response and stores it as "request_id" for the logger.
func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator:    uuid.NewString,
		TargetHeader: RequestIDHeader,
		RequestIDHandler: func(c echo.Context, rid string) {
			c.Set("request_id", rid)
		},
	})
}
