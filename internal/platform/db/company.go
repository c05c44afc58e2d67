package db

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	CompanyIDKey contextKey = "company_id"
	DBConnKey    contextKey = "db_conn"
)

// CompanyHeader lets the company switcher pick the active company per request.
const CompanyHeader = "X-Company-ID"

var companyIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_]{1,48}$`)

// ValidCompanyID reports whether id is safe to splice into a schema name.
func ValidCompanyID(id string) bool {
	return companyIDPattern.MatchString(id)
}

// SchemaName returns the Postgres schema holding a company's tables.
func SchemaName(companyID string) string {
	return "company_" + companyID
}

// CompanyMiddleware pins a pooled connection to the active company's schema
// for the lifetime of the request.
func CompanyMiddleware(pool *pgxpool.Pool, defaultCompany string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			companyID := extractCompanyID(c, defaultCompany)

			if !ValidCompanyID(companyID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid company identifier")
			}

			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer conn.Release()

			_, err = conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", SchemaName(companyID)))
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "company resolution failed")
			}

			ctx = context.WithValue(ctx, CompanyIDKey, companyID)
			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("company_id", companyID)

			return next(c)
		}
	}
}

func extractCompanyID(c echo.Context, defaultCompany string) string {
	// The token's company wins over anything the client sends.
	if cid, ok := c.Get("jwt_company_id").(string); ok && cid != "" {
		return cid
	}
	if cid := c.Request().Header.Get(CompanyHeader); cid != "" {
		return cid
	}
	if cid := c.QueryParam("company_id"); cid != "" {
		return cid
	}
	return defaultCompany
}

// ConnFromContext retrieves the company-scoped database connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// CompanyFromContext retrieves the company ID from context.
func CompanyFromContext(ctx context.Context) string {
	cid, _ := ctx.Value(CompanyIDKey).(string)
	return cid
}

// WithCompany returns a context carrying companyID. Used by CLI commands and
// background jobs that run outside the HTTP middleware.
func WithCompany(ctx context.Context, companyID string) context.Context {
	return context.WithValue(ctx, CompanyIDKey, companyID)
}

// CreateCompanySchema creates the schema for a company and applies all
// migrations found in migrations. A nil migrations FS skips migrating.
func CreateCompanySchema(ctx context.Context, pool *pgxpool.Pool, companyID string, migrations fs.FS) error {
	if !ValidCompanyID(companyID) {
		return fmt.Errorf("invalid company identifier: %s", companyID)
	}

	schema := SchemaName(companyID)

	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if migrations != nil {
		if _, err := NewMigrator(pool, migrations).Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}

	return nil
}

// ScopedConn acquires a connection with search_path set to the company schema
// and stores it in the returned context. Callers must call release.
func ScopedConn(ctx context.Context, pool *pgxpool.Pool, companyID string) (context.Context, func(), error) {
	if !ValidCompanyID(companyID) {
		return ctx, func() {}, fmt.Errorf("invalid company identifier: %s", companyID)
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return ctx, func() {}, fmt.Errorf("acquire connection: %w", err)
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, public", SchemaName(companyID))); err != nil {
		conn.Release()
		return ctx, func() {}, fmt.Errorf("set search_path: %w", err)
	}
	ctx = context.WithValue(ctx, CompanyIDKey, companyID)
	ctx = context.WithValue(ctx, DBConnKey, conn)
	return ctx, conn.Release, nil
}
