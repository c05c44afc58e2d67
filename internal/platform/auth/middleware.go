package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
	SessionIDKey contextKey = "session_id"
)

// Claims carried by access tokens. CompanyID pins the token to one company
// schema; SessionID links it to the inactivity monitor.
type Claims struct {
	jwt.RegisteredClaims
	CompanyID string   `json:"company_id"`
	SessionID string   `json:"sid"`
	Roles     []string `json:"roles"`
	Email     string   `json:"email,omitempty"`
	Name      string   `json:"name,omitempty"`
}

// SessionChecker lets the token middleware reject tokens whose session has
// ended and record activity on the ones still open.
type SessionChecker interface {
	Active(sessionID string) bool
	Touch(sessionID string, at time.Time)
}

type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string
	// SigningKey verifies HS256 tokens issued by the built-in login.
	SigningKey []byte
	Sessions   SessionChecker
	Skipper    func(echo.Context) bool
}

const jwksTTL = 5 * time.Minute

// tokenFromRequest reads a bearer token from the Authorization header, or
// from the access_token query parameter for websocket upgrades.
func tokenFromRequest(c echo.Context) (string, *echo.HTTPError) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		if q := c.QueryParam("access_token"); q != "" {
			return q, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return strings.TrimSpace(token), nil
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	var keyFunc jwt.Keyfunc
	methods := []string{"HS256"}
	if len(cfg.SigningKey) > 0 {
		keyFunc = func(*jwt.Token) (interface{}, error) { return cfg.SigningKey, nil }
	} else {
		url := cfg.JWKSURL
		if url == "" && cfg.Issuer != "" {
			url, _ = DiscoverJWKS(cfg.Issuer)
		}
		keyFunc = NewJWKSCache(url, jwksTTL).KeyFunc()
		methods = []string{"RS256"}
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods)}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			raw, herr := tokenFromRequest(c)
			if herr != nil {
				return herr
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, keyFunc, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if claims.SessionID != "" && cfg.Sessions != nil {
				if !cfg.Sessions.Active(claims.SessionID) {
					return echo.NewHTTPError(http.StatusUnauthorized, "session has ended")
				}
				if isActivity(c) {
					cfg.Sessions.Touch(claims.SessionID, time.Now())
				}
			}

			setIdentity(c, claims.Subject, claims.CompanyID, claims.SessionID, claims.Roles)
			return next(c)
		}
	}
}

// DevAuthMiddleware lets unauthenticated requests through as an admin of
// defaultCompany. Requests that do carry a token are verified by verify.
func DevAuthMiddleware(defaultCompany string, verify echo.MiddlewareFunc, skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		verified := verify(next)
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}
			if c.Request().Header.Get(echo.HeaderAuthorization) != "" || c.QueryParam("access_token") != "" {
				return verified(c)
			}
			setIdentity(c, "dev-user", defaultCompany, "", []string{RoleAdmin})
			return next(c)
		}
	}
}

func setIdentity(c echo.Context, userID, companyID, sessionID string, roles []string) {
	if companyID != "" {
		c.Set("jwt_company_id", companyID)
	}
	ctx := c.Request().Context()
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, UserRolesKey, roles)
	ctx = context.WithValue(ctx, SessionIDKey, sessionID)
	c.SetRequest(c.Request().WithContext(ctx))
}

// WithIdentity returns a context carrying a user, for jobs and tests.
func WithIdentity(ctx context.Context, userID string, roles ...string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRolesKey, roles)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}

func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(SessionIDKey).(string)
	return sid
}
