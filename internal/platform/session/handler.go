package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/practicehub/practicehub/internal/platform/auth"
	"github.com/practicehub/practicehub/internal/platform/db"
)

// ScopeFunc binds ctx to a company's schema. Login runs before company
// resolution, so the handler scopes its own user lookup.
type ScopeFunc func(ctx context.Context, companyID string) (context.Context, func(), error)

type Handler struct {
	monitor        *Monitor
	users          auth.UserStore
	issuer         *auth.Issuer
	scope          ScopeFunc
	defaultCompany string
}

func NewHandler(monitor *Monitor, users auth.UserStore, issuer *auth.Issuer, scope ScopeFunc, defaultCompany string) *Handler {
	return &Handler{monitor: monitor, users: users, issuer: issuer, scope: scope, defaultCompany: defaultCompany}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	if h.issuer != nil && h.users != nil {
		api.POST("/auth/login", h.Login)
	}
	api.POST("/auth/logout", h.Logout)
	api.GET("/session", h.Current)
	api.POST("/session/activity", h.Activity)
	api.POST("/session/extend", h.Extend)
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	CompanyID string `json:"company_id"`
}

type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	Session   View       `json:"session"`
	User      *auth.User `json:"user"`
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	companyID := req.CompanyID
	if companyID == "" {
		companyID = c.Request().Header.Get(db.CompanyHeader)
	}
	if companyID == "" {
		companyID = h.defaultCompany
	}
	if !db.ValidCompanyID(companyID) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid company identifier")
	}

	ctx := c.Request().Context()
	if h.scope != nil {
		scoped, release, err := h.scope(ctx, companyID)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("company_id", companyID).Msg("scope login")
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
		}
		defer release()
		ctx = scoped
	}

	u, err := auth.Authenticate(ctx, h.users, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return db.HTTPError(*zerolog.Ctx(ctx), err, "user")
	}

	view := h.monitor.Start(u.ID.String(), companyID, u.Roles)
	token, exp, err := h.issuer.Issue(u, companyID, view.ID, h.monitor.now())
	if err != nil {
		h.monitor.End(view.ID, ReasonLogout)
		zerolog.Ctx(ctx).Error().Err(err).Msg("issue token")
		return echo.NewHTTPError(http.StatusInternalServerError, "could not issue token")
	}
	return c.JSON(http.StatusOK, LoginResponse{Token: token, ExpiresAt: exp, Session: view, User: u})
}

func (h *Handler) Logout(c echo.Context) error {
	if sid := auth.SessionIDFromContext(c.Request().Context()); sid != "" {
		h.monitor.End(sid, ReasonLogout)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Current(c echo.Context) error {
	v, ok := h.monitor.Get(auth.SessionIDFromContext(c.Request().Context()))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no active session")
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Activity(c echo.Context) error {
	sid := auth.SessionIDFromContext(c.Request().Context())
	h.monitor.Touch(sid, h.monitor.now())
	v, ok := h.monitor.Get(sid)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no active session")
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Extend(c echo.Context) error {
	v, ok := h.monitor.Extend(auth.SessionIDFromContext(c.Request().Context()))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no active session")
	}
	return c.JSON(http.StatusOK, v)
}
