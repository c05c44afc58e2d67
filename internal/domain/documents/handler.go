package documents

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/practicehub/practicehub/internal/platform/apierr"
	"github.com/practicehub/practicehub/internal/platform/auth"
	"github.com/practicehub/practicehub/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleProvider, auth.RoleNurse, auth.RoleFrontDesk, auth.RoleBiller))
	read.GET("/patients/:id/documents", h.List)
	read.GET("/documents/:id", h.Get)
	read.GET("/documents/:id/download", h.Download)

	write := api.Group("", auth.RequireRole(auth.RoleProvider, auth.RoleNurse, auth.RoleFrontDesk))
	write.POST("/patients/:id/documents", h.Upload)
	write.DELETE("/documents/:id", h.Delete)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// Upload takes a multipart form with the file under "file" plus category,
// title and notes fields.
func (h *Handler) Upload(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > h.svc.MaxBytes() {
		return apierr.From(c, h.svc.tooLarge(), "document")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable file")
	}
	defer f.Close()

	u := Upload{
		PatientID:   patientID,
		Category:    c.FormValue("category"),
		Title:       c.FormValue("title"),
		Notes:       c.FormValue("notes"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
	}
	if uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		u.UploadedBy = &uid
	}
	d, err := h.svc.Upload(c.Request().Context(), u, f)
	if err != nil {
		return apierr.From(c, err, "document")
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) List(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, c.QueryParam("category"), pg.Limit, pg.Offset)
	if err != nil {
		return apierr.From(c, err, "document")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apierr.From(c, err, "document")
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Download(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, rc, err := h.svc.Open(c.Request().Context(), id)
	if err != nil {
		return apierr.From(c, err, "document")
	}
	defer rc.Close()

	res := c.Response().Header()
	res.Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": d.FileName}))
	res.Set(echo.HeaderContentLength, strconv.FormatInt(d.SizeBytes, 10))
	res.Set("X-Content-SHA256", d.SHA256)
	return c.Stream(http.StatusOK, d.ContentType, rc)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apierr.From(c, err, "document")
	}
	return c.NoContent(http.StatusNoContent)
}
