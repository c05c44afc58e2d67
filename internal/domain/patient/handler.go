package patient

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

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
	// Read endpoints – every staff role
	readGroup := api.Group("", auth.RequireRole(auth.RoleProvider, auth.RoleNurse, auth.RoleBiller, auth.RoleFrontDesk))
	readGroup.GET("/patients", h.ListPatients)
	readGroup.GET("/patients/search", h.SearchPatients)
	readGroup.GET("/patients/:id", h.GetPatient)
	readGroup.GET("/patients/export.csv", h.ExportCSV)
	readGroup.GET("/patients/export.xlsx", h.ExportXLSX)
	readGroup.POST("/patients/validate", h.ValidateRegistration)

	// Write endpoints – front desk and clinical staff
	writeGroup := api.Group("", auth.RequireRole(auth.RoleFrontDesk, auth.RoleProvider, auth.RoleNurse))
	writeGroup.POST("/patients", h.CreatePatient)
	writeGroup.PUT("/patients/:id", h.UpdatePatient)
	writeGroup.PUT("/patients/:id/contact", h.UpdateContact)
	writeGroup.PUT("/patients/:id/medical-history", h.UpdateMedicalHistory)
	writeGroup.PUT("/patients/:id/status", h.SetStatus)

	// Insurance – front desk and billing
	billingGroup := api.Group("", auth.RequireRole(auth.RoleFrontDesk, auth.RoleBiller))
	billingGroup.PUT("/patients/:id/insurance", h.UpdateInsurance)
	billingGroup.DELETE("/patients/:id/insurance/:rank", h.RemoveInsurance)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleFrontDesk))
	adminGroup.DELETE("/patients/:id", h.DeletePatient)
	adminGroup.POST("/patients/import", h.ImportCSV)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var form RegistrationForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Register(c.Request().Context(), form)
	if err != nil {
		return apierr.From(c, err, "patient")
	}
	return c.JSON(http.StatusCreated, p)
}

// ValidateRegistration runs the registration checks without saving, so the
// form can show field errors before submit.
func (h *Handler) ValidateRegistration(c echo.Context) error {
	var form RegistrationForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	errs := form.ValidateAt(h.svc.now())
	return c.JSON(http.StatusOK, map[string]interface{}{
		"valid":  len(errs) == 0,
		"errors": errs,
	})
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apierr.From(c, err, "patient")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apierr.From(c, err, "patient")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

func (h *Handler) SearchPatients(c echo.Context) error {
	res, err := h.svc.Search(c.Request().Context(), ParseFilter(c.QueryParams()))
	if err != nil {
		return apierr.From(c, err, "patient")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var form RegistrationForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Update(c.Request().Context(), id, form)
	if err != nil {
		return apierr.From(c, err, "patient")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateContact(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var form ContactForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdateContact(c.Request().Context(), id, form)
	if err != nil {
		return apierr.From(c, err, "patient")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateMedicalHistory(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var form MedicalHistoryForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdateMedicalHistory(c.Request().Context(), id, form)
	if err != nil {
		return apierr.From(c, err, "patient")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.SetStatus(c.Request().Context(), id, Status(body.Status))
	if err != nil {
		return apierr.From(c, err, "patient")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdateInsurance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var form InsuranceForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdateInsurance(c.Request().Context(), id, form)
	if err != nil {
		return apierr.From(c, err, "insurance")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) RemoveInsurance(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.RemoveInsurance(c.Request().Context(), id, Rank(c.Param("rank"))); err != nil {
		return apierr.From(c, err, "insurance")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apierr.From(c, err, "patient")
	}
	return c.NoContent(http.StatusNoContent)
}

func exportName(ext string) string {
	return fmt.Sprintf("patients-%s.%s", time.Now().Format("2006-01-02"), ext)
}

func (h *Handler) ExportCSV(c echo.Context) error {
	patients, err := h.svc.Export(c.Request().Context())
	if err != nil {
		return apierr.From(c, err, "patient")
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, patients); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", exportName("csv")))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (h *Handler) ExportXLSX(c echo.Context) error {
	patients, err := h.svc.Export(c.Request().Context())
	if err != nil {
		return apierr.From(c, err, "patient")
	}
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, patients); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", exportName("xlsx")))
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ImportCSV loads a multipart "file" upload. Invalid rows are reported and
// skipped; valid rows are stored.
func (h *Handler) ImportCSV(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.svc.Import(c.Request().Context(), rows))
}
