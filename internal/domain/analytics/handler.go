package analytics

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehs/ehs/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/analytics", auth.RequireRole("ADMIN"))
	g.GET("/patient_demographics", h.PatientDemographics)
	g.GET("/financial_summary", h.FinancialSummary)
	g.GET("/appointment_statistics", h.AppointmentStatistics)
}

func (h *Handler) PatientDemographics(c echo.Context) error {
	report, err := h.svc.PatientDemographics(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) FinancialSummary(c echo.Context) error {
	report, err := h.svc.FinancialSummary(c.Request().Context(), c.QueryParam("period"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) AppointmentStatistics(c echo.Context) error {
	report, err := h.svc.AppointmentStatistics(c.Request().Context(), c.QueryParam("period"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}
