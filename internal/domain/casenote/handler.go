package casenote

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireAuthenticated())
	g.GET("/case-notes", h.ListCaseNotes)
	g.GET("/patients/:id/case-note", h.GetCaseNoteByPatient)
}

func (h *Handler) ListCaseNotes(c echo.Context) error {
	pg := pagination.FromContext(c)
	notes, total, err := h.svc.ListCaseNotes(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(notes, total, pg))
}

func (h *Handler) GetCaseNoteByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	n, err := h.svc.GetCaseNoteByPatient(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if n == nil {
		return echo.NewHTTPError(http.StatusNotFound, "case note not found")
	}
	return c.JSON(http.StatusOK, n)
}
