package scheduling

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/auth"
	"github.com/clinic/frontdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/slots", h.Slots)

	patientOnly := auth.RequireRole(clinic.RolePatient)
	api.POST("/appointments", h.BookAppointment, patientOnly)
	api.POST("/emergencies", h.LogEmergency, patientOnly)
	api.GET("/patient/upcoming", h.UpcomingCheckup, patientOnly)
	api.GET("/patient/history", h.PatientHistory, patientOnly)

	doctorGroup := api.Group("/doctor", auth.RequireRole(clinic.RoleDoctor))
	doctorGroup.GET("/schedule", h.TodaySchedule)
	doctorGroup.GET("/emergencies", h.EmergencyCases)
	doctorGroup.GET("/appointments/:id", h.AppointmentDetails)
}

type slotsResponse struct {
	Times    []string `json:"times"`
	Problems []string `json:"problems"`
}

// Slots lists the bookable times and problem categories.
func (h *Handler) Slots(c echo.Context) error {
	return c.JSON(http.StatusOK, slotsResponse{Times: h.svc.Grid().Times(), Problems: Problems()})
}

func (h *Handler) BookAppointment(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	var req BookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	booking, err := h.svc.BookAppointment(c.Request().Context(), sess, req)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, booking)
}

func (h *Handler) LogEmergency(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	var req EmergencyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.LogEmergency(c.Request().Context(), sess, req)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) UpcomingCheckup(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	checkup, err := h.svc.UpcomingCheckup(c.Request().Context(), sess)
	if err != nil {
		return clinic.HTTPError(err)
	}
	if checkup == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, checkup)
}

func (h *Handler) PatientHistory(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	history, err := h.svc.PatientHistory(c.Request().Context(), sess)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.Paginate(history, pagination.FromContext(c)))
}

type scheduleResponse struct {
	Date  string         `json:"date"`
	Slots []ScheduleSlot `json:"slots"`
}

func (h *Handler) TodaySchedule(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	slots, err := h.svc.TodaySchedule(c.Request().Context(), sess)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, scheduleResponse{Date: h.svc.Today(), Slots: slots})
}

func (h *Handler) EmergencyCases(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	cases, err := h.svc.EmergencyCases(c.Request().Context(), sess)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.Paginate(cases, pagination.FromContext(c)))
}

func (h *Handler) AppointmentDetails(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	details, err := h.svc.AppointmentDetails(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, details)
}
