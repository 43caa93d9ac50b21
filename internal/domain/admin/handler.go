package admin

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/admin", auth.RequireRole(clinic.RoleAdmin))
	g.GET("/visits", h.VisitCounts)
	g.GET("/overview", h.Overview)
}

func (h *Handler) VisitCounts(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	counts, err := h.svc.VisitCounts(c.Request().Context(), sess)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, counts)
}

func (h *Handler) Overview(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	o, err := h.svc.Overview(c.Request().Context(), sess)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, o)
}
