package referral

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
	g := api.Group("/referrals", auth.RequireRole(clinic.RoleDoctor))
	g.POST("", h.CreateReferral)
	g.GET("/incoming", h.IncomingReferrals)
}

func (h *Handler) CreateReferral(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ref, err := h.svc.CreateReferral(c.Request().Context(), sess, req)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, ref)
}

func (h *Handler) IncomingReferrals(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	incoming, err := h.svc.IncomingReferrals(c.Request().Context(), sess)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.Paginate(incoming, pagination.FromContext(c)))
}
