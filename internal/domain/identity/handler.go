package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/auth"
	"github.com/clinic/frontdesk/pkg/pagination"
)

type Handler struct {
	svc         *Service
	tokens      *auth.TokenIssuer
	revocations *auth.RevocationList
}

func NewHandler(svc *Service, tokens *auth.TokenIssuer, revocations *auth.RevocationList) *Handler {
	return &Handler{svc: svc, tokens: tokens, revocations: revocations}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Public; SessionMiddleware skips these paths.
	api.POST("/auth/login", h.Login)
	api.POST("/auth/signup", h.Signup)

	api.GET("/auth/me", h.Me)
	api.POST("/auth/logout", h.Logout)
	api.GET("/doctors", h.ListDoctors)

	adminGroup := api.Group("/admin", auth.RequireRole(clinic.RoleAdmin))
	adminGroup.POST("/doctors", h.AddDoctor)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return clinic.HTTPError(err)
	}
	token, err := h.tokens.Issue(sess)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, token)
}

type signupResponse struct {
	Patient *clinic.Patient `json:"patient"`
	Token   *auth.Token     `json:"token"`
}

func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	patient, sess, err := h.svc.Signup(c.Request().Context(), req)
	if err != nil {
		return clinic.HTTPError(err)
	}
	token, err := h.tokens.Issue(sess)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, signupResponse{Patient: patient, Token: token})
}

func (h *Handler) Me(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

// Logout revokes the presented token until it would have expired.
func (h *Handler) Logout(c echo.Context) error {
	claims, ok := auth.ClaimsFromEcho(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}
	if h.revocations != nil && claims.ExpiresAt != nil {
		h.revocations.Revoke(claims.ID, claims.ExpiresAt.Time)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddDoctor(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	var req AddDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	account, err := h.svc.AddDoctor(c.Request().Context(), sess, req)
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, account)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	doctors, err := h.svc.ListDoctors(c.Request().Context())
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.Paginate(doctors, pagination.FromContext(c)))
}
