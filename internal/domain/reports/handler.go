package reports

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/auth"
	"github.com/clinic/frontdesk/internal/platform/blobstore"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/reports", h.UploadReport, auth.RequireRole(clinic.RoleDoctor))

	readers := auth.RequireRole(clinic.RoleDoctor, clinic.RoleAdmin, clinic.RolePatient)
	api.GET("/patients/:id/reports", h.PatientReports, readers)
	api.GET("/files/:name", h.DownloadFile, readers)
}

// UploadReport handles a multipart form with patient_id, details and an
// optional file part.
func (h *Handler) UploadReport(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}

	req := UploadRequest{
		PatientID: c.FormValue("patient_id"),
		Details:   c.FormValue("details"),
	}
	fh, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		defer f.Close()
		req.FileName = fh.Filename
		req.File = f
	}

	report, err := h.svc.UploadReport(c.Request().Context(), sess, req)
	if err != nil {
		if errors.Is(err, blobstore.ErrFileTooLarge) || errors.Is(err, blobstore.ErrInvalidExtension) {
			return blobstore.HTTPError(err)
		}
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, report)
}

func (h *Handler) PatientReports(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	list, err := h.svc.PatientReports(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return clinic.HTTPError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) DownloadFile(c echo.Context) error {
	sess, err := auth.SessionFromEcho(c)
	if err != nil {
		return err
	}
	name := c.Param("name")
	if err := h.svc.AuthorizeFile(c.Request().Context(), sess, name); err != nil {
		return clinic.HTTPError(err)
	}
	return blobstore.Serve(c, h.svc.Blobs(), name)
}
