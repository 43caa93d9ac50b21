package clinic

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPError maps a domain error to the HTTP status handlers return.
func HTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrSlotTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoDoctorAvailable):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalidSlot), errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrStoreCorrupt):
		return echo.NewHTTPError(http.StatusInternalServerError, ErrStoreCorrupt.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
