package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/playforge/remoteconfig/common/errs"
)

// httpError maps domain errors to HTTP status codes. Unrecognized errors
// surface as 500 with a generic message; the detail stays in the logs.
func httpError(err error) error {
	switch {
	case errs.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errs.IsConflict(err):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errs.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errs.IsInvalidState(err), errors.Is(err, errs.ErrNothingToPublish):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case isBatch(err):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func isBatch(err error) bool {
	var be *errs.BatchError
	return errors.As(err, &be)
}
