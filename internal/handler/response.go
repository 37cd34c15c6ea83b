package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"caseflow/internal/auth"
	apperrors "caseflow/internal/errors"
	"caseflow/internal/model"
)

// retryAfterSeconds is advertised to clients on transient store failures.
const retryAfterSeconds = "1"

// respondError converts a service error into the JSON error body.
func respondError(c echo.Context, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	if apperrors.Retryable(err) {
		c.Response().Header().Set("Retry-After", retryAfterSeconds)
	}
	if httpErr.StatusCode >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func badRequest(message string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
		Error: message,
		Code:  "VALIDATION_ERROR",
	})
}

// bindAndValidate decodes the body into req and runs struct validation.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return badRequest(err.Error())
	}
	return nil
}

// requireActor returns the authenticated actor or a 401.
func requireActor(c echo.Context) (model.Actor, error) {
	actor, ok := auth.ActorFrom(c)
	if !ok {
		return model.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
			Error: "authentication required",
			Code:  "UNAUTHENTICATED",
		})
	}
	return actor, nil
}
