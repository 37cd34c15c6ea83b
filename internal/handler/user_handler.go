package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"caseflow/internal/service"
)

// UserHandler bundles user and dashboard endpoints.
type UserHandler struct {
	svc service.CaseService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.CaseService) *UserHandler {
	return &UserHandler{svc: svc}
}

// ListUsers godoc
// @Summary List assignable users
// @Description Active staff users. Registrars and supervisors only.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	users, err := h.svc.ListAssignableUsers(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// DashboardStats godoc
// @Summary Dashboard statistics
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.DashboardStats
// @Failure 503 {object} errors.ErrorResponse
// @Router /dashboard/stats [get]
func (h *UserHandler) DashboardStats(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	stats, err := h.svc.DashboardStats(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
