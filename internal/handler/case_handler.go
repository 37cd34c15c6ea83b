package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"caseflow/internal/model"
	"caseflow/internal/service"
)

// CaseHandler exposes case submission and workflow routing.
type CaseHandler struct {
	svc service.CaseService
}

// NewCaseHandler creates a case handler.
func NewCaseHandler(svc service.CaseService) *CaseHandler {
	return &CaseHandler{svc: svc}
}

// SubmitCaseRequest is a case submitted from the front office.
type SubmitCaseRequest struct {
	CaseType      string         `json:"case_type" validate:"required"`
	SubmitterData map[string]any `json:"submitter_data" validate:"required"`
	Documents     []string       `json:"documents"`
	SubmittedBy   string         `json:"submitted_by" validate:"max=255"`
}

// SubmitCaseResponse identifies the created case.
type SubmitCaseResponse struct {
	Success    bool   `json:"success"`
	CaseID     string `json:"case_id"`
	CaseNumber string `json:"case_number"`
}

// WorkflowActionRequest is a workflow action on a case.
type WorkflowActionRequest struct {
	Action       string `json:"action" validate:"required"`
	Comment      string `json:"comment"`
	AssignedTo   string `json:"assigned_to"`
	AssignedTeam string `json:"assigned_team" validate:"max=100"`
}

// WorkflowActionResponse confirms an applied action.
type WorkflowActionResponse struct {
	Success bool             `json:"success"`
	Status  model.CaseStatus `json:"status"`
	Message string           `json:"message"`
}

// Submit godoc
// @Summary Submit a case
// @Description Public front-office submission. Allocates the case number.
// @Tags cases
// @Accept json
// @Produce json
// @Param request body SubmitCaseRequest true "Case data"
// @Success 201 {object} SubmitCaseResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /cases/submit [post]
func (h *CaseHandler) Submit(c echo.Context) error {
	var req SubmitCaseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	created, err := h.svc.Submit(c.Request().Context(), service.SubmitInput{
		CaseType:    model.CaseType(req.CaseType),
		Payload:     model.Payload(req.SubmitterData),
		Documents:   req.Documents,
		SubmittedBy: req.SubmittedBy,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, SubmitCaseResponse{
		Success:    true,
		CaseID:     created.ID,
		CaseNumber: created.CaseNumber,
	})
}

// List godoc
// @Summary List cases
// @Description Cases visible to the caller, newest first.
// @Tags cases
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.CaseSummary
// @Failure 401 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /cases [get]
func (h *CaseHandler) List(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	cases, err := h.svc.List(c.Request().Context(), actor)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cases)
}

// Get godoc
// @Summary Get case by id
// @Tags cases
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case ID"
// @Success 200 {object} model.Case
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	found, err := h.svc.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, found)
}

// Act godoc
// @Summary Perform a workflow action
// @Tags cases
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Case ID"
// @Param request body WorkflowActionRequest true "Action"
// @Success 200 {object} WorkflowActionResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /cases/{id}/workflow [post]
func (h *CaseHandler) Act(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req WorkflowActionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Act(c.Request().Context(), actor, c.Param("id"), service.ActInput{
		Action:       model.Action(req.Action),
		Comment:      req.Comment,
		AssignedTo:   req.AssignedTo,
		AssignedTeam: req.AssignedTeam,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, WorkflowActionResponse{
		Success: true,
		Status:  res.Status,
		Message: res.Message,
	})
}
