// Package workflow is the case lifecycle state machine.
//
// It validates an action against the current status and produces the resulting
// state and history entry without touching the case. Authorization is decided
// elsewhere (see package policy).
package workflow

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "caseflow/internal/errors"
	"caseflow/internal/model"
)

// SubmissionComment is recorded on the initial history entry.
const SubmissionComment = "Case submitted from front-office"

type rule struct {
	from []model.CaseStatus
	to   model.CaseStatus
}

var nonTerminal = []model.CaseStatus{
	model.CaseStatusSubmitted,
	model.CaseStatusAssigned,
	model.CaseStatusUnderReview,
}

var transitions = map[model.Action]rule{
	model.ActionAssign:           {from: nonTerminal, to: model.CaseStatusAssigned},
	model.ActionReview:           {from: []model.CaseStatus{model.CaseStatusAssigned, model.CaseStatusPendingDocuments}, to: model.CaseStatusUnderReview},
	model.ActionApprove:          {from: []model.CaseStatus{model.CaseStatusUnderReview}, to: model.CaseStatusApproved},
	model.ActionReject:           {from: []model.CaseStatus{model.CaseStatusUnderReview}, to: model.CaseStatusRejected},
	model.ActionRequestDocuments: {from: []model.CaseStatus{model.CaseStatusUnderReview}, to: model.CaseStatusPendingDocuments},
}

// Allowed reports whether action may be applied to a case in status from.
func Allowed(action model.Action, from model.CaseStatus) bool {
	r, ok := transitions[action]
	return ok && slices.Contains(r.from, from)
}

// Request is a workflow action requested by an actor.
type Request struct {
	Action       model.Action
	Comment      string
	AssignedTo   string
	AssignedTeam string
	Actor        model.Actor
}

// Result is the outcome of a valid transition.
type Result struct {
	From         model.CaseStatus
	Status       model.CaseStatus
	AssignedTo   *string
	AssignedTeam *string
	Event        model.WorkflowEvent
	UpdatedAt    time.Time
}

// Transition validates req against c and returns the state c would move to.
// c is not modified; an error means nothing may be persisted.
func Transition(c *model.Case, req Request, now time.Time) (Result, error) {
	r, ok := transitions[req.Action]
	if !ok {
		return Result{}, fmt.Errorf("%w: unknown action %q", apperrors.ErrInvalidTransition, req.Action)
	}
	if !slices.Contains(r.from, c.Status) {
		return Result{}, fmt.Errorf("%w: cannot %s a case in status %s", apperrors.ErrInvalidTransition, req.Action, c.Status)
	}

	res := Result{
		From:         c.Status,
		Status:       r.to,
		AssignedTo:   c.AssignedTo,
		AssignedTeam: c.AssignedTeam,
		UpdatedAt:    now,
	}
	if req.Action == model.ActionAssign {
		assignee := strings.TrimSpace(req.AssignedTo)
		if assignee == "" {
			return Result{}, fmt.Errorf("%w: assign requires assigned_to", apperrors.ErrValidation)
		}
		res.AssignedTo = &assignee
		if team := strings.TrimSpace(req.AssignedTeam); team != "" {
			res.AssignedTeam = &team
		}
	}

	res.Event = model.WorkflowEvent{
		ID:              uuid.NewString(),
		CaseID:          c.ID,
		Seq:             len(c.History),
		Action:          req.Action,
		Timestamp:       now,
		PerformedBy:     optional(req.Actor.UserID),
		PerformedByName: req.Actor.FullName,
		Comment:         optional(req.Comment),
	}
	return res, nil
}

// ApplyTo writes the result onto c.
func (r Result) ApplyTo(c *model.Case) {
	c.Status = r.Status
	c.AssignedTo = r.AssignedTo
	c.AssignedTeam = r.AssignedTeam
	c.UpdatedAt = r.UpdatedAt
	c.History = append(c.History, r.Event)
}

// Submission returns the first history entry of a new case.
func Submission(caseID string, now time.Time) model.WorkflowEvent {
	comment := SubmissionComment
	return model.WorkflowEvent{
		ID:        uuid.NewString(),
		CaseID:    caseID,
		Seq:       0,
		Action:    model.ActionSubmitted,
		Timestamp: now,
		Comment:   &comment,
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
