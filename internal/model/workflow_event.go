package model

import "time"

// Action is a workflow action recorded in a case history.
type Action string

const (
	// ActionSubmitted is only ever recorded as the first history entry.
	ActionSubmitted        Action = "submitted"
	ActionAssign           Action = "assign"
	ActionReview           Action = "review"
	ActionApprove          Action = "approve"
	ActionReject           Action = "reject"
	ActionRequestDocuments Action = "request_documents"
)

// WorkflowEvent is an immutable entry of a case history.
// Seq is the zero-based position of the event within its case.
type WorkflowEvent struct {
	ID              string    `json:"-" gorm:"type:char(36);primaryKey"`
	CaseID          string    `json:"-" gorm:"type:char(36);not null;uniqueIndex:idx_case_event_seq"`
	Seq             int       `json:"-" gorm:"not null;uniqueIndex:idx_case_event_seq"`
	Action          Action    `json:"action" gorm:"type:varchar(40);not null"`
	Timestamp       time.Time `json:"timestamp" gorm:"not null"`
	PerformedBy     *string   `json:"performed_by,omitempty" gorm:"type:char(36)"`
	PerformedByName string    `json:"performed_by_name,omitempty" gorm:"size:255"`
	Comment         *string   `json:"comment,omitempty" gorm:"type:text"`
}

// CaseSequence is the counter row backing case number allocation per (type, year).
type CaseSequence struct {
	CaseType CaseType `gorm:"type:varchar(40);primaryKey"`
	Year     int      `gorm:"primaryKey;autoIncrement:false"`
	Value    int64    `gorm:"not null"`
}
