package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// CaseType is the registration category of a case.
type CaseType string

const (
	CaseTypeBirthRegistration    CaseType = "birth_registration"
	CaseTypeBusinessRegistration CaseType = "business_registration"
	CaseTypeLandRegistration     CaseType = "land_registration"
)

// CaseStatus represents the lifecycle state of a case.
type CaseStatus string

const (
	CaseStatusSubmitted        CaseStatus = "submitted"
	CaseStatusAssigned         CaseStatus = "assigned"
	CaseStatusUnderReview      CaseStatus = "under_review"
	CaseStatusPendingDocuments CaseStatus = "pending_documents"
	CaseStatusApproved         CaseStatus = "approved"
	CaseStatusRejected         CaseStatus = "rejected"
)

// Payload is the submitter data of a case. It is stored and returned unchanged.
type Payload map[string]any

// Value implements driver.Valuer.
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *Payload) Scan(src any) error {
	return scanJSON(src, p)
}

// Documents is the ordered list of document references attached to a case.
type Documents []string

// Value implements driver.Valuer.
func (d Documents) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal documents: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (d *Documents) Scan(src any) error {
	return scanJSON(src, d)
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}

// Case is an administrative case routed through the workflow.
type Case struct {
	ID           string          `json:"id" gorm:"type:char(36);primaryKey"`
	CaseType     CaseType        `json:"case_type" gorm:"type:varchar(40);not null;index"`
	CaseNumber   string          `json:"case_number" gorm:"size:40;not null;uniqueIndex"`
	Payload      Payload         `json:"submitter_data" gorm:"type:json"`
	Documents    Documents       `json:"documents" gorm:"type:json"`
	SubmittedBy  string          `json:"submitted_by,omitempty" gorm:"size:255"`
	Status       CaseStatus      `json:"status" gorm:"type:varchar(32);not null;index"`
	AssignedTo   *string         `json:"assigned_to" gorm:"type:char(36);index"`
	AssignedTeam *string         `json:"assigned_team" gorm:"size:100"`
	History      []WorkflowEvent `json:"workflow_history" gorm:"foreignKey:CaseID"`
	Version      int64           `json:"-" gorm:"not null;default:0"`
	CreatedAt    time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsAssignedTo reports whether the case is currently assigned to userID.
func (c *Case) IsAssignedTo(userID string) bool {
	return c.AssignedTo != nil && userID != "" && *c.AssignedTo == userID
}

// Clone returns a copy that shares no slices or top-level maps with c.
func (c *Case) Clone() *Case {
	out := *c
	if c.Payload != nil {
		out.Payload = maps.Clone(c.Payload)
	}
	if c.Documents != nil {
		out.Documents = append(Documents(nil), c.Documents...)
	}
	if c.History != nil {
		out.History = append([]WorkflowEvent(nil), c.History...)
	}
	out.AssignedTo = cloneString(c.AssignedTo)
	out.AssignedTeam = cloneString(c.AssignedTeam)
	return &out
}

// Summary returns the list view of the case.
func (c *Case) Summary() CaseSummary {
	return CaseSummary{
		ID:           c.ID,
		CaseType:     c.CaseType,
		CaseNumber:   c.CaseNumber,
		Status:       c.Status,
		AssignedTo:   c.AssignedTo,
		AssignedTeam: c.AssignedTeam,
		SubmittedBy:  c.SubmittedBy,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// CaseSummary is the list view of a case without payload and history.
type CaseSummary struct {
	ID           string     `json:"id"`
	CaseType     CaseType   `json:"case_type"`
	CaseNumber   string     `json:"case_number"`
	Status       CaseStatus `json:"status"`
	AssignedTo   *string    `json:"assigned_to"`
	AssignedTeam *string    `json:"assigned_team"`
	SubmittedBy  string     `json:"submitted_by,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DashboardStats aggregates case counts for the dashboard.
type DashboardStats struct {
	ByStatus   map[string]int64 `json:"by_status"`
	ByType     map[string]int64 `json:"by_type"`
	MyAssigned *int64           `json:"my_assigned,omitempty"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
