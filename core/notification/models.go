package notification

import "time"

// Type is the closed set of user-visible notification events.
type Type string

const (
	TypeSubmissionApproved Type = "submission_approved"
	TypeSubmissionRejected Type = "submission_rejected"
	TypeComplianceDue      Type = "compliance_due"
	TypeNewComplianceItem  Type = "new_compliance_item"
	TypeDeadlineReminder   Type = "deadline_reminder"
	TypeFormSubmitted      Type = "form_submitted"
)

// Notification is a user-visible event record tied to a workflow transition.
type Notification struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Type         Type              `json:"type"`
	Title        string            `json:"title"`
	Message      string            `json:"message"`
	ItemID       string            `json:"compliance_item_id,omitempty"`
	SubmissionID string            `json:"submission_id,omitempty"`
	IsRead       bool              `json:"is_read"`
	ReadAt       *time.Time        `json:"read_at,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"` // UTC
}
