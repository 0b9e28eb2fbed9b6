package dto

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// SubmitTicketRequest payload.
type SubmitTicketRequest struct {
	Subject    string  `json:"subject"`
	Body       string  `json:"body"`
	Department *string `json:"department,omitempty"`
	Visibility string  `json:"visibility,omitempty"`
}

// VoteRequest payload.
type VoteRequest struct {
	VoteType string `json:"vote_type"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                  string                   `json:"id"`
	ExternalKey         string                   `json:"external_key"`
	Category            domain.GrievanceCategory `json:"category"`
	Department          *string                  `json:"department,omitempty"`
	Subject             string                   `json:"subject"`
	Status              domain.TicketStatus      `json:"status"`
	PriorityTier        domain.PriorityTier      `json:"priority_tier"`
	PriorityScore       float64                  `json:"priority_score"`
	Visibility          domain.TicketVisibility  `json:"visibility"`
	Upvotes             int                      `json:"upvotes"`
	Downvotes           int                      `json:"downvotes"`
	AssignedAuthorityID *string                  `json:"assigned_authority_id,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID                  string                  `json:"id"`
	ExternalKey         string                  `json:"external_key"`
	Category            domain.GrievanceCategory `json:"category"`
	Department          *string                 `json:"department,omitempty"`
	Subject             string                  `json:"subject"`
	Body                string                  `json:"body"`
	RephrasedBody       string                  `json:"rephrased_body,omitempty"`
	Status              domain.TicketStatus     `json:"status"`
	BasePriority        domain.PriorityTier     `json:"base_priority"`
	PriorityTier        domain.PriorityTier     `json:"priority_tier"`
	PriorityScore       float64                 `json:"priority_score"`
	Visibility          domain.TicketVisibility `json:"visibility"`
	AgainstAuthority    bool                    `json:"against_authority"`
	Upvotes             int                     `json:"upvotes"`
	Downvotes           int                     `json:"downvotes"`
	AssignedAuthorityID *string                 `json:"assigned_authority_id,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
	LastStatusChangeAt  time.Time               `json:"last_status_change_at"`
	ResolvedAt          *time.Time              `json:"resolved_at,omitempty"`
	History             []StatusChangeResponse  `json:"history,omitempty"`
}

// StatusChangeResponse represents one history entry.
type StatusChangeResponse struct {
	ID        string              `json:"id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	ActorType domain.ActorType    `json:"actor_type"`
	ActorID   *string             `json:"actor_id,omitempty"`
	Reason    string              `json:"reason,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// RateLimitResponse reports submission budget state.
type RateLimitResponse struct {
	Allowed           bool    `json:"allowed"`
	RetryAfterSeconds float64 `json:"retry_after_seconds"`
}

// SweepReportResponse summarizes an on-demand escalation sweep.
type SweepReportResponse struct {
	StartedAt  time.Time         `json:"started_at"`
	DurationMS int64             `json:"duration_ms"`
	Escalated  int               `json:"escalated"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	Items      []SweepItemDetail `json:"items"`
}

// SweepItemDetail is one per-ticket sweep outcome.
type SweepItemDetail struct {
	TicketID string `json:"ticket_id"`
	Outcome  string `json:"outcome"`
	Detail   string `json:"detail,omitempty"`
}
