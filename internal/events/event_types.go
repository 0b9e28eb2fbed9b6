package events

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted EventType = "ticket_submitted"
	EventStatusChanged   EventType = "ticket_status_changed"
	EventTicketEscalated EventType = "ticket_escalated"
	EventVoteCast        EventType = "ticket_vote_cast"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type        domain.ActorType `json:"type"`
	UserID      *string          `json:"user_id,omitempty"`
	AuthorityID *string          `json:"authority_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	Category            domain.GrievanceCategory `json:"category"`
	Department          *string                  `json:"department,omitempty"`
	BasePriority        domain.PriorityTier      `json:"base_priority"`
	AssignedAuthorityID *string                  `json:"assigned_authority_id,omitempty"`
	AgainstAuthority    bool                     `json:"against_authority"`
	Subject             string                   `json:"subject"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus   domain.TicketStatus `json:"old_status"`
	NewStatus   domain.TicketStatus `json:"new_status"`
	Reason      string              `json:"reason,omitempty"`
	SubmitterID string              `json:"submitter_id"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	OldAuthorityID *string `json:"old_authority_id,omitempty"`
	NewAuthorityID string  `json:"new_authority_id"`
	SubmitterID    string  `json:"submitter_id"`
	Automatic      bool    `json:"automatic"`
}

// VoteCastPayload payload.
type VoteCastPayload struct {
	VoteType      *domain.VoteType    `json:"vote_type,omitempty"`
	Upvotes       int                 `json:"upvotes"`
	Downvotes     int                 `json:"downvotes"`
	PriorityScore float64             `json:"priority_score"`
	PriorityTier  domain.PriorityTier `json:"priority_tier"`
}
