package domain

import "time"

// ActorType identifies who performed a status transition.
type ActorType string

const (
	ActorUser      ActorType = "USER"
	ActorAuthority ActorType = "AUTHORITY"
	ActorSystem    ActorType = "SYSTEM"
)

// StatusChangeRecord is an immutable audit trail entry, created exactly once
// per accepted transition.
type StatusChangeRecord struct {
	ID        string
	TicketID  string
	OldStatus TicketStatus
	NewStatus TicketStatus
	ActorType ActorType
	ActorID   *string
	Reason    string
	CreatedAt time.Time
}
