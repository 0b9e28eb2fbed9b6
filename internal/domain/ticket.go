package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusRaised     TicketStatus = "RAISED"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusSpam       TicketStatus = "SPAM"
	TicketStatusEscalated  TicketStatus = "ESCALATED"
)

// PriorityTier enumerates urgency buckets derived from the numeric score.
type PriorityTier string

const (
	PriorityLow      PriorityTier = "LOW"
	PriorityMedium   PriorityTier = "MEDIUM"
	PriorityHigh     PriorityTier = "HIGH"
	PriorityCritical PriorityTier = "CRITICAL"
)

// GrievanceCategory enumerates the fixed set of complaint categories.
type GrievanceCategory string

const (
	CategoryHostel         GrievanceCategory = "HOSTEL"
	CategoryMess           GrievanceCategory = "MESS"
	CategoryAcademic       GrievanceCategory = "ACADEMIC"
	CategoryInfrastructure GrievanceCategory = "INFRASTRUCTURE"
	CategoryAdministration GrievanceCategory = "ADMINISTRATION"
	CategoryHarassment     GrievanceCategory = "HARASSMENT"
	CategoryGeneral        GrievanceCategory = "GENERAL"
)

// TicketVisibility controls whether peers can see and vote on a ticket.
type TicketVisibility string

const (
	VisibilityPublic  TicketVisibility = "PUBLIC"
	VisibilityPrivate TicketVisibility = "PRIVATE"
)

// Ticket is the aggregate for submitted grievances. BasePriority holds the
// classifier-assigned tier and never changes after creation; PriorityTier is
// re-derived from PriorityScore on every vote event.
type Ticket struct {
	ID                  string
	ExternalKey         string
	SubmitterID         string
	Category            GrievanceCategory
	Department          *string
	Subject             string
	Body                string
	RephrasedBody       string
	Visibility          TicketVisibility
	Status              TicketStatus
	BasePriority        PriorityTier
	PriorityScore       float64
	PriorityTier        PriorityTier
	AssignedAuthorityID *string
	AgainstAuthority    bool
	Upvotes             int
	Downvotes           int
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastStatusChangeAt  time.Time
	ResolvedAt          *time.Time
}
