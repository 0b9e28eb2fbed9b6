package lifecycle

import (
	"time"

	"github.com/spec-kit/grievance-service/internal/domain"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// allowedTransitions is the legal status edge table. ESCALATED is reachable
// from every non-terminal state and behaves like IN_PROGRESS for its outgoing
// edges. CLOSED is terminal.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusRaised:     {domain.TicketStatusInProgress, domain.TicketStatusSpam, domain.TicketStatusClosed, domain.TicketStatusEscalated},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusRaised, domain.TicketStatusClosed, domain.TicketStatusEscalated},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusRaised, domain.TicketStatusEscalated},
	domain.TicketStatusEscalated:  {domain.TicketStatusResolved, domain.TicketStatusRaised, domain.TicketStatusClosed, domain.TicketStatusEscalated},
	domain.TicketStatusSpam:       {domain.TicketStatusClosed, domain.TicketStatusEscalated},
	domain.TicketStatusClosed:     {},
}

// CanTransition is a pure edge-membership test against the table. No side
// knowledge of category or authority is consulted.
func CanTransition(from, to domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing edges.
func Terminal(status domain.TicketStatus) bool {
	return len(allowedTransitions[status]) == 0
}

// Apply moves the ticket to newStatus after validating the edge, stamping
// LastStatusChangeAt and maintaining ResolvedAt (set when entering RESOLVED,
// cleared when leaving it via reopen). On rejection the ticket is unchanged.
func Apply(ticket *domain.Ticket, newStatus domain.TicketStatus, now time.Time) error {
	if !CanTransition(ticket.Status, newStatus) {
		return apperrors.NewInvalidTransition(string(ticket.Status), string(newStatus))
	}
	if newStatus == domain.TicketStatusResolved {
		resolvedAt := now
		ticket.ResolvedAt = &resolvedAt
	} else if ticket.Status == domain.TicketStatusResolved && newStatus != domain.TicketStatusClosed {
		ticket.ResolvedAt = nil
	}
	ticket.Status = newStatus
	ticket.LastStatusChangeAt = now
	return nil
}
