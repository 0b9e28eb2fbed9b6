package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/lifecycle"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/routing"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// SweepOutcome classifies one ticket's result within a sweep pass.
type SweepOutcome string

const (
	SweepEscalated SweepOutcome = "escalated"
	SweepSkipped   SweepOutcome = "skipped"
	SweepFailed    SweepOutcome = "failed"
)

// SweepItem is the per-ticket result.
type SweepItem struct {
	TicketID string       `json:"ticket_id"`
	Outcome  SweepOutcome `json:"outcome"`
	Detail   string       `json:"detail,omitempty"`
}

// SweepReport summarizes one full pass.
type SweepReport struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Escalated int           `json:"escalated"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Items     []SweepItem   `json:"items"`
}

// EscalationService walks tickets up the authority chain, manually or via the
// scheduled staleness sweep.
type EscalationService struct {
	tickets       repository.TicketRepository
	statusChanges repository.StatusChangeRepository
	resolver      *routing.Resolver
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	cfg           config.EscalationConfig
}

// EscalationDependencies bundles collaborators.
type EscalationDependencies struct {
	TicketRepo       repository.TicketRepository
	StatusChangeRepo repository.StatusChangeRepository
	Resolver         *routing.Resolver
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	Config           config.EscalationConfig
}

// NewEscalationService constructs the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationService{
		tickets:       deps.TicketRepo,
		statusChanges: deps.StatusChangeRepo,
		resolver:      deps.Resolver,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		cfg:           deps.Config,
	}
}

// Escalate reassigns the ticket to the next authority up the chain and
// forces status ESCALATED. Allowed for the assigned authority, ADMIN, or
// the submitter. NOT_FOUND means the chain is exhausted; the ticket is left
// as it was.
func (s *EscalationService) Escalate(ctx context.Context, actor Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	switch actor.Type {
	case domain.ActorAuthority:
		if !authorityOwns(actor.Authority, ticket) {
			return nil, apperrors.NewPermissionDenied("not the ticket's current authority")
		}
	case domain.ActorUser:
		if actor.UserID == nil || *actor.UserID != ticket.SubmitterID {
			return nil, apperrors.NewPermissionDenied("not the ticket's submitter")
		}
	case domain.ActorSystem:
	default:
		return nil, apperrors.NewUnauthorized("unknown actor")
	}

	next, err := s.nextAuthority(ctx, ticket)
	if err != nil {
		if errors.Is(err, routing.ErrNoAuthority) {
			return nil, apperrors.NewNotFound("escalation target", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	if err := s.escalate(ctx, ticket, next, actor, "manual escalation", false); err != nil {
		return nil, err
	}
	return ticket, nil
}

// RunSweep selects non-terminal tickets stale past the configured threshold
// and escalates each one independently. Every ticket gets its own timeout and
// its own outcome; one failure never aborts the pass.
func (s *EscalationService) RunSweep(ctx context.Context) (*SweepReport, error) {
	started := time.Now()
	cutoff := started.Add(-s.cfg.StaleAfter())

	stale, err := s.tickets.ListStale(ctx, cutoff, s.cfg.BatchLimit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	report := &SweepReport{StartedAt: started, Items: make([]SweepItem, 0, len(stale))}
	for i := range stale {
		itemCtx, cancel := context.WithTimeout(ctx, s.cfg.ItemTimeout())
		item := s.sweepOne(itemCtx, &stale[i])
		cancel()

		report.Items = append(report.Items, item)
		switch item.Outcome {
		case SweepEscalated:
			report.Escalated++
		case SweepSkipped:
			report.Skipped++
		default:
			report.Failed++
		}
	}
	report.Duration = time.Since(started)

	s.metrics.RecordSweep(report.Escalated, report.Skipped, report.Failed)
	s.logger.Info("escalation sweep completed",
		zap.Int("stale", len(stale)),
		zap.Int("escalated", report.Escalated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (s *EscalationService) sweepOne(ctx context.Context, ticket *domain.Ticket) SweepItem {
	next, err := s.nextAuthority(ctx, ticket)
	if err != nil {
		if errors.Is(err, routing.ErrNoAuthority) {
			return SweepItem{TicketID: ticket.ID, Outcome: SweepSkipped, Detail: "no escalation target"}
		}
		s.logger.Warn("sweep: authority lookup failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return SweepItem{TicketID: ticket.ID, Outcome: SweepFailed, Detail: err.Error()}
	}

	if err := s.escalate(ctx, ticket, next, SystemActor(), "stale ticket auto-escalation", true); err != nil {
		if apperrors.HasCode(err, "CONFLICT") || apperrors.HasCode(err, "INVALID_TRANSITION") {
			// someone acted on the ticket between selection and escalation
			return SweepItem{TicketID: ticket.ID, Outcome: SweepSkipped, Detail: err.Error()}
		}
		s.logger.Warn("sweep: escalation failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return SweepItem{TicketID: ticket.ID, Outcome: SweepFailed, Detail: err.Error()}
	}
	return SweepItem{TicketID: ticket.ID, Outcome: SweepEscalated, Detail: next.ID}
}

// nextAuthority walks up from the current assignment, or routes from scratch
// when the ticket never got an owner.
func (s *EscalationService) nextAuthority(ctx context.Context, ticket *domain.Ticket) (*domain.Authority, error) {
	if ticket.AssignedAuthorityID == nil {
		return s.resolver.Resolve(ctx, ticket.Category, ticket.Department, false)
	}
	return s.resolver.NextAuthority(ctx, *ticket.AssignedAuthorityID)
}

// escalate applies the reassignment and forced ESCALATED status as one CAS
// write, then records and announces it.
func (s *EscalationService) escalate(ctx context.Context, ticket *domain.Ticket, next *domain.Authority, actor Actor, reason string, automatic bool) error {
	expected := ticket.Status
	oldAuthority := ticket.AssignedAuthorityID

	if err := lifecycle.Apply(ticket, domain.TicketStatusEscalated, time.Now()); err != nil {
		return err
	}
	ticket.AssignedAuthorityID = &next.ID

	if err := s.tickets.UpdateStatusCAS(ctx, ticket, expected); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewConflict("ticket changed concurrently, retry",
				map[string]any{"ticket_id": ticket.ID, "expected_status": expected})
		}
		return apperrors.MapError(err)
	}

	record := &domain.StatusChangeRecord{
		TicketID:  ticket.ID,
		OldStatus: expected,
		NewStatus: domain.TicketStatusEscalated,
		ActorType: actor.Type,
		ActorID:   actor.id(),
		Reason:    reason,
	}
	if err := s.statusChanges.Create(ctx, record); err != nil {
		return apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketEscalatedPayload{
			OldAuthorityID: oldAuthority,
			NewAuthorityID: next.ID,
			SubmitterID:    ticket.SubmitterID,
			Automatic:      automatic,
		},
	})
	return nil
}
