package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/classifier"
	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/lifecycle"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/priority"
	"github.com/spec-kit/grievance-service/internal/ratelimit"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/routing"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// submitRateKey is the governor key prefix for ticket submission.
const submitRateKey = "submit:"

// Actor identifies who is performing a lifecycle operation.
type Actor struct {
	Type      domain.ActorType
	UserID    *string
	Authority *domain.Authority
}

// SystemActor is used by the scheduled sweep.
func SystemActor() Actor {
	return Actor{Type: domain.ActorSystem}
}

// UserActor wraps an end-user identity.
func UserActor(userID string) Actor {
	return Actor{Type: domain.ActorUser, UserID: &userID}
}

// AuthorityActor wraps an authority identity.
func AuthorityActor(authority *domain.Authority) Actor {
	return Actor{Type: domain.ActorAuthority, Authority: authority}
}

func (a Actor) id() *string {
	switch a.Type {
	case domain.ActorUser:
		return a.UserID
	case domain.ActorAuthority:
		if a.Authority != nil {
			return &a.Authority.ID
		}
	}
	return nil
}

// TicketService coordinates submission, lifecycle and query workflows.
type TicketService struct {
	tickets       repository.TicketRepository
	departments   repository.DepartmentRepository
	statusChanges repository.StatusChangeRepository
	resolver      *routing.Resolver
	classifier    classifier.Classifier
	governor      *ratelimit.Governor
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	rateCfg       config.RateLimitConfig
	spamThreshold float64
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo       repository.TicketRepository
	DepartmentRepo   repository.DepartmentRepository
	StatusChangeRepo repository.StatusChangeRepository
	Resolver         *routing.Resolver
	Classifier       classifier.Classifier
	Governor         *ratelimit.Governor
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	RateLimit        config.RateLimitConfig
	SpamThreshold    float64
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:       deps.TicketRepo,
		departments:   deps.DepartmentRepo,
		statusChanges: deps.StatusChangeRepo,
		resolver:      deps.Resolver,
		classifier:    deps.Classifier,
		governor:      deps.Governor,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		rateCfg:       deps.RateLimit,
		spamThreshold: deps.SpamThreshold,
	}
}

// TicketSubmitInput describes a submission payload.
type TicketSubmitInput struct {
	Subject    string
	Body       string
	Department *string
	Visibility domain.TicketVisibility
}

// SubmitTicket admits a submission through the rate governor, classifies and
// routes it, and creates the ticket in status RAISED. Classification and
// routing failures degrade to defaults and an unassigned ticket; the
// submitter only ever sees a hard failure on validation or rate limiting.
func (s *TicketService) SubmitTicket(ctx context.Context, userID string, input TicketSubmitInput) (*domain.Ticket, error) {
	if !s.governor.Allow(submitRateKey+userID, s.rateCfg.SubmitCapacity, s.rateCfg.SubmitWindow(), 1) {
		wait := s.governor.WaitTime(submitRateKey+userID, s.rateCfg.SubmitCapacity, s.rateCfg.SubmitWindow(), 1)
		s.metrics.RecordRateLimited("submit")
		return nil, apperrors.NewRateLimited(wait.Seconds())
	}

	subject := strings.TrimSpace(input.Subject)
	body := strings.TrimSpace(input.Body)
	if subject == "" || body == "" {
		return nil, apperrors.NewValidationError("subject and body required", nil)
	}

	department, err := s.validateDepartment(ctx, input.Department)
	if err != nil {
		return nil, err
	}

	classification := s.classify(ctx, subject, body)
	rephrased := s.rephrase(ctx, body)
	verdict := s.detectSpam(ctx, body)

	visibility := input.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPublic
	}

	score, tier := priority.Recompute(classification.Priority, 0, 0)
	ticket := &domain.Ticket{
		ExternalKey:      generateTicketKey(),
		SubmitterID:      userID,
		Category:         classification.Category,
		Department:       department,
		Subject:          subject,
		Body:             body,
		RephrasedBody:    rephrased,
		Visibility:       visibility,
		Status:           domain.TicketStatusRaised,
		BasePriority:     classification.Priority,
		PriorityScore:    score,
		PriorityTier:     tier,
		AgainstAuthority: classification.AgainstAuthority,
	}

	if assignee := s.route(ctx, classification, department); assignee != nil {
		ticket.AssignedAuthorityID = &assignee.ID
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if verdict.IsSpam && verdict.Confidence >= s.spamThreshold {
		if _, err := s.transition(ctx, ticket, domain.TicketStatusSpam, SystemActor(), verdict.Reason); err != nil {
			s.logger.Warn("spam auto-mark failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketSubmitted,
		TicketID: ticket.ID,
		Actor:    eventActor(UserActor(userID)),
		Payload: events.TicketSubmittedPayload{
			Category:            ticket.Category,
			Department:          ticket.Department,
			BasePriority:        ticket.BasePriority,
			AssignedAuthorityID: ticket.AssignedAuthorityID,
			AgainstAuthority:    ticket.AgainstAuthority,
			Subject:             ticket.Subject,
		},
	})
	return ticket, nil
}

// CheckRateLimit reports whether a submission by userID would currently be
// admitted and, if not, how long the caller should wait. No tokens are
// consumed.
func (s *TicketService) CheckRateLimit(userID string) (bool, time.Duration) {
	wait := s.governor.WaitTime(submitRateKey+userID, s.rateCfg.SubmitCapacity, s.rateCfg.SubmitWindow(), 1)
	return wait == 0, wait
}

// ChangeStatus moves a ticket along the lifecycle graph on behalf of actor.
// Authorities must own the ticket (or be ADMIN); submitters may only close
// their own tickets. SPAM additionally requires a non-empty reason, a
// service-level rule layered over the pure edge table.
func (s *TicketService) ChangeStatus(ctx context.Context, actor Actor, ticketID string, newStatus domain.TicketStatus, reason string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
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
		if newStatus != domain.TicketStatusClosed {
			return nil, apperrors.NewPermissionDenied("submitters may only close their tickets")
		}
	case domain.ActorSystem:
		// internal callers bypass ownership checks
	default:
		return nil, apperrors.NewUnauthorized("unknown actor")
	}

	if newStatus == domain.TicketStatusSpam && strings.TrimSpace(reason) == "" {
		return nil, apperrors.NewValidationError("marking spam requires a reason", nil)
	}

	if _, err := s.transition(ctx, ticket, newStatus, actor, reason); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListUserTickets returns the submitter's own tickets.
func (s *TicketService) ListUserTickets(ctx context.Context, userID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	filter.SubmitterID = &userID
	return s.tickets.ListWithFilter(ctx, filter)
}

// ListPublicTickets returns peer-visible tickets for the voting feed.
func (s *TicketService) ListPublicTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	visibility := domain.VisibilityPublic
	filter.Visibility = &visibility
	return s.tickets.ListWithFilter(ctx, filter)
}

// ListAuthorityTickets returns the queue for an authority. Non-admins only
// see tickets assigned to them.
func (s *TicketService) ListAuthorityTickets(ctx context.Context, authority *domain.Authority, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if authority == nil {
		return nil, apperrors.NewUnauthorized("authority required")
	}
	if authority.Type != domain.AuthorityAdmin {
		filter.AssignedAuthorityID = &authority.ID
	}
	return s.tickets.ListWithFilter(ctx, filter)
}

// GetTicketForUser fetches a ticket ensuring ownership or public visibility.
func (s *TicketService) GetTicketForUser(ctx context.Context, userID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.SubmitterID != userID && ticket.Visibility != domain.VisibilityPublic {
		return nil, apperrors.NewPermissionDenied("ticket is private")
	}
	return ticket, nil
}

// GetTicketForAuthority fetches a ticket ensuring the authority owns it or is
// ADMIN.
func (s *TicketService) GetTicketForAuthority(ctx context.Context, authority *domain.Authority, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !authorityOwns(authority, ticket) {
		return nil, apperrors.NewPermissionDenied("ticket not assigned to caller")
	}
	return ticket, nil
}

// ListHistory returns the audit trail for a ticket the actor may see.
func (s *TicketService) ListHistory(ctx context.Context, actor Actor, ticketID string, limit, offset int) ([]domain.StatusChangeRecord, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	switch actor.Type {
	case domain.ActorUser:
		if actor.UserID == nil || *actor.UserID != ticket.SubmitterID {
			return nil, apperrors.NewPermissionDenied("not the ticket's submitter")
		}
	case domain.ActorAuthority:
		if !authorityOwns(actor.Authority, ticket) {
			return nil, apperrors.NewPermissionDenied("ticket not assigned to caller")
		}
	}
	return s.statusChanges.ListByTicket(ctx, ticketID, limit, offset)
}

// transition is the single path through the lifecycle machine: edge check,
// compare-and-swap on the expected old status, audit record, event. A lost
// CAS race surfaces as a retryable CONFLICT.
func (s *TicketService) transition(ctx context.Context, ticket *domain.Ticket, newStatus domain.TicketStatus, actor Actor, reason string) (*domain.StatusChangeRecord, error) {
	expected := ticket.Status
	if err := lifecycle.Apply(ticket, newStatus, time.Now()); err != nil {
		return nil, err
	}
	if err := s.tickets.UpdateStatusCAS(ctx, ticket, expected); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("ticket changed concurrently, retry",
				map[string]any{"ticket_id": ticket.ID, "expected_status": expected})
		}
		return nil, apperrors.MapError(err)
	}

	record := &domain.StatusChangeRecord{
		TicketID:  ticket.ID,
		OldStatus: expected,
		NewStatus: newStatus,
		ActorType: actor.Type,
		ActorID:   actor.id(),
		Reason:    reason,
	}
	if err := s.statusChanges.Create(ctx, record); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventStatusChanged,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.StatusChangedPayload{
			OldStatus:   expected,
			NewStatus:   newStatus,
			Reason:      reason,
			SubmitterID: ticket.SubmitterID,
		},
	})
	return record, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) validateDepartment(ctx context.Context, code *string) (*string, error) {
	if code == nil || strings.TrimSpace(*code) == "" {
		return nil, nil
	}
	department, err := s.departments.GetByCode(ctx, strings.TrimSpace(*code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": *code})
		}
		return nil, apperrors.MapError(err)
	}
	if !department.Active {
		return nil, apperrors.NewValidationError("department inactive", map[string]any{"department": department.Code})
	}
	return &department.Code, nil
}

func (s *TicketService) classify(ctx context.Context, subject, body string) classifier.Classification {
	classification, err := s.classifier.Categorize(ctx, body, subject)
	if err != nil {
		s.logger.Warn("classifier failed, applying defaults", zap.Error(err))
		return classifier.Defaults()
	}
	return classification
}

func (s *TicketService) rephrase(ctx context.Context, body string) string {
	rephrased, err := s.classifier.Rephrase(ctx, body)
	if err != nil || strings.TrimSpace(rephrased) == "" {
		return body
	}
	return rephrased
}

func (s *TicketService) detectSpam(ctx context.Context, body string) classifier.SpamVerdict {
	verdict, err := s.classifier.DetectSpam(ctx, body)
	if err != nil {
		s.logger.Warn("spam check failed, skipping", zap.Error(err))
		return classifier.SpamVerdict{}
	}
	return verdict
}

// route picks an assignee or leaves the ticket unassigned. It must never
// fail the submission.
func (s *TicketService) route(ctx context.Context, classification classifier.Classification, department *string) *domain.Authority {
	assignee, err := s.resolver.Resolve(ctx, classification.Category, department, classification.AgainstAuthority)
	if err != nil {
		if !errors.Is(err, routing.ErrNoAuthority) {
			s.logger.Error("routing failed, leaving ticket unassigned", zap.Error(err))
		} else {
			s.logger.Warn("no authority for category, leaving ticket unassigned",
				zap.String("category", string(classification.Category)))
		}
		return nil
	}
	return assignee
}

func authorityOwns(authority *domain.Authority, ticket *domain.Ticket) bool {
	if authority == nil {
		return false
	}
	if authority.Type == domain.AuthorityAdmin {
		return true
	}
	return ticket.AssignedAuthorityID != nil && *ticket.AssignedAuthorityID == authority.ID
}

func generateTicketKey() string {
	return "GRV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func eventActor(actor Actor) events.Actor {
	result := events.Actor{Type: actor.Type}
	switch actor.Type {
	case domain.ActorUser:
		result.UserID = actor.UserID
	case domain.ActorAuthority:
		if actor.Authority != nil {
			result.AuthorityID = &actor.Authority.ID
		}
	}
	return result
}
