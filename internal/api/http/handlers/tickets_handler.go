package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// TicketsHandler manages end-user ticket endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	votes       *service.VoteService
	escalations *service.EscalationService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, votes *service.VoteService, escalations *service.EscalationService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, votes: votes, escalations: escalations}
}

// Submit POST /tickets.
func (h *TicketsHandler) Submit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	visibility := domain.VisibilityPublic
	if req.Visibility != "" {
		visibility = domain.TicketVisibility(strings.ToUpper(req.Visibility))
		if visibility != domain.VisibilityPublic && visibility != domain.VisibilityPrivate {
			return apperrors.NewValidationError("visibility must be PUBLIC or PRIVATE", nil)
		}
	}

	ticket, err := h.tickets.SubmitTicket(c.Context(), principal.User.ID, service.TicketSubmitInput{
		Subject:    req.Subject,
		Body:       req.Body,
		Department: req.Department,
		Visibility: visibility,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// RateLimit GET /tickets/rate-limit reports the caller's submission budget
// without consuming a token.
func (h *TicketsHandler) RateLimit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	allowed, wait := h.tickets.CheckRateLimit(principal.User.ID)
	return c.JSON(fiber.Map{"data": dto.RateLimitResponse{
		Allowed:           allowed,
		RetryAfterSeconds: wait.Seconds(),
	}})
}

// List GET /tickets returns the caller's own tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	filter := parseTicketQuery(c)
	tickets, err := h.tickets.ListUserTickets(c.Context(), principal.User.ID, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets)})
}

// ListPublic GET /tickets/public returns public tickets for browsing and
// voting, ordered by priority score.
func (h *TicketsHandler) ListPublic(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseTicketQuery(c)
	tickets, err := h.tickets.ListPublicTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets)})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.tickets.GetTicketForUser(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	history, err := h.tickets.ListHistory(c.Context(), service.UserActor(principal.User.ID), ticket.ID, 50, 0)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, history)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	limit := parseInt(c.Query("limit"), 50)
	offset := parseOffset(c.Query("offset"))
	history, err := h.tickets.ListHistory(c.Context(), service.UserActor(principal.User.ID), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(history)})
}

// Vote POST /tickets/:id/vote.
func (h *TicketsHandler) Vote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.votes.CastVote(c.Context(), principal.User.ID, c.Params("id"), domain.VoteType(strings.ToUpper(req.VoteType)))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Unvote DELETE /tickets/:id/vote.
func (h *TicketsHandler) Unvote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.votes.RemoveVote(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Close POST /tickets/:id/close lets a submitter close their own ticket.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.tickets.ChangeStatus(c.Context(), service.UserActor(principal.User.ID), c.Params("id"), domain.TicketStatusClosed, "closed by submitter")
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Escalate POST /tickets/:id/escalate lets a submitter push their own ticket
// up the chain.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	ticket, err := h.escalations.Escalate(c.Context(), service.UserActor(principal.User.ID), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if categoryStr := c.Query("category"); categoryStr != "" {
		for _, part := range strings.Split(categoryStr, ",") {
			filter.Categories = append(filter.Categories, domain.GrievanceCategory(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if tierStr := c.Query("tier"); tierStr != "" {
		for _, part := range strings.Split(tierStr, ",") {
			filter.Tiers = append(filter.Tiers, domain.PriorityTier(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if dept := c.Query("department"); dept != "" {
		filter.Department = &dept
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseOffset(val string) int {
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:                  ticket.ID,
		ExternalKey:         ticket.ExternalKey,
		Category:            ticket.Category,
		Department:          ticket.Department,
		Subject:             ticket.Subject,
		Status:              ticket.Status,
		PriorityTier:        ticket.PriorityTier,
		PriorityScore:       ticket.PriorityScore,
		Visibility:          ticket.Visibility,
		Upvotes:             ticket.Upvotes,
		Downvotes:           ticket.Downvotes,
		AssignedAuthorityID: ticket.AssignedAuthorityID,
		CreatedAt:           ticket.CreatedAt,
		UpdatedAt:           ticket.UpdatedAt,
	}
}

func ticketSummaries(tickets []domain.Ticket) []dto.TicketSummary {
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return items
}

func ticketDetail(ticket *domain.Ticket, history []domain.StatusChangeRecord) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		ID:                  ticket.ID,
		ExternalKey:         ticket.ExternalKey,
		Category:            ticket.Category,
		Department:          ticket.Department,
		Subject:             ticket.Subject,
		Body:                ticket.Body,
		RephrasedBody:       ticket.RephrasedBody,
		Status:              ticket.Status,
		BasePriority:        ticket.BasePriority,
		PriorityTier:        ticket.PriorityTier,
		PriorityScore:       ticket.PriorityScore,
		Visibility:          ticket.Visibility,
		AgainstAuthority:    ticket.AgainstAuthority,
		Upvotes:             ticket.Upvotes,
		Downvotes:           ticket.Downvotes,
		AssignedAuthorityID: ticket.AssignedAuthorityID,
		CreatedAt:           ticket.CreatedAt,
		UpdatedAt:           ticket.UpdatedAt,
		LastStatusChangeAt:  ticket.LastStatusChangeAt,
		ResolvedAt:          ticket.ResolvedAt,
		History:             historyResponses(history),
	}
}

func historyResponses(entries []domain.StatusChangeRecord) []dto.StatusChangeResponse {
	resp := make([]dto.StatusChangeResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.StatusChangeResponse{
			ID:        entry.ID,
			OldStatus: entry.OldStatus,
			NewStatus: entry.NewStatus,
			ActorType: entry.ActorType,
			ActorID:   entry.ActorID,
			Reason:    entry.Reason,
			CreatedAt: entry.CreatedAt,
		})
	}
	return resp
}
