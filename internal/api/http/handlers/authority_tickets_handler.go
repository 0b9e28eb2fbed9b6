package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/service"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"

	"github.com/spec-kit/grievance-service/internal/api/dto"
)

// AuthorityTicketsHandler manages the authority-facing ticket queue.
type AuthorityTicketsHandler struct {
	tickets     *service.TicketService
	escalations *service.EscalationService
}

// NewAuthorityTicketsHandler constructs handler.
func NewAuthorityTicketsHandler(tickets *service.TicketService, escalations *service.EscalationService) *AuthorityTicketsHandler {
	return &AuthorityTicketsHandler{tickets: tickets, escalations: escalations}
}

// Queue GET /authority/tickets returns the caller's assigned tickets ordered
// by priority score. Admins see everything.
func (h *AuthorityTicketsHandler) Queue(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Authority == nil {
		return apperrors.NewUnauthorized("authority required")
	}
	filter := parseTicketQuery(c)
	tickets, err := h.tickets.ListAuthorityTickets(c.Context(), principal.Authority, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummaries(tickets)})
}

// Get GET /authority/tickets/:id.
func (h *AuthorityTicketsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Authority == nil {
		return apperrors.NewUnauthorized("authority required")
	}
	ticket, err := h.tickets.GetTicketForAuthority(c.Context(), principal.Authority, c.Params("id"))
	if err != nil {
		return err
	}
	history, err := h.tickets.ListHistory(c.Context(), service.AuthorityActor(principal.Authority), ticket.ID, 50, 0)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, history)})
}

// ChangeStatus POST /authority/tickets/:id/status.
func (h *AuthorityTicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Authority == nil {
		return apperrors.NewUnauthorized("authority required")
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	newStatus := domain.TicketStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if newStatus == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	ticket, err := h.tickets.ChangeStatus(c.Context(), service.AuthorityActor(principal.Authority), c.Params("id"), newStatus, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Escalate POST /authority/tickets/:id/escalate.
func (h *AuthorityTicketsHandler) Escalate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Authority == nil {
		return apperrors.NewUnauthorized("authority required")
	}
	ticket, err := h.escalations.Escalate(c.Context(), service.AuthorityActor(principal.Authority), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// History GET /authority/tickets/:id/history.
func (h *AuthorityTicketsHandler) History(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Authority == nil {
		return apperrors.NewUnauthorized("authority required")
	}
	limit := parseInt(c.Query("limit"), 50)
	offset := parseOffset(c.Query("offset"))
	history, err := h.tickets.ListHistory(c.Context(), service.AuthorityActor(principal.Authority), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(history)})
}
