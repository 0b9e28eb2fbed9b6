package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/dto"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/service"
)

// AdminHandler exposes administrative operations.
type AdminHandler struct {
	escalations *service.EscalationService
	metrics     *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(escalations *service.EscalationService, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{escalations: escalations, metrics: metrics}
}

// RunSweep POST /admin/escalations/sweep triggers an immediate pass over
// stale tickets.
func (h *AdminHandler) RunSweep(c *fiber.Ctx) error {
	report, err := h.escalations.RunSweep(c.Context())
	if err != nil {
		return err
	}

	items := make([]dto.SweepItemDetail, 0, len(report.Items))
	for _, item := range report.Items {
		items = append(items, dto.SweepItemDetail{
			TicketID: item.TicketID,
			Outcome:  string(item.Outcome),
			Detail:   item.Detail,
		})
	}
	return c.JSON(fiber.Map{"data": dto.SweepReportResponse{
		StartedAt:  report.StartedAt,
		DurationMS: report.Duration.Milliseconds(),
		Escalated:  report.Escalated,
		Skipped:    report.Skipped,
		Failed:     report.Failed,
		Items:      items,
	}})
}

// SweepTotals GET /admin/escalations/totals returns accumulated sweep
// counters since process start.
func (h *AdminHandler) SweepTotals(c *fiber.Ctx) error {
	escalated, skipped, failed := h.metrics.SweepTotals()
	return c.JSON(fiber.Map{"data": fiber.Map{
		"escalated": escalated,
		"skipped":   skipped,
		"failed":    failed,
	}})
}
