package handler

import (
	"strconv"

	"go-billing-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(s service.ReportService) *ReportHandler {
	return &ReportHandler{service: s}
}

// GetSummary returns catalog and sales figures.
// Query params: days (default 30)
func (h *ReportHandler) GetSummary(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", strconv.Itoa(service.DefaultReportDays)))
	if err != nil || days <= 0 {
		days = service.DefaultReportDays
	}

	summary, err := h.service.GetSummary(requestContext(c), days)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, summary, "")
}
