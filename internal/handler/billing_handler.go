package handler

import (
	"go-billing-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

type BillingHandler struct {
	service service.BillingService
}

func NewBillingHandler(s service.BillingService) *BillingHandler {
	return &BillingHandler{service: s}
}

// GetBills lists bills, newest first. An empty result is still 200.
// Query params: id, customer_email, min_amount, max_amount, start_date, end_date
func (h *BillingHandler) GetBills(c *fiber.Ctx) error {
	bills, err := h.service.ListBills(requestContext(c), service.BillQuery{
		ID:            c.Query("id"),
		CustomerEmail: c.Query("customer_email"),
		MinAmount:     c.Query("min_amount"),
		MaxAmount:     c.Query("max_amount"),
		StartDate:     c.Query("start_date"),
		EndDate:       c.Query("end_date"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, bills, "")
}

func (h *BillingHandler) GetBill(c *fiber.Ctx) error {
	bill, err := h.service.GetBill(requestContext(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, bill, "")
}

func (h *BillingHandler) CreateBill(c *fiber.Ctx) error {
	var req service.CreateBillRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid JSON")
	}

	receipt, err := h.service.CreateBill(requestContext(c), &req)
	if err != nil {
		return respondError(c, err)
	}

	body := fiber.Map{
		"status":  "success",
		"data":    receipt,
		"message": "Bill generated successfully",
	}
	if receipt.NotificationErr != nil {
		body["warning"] = messageOf(receipt.NotificationErr)
	}
	return c.Status(fiber.StatusCreated).JSON(body)
}

func (h *BillingHandler) DeleteBill(c *fiber.Ctx) error {
	if err := h.service.DeleteBill(requestContext(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
