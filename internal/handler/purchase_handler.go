package handler

import (
	"net/url"

	"go-billing-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

type PurchaseHandler struct {
	service service.PurchaseService
}

func NewPurchaseHandler(s service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{service: s}
}

func (h *PurchaseHandler) GetHistory(c *fiber.Ctx) error {
	email, err := url.PathUnescape(c.Params("customer_email"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid email format")
	}

	rows, err := h.service.History(requestContext(c), email)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, rows, "")
}
