package handler

import (
	"context"
	"errors"

	"go-billing-api/internal/service"
	"go-billing-api/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func success(c *fiber.Ctx, status int, data any, message string) error {
	body := fiber.Map{"status": "success", "data": data}
	if message != "" {
		body["message"] = message
	}
	return c.Status(status).JSON(body)
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"status": "fail", "error": message})
}

// respondError maps service error kinds to status codes. Unknown errors are
// logged and hidden behind a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	var svcErr *service.Error
	switch {
	case errors.Is(err, service.ErrNotFound):
		return fail(c, fiber.StatusNotFound, messageOf(err))
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrPaymentInsufficient):
		return fail(c, fiber.StatusBadRequest, messageOf(err))
	case errors.As(err, &svcErr):
		return fail(c, fiber.StatusInternalServerError, svcErr.Message)
	}

	logger.FromFiber(c).Error("request failed", zap.Error(err))
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}

func messageOf(err error) string {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return err.Error()
}

// requestContext carries the request-scoped logger into the service layer.
func requestContext(c *fiber.Ctx) context.Context {
	return logger.WithContext(c.UserContext(), logger.FromFiber(c))
}

// ErrorHandler renders errors that escape handlers (unknown routes, body
// limits, recovered panics) in the same envelope as everything else.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fail(c, fe.Code, fe.Message)
	}
	logger.FromFiber(c).Error("unhandled error", zap.Error(err))
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}
