package handler

import (
	"go-billing-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ProductHandler struct {
	service service.CatalogService
}

func NewProductHandler(s service.CatalogService) *ProductHandler {
	return &ProductHandler{service: s}
}

// GetProducts lists products.
// Query params: name, product_id, min_price, max_price
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(requestContext(c), service.ProductQuery{
		Name:      c.Query("name"),
		ProductID: c.Query("product_id"),
		MinPrice:  c.Query("min_price"),
		MaxPrice:  c.Query("max_price"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, products, "")
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(requestContext(c), c.Params("product_id"))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, product, "")
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid JSON")
	}

	product, err := h.service.CreateProduct(requestContext(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusCreated, product, "Product created")
}

// UpdateProduct serves both PUT and PATCH; either way only the fields sent
// are changed.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	var req service.UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid JSON")
	}

	product, err := h.service.UpdateProduct(requestContext(c), c.Params("product_id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, product, "Product updated")
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(requestContext(c), c.Params("product_id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
