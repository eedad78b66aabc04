package handler

import (
	"go-billing-api/internal/metrics"
	"go-billing-api/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Product  *ProductHandler
	Billing  *BillingHandler
	Purchase *PurchaseHandler
	Report   *ReportHandler
	Health   *HealthHandler
}

// RegisterRoutes mounts the REST API, the websocket feed and the
// operational endpoints on app.
func RegisterRoutes(app *fiber.App, h Handlers, hub *ws.Hub) {
	app.Get("/healthz", h.Health.Check)
	app.Get("/metrics", metrics.Handler())

	// Product Routes
	app.Get("/products", h.Product.GetProducts)
	app.Post("/products", h.Product.CreateProduct)
	app.Get("/products/:product_id", h.Product.GetProduct)
	app.Put("/products/:product_id", h.Product.UpdateProduct)
	app.Patch("/products/:product_id", h.Product.UpdateProduct)
	app.Delete("/products/:product_id", h.Product.DeleteProduct)

	// Billing Routes
	app.Get("/billing", h.Billing.GetBills)
	app.Post("/billing", h.Billing.CreateBill)
	app.Get("/billing/:id", h.Billing.GetBill)
	app.Delete("/billing/:id", h.Billing.DeleteBill)

	app.Get("/purchases/:customer_email", h.Purchase.GetHistory)
	app.Get("/reports/summary", h.Report.GetSummary)

	if hub != nil {
		app.Use("/ws", requireUpgrade)
		app.Get("/ws", websocket.New(func(c *websocket.Conn) {
			if !hub.Join(c) {
				return
			}
			defer hub.Leave(c)

			for {
				// clients only listen; reading detects disconnects
				if _, _, err := c.ReadMessage(); err != nil {
					break
				}
			}
		}))
	}
}

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.SendStatus(fiber.StatusUpgradeRequired)
}
