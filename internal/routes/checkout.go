package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/flex_checkout/internal/checkout"
)

// RegisterCheckoutRoutes wires the checkout page and its JSON endpoints.
func RegisterCheckoutRoutes(r fiber.Router, h *checkout.Handler, submitLimiter fiber.Handler) {
	r.Get("/", h.Page)
	r.Post("/", submitLimiter, h.Submit)
	r.Get("/outcome", h.Outcome)
	r.Get("/attempts", h.Attempts)
}
