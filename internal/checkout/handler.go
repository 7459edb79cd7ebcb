package checkout

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/congo-pay/flex_checkout/internal/cardform"
	"github.com/congo-pay/flex_checkout/internal/middleware"
	"github.com/congo-pay/flex_checkout/internal/viewer"
)

const attemptsLimit = 20

// Handler exposes the checkout page and its JSON companions.
type Handler struct {
	service *Service
	clock   cardform.Clock
	title   string
}

// NewHandler constructs a checkout handler.
func NewHandler(service *Service, clock cardform.Clock, title string) *Handler {
	if clock == nil {
		clock = cardform.SystemClock
	}
	return &Handler{service: service, clock: clock, title: title}
}

type submitRequest struct {
	CardType     string `form:"cardType" json:"cardType"`
	CardNumber   string `form:"cardNumber" json:"cardNumber"`
	SecurityCode string `form:"securityCode" json:"securityCode"`
	ExpiryMonth  string `form:"expiryMonth" json:"expiryMonth"`
	ExpiryYear   string `form:"expiryYear" json:"expiryYear"`
}

// values copies every field out of the request buffer, which fasthttp
// reuses once the handler returns.
func (r submitRequest) values() map[string]string {
	return map[string]string{
		cardform.FieldCardType:     utils.CopyString(r.CardType),
		cardform.FieldCardNumber:   utils.CopyString(r.CardNumber),
		cardform.FieldSecurityCode: utils.CopyString(r.SecurityCode),
		cardform.FieldExpiryMonth:  utils.CopyString(r.ExpiryMonth),
		cardform.FieldExpiryYear:   utils.CopyString(r.ExpiryYear),
	}
}

// Page renders the form, seeded with the last submitted values, and the
// last outcome of the session.
func (h *Handler) Page(c *fiber.Ctx) error {
	slot := middleware.SessionSlot(c)
	now := h.clock()

	outcome, ok, err := h.service.Last(c.UserContext(), slot)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	initial := cardform.Defaults(now)
	var shown any
	if ok {
		initial, shown = outcome.Data, outcome
	}
	return h.render(c, http.StatusOK, cardform.NewForm(initial, now), shown, nil)
}

// Submit runs a submission for the session. Browsers are redirected back
// to the page; JSON clients receive the outcome.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	now := h.clock()
	form := cardform.NewForm(cardform.CardInput{}, now)
	form.Bind(req.values())

	card := form.Values()
	if missing := card.Missing(); len(missing) > 0 {
		if wantsJSON(c) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"missing": missing})
		}
		return h.render(c, http.StatusBadRequest, form, nil, missing)
	}

	outcome := h.service.Submit(c.UserContext(), middleware.SessionSlot(c), card)
	if wantsJSON(c) {
		return c.Status(http.StatusOK).JSON(outcome)
	}
	return c.Redirect("/", http.StatusSeeOther)
}

// Outcome returns the last outcome of the session as JSON.
func (h *Handler) Outcome(c *fiber.Ctx) error {
	outcome, ok, err := h.service.Last(c.UserContext(), middleware.SessionSlot(c))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.Status(http.StatusOK).JSON(outcome)
}

// Attempts returns the masked submission history of the session.
func (h *Handler) Attempts(c *fiber.Ctx) error {
	attempts, err := h.service.Attempts(c.UserContext(), middleware.SessionSlot(c), attemptsLimit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]fiber.Map, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, fiber.Map{
			"id":         a.ID,
			"card_type":  a.CardType,
			"last4":      a.Last4,
			"result":     a.Result,
			"stage":      a.Stage,
			"receipt_id": a.ReceiptID,
			"created_at": a.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"attempts": out})
}

func (h *Handler) render(c *fiber.Ctx, status int, form *cardform.Form, outcome any, missing []string) error {
	tree, err := viewer.Build(outcome)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	state, err := h.service.State(c.UserContext(), middleware.SessionSlot(c))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(status).Render("index", fiber.Map{
		"Title":   h.title,
		"Fields":  form.Fields(),
		"Tree":    tree,
		"State":   state,
		"Missing": missing,
	})
}

func wantsJSON(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) ||
		c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}
