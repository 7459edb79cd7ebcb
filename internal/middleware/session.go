package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const (
	sessionCookie = "checkout_session"
	sessionLocal  = "session_slot"
	sessionNew    = "session_new"
)

// Session binds each browser to a stable outcome slot through a cookie.
func Session(secure bool, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		slot := utils.CopyString(c.Cookies(sessionCookie))
		if _, err := uuid.Parse(slot); err != nil {
			slot = uuid.NewString()
			cookie := &fiber.Cookie{
				Name:     sessionCookie,
				Value:    slot,
				Path:     "/",
				HTTPOnly: true,
				Secure:   secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			}
			if ttl > 0 {
				cookie.Expires = time.Now().Add(ttl)
			}
			c.Cookie(cookie)
			c.Locals(sessionNew, true)
		}
		c.Locals(sessionLocal, slot)
		return c.Next()
	}
}

// SessionSlot returns the slot bound by Session, or "" outside it.
func SessionSlot(c *fiber.Ctx) string {
	slot, _ := c.Locals(sessionLocal).(string)
	return slot
}

// SessionIsNew reports whether Session minted the slot on this request, so
// the client has not yet proven it keeps the cookie.
func SessionIsNew(c *fiber.Ctx) bool {
	isNew, _ := c.Locals(sessionNew).(bool)
	return isNew
}
