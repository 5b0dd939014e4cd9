package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/utils"
)

const CookieName = "jm_token"

// JWTFromCookie reads the token from the jm_token cookie, falling back to
// an Authorization: Bearer header for non-browser clients.
func JWTFromCookie(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(CookieName)
		if tokenStr == "" {
			if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
				tokenStr = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			}
		}
		if tokenStr == "" {
			return fiber.ErrUnauthorized
		}

		token, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		c.Locals("user", token)
		return c.Next()
	}
}
