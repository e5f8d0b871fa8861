package credentials

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClaimsLocalKey is where RequireAuth stores the verified access claims.
const ClaimsLocalKey = "credentials.claims"

// RequireAuth authenticates the Bearer access token on the Authorization
// header and injects the claims into both fiber locals and the request
// context. Verification is stateless: no store round trip per request.
func RequireAuth(tokens TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Access denied. No token provided.",
			})
		}

		token := strings.TrimPrefix(header, "Bearer ")

		claims, err := tokens.VerifyAccessToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token.",
			})
		}

		c.Locals(ClaimsLocalKey, claims)
		c.SetUserContext(WithClaimsContext(c.UserContext(), claims))

		return c.Next()
	}
}

// RequireRole authorizes against the closed role set. Unknown roles never
// pass: the match is exhaustive, not a string lookup in an open set.
func RequireRole(allowed ...Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromFiber(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Access denied. No token provided.",
			})
		}

		role, valid := ParseRole(claims.Role())
		if !valid {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Forbidden: Access is denied.",
			})
		}

		for _, a := range allowed {
			if role == a {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Forbidden: Access is denied.",
		})
	}
}

// ClaimsFromFiber extracts the access claims RequireAuth stored.
func ClaimsFromFiber(c *fiber.Ctx) (*AccessClaims, bool) {
	raw := c.Locals(ClaimsLocalKey)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*AccessClaims)
	return claims, ok
}
