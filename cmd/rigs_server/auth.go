package main

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"

	"github.com/kdudkov/rigs/internal/auth"
	"github.com/kdudkov/rigs/internal/repository"
	"github.com/kdudkov/rigs/internal/token"
)

const (
	UsernameKey = "username"
	CallerKey   = "caller"
	bearer      = "Bearer "
)

// getBearerAuth accepts a valid jwt and leaves other requests to basic auth.
func getBearerAuth(tokens *token.Issuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)

		if !strings.HasPrefix(h, bearer) {
			return c.Next()
		}

		claims, err := tokens.Verify(strings.TrimPrefix(h, bearer))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		c.Locals(UsernameKey, claims.Subject)

		return c.Next()
	}
}

func getUserAuth(r repository.IdentityRepository) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Next: func(c *fiber.Ctx) bool {
			return Username(c) != ""
		},
		Authorizer:      r.CheckAuth,
		ContextUsername: UsernameKey,
	})
}

// getCallerResolver loads roles and wallets of the authenticated login.
// Disabled identities are rejected even with a valid token.
func getCallerResolver(r repository.IdentityRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := r.Get(Username(c))

		if u == nil || u.Disabled {
			return fiber.NewError(fiber.StatusUnauthorized, "unknown or disabled identity")
		}

		c.Locals(CallerKey, auth.CallerFromIdentity(u))

		return c.Next()
	}
}

func Username(c *fiber.Ctx) string {
	if u, ok := c.Locals(UsernameKey).(string); ok {
		return u
	}

	return ""
}

func Caller(c *fiber.Ctx) *auth.Caller {
	if u, ok := c.Locals(CallerKey).(*auth.Caller); ok {
		return u
	}

	return nil
}
