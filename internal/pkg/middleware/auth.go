package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mikolohq/mikolo/internal/pkg/env"
	"github.com/mikolohq/mikolo/internal/pkg/usercontext"
)

type actorClaims struct {
	AccountID uint   `json:"account_id"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// RequireAuth validates the bearer token and stores the actor context in
// Locals for downstream handlers. An unset JWT_SECRET would accept tokens
// signed with an empty key, so startup fails instead.
func RequireAuth() fiber.Handler {
	secret := []byte(env.GetEnv("JWT_SECRET", ""))
	if len(secret) == 0 {
		panic("JWT_SECRET is not configured")
	}

	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return unauthorized(c, "missing bearer token")
		}

		claims := &actorClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return secret, nil
		})
		if err != nil || !parsed.Valid || claims.AccountID == 0 {
			return unauthorized(c, "invalid token")
		}

		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			AccountID:  claims.AccountID,
			Email:      claims.Email,
			IsLoggedIn: true,
			IsAdmin:    claims.IsAdmin,
		})
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "unauthorized",
		"message": message,
	})
}
