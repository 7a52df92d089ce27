package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mikolohq/mikolo/internal/pkg/access"
)

// UserContext represents the authenticated actor for a request
type UserContext struct {
	AccountID  uint   `json:"account_id"`
	Email      string `json:"email"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsAdmin    bool   `json:"is_admin"`
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx := c.Locals(KeyUserContext); ctx != nil {
		return ctx.(UserContext)
	}
	return UserContext{IsLoggedIn: false, IsAdmin: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetAccountID returns the current account's ID, or 0 if not logged in
func GetAccountID(c *fiber.Ctx) uint {
	return GetUserContext(c).AccountID
}

// Actor converts the request context into the explicit actor parameter the
// access resolver expects. The admin flag travels with the actor, never
// through ambient state.
func (uc UserContext) Actor() access.ActorContext {
	return access.ActorContext{AccountID: uc.AccountID, IsAdmin: uc.IsAdmin}
}
