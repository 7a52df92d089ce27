package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/mikolohq/mikolo/app/models"
	"github.com/mikolohq/mikolo/internal/pkg/access"
	"github.com/mikolohq/mikolo/internal/pkg/entitlements"
	"github.com/mikolohq/mikolo/internal/pkg/quota"
)

// AccessController serves the resolved feature access, raw permissions,
// entitlements and account quota.
type AccessController struct {
	db       *gorm.DB
	resolver *access.Resolver
	perms    access.PermissionSource
	ents     entitlements.Source
}

// NewAccessController wires the controller from its sources.
func NewAccessController(db *gorm.DB, resolver *access.Resolver, perms access.PermissionSource, ents entitlements.Source) *AccessController {
	return &AccessController{db: db, resolver: resolver, perms: perms, ents: ents}
}

// HandleGetAccess returns the merged access view for the actor on an event.
// Source failures degrade to a denied view with a retry hint instead of an
// error page; nothing is ever granted while inputs are unavailable.
func (ac *AccessController) HandleGetAccess(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	eventID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	view, err := ac.resolver.Resolve(c.UserContext(), actor, eventID)
	if err != nil {
		log.Warnf("[Access] resolve actor %d event %d: %v", actor.AccountID, eventID, err)
		return c.JSON(fiber.Map{
			"access":    access.DeniedView(),
			"degraded":  true,
			"retryable": true,
		})
	}
	return c.JSON(fiber.Map{"access": view})
}

// HandleGetPermissions returns the actor's raw per-domain permission views.
func (ac *AccessController) HandleGetPermissions(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}
	eventID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	set, err := ac.perms.PermissionsFor(c.UserContext(), actor.AccountID, eventID)
	if err != nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "permissions_unavailable", "could not load permissions")
	}
	return c.JSON(fiber.Map{
		"is_custom_role": set.IsCustom(),
		"guests":         set.Guests(),
		"tasks":          set.Tasks(),
		"budget":         set.Budget(),
		"collaborators":  set.Collaborators(),
		"photos":         set.Photos(),
	})
}

// HandleGetEntitlements returns the owner-scoped entitlement snapshot.
func (ac *AccessController) HandleGetEntitlements(c *fiber.Ctx) error {
	if _, ok := requireActor(c); !ok {
		return nil
	}
	eventID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	snap, err := ac.ents.ForEvent(c.UserContext(), eventID)
	if err != nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "entitlements_unavailable", "could not load entitlements")
	}
	return c.JSON(snap)
}

// HandleGetQuota returns the account-level event creation quota.
func (ac *AccessController) HandleGetQuota(c *fiber.Ctx) error {
	actor, ok := requireActor(c)
	if !ok {
		return nil
	}

	var account models.Account
	if err := ac.db.WithContext(c.UserContext()).First(&account, actor.AccountID).Error; err != nil {
		return jsonError(c, fiber.StatusNotFound, "account_not_found", "account not found")
	}

	q := quota.FromAccount(&account)
	return c.JSON(fiber.Map{
		"base_quota":    q.BaseQuota,
		"topup_credits": q.TopupCredits,
		"used":          q.Used,
		"is_unlimited":  q.IsUnlimited,
		"remaining":     q.Remaining(),
		"can_create":    q.CanCreate(),
		"warning":       q.Classify(),
	})
}
