package access

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mikolohq/mikolo/app/models"
)

// PermissionSource returns an actor's grant for one event.
type PermissionSource interface {
	PermissionsFor(ctx context.Context, actorAccountID, eventID uint) (*PermissionSet, error)
}

type dbPermissionSource struct {
	db *gorm.DB
}

// NewPermissionSource creates the GORM-backed permission source.
func NewPermissionSource(db *gorm.DB) PermissionSource {
	return &dbPermissionSource{db: db}
}

func (s *dbPermissionSource) PermissionsFor(ctx context.Context, actorAccountID, eventID uint) (*PermissionSet, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).First(&event, eventID).Error; err != nil {
		return nil, fmt.Errorf("load event %d: %w", eventID, err)
	}

	if event.OwnerAccountID == actorAccountID {
		return NewSystemRoleSet(ownerStructural(), RoleOwner), nil
	}

	var collab models.EventCollaborator
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND account_id = ?", eventID, actorAccountID).
		First(&collab).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EmptyPermissionSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load collaborator: %w", err)
	}

	if collab.CustomRoleID != nil {
		var role models.CustomRole
		if err := s.db.WithContext(ctx).First(&role, *collab.CustomRoleID).Error; err != nil {
			return nil, fmt.Errorf("load custom role %d: %w", *collab.CustomRoleID, err)
		}
		// Custom roles never carry structural flags; those stay owner-only.
		return NewCustomRoleSet(Structural{}, role.Permissions()), nil
	}

	roles := make([]RoleName, 0, 4)
	structural := Structural{}
	for _, name := range collab.Roles() {
		if !KnownRole(name) {
			continue
		}
		role := RoleName(name)
		roles = append(roles, role)
		if role == RolePlanner {
			structural.CanInvite = true
		}
	}
	return NewSystemRoleSet(structural, roles...), nil
}
