package models

import (
	"encoding/json"
	"time"
)

// CustomRole carries an explicit permission list created by an event owner.
// The list is the complete grant; it is never expanded through the system
// role table.
type CustomRole struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	EventID         uint      `gorm:"not null;index" json:"event_id"`
	Name            string    `gorm:"type:varchar(100);not null" json:"name"`
	PermissionsJSON string    `gorm:"column:permissions;type:text;not null;default:'[]'" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Permissions decodes the stored permission strings.
func (r *CustomRole) Permissions() []string {
	var perms []string
	if err := json.Unmarshal([]byte(r.PermissionsJSON), &perms); err != nil {
		return nil
	}
	return perms
}

// SetPermissions encodes the permission strings for storage.
func (r *CustomRole) SetPermissions(perms []string) error {
	b, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	r.PermissionsJSON = string(b)
	return nil
}

// EventCollaborator assigns an actor to an event. Exactly one of the system
// role list or the custom role reference applies; the DB keeps both columns
// but writers must never populate both.
type EventCollaborator struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	EventID      uint       `gorm:"not null;index:ux_event_collaborators_event_account,unique,priority:1" json:"event_id"`
	AccountID    uint       `gorm:"not null;index:ux_event_collaborators_event_account,unique,priority:2" json:"account_id"`
	RolesJSON    string     `gorm:"column:roles;type:text;not null;default:'[]'" json:"-"`
	CustomRoleID *uint      `gorm:"index" json:"custom_role_id,omitempty"`
	InvitedBy    uint       `json:"invited_by"`
	AcceptedAt   *time.Time `gorm:"type:timestamp;default:null" json:"accepted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Roles decodes the stored system role names.
func (c *EventCollaborator) Roles() []string {
	var roles []string
	if err := json.Unmarshal([]byte(c.RolesJSON), &roles); err != nil {
		return nil
	}
	return roles
}

// SetRoles encodes the system role names for storage and clears any custom
// role reference so the two grant shapes stay mutually exclusive.
func (c *EventCollaborator) SetRoles(roles []string) error {
	b, err := json.Marshal(roles)
	if err != nil {
		return err
	}
	c.RolesJSON = string(b)
	c.CustomRoleID = nil
	return nil
}
