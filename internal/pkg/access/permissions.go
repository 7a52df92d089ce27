package access

import "strings"

// Permission strings are domain-namespaced capability grants.
const (
	PermGuestsView   = "guests.view"
	PermGuestsCreate = "guests.create"
	PermGuestsEdit   = "guests.edit"
	PermGuestsDelete = "guests.delete"
	PermGuestsImport = "guests.import"
	PermGuestsExport = "guests.export"

	PermTasksView   = "tasks.view"
	PermTasksCreate = "tasks.create"
	PermTasksEdit   = "tasks.edit"
	PermTasksDelete = "tasks.delete"
	PermTasksAssign = "tasks.assign"

	PermBudgetView   = "budget.view"
	PermBudgetCreate = "budget.create"
	PermBudgetEdit   = "budget.edit"
	PermBudgetDelete = "budget.delete"
	PermBudgetExport = "budget.export"

	PermCollaboratorsView = "collaborators.view"

	PermPhotosView   = "photos.view"
	PermPhotosUpload = "photos.upload"
	PermPhotosDelete = "photos.delete"
)

const (
	DomainGuests        = "guests"
	DomainTasks         = "tasks"
	DomainBudget        = "budget"
	DomainCollaborators = "collaborators"
	DomainPhotos        = "photos"
)

// RoleName identifies a built-in system role.
type RoleName string

const (
	RoleOwner   RoleName = "owner"
	RolePlanner RoleName = "planner"
	RoleVendor  RoleName = "vendor"
	RoleViewer  RoleName = "viewer"
)

var allPermissions = []string{
	PermGuestsView, PermGuestsCreate, PermGuestsEdit, PermGuestsDelete,
	PermGuestsImport, PermGuestsExport,
	PermTasksView, PermTasksCreate, PermTasksEdit, PermTasksDelete, PermTasksAssign,
	PermBudgetView, PermBudgetCreate, PermBudgetEdit, PermBudgetDelete, PermBudgetExport,
	PermCollaboratorsView,
	PermPhotosView, PermPhotosUpload, PermPhotosDelete,
}

// roleCapabilities is the static role to capability table for system roles.
var roleCapabilities = map[RoleName][]string{
	RoleOwner: allPermissions,
	RolePlanner: {
		PermGuestsView, PermGuestsCreate, PermGuestsEdit, PermGuestsDelete,
		PermGuestsImport, PermGuestsExport,
		PermTasksView, PermTasksCreate, PermTasksEdit, PermTasksDelete, PermTasksAssign,
		PermBudgetView, PermBudgetCreate, PermBudgetEdit,
		PermCollaboratorsView,
		PermPhotosView, PermPhotosUpload,
	},
	RoleVendor: {
		PermTasksView, PermTasksEdit,
		PermBudgetView,
		PermPhotosView, PermPhotosUpload,
	},
	RoleViewer: {
		PermGuestsView, PermTasksView, PermBudgetView, PermPhotosView,
	},
}

// KnownRole reports whether a stored role name maps to a system role.
func KnownRole(name string) bool {
	_, ok := roleCapabilities[RoleName(strings.ToLower(strings.TrimSpace(name)))]
	return ok
}

// Structural holds the collaborator-management flags that gate structural
// operations (ownership transfer, role editing, removal). They come straight
// from the permission source and are deliberately not derivable from
// capability strings.
type Structural struct {
	IsOwner                bool `json:"is_owner"`
	CanManage              bool `json:"can_manage"`
	CanInvite              bool `json:"can_invite"`
	CanEditRoles           bool `json:"can_edit_roles"`
	CanRemoveCollaborators bool `json:"can_remove_collaborators"`
	CanCreateCustomRoles   bool `json:"can_create_custom_roles"`
}

func ownerStructural() Structural {
	return Structural{
		IsOwner:                true,
		CanManage:              true,
		CanInvite:              true,
		CanEditRoles:           true,
		CanRemoveCollaborators: true,
		CanCreateCustomRoles:   true,
	}
}

// PermissionSet is an actor's complete grant for one event. It is either the
// union of system roles or the verbatim list of a custom role, never both.
// The constructors are the only way to build one, which keeps the illegal
// "both variants" state unrepresentable.
type PermissionSet struct {
	structural Structural
	caps       map[string]struct{}
	custom     bool
}

// NewSystemRoleSet builds the union grant of the given system roles.
func NewSystemRoleSet(structural Structural, roles ...RoleName) *PermissionSet {
	caps := make(map[string]struct{})
	for _, role := range roles {
		for _, perm := range roleCapabilities[RoleName(strings.ToLower(strings.TrimSpace(string(role))))] {
			caps[perm] = struct{}{}
		}
	}
	return &PermissionSet{structural: structural, caps: caps}
}

// NewCustomRoleSet builds a grant from an explicit permission list. The list
// is complete as stored; no system role expansion happens.
func NewCustomRoleSet(structural Structural, perms []string) *PermissionSet {
	caps := make(map[string]struct{}, len(perms))
	for _, perm := range perms {
		p := strings.ToLower(strings.TrimSpace(perm))
		if p != "" {
			caps[p] = struct{}{}
		}
	}
	return &PermissionSet{structural: structural, caps: caps, custom: true}
}

// EmptyPermissionSet grants nothing. Used for actors without any assignment.
func EmptyPermissionSet() *PermissionSet {
	return &PermissionSet{caps: map[string]struct{}{}}
}

// FullyGrantedSet grants every capability and structural flag. Synthesized
// for administrators.
func FullyGrantedSet() *PermissionSet {
	return NewSystemRoleSet(ownerStructural(), RoleOwner)
}

// Has reports whether a specific capability string is granted.
func (ps *PermissionSet) Has(perm string) bool {
	if ps == nil {
		return false
	}
	_, ok := ps.caps[perm]
	return ok
}

// HasAnyInDomain reports whether at least one capability in the domain's
// namespace is granted.
func (ps *PermissionSet) HasAnyInDomain(domain string) bool {
	if ps == nil {
		return false
	}
	prefix := domain + "."
	for perm := range ps.caps {
		if strings.HasPrefix(perm, prefix) {
			return true
		}
	}
	return false
}

// IsCustom reports whether the grant came from a custom role.
func (ps *PermissionSet) IsCustom() bool {
	return ps != nil && ps.custom
}

// Structural returns the structural collaborator flags.
func (ps *PermissionSet) Structural() Structural {
	if ps == nil {
		return Structural{}
	}
	return ps.structural
}

// GuestsPermissions is the guest-list capability view.
type GuestsPermissions struct {
	CanView   bool `json:"can_view"`
	CanCreate bool `json:"can_create"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanImport bool `json:"can_import"`
	CanExport bool `json:"can_export"`
	HasAny    bool `json:"has_any"`
}

// TasksPermissions is the task-board capability view.
type TasksPermissions struct {
	CanView   bool `json:"can_view"`
	CanCreate bool `json:"can_create"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanAssign bool `json:"can_assign"`
	HasAny    bool `json:"has_any"`
}

// BudgetPermissions is the budget capability view.
type BudgetPermissions struct {
	CanView   bool `json:"can_view"`
	CanCreate bool `json:"can_create"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanExport bool `json:"can_export"`
	HasAny    bool `json:"has_any"`
}

// CollaboratorsPermissions combines the generic view capability with the
// structural management flags.
type CollaboratorsPermissions struct {
	CanView bool `json:"can_view"`
	HasAny  bool `json:"has_any"`
	Structural
}

// PhotosPermissions is the photo gallery capability view.
type PhotosPermissions struct {
	CanView   bool `json:"can_view"`
	CanUpload bool `json:"can_upload"`
	CanDelete bool `json:"can_delete"`
	HasAny    bool `json:"has_any"`
}

// Guests derives the guest-domain view.
func (ps *PermissionSet) Guests() GuestsPermissions {
	return GuestsPermissions{
		CanView:   ps.Has(PermGuestsView),
		CanCreate: ps.Has(PermGuestsCreate),
		CanEdit:   ps.Has(PermGuestsEdit),
		CanDelete: ps.Has(PermGuestsDelete),
		CanImport: ps.Has(PermGuestsImport),
		CanExport: ps.Has(PermGuestsExport),
		HasAny:    ps.HasAnyInDomain(DomainGuests),
	}
}

// Tasks derives the task-domain view.
func (ps *PermissionSet) Tasks() TasksPermissions {
	return TasksPermissions{
		CanView:   ps.Has(PermTasksView),
		CanCreate: ps.Has(PermTasksCreate),
		CanEdit:   ps.Has(PermTasksEdit),
		CanDelete: ps.Has(PermTasksDelete),
		CanAssign: ps.Has(PermTasksAssign),
		HasAny:    ps.HasAnyInDomain(DomainTasks),
	}
}

// Budget derives the budget-domain view.
func (ps *PermissionSet) Budget() BudgetPermissions {
	return BudgetPermissions{
		CanView:   ps.Has(PermBudgetView),
		CanCreate: ps.Has(PermBudgetCreate),
		CanEdit:   ps.Has(PermBudgetEdit),
		CanDelete: ps.Has(PermBudgetDelete),
		CanExport: ps.Has(PermBudgetExport),
		HasAny:    ps.HasAnyInDomain(DomainBudget),
	}
}

// Collaborators derives the collaborator-domain view.
func (ps *PermissionSet) Collaborators() CollaboratorsPermissions {
	return CollaboratorsPermissions{
		CanView:    ps.Has(PermCollaboratorsView),
		HasAny:     ps.HasAnyInDomain(DomainCollaborators) || ps.Structural().CanManage,
		Structural: ps.Structural(),
	}
}

// Photos derives the photo-domain view.
func (ps *PermissionSet) Photos() PhotosPermissions {
	return PhotosPermissions{
		CanView:   ps.Has(PermPhotosView),
		CanUpload: ps.Has(PermPhotosUpload),
		CanDelete: ps.Has(PermPhotosDelete),
		HasAny:    ps.HasAnyInDomain(DomainPhotos),
	}
}
