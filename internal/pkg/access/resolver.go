package access

import (
	"context"

	"github.com/mikolohq/mikolo/internal/pkg/entitlements"
)

// ActorContext identifies the requesting actor. The admin flag is resolved
// by the caller's auth layer and passed in explicitly; the resolver never
// reads ambient session state.
type ActorContext struct {
	AccountID uint
	IsAdmin   bool
}

// DomainAccess is the merged entitlement+permission decision for one product
// domain. Fields that do not apply to a domain stay false.
type DomainAccess struct {
	CanAccess bool `json:"can_access"`
	CanView   bool `json:"can_view"`
	CanCreate bool `json:"can_create"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanImport bool `json:"can_import"`
	CanExport bool `json:"can_export"`
	CanAssign bool `json:"can_assign"`
	CanUpload bool `json:"can_upload"`
}

func fullDomainAccess() DomainAccess {
	return DomainAccess{
		CanAccess: true, CanView: true, CanCreate: true, CanEdit: true,
		CanDelete: true, CanImport: true, CanExport: true, CanAssign: true,
		CanUpload: true,
	}
}

// AccessView is the resolved capability set for one actor on one event.
type AccessView struct {
	Admin         bool             `json:"admin"`
	Guests        DomainAccess     `json:"guests"`
	Tasks         DomainAccess     `json:"tasks"`
	Budget        DomainAccess     `json:"budget"`
	Collaborators DomainAccess     `json:"collaborators"`
	Photos        DomainAccess     `json:"photos"`
	Controls      Structural       `json:"controls"`
	PlanType      string           `json:"plan_type"`
	Limits        map[string]int64 `json:"limits"`
	Unlimited     bool             `json:"unlimited"`
}

// GetLimit returns the entitled limit for a key, zero when missing.
func (v *AccessView) GetLimit(key string) int64 {
	if v == nil {
		return 0
	}
	if v.Unlimited {
		return entitlements.Unlimited
	}
	return v.Limits[key]
}

// IsUnlimited reports whether the limit for a key is uncapped.
func (v *AccessView) IsUnlimited(key string) bool {
	return v.GetLimit(key) == entitlements.Unlimited
}

// AdminView grants everything unconditionally.
func AdminView() *AccessView {
	return &AccessView{
		Admin:         true,
		Guests:        fullDomainAccess(),
		Tasks:         fullDomainAccess(),
		Budget:        fullDomainAccess(),
		Collaborators: fullDomainAccess(),
		Photos:        fullDomainAccess(),
		Controls:      ownerStructural(),
		Limits:        map[string]int64{},
		Unlimited:     true,
	}
}

// DeniedView grants nothing. Returned while inputs are unavailable so that
// callers always fail closed.
func DeniedView() *AccessView {
	return &AccessView{Limits: map[string]int64{}}
}

// Resolver merges the entitlement and permission sources into access views.
type Resolver struct {
	perms PermissionSource
	ents  entitlements.Source
}

// NewResolver wires a resolver from its two sources.
func NewResolver(perms PermissionSource, ents entitlements.Source) *Resolver {
	return &Resolver{perms: perms, ents: ents}
}

type permResult struct {
	set *PermissionSet
	err error
}

type entResult struct {
	snap *entitlements.Snapshot
	err  error
}

// Resolve computes the access view for an actor on an event. Administrators
// bypass both sources entirely. For everyone else the two sources are
// fetched concurrently and any failure yields a denied view alongside the
// error, never a grant.
func (r *Resolver) Resolve(ctx context.Context, actor ActorContext, eventID uint) (*AccessView, error) {
	if actor.IsAdmin {
		return AdminView(), nil
	}

	permCh := make(chan permResult, 1)
	entCh := make(chan entResult, 1)
	go func() {
		set, err := r.perms.PermissionsFor(ctx, actor.AccountID, eventID)
		permCh <- permResult{set: set, err: err}
	}()
	go func() {
		snap, err := r.ents.ForEvent(ctx, eventID)
		entCh <- entResult{snap: snap, err: err}
	}()

	perm := <-permCh
	ent := <-entCh
	if perm.err != nil {
		return DeniedView(), perm.err
	}
	if ent.err != nil {
		return DeniedView(), ent.err
	}
	return Merge(perm.set, ent.snap), nil
}

// Merge combines a permission set and an entitlement snapshot into the
// final view. Pure; exposed separately so it can be exercised with fixtures.
func Merge(set *PermissionSet, snap *entitlements.Snapshot) *AccessView {
	if set == nil || snap == nil {
		return DeniedView()
	}

	guests := set.Guests()
	tasks := set.Tasks()
	budget := set.Budget()
	collaborators := set.Collaborators()
	photos := set.Photos()

	guestsGate := snap.Feature(entitlements.FeatureGuestsManage)
	tasksGate := snap.Feature(entitlements.FeatureTasksManage)
	budgetGate := snap.Feature(entitlements.FeatureBudgetManage)
	collabGate := snap.Feature(entitlements.FeatureCollaboratorsManage)
	photosGate := snap.Feature(entitlements.FeaturePhotosManage)

	controls := set.Structural()
	controls.CanCreateCustomRoles = controls.CanCreateCustomRoles &&
		snap.Feature(entitlements.FeatureCustomRoles)

	limits := make(map[string]int64, len(snap.Limits))
	for k, v := range snap.Limits {
		limits[k] = v
	}

	return &AccessView{
		Guests: DomainAccess{
			CanAccess: guestsGate && guests.HasAny,
			CanView:   guestsGate && guests.CanView,
			CanCreate: guestsGate && guests.CanCreate,
			CanEdit:   guestsGate && guests.CanEdit,
			CanDelete: guestsGate && guests.CanDelete,
			CanImport: snap.Feature(entitlements.FeatureGuestsImport) && guests.CanImport,
			CanExport: snap.Feature(entitlements.FeatureGuestsExport) && guests.CanExport,
		},
		Tasks: DomainAccess{
			CanAccess: tasksGate && tasks.HasAny,
			CanView:   tasksGate && tasks.CanView,
			CanCreate: tasksGate && tasks.CanCreate,
			CanEdit:   tasksGate && tasks.CanEdit,
			CanDelete: tasksGate && tasks.CanDelete,
			CanAssign: snap.Feature(entitlements.FeatureTasksAssign) && tasks.CanAssign,
		},
		Budget: DomainAccess{
			CanAccess: budgetGate && budget.HasAny,
			CanView:   budgetGate && budget.CanView,
			CanCreate: budgetGate && budget.CanCreate,
			CanEdit:   budgetGate && budget.CanEdit,
			CanDelete: budgetGate && budget.CanDelete,
			CanExport: snap.Feature(entitlements.FeatureBudgetExport) && budget.CanExport,
		},
		Collaborators: DomainAccess{
			CanAccess: collabGate && collaborators.HasAny,
			CanView:   collabGate && collaborators.CanView,
		},
		Photos: DomainAccess{
			CanAccess: photosGate && photos.HasAny,
			CanView:   photosGate && photos.CanView,
			CanUpload: photosGate && photos.CanUpload,
			CanDelete: photosGate && photos.CanDelete,
		},
		Controls:  controls,
		PlanType:  snap.PlanType,
		Limits:    limits,
	}
}
