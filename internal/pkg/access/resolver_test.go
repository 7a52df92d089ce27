package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikolohq/mikolo/internal/pkg/entitlements"
)

type stubPerms struct {
	set   *PermissionSet
	err   error
	calls int
}

func (s *stubPerms) PermissionsFor(_ context.Context, _, _ uint) (*PermissionSet, error) {
	s.calls++
	return s.set, s.err
}

type stubEnts struct {
	snap  *entitlements.Snapshot
	err   error
	calls int
}

func (s *stubEnts) ForEvent(_ context.Context, _ uint) (*entitlements.Snapshot, error) {
	s.calls++
	return s.snap, s.err
}

func (s *stubEnts) Invalidate(_ context.Context, _ uint) error { return nil }

func starterSnapshot() *entitlements.Snapshot {
	spec, _ := entitlements.PlanByType(string(entitlements.PlanStarter))
	return entitlements.SnapshotForPlan(spec)
}

func proSnapshot() *entitlements.Snapshot {
	spec, _ := entitlements.PlanByType(string(entitlements.PlanPro))
	return entitlements.SnapshotForPlan(spec)
}

func TestResolveAdminBypassesSources(t *testing.T) {
	perms := &stubPerms{err: errors.New("db down")}
	ents := &stubEnts{err: errors.New("db down")}
	r := NewResolver(perms, ents)

	view, err := r.Resolve(context.Background(), ActorContext{AccountID: 1, IsAdmin: true}, 42)
	require.NoError(t, err)
	assert.True(t, view.Admin)
	assert.True(t, view.Guests.CanAccess)
	assert.True(t, view.Unlimited)
	assert.Equal(t, 0, perms.calls, "admin path must not hit the permission source")
	assert.Equal(t, 0, ents.calls, "admin path must not hit the entitlement source")
}

func TestResolveFailsClosed(t *testing.T) {
	tests := []struct {
		name  string
		perms *stubPerms
		ents  *stubEnts
	}{
		{
			name:  "permission source error",
			perms: &stubPerms{err: errors.New("timeout")},
			ents:  &stubEnts{snap: starterSnapshot()},
		},
		{
			name:  "entitlement source error",
			perms: &stubPerms{set: FullyGrantedSet()},
			ents:  &stubEnts{err: errors.New("timeout")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.perms, tt.ents)
			view, err := r.Resolve(context.Background(), ActorContext{AccountID: 2}, 42)
			require.Error(t, err)
			require.NotNil(t, view)
			assert.False(t, view.Guests.CanAccess)
			assert.False(t, view.Tasks.CanAccess)
			assert.False(t, view.Controls.CanManage)
			assert.False(t, view.Unlimited)
		})
	}
}

func TestMergeRequiresFeatureAndPermission(t *testing.T) {
	planner := NewSystemRoleSet(Structural{}, RolePlanner)

	tests := []struct {
		name string
		set  *PermissionSet
		snap *entitlements.Snapshot
		want bool
	}{
		{name: "both present", set: planner, snap: starterSnapshot(), want: true},
		{name: "feature without permission", set: EmptyPermissionSet(), snap: starterSnapshot(), want: false},
		{name: "permission without feature", set: planner, snap: entitlements.EmptySnapshot(), want: false},
		{name: "neither", set: EmptyPermissionSet(), snap: entitlements.EmptySnapshot(), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := Merge(tt.set, tt.snap)
			assert.Equal(t, tt.want, view.Guests.CanAccess)
			assert.Equal(t, tt.want, view.Guests.CanView)
		})
	}
}

func TestMergeAdvancedOpsNeedTheirOwnFeature(t *testing.T) {
	planner := NewSystemRoleSet(Structural{}, RolePlanner)

	// Starter grants guest import but not export; the planner role holds both
	// permissions, so the entitlement decides.
	view := Merge(planner, starterSnapshot())
	assert.True(t, view.Guests.CanImport)
	assert.False(t, view.Guests.CanExport)

	view = Merge(planner, proSnapshot())
	assert.True(t, view.Guests.CanExport)
	// Planner holds budget.edit but not budget.export, so pro's feature alone
	// does not grant it.
	assert.False(t, view.Budget.CanExport)
}

func TestMergeCustomRoleCreationGate(t *testing.T) {
	owner := NewSystemRoleSet(ownerStructural(), RoleOwner)

	view := Merge(owner, starterSnapshot())
	assert.False(t, view.Controls.CanCreateCustomRoles, "starter has no custom roles feature")
	assert.True(t, view.Controls.CanManage, "other structural flags pass through")

	view = Merge(owner, proSnapshot())
	assert.True(t, view.Controls.CanCreateCustomRoles)
}

func TestMergeNilInputsDeny(t *testing.T) {
	assert.False(t, Merge(nil, starterSnapshot()).Guests.CanAccess)
	assert.False(t, Merge(FullyGrantedSet(), nil).Guests.CanAccess)
}

func TestAccessViewLimits(t *testing.T) {
	owner := NewSystemRoleSet(ownerStructural(), RoleOwner)

	view := Merge(owner, starterSnapshot())
	assert.Equal(t, int64(300), view.GetLimit(entitlements.LimitGuestsPerEvent))
	assert.Equal(t, int64(0), view.GetLimit("no.such.limit"), "missing limits read as zero")
	assert.False(t, view.IsUnlimited(entitlements.LimitGuestsPerEvent))

	view = Merge(owner, proSnapshot())
	assert.Equal(t, entitlements.Unlimited, view.GetLimit(entitlements.LimitGuestsPerEvent))
	assert.True(t, view.IsUnlimited(entitlements.LimitGuestsPerEvent))
}
