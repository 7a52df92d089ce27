package access

import "testing"

func TestSystemRoleUnion(t *testing.T) {
	set := NewSystemRoleSet(Structural{}, RoleVendor, RoleViewer)

	// Viewer contributes the read grants, vendor contributes task editing.
	if !set.Has(PermGuestsView) {
		t.Fatal("expected guests.view from viewer")
	}
	if !set.Has(PermTasksEdit) {
		t.Fatal("expected tasks.edit from vendor")
	}
	if !set.Has(PermPhotosUpload) {
		t.Fatal("expected photos.upload from vendor")
	}
	// Neither role grants guest editing.
	if set.Has(PermGuestsEdit) {
		t.Fatal("union must not invent grants")
	}
	if set.IsCustom() {
		t.Fatal("system role set reported as custom")
	}
}

func TestCustomRoleIsVerbatim(t *testing.T) {
	set := NewCustomRoleSet(Structural{}, []string{PermGuestsView, PermTasksAssign, " Photos.View ", ""})

	if !set.Has(PermGuestsView) || !set.Has(PermTasksAssign) || !set.Has(PermPhotosView) {
		t.Fatal("stored permissions must be granted")
	}
	// No system role expansion: tasks.assign does not pull in tasks.view.
	if set.Has(PermTasksView) {
		t.Fatal("custom role expanded beyond its stored list")
	}
	if !set.IsCustom() {
		t.Fatal("custom role set not reported as custom")
	}
	if set.Structural() != (Structural{}) {
		t.Fatal("custom roles carry no structural flags")
	}
}

func TestHasAnyInDomain(t *testing.T) {
	set := NewCustomRoleSet(Structural{}, []string{PermBudgetView})

	if !set.HasAnyInDomain(DomainBudget) {
		t.Fatal("expected budget domain presence")
	}
	if set.HasAnyInDomain(DomainGuests) {
		t.Fatal("unexpected guests domain presence")
	}
}

func TestNilPermissionSetDeniesEverything(t *testing.T) {
	var set *PermissionSet

	if set.Has(PermGuestsView) || set.HasAnyInDomain(DomainGuests) || set.IsCustom() {
		t.Fatal("nil set must deny")
	}
	if set.Structural() != (Structural{}) {
		t.Fatal("nil set must carry no structural flags")
	}
}

func TestKnownRole(t *testing.T) {
	for _, name := range []string{"owner", "Planner", " vendor ", "VIEWER"} {
		if !KnownRole(name) {
			t.Fatalf("expected %q to be a system role", name)
		}
	}
	if KnownRole("superhero") {
		t.Fatal("unknown role accepted")
	}
}

func TestFullyGrantedSet(t *testing.T) {
	set := FullyGrantedSet()
	for _, perm := range allPermissions {
		if !set.Has(perm) {
			t.Fatalf("missing %q", perm)
		}
	}
	if set.Structural() != ownerStructural() {
		t.Fatal("expected full structural flags")
	}
}

func TestCollaboratorsHasAnyIncludesManagers(t *testing.T) {
	// A manager without the plain view grant still belongs on the
	// collaborators screen.
	set := NewSystemRoleSet(Structural{CanManage: true})
	if !set.Collaborators().HasAny {
		t.Fatal("managers must register in the collaborators domain")
	}
}
