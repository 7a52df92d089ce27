package entitlements

import "testing"

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "starter", want: "starter"},
		{in: " Pro ", want: "pro"},
		{in: "trial", want: "trial"},
		{in: "", want: "trial"},
		{in: "enterprise", want: "trial"},
	}
	for _, tt := range tests {
		if got := NormalizePlan(tt.in); got != tt.want {
			t.Fatalf("NormalizePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlanRank(t *testing.T) {
	if !(PlanRank("trial") < PlanRank("starter") && PlanRank("starter") < PlanRank("pro")) {
		t.Fatal("plan ranks out of order")
	}
	if PlanRank("bogus") != PlanRank("trial") {
		t.Fatal("unknown plans must rank as trial")
	}
}

func TestCatalog(t *testing.T) {
	plans := Plans()
	if len(plans) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(plans))
	}

	trial, ok := PlanByType("trial")
	if !ok || trial.RequiresPayment() {
		t.Fatal("trial must exist and be free")
	}
	if trial.TrialDays == 0 {
		t.Fatal("trial must carry a trial period")
	}

	for _, plan := range []string{"starter", "pro"} {
		spec, ok := PlanByType(plan)
		if !ok {
			t.Fatalf("missing plan %q", plan)
		}
		if !spec.RequiresPayment() {
			t.Fatalf("%s must require payment", plan)
		}
		if spec.Currency != "UGX" || spec.PeriodMonths != 1 {
			t.Fatalf("%s has unexpected billing terms", plan)
		}
	}

	pro, _ := PlanByType("pro")
	for key, limit := range pro.Limits {
		if limit != Unlimited {
			t.Fatalf("pro limit %q = %d, want unlimited", key, limit)
		}
	}
}

func TestSnapshotAccessors(t *testing.T) {
	spec, _ := PlanByType("starter")
	snap := SnapshotForPlan(spec)

	if !snap.Feature(FeatureGuestsManage) {
		t.Fatal("expected granted feature")
	}
	if snap.Feature(FeatureGuestsExport) {
		t.Fatal("starter must not export guests")
	}
	if snap.Feature("no.such.feature") {
		t.Fatal("missing features must deny")
	}
	if snap.Limit("no.such.limit") != 0 {
		t.Fatal("missing limits must read as zero")
	}
	if snap.IsUnlimited(LimitGuestsPerEvent) {
		t.Fatal("starter limits are capped")
	}

	proSpec, _ := PlanByType("pro")
	if !SnapshotForPlan(proSpec).IsUnlimited(LimitGuestsPerEvent) {
		t.Fatal("pro limits are uncapped")
	}
}

func TestNilSnapshotDenies(t *testing.T) {
	var snap *Snapshot
	if snap.Feature(FeatureGuestsManage) || snap.Limit(LimitGuestsPerEvent) != 0 {
		t.Fatal("nil snapshot must deny")
	}
}

func TestEmptySnapshot(t *testing.T) {
	snap := EmptySnapshot()
	if snap.Feature(FeatureGuestsManage) {
		t.Fatal("empty snapshot must deny every feature")
	}
	if snap.Limit(LimitGuestsPerEvent) != 0 {
		t.Fatal("empty snapshot must zero every limit")
	}
}
