package entitlements

import "strings"

type Plan string

const (
	PlanTrial   Plan = "trial"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
)

// Feature keys are dot-namespaced per product domain. The first segment is
// the domain, used as the access gate for that domain's screens.
const (
	FeatureGuestsManage        = "guests.manage"
	FeatureGuestsImport        = "guests.import"
	FeatureGuestsExport        = "guests.export"
	FeatureTasksManage         = "tasks.manage"
	FeatureTasksAssign         = "tasks.assign"
	FeatureBudgetManage        = "budget.manage"
	FeatureBudgetExport        = "budget.export"
	FeatureCollaboratorsManage = "collaborators.manage"
	FeatureCustomRoles         = "collaborators.custom_roles"
	FeaturePhotosManage        = "photos.manage"
)

const (
	LimitGuestsPerEvent   = "guests.max_per_event"
	LimitTasksPerEvent    = "tasks.max_per_event"
	LimitBudgetCategories = "budget.max_categories"
	LimitCollaborators    = "collaborators.max_per_event"
)

// Unlimited is the stored limit value meaning "no cap".
const Unlimited int64 = -1

// PlanSpec is one entry of the static plan catalog. Prices are UGX (no minor
// units). A zero price means the plan activates without any payment.
type PlanSpec struct {
	Type         Plan
	Name         string
	Price        int64
	Currency     string
	PeriodMonths int
	TrialDays    int
	Features     map[string]bool
	Limits       map[string]int64
}

// RequiresPayment reports whether subscribing to the plan needs a charge.
func (p PlanSpec) RequiresPayment() bool {
	return p.Price > 0
}

var catalog = map[Plan]PlanSpec{
	PlanTrial: {
		Type:      PlanTrial,
		Name:      "Trial",
		Price:     0,
		Currency:  "UGX",
		TrialDays: 14,
		Features: map[string]bool{
			FeatureGuestsManage:        true,
			FeatureTasksManage:         true,
			FeatureBudgetManage:        true,
			FeatureCollaboratorsManage: true,
			FeaturePhotosManage:        true,
		},
		Limits: map[string]int64{
			LimitGuestsPerEvent:   50,
			LimitTasksPerEvent:    25,
			LimitBudgetCategories: 10,
			LimitCollaborators:    2,
		},
	},
	PlanStarter: {
		Type:         PlanStarter,
		Name:         "Starter",
		Price:        30000,
		Currency:     "UGX",
		PeriodMonths: 1,
		Features: map[string]bool{
			FeatureGuestsManage:        true,
			FeatureGuestsImport:        true,
			FeatureTasksManage:         true,
			FeatureTasksAssign:         true,
			FeatureBudgetManage:        true,
			FeatureCollaboratorsManage: true,
			FeaturePhotosManage:        true,
		},
		Limits: map[string]int64{
			LimitGuestsPerEvent:   300,
			LimitTasksPerEvent:    150,
			LimitBudgetCategories: 30,
			LimitCollaborators:    5,
		},
	},
	PlanPro: {
		Type:         PlanPro,
		Name:         "Pro",
		Price:        100000,
		Currency:     "UGX",
		PeriodMonths: 1,
		Features: map[string]bool{
			FeatureGuestsManage:        true,
			FeatureGuestsImport:        true,
			FeatureGuestsExport:        true,
			FeatureTasksManage:         true,
			FeatureTasksAssign:         true,
			FeatureBudgetManage:        true,
			FeatureBudgetExport:        true,
			FeatureCollaboratorsManage: true,
			FeatureCustomRoles:         true,
			FeaturePhotosManage:        true,
		},
		Limits: map[string]int64{
			LimitGuestsPerEvent:   Unlimited,
			LimitTasksPerEvent:    Unlimited,
			LimitBudgetCategories: Unlimited,
			LimitCollaborators:    Unlimited,
		},
	},
}

var planOrder = []Plan{PlanTrial, PlanStarter, PlanPro}

// Plans returns the catalog in display order.
func Plans() []PlanSpec {
	specs := make([]PlanSpec, 0, len(planOrder))
	for _, p := range planOrder {
		specs = append(specs, catalog[p])
	}
	return specs
}

// PlanByType resolves a catalog entry by its (normalized) plan type.
func PlanByType(plan string) (PlanSpec, bool) {
	spec, ok := catalog[Plan(NormalizePlan(plan))]
	return spec, ok
}

// NormalizePlan maps arbitrary input onto a known catalog key, defaulting to
// trial for anything unknown.
func NormalizePlan(plan string) string {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanStarter):
		return string(PlanStarter)
	case string(PlanPro):
		return string(PlanPro)
	default:
		return string(PlanTrial)
	}
}

// PlanRank orders plans for upgrade comparisons.
func PlanRank(plan string) int {
	switch NormalizePlan(plan) {
	case string(PlanPro):
		return 2
	case string(PlanStarter):
		return 1
	default:
		return 0
	}
}
