package quota

import "github.com/mikolohq/mikolo/app/models"

// Quota is the account-level event creation allowance: a base contingent
// plus purchased top-up credits, minus what was already used.
type Quota struct {
	BaseQuota    int64 `json:"base_quota"`
	TopupCredits int64 `json:"topup_credits"`
	Used         int64 `json:"used"`
	IsUnlimited  bool  `json:"is_unlimited"`
}

// Unlimited is reported as the remaining count for uncapped accounts,
// mirroring the limit sentinel used by entitlements.
const Unlimited int64 = -1

// Warning classifies how close an account is to exhausting its quota.
type Warning string

const (
	WarningNone    Warning = ""
	WarningReached Warning = "quota_reached"
	Warning90      Warning = "quota_90"
	Warning80      Warning = "quota_80"
)

// FromAccount builds the quota view for an account.
func FromAccount(a *models.Account) Quota {
	if a == nil {
		return Quota{}
	}
	return Quota{
		BaseQuota:    a.BaseQuota,
		TopupCredits: a.TopupCredits,
		Used:         a.UsedEvents,
		IsUnlimited:  a.IsUnlimited,
	}
}

// Total returns the full allowance including top-ups.
func (q Quota) Total() int64 {
	return q.BaseQuota + q.TopupCredits
}

// Remaining returns how many creations are left, never negative. Uncapped
// accounts report the Unlimited sentinel.
func (q Quota) Remaining() int64 {
	if q.IsUnlimited {
		return Unlimited
	}
	remaining := q.Total() - q.Used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CanCreate reports whether another event may be created.
func (q Quota) CanCreate() bool {
	return q.IsUnlimited || q.Remaining() > 0
}

// Classify returns the first matching warning threshold, checked in
// priority order: reached, then 90%, then 80%.
func (q Quota) Classify() Warning {
	if q.IsUnlimited {
		return WarningNone
	}
	total := q.Total()
	if total <= 0 || q.Used >= total {
		return WarningReached
	}
	if q.Used*10 >= total*9 {
		return Warning90
	}
	if q.Used*5 >= total*4 {
		return Warning80
	}
	return WarningNone
}
