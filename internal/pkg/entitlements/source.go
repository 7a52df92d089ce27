package entitlements

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mikolohq/mikolo/app/models"
	"github.com/mikolohq/mikolo/internal/pkg/cache"
)

// Snapshot is a point-in-time view of the entitlements that apply to an
// event: the owner subscription's feature flags and limits. Collaborators
// inherit this snapshot; their own subscriptions are never consulted.
type Snapshot struct {
	PlanType string           `json:"plan_type"`
	Features map[string]bool  `json:"features"`
	Limits   map[string]int64 `json:"limits"`
}

// Feature reports whether a feature flag is granted. Missing keys deny.
func (s *Snapshot) Feature(key string) bool {
	if s == nil {
		return false
	}
	return s.Features[key]
}

// Limit returns the stored limit, zero when the key is missing.
func (s *Snapshot) Limit(key string) int64 {
	if s == nil {
		return 0
	}
	return s.Limits[key]
}

// IsUnlimited reports whether the stored limit is exactly the unlimited
// sentinel.
func (s *Snapshot) IsUnlimited(key string) bool {
	return s.Limit(key) == Unlimited
}

// EmptySnapshot denies every feature and zeroes every limit.
func EmptySnapshot() *Snapshot {
	return &Snapshot{Features: map[string]bool{}, Limits: map[string]int64{}}
}

// SnapshotForPlan builds a snapshot straight from a catalog entry.
func SnapshotForPlan(spec PlanSpec) *Snapshot {
	features := make(map[string]bool, len(spec.Features))
	for k, v := range spec.Features {
		features[k] = v
	}
	limits := make(map[string]int64, len(spec.Limits))
	for k, v := range spec.Limits {
		limits[k] = v
	}
	return &Snapshot{PlanType: string(spec.Type), Features: features, Limits: limits}
}

// Source resolves and invalidates per-event entitlement snapshots.
type Source interface {
	ForEvent(ctx context.Context, eventID uint) (*Snapshot, error)
	Invalidate(ctx context.Context, eventID uint) error
}

const snapshotCacheTTL = 5 * time.Minute

func snapshotCacheKey(eventID uint) string {
	return fmt.Sprintf("entitlements:event:%d", eventID)
}

type dbSource struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSource creates the GORM+Redis backed entitlement source.
func NewSource(db *gorm.DB) Source {
	return &dbSource{db: db, now: time.Now}
}

func (s *dbSource) ForEvent(ctx context.Context, eventID uint) (*Snapshot, error) {
	if cached, err := cache.Get(snapshotCacheKey(eventID)); err == nil && cached != "" {
		var snap Snapshot
		if err := json.Unmarshal([]byte(cached), &snap); err == nil {
			return &snap, nil
		}
	}

	snap, err := s.load(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(snap); err == nil {
		_ = cache.Set(snapshotCacheKey(eventID), string(b), snapshotCacheTTL)
	}
	return snap, nil
}

func (s *dbSource) load(ctx context.Context, eventID uint) (*Snapshot, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).First(&event, eventID).Error; err != nil {
		return nil, fmt.Errorf("load event %d: %w", eventID, err)
	}

	now := s.now()

	var subs []models.Subscription
	if err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("load subscriptions for event %d: %w", eventID, err)
	}
	for i := range subs {
		sub := &subs[i]
		if !sub.IsAuthoritative(now) {
			continue
		}
		snap := &Snapshot{
			PlanType: NormalizePlan(sub.EffectivePlanType()),
			Features: sub.Features(),
			Limits:   sub.Limits(),
		}
		// Rows written before entitlement snapshotting carry empty maps;
		// fall back to the catalog for those.
		if len(snap.Features) == 0 {
			if spec, ok := PlanByType(snap.PlanType); ok {
				return SnapshotForPlan(spec), nil
			}
		}
		return snap, nil
	}

	var owner models.Account
	if err := s.db.WithContext(ctx).First(&owner, event.OwnerAccountID).Error; err != nil {
		return nil, fmt.Errorf("load owner account %d: %w", event.OwnerAccountID, err)
	}
	if owner.TrialActive(now) {
		return SnapshotForPlan(catalog[PlanTrial]), nil
	}
	return EmptySnapshot(), nil
}

func (s *dbSource) Invalidate(ctx context.Context, eventID uint) error {
	_ = ctx
	return cache.Delete(snapshotCacheKey(eventID))
}
