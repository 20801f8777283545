package client

import (
	"context"
	"errors"
	"fmt"

	"gold-ticket-system/cluster"
	"gold-ticket-system/models"
	"gold-ticket-system/utils"

	"go.uber.org/zap"
)

// ClaimState tracks one claim attempt through its lifecycle.
type ClaimState int

const (
	StateIdle ClaimState = iota
	StateClusterSelected
	StateRecordChosen
	StateSubmitting
	StateSettled
)

// Redemption is the outcome of a successful claim: the code the hunter
// shows at the shop, bound to the shop context it was generated under.
type Redemption struct {
	TreasureID  string
	Code        string
	ShopName    string
	Mission     string
	Discount    string
	EvidenceURL string
}

// Coordinator drives the hunter's claim flow against the authoritative
// store. It owns the in-memory working set of active treasures and keeps
// the rendering surface in sync after every state change. It is built for
// a single event loop: methods are not safe for concurrent use, and a
// second submission while one is in flight is rejected with ErrBusy.
type Coordinator struct {
	api      StoreAPI
	renderer Renderer
	evidence EvidenceProvider
	guard    *SubmissionGuard
	logger   *zap.Logger

	treasures []models.Treasure
	clusters  map[string]cluster.Cluster

	state    ClaimState
	selected *models.Treasure
}

func NewCoordinator(api StoreAPI, renderer Renderer, evidence EvidenceProvider, guard *SubmissionGuard, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if guard == nil {
		guard = NewSubmissionGuard(0, nil)
	}
	return &Coordinator{
		api:      api,
		renderer: renderer,
		evidence: evidence,
		guard:    guard,
		logger:   logger,
		clusters: map[string]cluster.Cluster{},
		state:    StateIdle,
	}
}

// Bootstrap seeds the working set from the local snapshot, then replaces it
// with the store's authoritative listing. The warm cache is best effort: a
// missing or broken snapshot just means an empty map until the listing
// resolves.
func (co *Coordinator) Bootstrap(ctx context.Context, snapshot SnapshotStore) error {
	co.setTreasures(ReconcileSnapshot(snapshot, co.logger))
	return co.Refresh(ctx)
}

// Refresh re-lists active treasures from the store and rebuilds every
// cluster.
func (co *Coordinator) Refresh(ctx context.Context) error {
	treasures, err := co.api.ListActive(ctx)
	if err != nil {
		return err
	}
	co.setTreasures(treasures)
	return nil
}

// setTreasures replaces the working set, regroups it, and reconciles the
// rendering surface: clusters that vanished are removed, the rest are
// re-rendered with their current aggregate.
func (co *Coordinator) setTreasures(treasures []models.Treasure) {
	co.treasures = treasures
	previous := co.clusters
	co.clusters = cluster.Group(treasures)

	if co.renderer != nil {
		for key := range previous {
			if _, ok := co.clusters[key]; !ok {
				co.renderer.RemoveCluster(key)
			}
		}
		for _, c := range co.clusters {
			co.renderer.RenderCluster(c)
		}
	}
}

// Treasures returns the current working set.
func (co *Coordinator) Treasures() []models.Treasure {
	return co.treasures
}

// Clusters returns the current discoverable view.
func (co *Coordinator) Clusters() map[string]cluster.Cluster {
	return co.clusters
}

// State returns the current claim-attempt state.
func (co *Coordinator) State() ClaimState {
	return co.state
}

// SetUserPosition forwards the hunter's located position to the map surface.
func (co *Coordinator) SetUserPosition(lat, lng float64) {
	if co.renderer != nil {
		co.renderer.RenderUserPosition(lat, lng)
	}
}

// SelectCluster is the hunter tapping a marker. It picks the record for the
// claim attempt: the first one with stock left, falling back to the
// cluster's first record. The pick is presentational only — the store's
// guarded decrement decides the actual race.
func (co *Coordinator) SelectCluster(key string) (*models.Treasure, error) {
	if co.state == StateSubmitting {
		return nil, ErrBusy
	}

	c, ok := co.clusters[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown cluster %s", ErrNotFound, key)
	}
	co.state = StateClusterSelected

	pick := c.Treasures[0]
	for _, t := range c.Treasures {
		if t.RemainingBoxes > 0 {
			pick = t
			break
		}
	}
	co.selected = &pick
	co.state = StateRecordChosen
	return co.selected, nil
}

// SubmitClaim runs the claim protocol for the chosen record: evidence gate,
// cooldown gate, atomic decrement at the store, local reconciliation, code
// generation, and best-effort persistence of the redemption event. A failed
// decrement is never applied locally and never retried automatically — a
// claim that lost the race for the last box instead triggers a re-list so
// the displayed counts match the store again.
func (co *Coordinator) SubmitClaim(ctx context.Context) (*Redemption, error) {
	if co.state == StateSubmitting {
		return nil, ErrBusy
	}
	if co.selected == nil {
		return nil, fmt.Errorf("%w: no treasure chosen", ErrNotFound)
	}
	if co.evidence == nil || !co.evidence.HasEvidence() {
		return nil, ErrMissingEvidence
	}
	if !co.guard.Allow() {
		return nil, ErrCooldown
	}

	co.state = StateSubmitting
	defer func() { co.state = StateSettled }()

	target := *co.selected

	updated, err := co.api.ClaimOne(ctx, target.ID)
	if err != nil {
		co.logger.Warn("claim rejected by store",
			zap.String("treasure_id", target.ID), zap.Error(err))
		if errors.Is(err, ErrExhausted) || errors.Is(err, ErrNotFound) {
			// the displayed count lost a race with another hunter; re-list
			// so the cluster reflects reality before any retry elsewhere
			if refreshErr := co.Refresh(ctx); refreshErr != nil {
				co.logger.Warn("re-list after failed claim did not complete",
					zap.Error(refreshErr))
			}
		}
		return nil, err
	}

	co.applyClaim(*updated)

	evidenceURL, err := co.api.UploadEvidence(ctx, updated.ID, co.evidence.EvidenceDataURL())
	if err != nil {
		// The claim already settled; a lost proof image is not a reason to
		// withhold the code.
		co.logger.Warn("evidence upload failed",
			zap.String("treasure_id", updated.ID), zap.Error(err))
	}

	code := utils.GenerateRedemptionCode()
	if err := co.api.RecordRedemption(ctx, updated.ID, code, evidenceURL); err != nil {
		co.logger.Warn("redemption event not persisted",
			zap.String("treasure_id", updated.ID), zap.Error(err))
	}

	co.selected = nil
	co.logger.Info("claim settled",
		zap.String("treasure_id", updated.ID),
		zap.Int("remaining_boxes", updated.RemainingBoxes))

	return &Redemption{
		TreasureID:  updated.ID,
		Code:        code,
		ShopName:    updated.ShopName,
		Mission:     updated.Mission,
		Discount:    updated.DiscountPercent,
		EvidenceURL: evidenceURL,
	}, nil
}

// PlaceTreasure validates and submits a placer's new drop, then refreshes
// the working set so the new cluster is discoverable immediately.
func (co *Coordinator) PlaceTreasure(ctx context.Context, submission models.Treasure) (*models.Treasure, error) {
	if submission.ShopName == "" || submission.Mission == "" ||
		submission.DiscountPercent == "" || submission.PlacementDate == "" {
		return nil, fmt.Errorf("%w: missing required field", ErrValidation)
	}
	if submission.TotalBoxes < 1 {
		return nil, fmt.Errorf("%w: totalBoxes must be at least 1", ErrValidation)
	}
	if !co.guard.Allow() {
		return nil, ErrCooldown
	}

	created, err := co.api.Create(ctx, submission)
	if err != nil {
		return nil, err
	}
	if err := co.Refresh(ctx); err != nil {
		co.logger.Warn("refresh after placement failed", zap.Error(err))
	}
	return created, nil
}

// applyClaim folds the store's post-decrement record into the working set.
// The store response is the single source of truth; the cached count is
// never trusted over it. A record that hit zero leaves the active set, and
// regrouping drops its marker if the whole cluster is spent.
func (co *Coordinator) applyClaim(updated models.Treasure) {
	treasures := make([]models.Treasure, 0, len(co.treasures))
	for _, t := range co.treasures {
		if t.ID == updated.ID {
			if updated.Exhausted() {
				continue
			}
			t = updated
		}
		treasures = append(treasures, t)
	}
	co.setTreasures(treasures)
}
