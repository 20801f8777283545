package client

import (
	"encoding/json"
	"errors"
	"math"
	"os"

	"gold-ticket-system/models"

	"go.uber.org/zap"
)

// cachedTreasure is the snapshot wire shape. Coordinates are pointers so a
// missing field is distinguishable from zero, and the legacy claimed flag
// from older snapshots survives decoding. The flag exists only at this
// boundary; admitted records carry no claimed state.
type cachedTreasure struct {
	ID             string   `json:"_id"`
	Lat            *float64 `json:"lat"`
	Lng            *float64 `json:"lng"`
	PlacementDate  string   `json:"placementDate"`
	Name           string   `json:"name"`
	IG             string   `json:"ig,omitempty"`
	Face           string   `json:"face,omitempty"`
	Mission        string   `json:"mission"`
	Discount       string   `json:"discount"`
	TotalBoxes     int      `json:"totalBoxes"`
	RemainingBoxes int      `json:"remainingBoxes"`
	Claimed        *bool    `json:"claimed,omitempty"`
}

// ReconcileSnapshot loads the locally persisted treasure snapshot and prunes
// records that cannot be trusted: structurally broken entries, entries with
// missing or non-finite coordinates, and entries an older client already
// marked claimed. The snapshot is a best-effort warm cache superseded by the
// store's listing, so a snapshot that fails to parse degrades to an empty
// working set and startup never fails on cache content.
func ReconcileSnapshot(store SnapshotStore, logger *zap.Logger) []models.Treasure {
	if logger == nil {
		logger = zap.NewNop()
	}

	raw, err := store.LoadSnapshot()
	if err != nil {
		logger.Warn("treasure snapshot unreadable", zap.Error(err))
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Warn("discarding corrupt treasure snapshot", zap.Error(err))
		return nil
	}

	// admission is per record: one mistyped entry must not take its valid
	// siblings down with it
	admitted := make([]models.Treasure, 0, len(entries))
	for _, entry := range entries {
		var ct *cachedTreasure
		if err := json.Unmarshal(entry, &ct); err != nil {
			continue
		}
		if !admissible(ct) {
			continue
		}
		admitted = append(admitted, models.Treasure{
			ID:              ct.ID,
			Lat:             *ct.Lat,
			Lng:             *ct.Lng,
			PlacementDate:   ct.PlacementDate,
			ShopName:        ct.Name,
			InstagramHandle: ct.IG,
			FacebookHandle:  ct.Face,
			Mission:         ct.Mission,
			DiscountPercent: ct.Discount,
			TotalBoxes:      ct.TotalBoxes,
			RemainingBoxes:  ct.RemainingBoxes,
		})
	}
	if dropped := len(entries) - len(admitted); dropped > 0 {
		logger.Debug("pruned stale snapshot entries", zap.Int("dropped", dropped))
	}
	return admitted
}

// admissible applies the cache admission rules: the entry must be present,
// both coordinates must be present and finite, and the legacy claimed flag
// must be absent or false.
func admissible(ct *cachedTreasure) bool {
	if ct == nil || ct.Lat == nil || ct.Lng == nil {
		return false
	}
	if math.IsNaN(*ct.Lat) || math.IsNaN(*ct.Lng) {
		return false
	}
	return ct.Claimed == nil || !*ct.Claimed
}

// SaveWorkingSet persists the current in-memory records for the next
// startup. Best effort: failures are logged, never surfaced.
func SaveWorkingSet(store SnapshotStore, treasures []models.Treasure, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	data, err := json.Marshal(treasures)
	if err == nil {
		err = store.SaveSnapshot(data)
	}
	if err != nil {
		logger.Warn("treasure snapshot not saved", zap.Error(err))
	}
}

// FileSnapshotStore keeps the snapshot in a single JSON file. A missing
// file reads as an empty snapshot; the last writer wins on overwrite.
type FileSnapshotStore struct {
	Path string
}

func (f FileSnapshotStore) LoadSnapshot() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func (f FileSnapshotStore) SaveSnapshot(data []byte) error {
	return os.WriteFile(f.Path, data, 0o644)
}
