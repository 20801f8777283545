package client

import (
	"math"
	"path/filepath"
	"testing"

	"gold-ticket-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySnapshot struct {
	data []byte
}

func (m *memorySnapshot) LoadSnapshot() ([]byte, error) { return m.data, nil }
func (m *memorySnapshot) SaveSnapshot(b []byte) error   { m.data = b; return nil }

func TestReconcileSnapshotAdmission(t *testing.T) {
	snapshot := &memorySnapshot{data: []byte(`[
		{"_id":"keep-1","lat":13.75,"lng":100.5,"name":"A","mission":"m","discount":"10","totalBoxes":2,"remainingBoxes":2},
		{"_id":"keep-2","lat":18.79,"lng":98.98,"name":"B","mission":"m","discount":"10","totalBoxes":1,"remainingBoxes":1,"claimed":false},
		{"_id":"drop-claimed","lat":7.88,"lng":98.39,"name":"C","mission":"m","discount":"10","totalBoxes":1,"remainingBoxes":1,"claimed":true},
		{"_id":"drop-no-lat","lng":98.39,"name":"D","mission":"m","discount":"10","totalBoxes":1,"remainingBoxes":1},
		{"_id":"drop-null-lng","lat":7.88,"lng":null,"name":"E","mission":"m","discount":"10","totalBoxes":1,"remainingBoxes":1},
		null
	]`)}

	admitted := ReconcileSnapshot(snapshot, nil)

	require.Len(t, admitted, 2)
	assert.Equal(t, "keep-1", admitted[0].ID)
	assert.Equal(t, "keep-2", admitted[1].ID)
	assert.Equal(t, "A", admitted[0].ShopName)
	assert.Equal(t, 2, admitted[0].RemainingBoxes)
}

func TestReconcileSnapshotSkipsMistypedEntries(t *testing.T) {
	// one entry with a string latitude must not take down its valid sibling
	snapshot := &memorySnapshot{data: []byte(`[
		{"_id":"bad-lat","lat":"13.75","lng":100.5,"name":"A","mission":"m","discount":"10","totalBoxes":1,"remainingBoxes":1},
		{"_id":"keep","lat":18.79,"lng":98.98,"name":"B","mission":"m","discount":"10","totalBoxes":1,"remainingBoxes":1}
	]`)}

	admitted := ReconcileSnapshot(snapshot, nil)

	require.Len(t, admitted, 1)
	assert.Equal(t, "keep", admitted[0].ID)
}

func TestReconcileSnapshotCorruptDegradesToEmpty(t *testing.T) {
	snapshot := &memorySnapshot{data: []byte(`{"not":"an array"`)}
	assert.Empty(t, ReconcileSnapshot(snapshot, nil))

	snapshot = &memorySnapshot{data: []byte(`"just a string"`)}
	assert.Empty(t, ReconcileSnapshot(snapshot, nil))

	snapshot = &memorySnapshot{}
	assert.Empty(t, ReconcileSnapshot(snapshot, nil))
}

func TestAdmissibleRejectsNaN(t *testing.T) {
	nan := math.NaN()
	lat, lng := 13.75, 100.5

	assert.False(t, admissible(&cachedTreasure{Lat: &nan, Lng: &lng}))
	assert.False(t, admissible(&cachedTreasure{Lat: &lat, Lng: &nan}))
	assert.False(t, admissible(nil))
	assert.True(t, admissible(&cachedTreasure{Lat: &lat, Lng: &lng}))
}

func TestSaveWorkingSetRoundTrip(t *testing.T) {
	store := FileSnapshotStore{Path: filepath.Join(t.TempDir(), "treasures.json")}

	// missing file reads as empty, not an error
	assert.Empty(t, ReconcileSnapshot(store, nil))

	treasures := []models.Treasure{
		{ID: "t1", Lat: 13.75, Lng: 100.5, ShopName: "A", Mission: "m",
			DiscountPercent: "10", PlacementDate: "2026-09-01", TotalBoxes: 3, RemainingBoxes: 2},
	}
	SaveWorkingSet(store, treasures, nil)

	admitted := ReconcileSnapshot(store, nil)
	require.Len(t, admitted, 1)
	// serialized records carry no claimed flag, so they re-admit cleanly
	assert.Equal(t, treasures[0].ID, admitted[0].ID)
	assert.Equal(t, treasures[0].RemainingBoxes, admitted[0].RemainingBoxes)
	assert.Equal(t, treasures[0].ShopName, admitted[0].ShopName)
}
