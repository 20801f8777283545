// Package cluster groups treasures that share an exact coordinate into a
// single discoverable unit with an aggregate box count.
package cluster

import (
	"strconv"

	"gold-ticket-system/models"
)

// Cluster is a derived view over the treasures at one exact coordinate. It
// is never persisted; callers rebuild it from a fresh listing after every
// state change.
type Cluster struct {
	Key            string
	Lat            float64
	Lng            float64
	Treasures      []models.Treasure
	RemainingBoxes int
}

// Key renders a coordinate pair as a stable map key. No snapping or
// tolerance is applied: coordinates differing in the last representable
// digit form distinct clusters.
func Key(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'g', -1, 64) + "," + strconv.FormatFloat(lng, 'g', -1, 64)
}

// Group buckets treasures by exact coordinate and sums their remaining
// stock. Clusters whose aggregate is not positive are dropped, even when
// their member records still exist in storage. The result depends only on
// the set of records passed in, never on their order.
func Group(treasures []models.Treasure) map[string]Cluster {
	groups := make(map[string]Cluster)

	for _, t := range treasures {
		key := Key(t.Lat, t.Lng)
		g, ok := groups[key]
		if !ok {
			g = Cluster{Key: key, Lat: t.Lat, Lng: t.Lng}
		}
		g.Treasures = append(g.Treasures, t)
		g.RemainingBoxes += t.RemainingBoxes
		groups[key] = g
	}

	for key, g := range groups {
		if g.RemainingBoxes <= 0 {
			delete(groups, key)
		}
	}
	return groups
}
