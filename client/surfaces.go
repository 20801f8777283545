package client

import "gold-ticket-system/cluster"

// Renderer is the map surface. The coordinator pushes state at it after
// every grouping or claim change and never reads rendering state back.
type Renderer interface {
	RenderCluster(c cluster.Cluster)
	RemoveCluster(key string)
	RenderUserPosition(lat, lng float64)
}

// EvidenceProvider is the proof-capture surface (file picker, camera). The
// coordinator checks presence before submitting a claim and forwards the
// data URL for storage; it never inspects the content.
type EvidenceProvider interface {
	HasEvidence() bool
	EvidenceDataURL() string
}

// SnapshotStore is the opaque local persistence surface. All validation of
// what it returns lives in ReconcileSnapshot.
type SnapshotStore interface {
	LoadSnapshot() ([]byte, error)
	SaveSnapshot(data []byte) error
}
