package models

import (
	"time"

	gorm "gorm.io/gorm"
)

// Treasure is one reward drop: a finite stock of discount boxes placed at an
// exact coordinate by a shop so hunters can discover and claim them.
//
// JSON field names follow the wire shape the hunter clients already speak
// (`_id`, `lat`, `name`, `ig`, ...), so older cached snapshots stay readable.
type Treasure struct {
	ID              string  `gorm:"primaryKey;type:uuid" json:"_id"`
	Lat             float64 `gorm:"not null" json:"lat"`
	Lng             float64 `gorm:"not null" json:"lng"`
	PlacementDate   string  `gorm:"not null" json:"placementDate"`
	ShopName        string  `gorm:"not null" json:"name"`
	InstagramHandle string  `json:"ig,omitempty"`
	FacebookHandle  string  `json:"face,omitempty"`
	Mission         string  `gorm:"not null" json:"mission"`
	DiscountPercent string  `gorm:"not null" json:"discount"`
	// TotalBoxes is fixed at creation; RemainingBoxes only ever moves down,
	// one box per successful claim, and stops at zero.
	TotalBoxes     int `gorm:"not null" json:"totalBoxes"`
	RemainingBoxes int `gorm:"not null;index" json:"remainingBoxes"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Exhausted reports whether the treasure has no claimable stock left. An
// exhausted treasure never becomes claimable again.
func (t *Treasure) Exhausted() bool {
	return t.RemainingBoxes <= 0
}

// Redemption is the audit record of one successful claim: which treasure,
// which code was shown to the hunter, and (if the upload went through) the
// proof image. Codes are random and carry no uniqueness constraint.
type Redemption struct {
	ID          string    `gorm:"primaryKey;type:uuid" json:"id"`
	TreasureID  string    `gorm:"index;not null" json:"treasure_id"`
	Code        string    `gorm:"size:8;not null" json:"code"`
	EvidenceURL string    `json:"evidence_url,omitempty"`
	ClaimedAt   time.Time `gorm:"autoCreateTime" json:"claimed_at"`
}
