// services/treasure_service.go
package services

import (
	"errors"
	"log"
	"math"

	"gold-ticket-system/models"
	"gold-ticket-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	errTreasureNotFound  = errors.New("treasure not found")
	errTreasureExhausted = errors.New("treasure exhausted")
)

type TreasureService struct {
	DB *gorm.DB
}

func NewTreasureService(db *gorm.DB) *TreasureService {
	return &TreasureService{DB: db}
}

// CreateTreasure registers a new drop from a placer submission. Stock always
// starts full: remainingBoxes is forced to totalBoxes no matter what the
// client sent.
func (s *TreasureService) CreateTreasure(c *fiber.Ctx) error {
	var req struct {
		Lat           *float64 `json:"lat"`
		Lng           *float64 `json:"lng"`
		PlacementDate string   `json:"placementDate"`
		Name          string   `json:"name"`
		IG            string   `json:"ig"`
		Face          string   `json:"face"`
		Mission       string   `json:"mission"`
		Discount      string   `json:"discount"`
		TotalBoxes    int      `json:"totalBoxes"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	// Basic validation
	if req.Lat == nil || req.Lng == nil ||
		math.IsNaN(*req.Lat) || math.IsNaN(*req.Lng) ||
		math.IsInf(*req.Lat, 0) || math.IsInf(*req.Lng, 0) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "lat and lng are required"})
	}
	if req.PlacementDate == "" || req.Name == "" || req.Mission == "" || req.Discount == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "placementDate, name, mission and discount are required"})
	}
	if req.TotalBoxes < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "totalBoxes must be at least 1"})
	}

	treasure := &models.Treasure{
		ID:              uuid.NewString(),
		Lat:             *req.Lat,
		Lng:             *req.Lng,
		PlacementDate:   req.PlacementDate,
		ShopName:        req.Name,
		InstagramHandle: req.IG,
		FacebookHandle:  req.Face,
		Mission:         req.Mission,
		DiscountPercent: req.Discount,
		TotalBoxes:      req.TotalBoxes,
		RemainingBoxes:  req.TotalBoxes,
	}

	if err := s.DB.Create(treasure).Error; err != nil {
		log.Printf("DB Error creating treasure: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create treasure"})
	}

	return c.Status(fiber.StatusCreated).JSON(treasure)
}

// GetActiveTreasures returns every treasure that still has claimable stock.
// Ordering is unspecified; clients must not depend on it.
func (s *TreasureService) GetActiveTreasures(c *fiber.Ctx) error {
	var treasures []models.Treasure
	if err := s.DB.Where("remaining_boxes > 0").Find(&treasures).Error; err != nil {
		log.Printf("DB Error listing treasures: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load treasures"})
	}
	return c.JSON(treasures)
}

// ClaimTreasureBox handles the decrement directive hunters send:
// {"$inc": {"remainingBoxes": -1}}. The guarded UPDATE below is the only
// place stock changes, so two hunters racing for the last box cannot both
// win and the count can never go negative.
func (s *TreasureService) ClaimTreasureBox(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid treasure ID"})
	}

	var req struct {
		Inc map[string]int `json:"$inc"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(req.Inc) != 1 || req.Inc["remainingBoxes"] != -1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Only a remainingBoxes decrement of 1 is supported"})
	}

	var treasure models.Treasure
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Treasure{}).
			Where("id = ? AND remaining_boxes > 0", id).
			UpdateColumn("remaining_boxes", gorm.Expr("remaining_boxes - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Distinguish a missing record from one that lost the race.
			var exists models.Treasure
			if err := tx.Select("id").First(&exists, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errTreasureNotFound
				}
				return err
			}
			return errTreasureExhausted
		}
		return tx.First(&treasure, "id = ?", id).Error
	})

	switch {
	case errors.Is(err, errTreasureNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Treasure not found"})
	case errors.Is(err, errTreasureExhausted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "All boxes already claimed"})
	case err != nil:
		log.Printf("DB Error claiming treasure %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to claim treasure"})
	}

	return c.JSON(treasure)
}

// RecordRedemption persists the code a hunter was shown after a successful
// claim, so placers can audit their drops. Codes are validated for format
// only; duplicates are allowed.
func (s *TreasureService) RecordRedemption(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid treasure ID"})
	}

	var req struct {
		Code        string `json:"code"`
		EvidenceURL string `json:"evidence_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !utils.ValidRedemptionCode(req.Code) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid redemption code"})
	}

	var treasure models.Treasure
	if err := s.DB.Unscoped().First(&treasure, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Treasure not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	redemption := &models.Redemption{
		ID:          uuid.NewString(),
		TreasureID:  treasure.ID,
		Code:        req.Code,
		EvidenceURL: req.EvidenceURL,
	}
	if err := s.DB.Create(redemption).Error; err != nil {
		log.Printf("DB Error recording redemption for %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to record redemption"})
	}

	return c.Status(fiber.StatusCreated).JSON(redemption)
}

// GetRedemptions lists the redemption events for one treasure, newest first.
func (s *TreasureService) GetRedemptions(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid treasure ID"})
	}

	var redemptions []models.Redemption
	if err := s.DB.Where("treasure_id = ?", id).Order("claimed_at DESC").Find(&redemptions).Error; err != nil {
		log.Printf("DB Error listing redemptions for %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load redemptions"})
	}
	return c.JSON(redemptions)
}
