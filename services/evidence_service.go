// services/evidence_service.go
package services

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"

	"gold-ticket-system/models"
	"gold-ticket-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type EvidenceService struct {
	DB *gorm.DB
}

func NewEvidenceService(db *gorm.DB) *EvidenceService {
	return &EvidenceService{DB: db}
}

// UploadEvidence stores a hunter's proof-of-mission image and returns its
// public URL. The payload is the data URL produced by the capture surface;
// the image content is never inspected beyond its declared type. Images go
// to R2 when configured, otherwise to the local uploads directory.
func (s *EvidenceService) UploadEvidence(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid treasure ID"})
	}

	var treasure models.Treasure
	if err := s.DB.First(&treasure, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Treasure not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Image string `json:"image"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	data, ext, contentType, err := decodeImageDataURL(req.Image)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid image payload"})
	}

	key := fmt.Sprintf("evidence/%s/%s%s", slug.Make(treasure.ShopName), uuid.NewString(), ext)

	if utils.R2Enabled() {
		url, err := utils.UploadBytesToR2(data, key, contentType)
		if err != nil {
			log.Printf("R2 upload failed for treasure %s: %v", id, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store evidence"})
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
	}

	if err := utils.SaveBytes(data, utils.GetUploadPath(key)); err != nil {
		log.Printf("Local evidence save failed for treasure %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store evidence"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": "/uploads/" + key})
}

// decodeImageDataURL splits "data:image/png;base64,...." into raw bytes, a
// file extension and the content type.
func decodeImageDataURL(s string) (data []byte, ext, contentType string, err error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", "", errors.New("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", "", errors.New("malformed data URL")
	}
	contentType, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, "", "", errors.New("data URL is not base64 encoded")
	}

	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	default:
		return nil, "", "", fmt.Errorf("unsupported image type %q", contentType)
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", "", err
	}
	return data, ext, contentType, nil
}
