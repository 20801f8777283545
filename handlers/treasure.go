// handlers/treasure_routes.go
package handlers

import (
	"gold-ticket-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTreasureRoutes(app *fiber.App, treasureService *services.TreasureService, evidenceService *services.EvidenceService) {
	api := app.Group("/api")

	// Discovery + placement
	api.Get("/treasures", treasureService.GetActiveTreasures)
	api.Post("/treasures", treasureService.CreateTreasure)

	// Claim = atomic decrement directive
	api.Patch("/treasures/:id", treasureService.ClaimTreasureBox)

	// Redemption ledger + proof images
	api.Post("/treasures/:id/redemptions", treasureService.RecordRedemption)
	api.Get("/treasures/:id/redemptions", treasureService.GetRedemptions)
	api.Post("/treasures/:id/evidence", evidenceService.UploadEvidence)
}
