package services_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"gold-ticket-system/handlers"
	"gold-ticket-system/models"
	"gold-ticket-system/services"
	"gold-ticket-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the shared-cache memory DB alive and serializes
	// writers the way a real server pool against Postgres would not need
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Treasure{}, &models.Redemption{}))

	app := fiber.New()
	handlers.SetupTreasureRoutes(app, services.NewTreasureService(db), services.NewEvidenceService(db))
	return app, db
}

func request(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func placeTreasure(t *testing.T, app *fiber.App, lat, lng float64, totalBoxes int) models.Treasure {
	t.Helper()
	status, body := request(t, app, http.MethodPost, "/api/treasures", fiber.Map{
		"lat": lat, "lng": lng,
		"placementDate": "2026-09-01",
		"name":          "Coffee Corner",
		"ig":            "@coffeecorner",
		"mission":       "order any drink and show this screen",
		"discount":      "15",
		"totalBoxes":    totalBoxes,
	})
	require.Equal(t, http.StatusCreated, status, "body: %s", body)

	var created models.Treasure
	require.NoError(t, json.Unmarshal(body, &created))
	return created
}

var claimDirective = fiber.Map{"$inc": fiber.Map{"remainingBoxes": -1}}

func TestCreateTreasureValidation(t *testing.T) {
	app, _ := newTestApp(t)

	cases := []struct {
		name string
		body fiber.Map
	}{
		{"missing lat", fiber.Map{"lng": 100.5, "placementDate": "2026-09-01", "name": "A", "mission": "m", "discount": "10", "totalBoxes": 1}},
		{"missing name", fiber.Map{"lat": 13.75, "lng": 100.5, "placementDate": "2026-09-01", "mission": "m", "discount": "10", "totalBoxes": 1}},
		{"missing mission", fiber.Map{"lat": 13.75, "lng": 100.5, "placementDate": "2026-09-01", "name": "A", "discount": "10", "totalBoxes": 1}},
		{"zero boxes", fiber.Map{"lat": 13.75, "lng": 100.5, "placementDate": "2026-09-01", "name": "A", "mission": "m", "discount": "10", "totalBoxes": 0}},
		{"negative boxes", fiber.Map{"lat": 13.75, "lng": 100.5, "placementDate": "2026-09-01", "name": "A", "mission": "m", "discount": "10", "totalBoxes": -3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := request(t, app, http.MethodPost, "/api/treasures", tc.body)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
}

func TestCreateTreasureStartsWithFullStock(t *testing.T) {
	app, _ := newTestApp(t)

	created := placeTreasure(t, app, 13.75, 100.5, 4)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 4, created.TotalBoxes)
	assert.Equal(t, 4, created.RemainingBoxes)
	assert.Equal(t, "Coffee Corner", created.ShopName)
}

func TestClaimLifecycle(t *testing.T) {
	app, _ := newTestApp(t)

	created := placeTreasure(t, app, 13.75, 100.50, 1)

	// listed while active
	status, body := request(t, app, http.MethodGet, "/api/treasures", nil)
	require.Equal(t, http.StatusOK, status)
	var listed []models.Treasure
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	// first claim takes the last box
	status, body = request(t, app, http.MethodPatch, "/api/treasures/"+created.ID, claimDirective)
	require.Equal(t, http.StatusOK, status, "body: %s", body)
	var claimed models.Treasure
	require.NoError(t, json.Unmarshal(body, &claimed))
	assert.Equal(t, 0, claimed.RemainingBoxes)

	// second claim loses
	status, _ = request(t, app, http.MethodPatch, "/api/treasures/"+created.ID, claimDirective)
	assert.Equal(t, http.StatusConflict, status)

	// exhausted treasures disappear from discovery
	status, body = request(t, app, http.MethodGet, "/api/treasures", nil)
	require.Equal(t, http.StatusOK, status)
	listed = nil
	require.NoError(t, json.Unmarshal(body, &listed))
	assert.Empty(t, listed)
}

func TestClaimUnknownTreasure(t *testing.T) {
	app, _ := newTestApp(t)

	status, _ := request(t, app, http.MethodPatch, "/api/treasures/"+uuid.NewString(), claimDirective)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = request(t, app, http.MethodPatch, "/api/treasures/not-a-uuid", claimDirective)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestClaimRejectsOtherDirectives(t *testing.T) {
	app, _ := newTestApp(t)
	created := placeTreasure(t, app, 13.75, 100.5, 3)

	for _, directive := range []fiber.Map{
		{"$inc": fiber.Map{"remainingBoxes": -2}},
		{"$inc": fiber.Map{"remainingBoxes": 1}},
		{"$inc": fiber.Map{"totalBoxes": -1}},
		{"$set": fiber.Map{"remainingBoxes": 0}},
		{},
	} {
		status, _ := request(t, app, http.MethodPatch, "/api/treasures/"+created.ID, directive)
		assert.Equal(t, http.StatusBadRequest, status, "directive %v must be rejected", directive)
	}

	// stock untouched by the rejected directives
	status, body := request(t, app, http.MethodGet, "/api/treasures", nil)
	require.Equal(t, http.StatusOK, status)
	var listed []models.Treasure
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, 3, listed[0].RemainingBoxes)
}

func TestClaimExactlyNSucceed(t *testing.T) {
	app, db := newTestApp(t)
	created := placeTreasure(t, app, 13.75, 100.5, 5)

	succeeded, conflicted := 0, 0
	for i := 0; i < 8; i++ {
		status, body := request(t, app, http.MethodPatch, "/api/treasures/"+created.ID, claimDirective)
		switch status {
		case http.StatusOK:
			succeeded++
			var claimed models.Treasure
			require.NoError(t, json.Unmarshal(body, &claimed))
			assert.GreaterOrEqual(t, claimed.RemainingBoxes, 0)
			assert.LessOrEqual(t, claimed.RemainingBoxes, claimed.TotalBoxes)
		case http.StatusConflict:
			conflicted++
		default:
			t.Fatalf("unexpected status %d: %s", status, body)
		}
	}

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 3, conflicted)

	var final models.Treasure
	require.NoError(t, db.First(&final, "id = ?", created.ID).Error)
	assert.Equal(t, 0, final.RemainingBoxes, "the floor at zero is enforced server-side")
}

func TestClaimConcurrentRace(t *testing.T) {
	app, db := newTestApp(t)
	created := placeTreasure(t, app, 13.75, 100.5, 3)

	var wg sync.WaitGroup
	statuses := make([]int, 6)
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload, _ := json.Marshal(claimDirective)
			req := httptest.NewRequest(http.MethodPatch, "/api/treasures/"+created.ID, bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			if err != nil {
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, status := range statuses {
		if status == http.StatusOK {
			succeeded++
		}
	}
	assert.Equal(t, 3, succeeded, "exactly as many claims succeed as there were boxes")

	var final models.Treasure
	require.NoError(t, db.First(&final, "id = ?", created.ID).Error)
	assert.Equal(t, 0, final.RemainingBoxes)
}

func TestRecordRedemption(t *testing.T) {
	app, _ := newTestApp(t)
	created := placeTreasure(t, app, 13.75, 100.5, 1)

	code := utils.GenerateRedemptionCode()
	status, body := request(t, app, http.MethodPost, "/api/treasures/"+created.ID+"/redemptions", fiber.Map{
		"code":         code,
		"evidence_url": "/uploads/evidence/coffee-corner/x.png",
	})
	require.Equal(t, http.StatusCreated, status, "body: %s", body)

	var stored models.Redemption
	require.NoError(t, json.Unmarshal(body, &stored))
	assert.Equal(t, created.ID, stored.TreasureID)
	assert.Equal(t, code, stored.Code)

	// malformed codes never enter the ledger
	status, _ = request(t, app, http.MethodPost, "/api/treasures/"+created.ID+"/redemptions", fiber.Map{"code": "O0O0O0O0"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = request(t, app, http.MethodPost, "/api/treasures/"+uuid.NewString()+"/redemptions", fiber.Map{"code": code})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = request(t, app, http.MethodGet, "/api/treasures/"+created.ID+"/redemptions", nil)
	require.Equal(t, http.StatusOK, status)
	var events []models.Redemption
	require.NoError(t, json.Unmarshal(body, &events))
	require.Len(t, events, 1)
	assert.Equal(t, code, events[0].Code)
}

func TestUploadEvidenceLocalFallback(t *testing.T) {
	t.Chdir(t.TempDir())

	app, _ := newTestApp(t)
	created := placeTreasure(t, app, 13.75, 100.5, 1)

	image := "data:image/png;base64,aGVsbG8gdGhlcmU="
	status, body := request(t, app, http.MethodPost, "/api/treasures/"+created.ID+"/evidence", fiber.Map{"image": image})
	require.Equal(t, http.StatusCreated, status, "body: %s", body)

	var result struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Contains(t, result.URL, "/uploads/evidence/coffee-corner/")

	saved, err := os.ReadFile("." + result.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello there", string(saved))

	// junk payloads are rejected before any storage happens
	for _, payload := range []string{"", "hello", "data:image/png,notbase64", "data:text/plain;base64,aGk="} {
		status, _ := request(t, app, http.MethodPost, "/api/treasures/"+created.ID+"/evidence", fiber.Map{"image": payload})
		assert.Equal(t, http.StatusBadRequest, status, "payload %q", payload)
	}
}
