package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gold-ticket-system/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// StoreAPI is the slice of the treasure store the coordinator needs.
type StoreAPI interface {
	ListActive(ctx context.Context) ([]models.Treasure, error)
	Create(ctx context.Context, submission models.Treasure) (*models.Treasure, error)
	ClaimOne(ctx context.Context, id string) (*models.Treasure, error)
	RecordRedemption(ctx context.Context, treasureID, code, evidenceURL string) error
	UploadEvidence(ctx context.Context, treasureID, dataURL string) (string, error)
}

// API is a resty-backed implementation of StoreAPI.
type API struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewAPI builds a store client for the given base URL.
func NewAPI(baseURL string, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New()
	httpClient.
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &API{httpClient: httpClient, logger: logger}
}

// ListActive fetches every treasure that still has claimable stock. The
// returned order is whatever the store sent; callers group, they don't sort.
func (a *API) ListActive(ctx context.Context) ([]models.Treasure, error) {
	var treasures []models.Treasure
	resp, err := a.httpClient.R().
		SetContext(ctx).
		SetResult(&treasures).
		Get("/api/treasures")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	return treasures, nil
}

// Create registers a new treasure drop and returns the stored record with
// its assigned id.
func (a *API) Create(ctx context.Context, submission models.Treasure) (*models.Treasure, error) {
	var created models.Treasure
	resp, err := a.httpClient.R().
		SetContext(ctx).
		SetBody(submission).
		SetResult(&created).
		Post("/api/treasures")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	a.logger.Info("treasure placed", zap.String("treasure_id", created.ID))
	return &created, nil
}

// ClaimOne submits the atomic decrement directive for one box. The response
// is authoritative: local counts are reconciled from it, never the other
// way around.
func (a *API) ClaimOne(ctx context.Context, id string) (*models.Treasure, error) {
	var updated models.Treasure
	resp, err := a.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]map[string]int{"$inc": {"remainingBoxes": -1}}).
		SetResult(&updated).
		Patch("/api/treasures/" + id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	return &updated, nil
}

// RecordRedemption persists the code shown to the hunter against the claim.
func (a *API) RecordRedemption(ctx context.Context, treasureID, code, evidenceURL string) error {
	resp, err := a.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{"code": code, "evidence_url": evidenceURL}).
		Post("/api/treasures/" + treasureID + "/redemptions")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.IsError() {
		return statusError(resp)
	}
	return nil
}

// UploadEvidence ships the proof image data URL to the store and returns
// the URL it was stored under.
func (a *API) UploadEvidence(ctx context.Context, treasureID, dataURL string) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	resp, err := a.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{"image": dataURL}).
		SetResult(&result).
		Post("/api/treasures/" + treasureID + "/evidence")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.IsError() {
		return "", statusError(resp)
	}
	return result.URL, nil
}

func statusError(resp *resty.Response) error {
	switch resp.StatusCode() {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrExhausted
	case http.StatusBadRequest:
		return fmt.Errorf("%w: status 400", ErrValidation)
	default:
		return fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode())
	}
}
