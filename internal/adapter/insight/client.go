package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/couchcryptid/precip-map/internal/config"
	"github.com/couchcryptid/precip-map/internal/domain"
	"github.com/couchcryptid/precip-map/internal/observability"
)

// Operation names used in errors, logs, and metric labels.
const (
	opCreate             = "create"
	opFind               = "find"
	opFindAll            = "find_all"
	opDestroy            = "destroy"
	opDailyPrecipitation = "daily_precipitation"
)

// Client implements domain.AssetService over the asset service's HTTP API.
type Client struct {
	appID          string
	appKey         string
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// NewClient creates an asset service client from configuration.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		appID:  cfg.InsightAppID,
		appKey: cfg.InsightAppKey,
		httpClient: &http.Client{
			Timeout: cfg.InsightTimeout,
		},
		baseURL:        strings.TrimRight(cfg.InsightBaseURL, "/"),
		maxRetries:     cfg.InsightMaxRetries,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     5 * time.Second,
		metrics:        metrics,
		logger:         logger,
	}
}

// Create stores a new asset.
func (c *Client) Create(ctx context.Context, asset domain.NewAsset) (domain.Asset, error) {
	var created domain.Asset
	if err := c.do(ctx, opCreate, "", http.MethodPost, "/assets", nil, asset, &created); err != nil {
		return domain.Asset{}, err
	}
	if created.ID == "" {
		return domain.Asset{}, fmt.Errorf("insight %s %q: response has no asset id", opCreate, asset.Description)
	}
	return created, nil
}

// Find fetches one asset.
func (c *Client) Find(ctx context.Context, id domain.AssetID) (domain.Asset, error) {
	var asset domain.Asset
	if err := c.do(ctx, opFind, id, http.MethodGet, assetPath(id), nil, nil, &asset); err != nil {
		return domain.Asset{}, err
	}
	if asset.ID == "" {
		asset.ID = id
	}
	return asset, nil
}

// FindAll lists every asset.
func (c *Client) FindAll(ctx context.Context) ([]domain.Asset, error) {
	var assets []domain.Asset
	if err := c.do(ctx, opFindAll, "", http.MethodGet, "/assets", nil, nil, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// Destroy deletes an asset.
func (c *Client) Destroy(ctx context.Context, id domain.AssetID) error {
	return c.do(ctx, opDestroy, id, http.MethodDelete, assetPath(id), nil, nil, nil)
}

// DailyPrecipitation fetches accumulation statistics for the window.
func (c *Client) DailyPrecipitation(ctx context.Context, id domain.AssetID, window domain.Window) (domain.PrecipitationStats, error) {
	query := url.Values{
		"start": {window.Start.Format(domain.DateLayout)},
		"end":   {window.End.Format(domain.DateLayout)},
	}

	var resp precipitationResponse
	if err := c.do(ctx, opDailyPrecipitation, id, http.MethodGet, assetPath(id)+"/daily-precipitation", query, nil, &resp); err != nil {
		return domain.PrecipitationStats{}, err
	}
	if resp.AccumulationStatistics == nil {
		return domain.PrecipitationStats{}, fmt.Errorf("insight %s asset %s: response has no accumulationStatistics", opDailyPrecipitation, id)
	}
	return *resp.AccumulationStatistics, nil
}

// do runs one logical request, retrying transient failures with
// exponential backoff. out may be nil when the body is not needed.
func (c *Client) do(ctx context.Context, op string, id domain.AssetID, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	defer func() {
		c.metrics.APIDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("insight %s: encode request: %w", op, err)
		}
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	// A create that failed after reaching the server may still have stored
	// the asset, so it is sent once.
	retries := c.maxRetries
	if op == opCreate {
		retries = 0
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(retries)), ctx) //nolint:gosec // maxRetries validated non-negative
	err := backoff.RetryNotify(func() error {
		return c.attempt(ctx, op, id, method, fullURL, payload, out)
	}, b, func(err error, wait time.Duration) {
		c.metrics.APIRetries.WithLabelValues(op).Inc()
		c.logger.Warn("asset service request failed, retrying",
			"operation", op,
			"asset_id", id,
			"wait", wait,
			"error", err,
		)
	})
	if err != nil {
		c.metrics.APIRequests.WithLabelValues(op, "error").Inc()
		return err
	}
	c.metrics.APIRequests.WithLabelValues(op, "success").Inc()
	return nil
}

// attempt performs a single HTTP exchange. Errors that must not be retried
// are wrapped with backoff.Permanent.
func (c *Client) attempt(ctx context.Context, op string, id domain.AssetID, method, fullURL string, payload []byte, out any) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("insight %s: create request: %w", op, err))
	}
	req.SetBasicAuth(c.appID, c.appKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(fmt.Errorf("insight %s: %w", op, ctx.Err()))
		}
		return fmt.Errorf("insight %s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		apiErr := &APIError{
			Operation:  op,
			AssetID:    id,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
		if apiErr.Temporary() {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("insight %s: decode response: %w", op, err))
	}
	return nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.MaxInterval = c.maxBackoff
	b.MaxElapsedTime = 0
	return b
}

func assetPath(id domain.AssetID) string {
	return "/assets/" + url.PathEscape(string(id))
}

// APIError is a non-2xx response from the asset service.
type APIError struct {
	Operation  string
	AssetID    domain.AssetID
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	var sb strings.Builder
	sb.WriteString("insight ")
	sb.WriteString(e.Operation)
	if e.AssetID != "" {
		sb.WriteString(" asset ")
		sb.WriteString(string(e.AssetID))
	}
	fmt.Fprintf(&sb, ": status %d", e.StatusCode)
	if e.Body != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Body)
	}
	return sb.String()
}

// Temporary reports whether the request may succeed if repeated.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsNotFound reports whether err is a 404 from the asset service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Asset service response types.

type precipitationResponse struct {
	AccumulationStatistics *domain.PrecipitationStats `json:"accumulationStatistics"`
}
