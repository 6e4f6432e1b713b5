// Package querylayer talks to the live metrics API that runs the warehouse
// queries. Every call goes through a circuit breaker.
package querylayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"intakedash/internal/models"
	"intakedash/internal/services/breaker"
)

// Endpoint paths on the query layer
const (
	PathVolume            = "/api/volume/faxes"
	PathPages             = "/api/volume/pages"
	PathCategories        = "/api/volume/categories"
	PathTimeOfDay         = "/api/volume/time-of-day"
	PathReceivedToOpen    = "/api/cycle-time/received-to-open"
	PathProcessing        = "/api/cycle-time/processing"
	PathStateDistribution = "/api/cycle-time/state-distribution"
	PathByIndividual      = "/api/productivity/by-individual"
	PathDailyAverage      = "/api/productivity/daily-average"
	PathProcessingTime    = "/api/productivity/by-individual-processing-time"
	PathCategoryBreakdown = "/api/productivity/category-breakdown"
	PathPerField          = "/api/accuracy/per-field"
	PathDocumentLevel     = "/api/accuracy/document-level"
	PathAccuracyTrend     = "/api/accuracy/trend"
	PathFieldLevelTrend   = "/api/accuracy/field-level-trend"
	PathSuppliers         = "/api/suppliers/"
	PathOrganizations     = "/api/suppliers/organizations"
	PathAIEnabledCount    = "/api/suppliers/ai-enabled-count"
	PathHealth            = "/health"
)

// ErrUpstream wraps non-success answers from the query layer
var ErrUpstream = errors.New("query layer error")

// Client calls the query layer
type Client struct {
	baseURL string
	http    *breaker.Client
	log     *zap.Logger
}

// New creates a Client for baseURL
func New(baseURL string, http *breaker.Client, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http,
		log:     log,
	}
}

// Params encodes a FilterState the way the query layer expects it
func Params(f models.FilterState) url.Values {
	q := url.Values{}
	q.Set("start_date", f.StartISO())
	q.Set("end_date", f.EndISO())
	q.Set("ai_intake_only", strconv.FormatBool(f.AIOnly))
	if f.SupplierID != "" {
		q.Set("supplier_id", f.SupplierID)
	}
	if f.OrganizationID != "" {
		q.Set("supplier_organization_id", f.OrganizationID)
	}
	return q
}

// Get issues GET path?params and decodes the JSON answer into out
func (c *Client) Get(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("Query layer request failed",
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s: %w", ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", ErrUpstream, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrUpstream, path, err)
	}

	c.log.Debug("Query layer request",
		zap.String("path", path),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Health checks the query layer's health endpoint
func (c *Client) Health(ctx context.Context) error {
	var body map[string]interface{}
	return c.Get(ctx, PathHealth, nil, &body)
}
