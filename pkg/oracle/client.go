// Package oracle provides the client for the normalization oracle service,
// which turns a raw receipt line into a structured best-guess interpretation
// plus a list of similar known products.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/pricetrail/reconcile-cli/internal/resilience"
)

const defaultBaseURL = "http://localhost:8000"

// Client performs normalization requests against the oracle service.
type Client interface {
	Normalize(ctx context.Context, req NormalizeRequest) (*NormalizeResponse, error)
}

// NormalizeRequest is the request body for POST /normalize.
type NormalizeRequest struct {
	Merchant string `json:"merchant"`
	RawName  string `json:"rawName"`
	ItemCode string `json:"itemCode,omitempty"`
	UseAI    bool   `json:"useAI"`
}

// NormalizeResponse is the oracle's structured interpretation of one line.
type NormalizeResponse struct {
	NormalizedName  string           `json:"normalizedName"`
	Brand           string           `json:"brand,omitempty"`
	Category        string           `json:"category,omitempty"`
	ConfidenceScore float64          `json:"confidenceScore"`
	IsDiscount      bool             `json:"isDiscount"`
	IsAdjustment    bool             `json:"isAdjustment"`
	Method          string           `json:"method,omitempty"`
	SimilarProducts []SimilarProduct `json:"similarProducts,omitempty"`
}

// SimilarProduct is one known product the oracle considers close to the
// submitted raw text.
type SimilarProduct struct {
	ProductID      string  `json:"productId"`
	Similarity     float64 `json:"similarity"`
	NormalizedName string  `json:"normalizedName"`
	Merchant       string  `json:"merchant"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default oracle base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an oracle client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Normalize(ctx context.Context, req NormalizeRequest) (*NormalizeResponse, error) {
	if req.RawName == "" {
		return nil, eris.New("oracle: rawName is required")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "oracle: rate limit wait")
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "oracle: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/normalize", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "oracle: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "oracle: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "oracle: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("oracle: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result NormalizeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "oracle: decode response")
	}

	return &result, nil
}
