package randomid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Format is the response shape of a random number endpoint
type Format string

const (
	// FormatCSRNG is a JSON array: [{"status":"success","min":0,"max":9,"random":4}]
	FormatCSRNG Format = "csrng"

	// FormatPlain is a bare decimal integer
	FormatPlain Format = "plain"
)

// maxBodySize caps how much of a response is read
const maxBodySize = 4096

// HTTPConfig configures an HTTPSource
type HTTPConfig struct {
	URL     string
	Format  Format
	Timeout time.Duration

	// RateLimit is the sustained requests per second, Burst the bucket size.
	// A zero RateLimit disables throttling.
	RateLimit float64
	Burst     int
}

// HTTPSource asks a web service for a random number. The range is passed
// as min and max query parameters.
type HTTPSource struct {
	endpoint *url.URL
	format   Format
	client   *http.Client
	limiter  *rate.Limiter
	logger   *logrus.Logger
}

// NewHTTPSource creates an HTTPSource. A nil client gets one with cfg.Timeout.
func NewHTTPSource(cfg HTTPConfig, client *http.Client, logger *logrus.Logger) (*HTTPSource, error) {
	endpoint, err := url.Parse(cfg.URL)
	if err != nil || endpoint.Host == "" {
		return nil, fmt.Errorf("invalid random source URL %q", cfg.URL)
	}

	format := cfg.Format
	if format == "" {
		format = FormatCSRNG
	}
	if format != FormatCSRNG && format != FormatPlain {
		return nil, fmt.Errorf("unsupported random source format %q", cfg.Format)
	}

	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = logrus.New()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &HTTPSource{
		endpoint: endpoint,
		format:   format,
		client:   client,
		limiter:  limiter,
		logger:   logger,
	}, nil
}

// Fetch implements Source
func (s *HTTPSource) Fetch(ctx context.Context, min, max int64) (int64, error) {
	endpoint := s.endpoint.Redacted()

	if err := s.limiter.Wait(ctx); err != nil {
		return 0, connectionError(endpoint, err)
	}

	u := *s.endpoint
	q := u.Query()
	q.Set("min", strconv.FormatInt(min, 10))
	q.Set("max", strconv.FormatInt(max, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, connectionError(endpoint, err)
	}
	req.Header.Set("Accept", "application/json, text/plain")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WithError(err).WithField("endpoint", endpoint).Warn("Random source request failed")
		return 0, connectionError(endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, connectionError(endpoint, err)
	}

	s.logger.WithFields(logrus.Fields{
		"endpoint":    endpoint,
		"status_code": resp.StatusCode,
		"duration":    time.Since(start),
	}).Debug("Random source responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, formatError(endpoint, "unexpected status %d", resp.StatusCode)
	}

	var value int64
	switch s.format {
	case FormatPlain:
		value, err = parsePlain(body)
	default:
		value, err = parseCSRNG(body)
	}
	if err != nil {
		return 0, &UpstreamError{Endpoint: endpoint, Kind: ErrUpstreamFormat, Err: err}
	}

	if value < min || value > max {
		return 0, formatError(endpoint, "value %d outside [%d, %d]", value, min, max)
	}
	return value, nil
}

type csrngResult struct {
	Status string      `json:"status"`
	Random json.Number `json:"random"`
	Reason string      `json:"reason"`
}

func parseCSRNG(body []byte) (int64, error) {
	var results []csrngResult
	if err := json.Unmarshal(body, &results); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("empty response")
	}

	result := results[0]
	if result.Status != "success" {
		return 0, fmt.Errorf("status %q: %s", result.Status, result.Reason)
	}
	value, err := result.Random.Int64()
	if err != nil {
		return 0, fmt.Errorf("random field: %w", err)
	}
	return value, nil
}

func parsePlain(body []byte) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse body: %w", err)
	}
	return value, nil
}
