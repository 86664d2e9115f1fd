package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wangyizhang/eco-weather-service/internal/observability"
)

// WeatherClient fetches the raw weekly forecast for a canonical region name.
type WeatherClient interface {
	FetchWeekly(ctx context.Context, locationName string) (RawLocation, error)
}

var (
	// ErrInvalidAPIKey is returned at construction or when the CWA rejects
	// the configured credential.
	ErrInvalidAPIKey = errors.New("invalid API key")
	// ErrUpstreamFailure covers network failures and non-success upstream
	// statuses. Surfaced to callers as a 500 with details attached.
	ErrUpstreamFailure = errors.New("upstream failure")
	// ErrMalformedPayload is returned when the response lacks the expected
	// records.locations[0].location[0] structure.
	ErrMalformedPayload = errors.New("malformed upstream payload")
)

// weatherElements is the fixed element list requested from the weekly
// dataset: condition, 12h rain probability, temperature, humidity, wind.
const weatherElements = "Wx,PoP12h,T,RH,WS"

// CWAClient calls the CWA open-data datastore endpoint for the weekly
// (12-hourly, 7-day) county forecast dataset. Failures propagate immediately:
// no retry, no timeout beyond the transport's.
type CWAClient struct {
	apiKey  string
	apiURL  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewCWAClient creates a CWAClient for the given dataset URL. timeout applies
// to the whole HTTP exchange.
func NewCWAClient(apiKey, apiURL string, timeout time.Duration) (*CWAClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	return &CWAClient{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetCircuitBreaker installs an optional breaker around upstream calls. When
// the breaker is open, FetchWeekly fails fast with ErrUpstreamFailure without
// touching the network.
func (c *CWAClient) SetCircuitBreaker(cb *gobreaker.CircuitBreaker) {
	c.breaker = cb
}

// RawElementValue is one measured value inside a time slot.
type RawElementValue struct {
	Value string `json:"value"`
}

// RawTime is one time window of a weather element's series.
type RawTime struct {
	StartTime    string            `json:"startTime"`
	EndTime      string            `json:"endTime"`
	ElementValue []RawElementValue `json:"elementValue"`
}

// RawElement is one named attribute-major series (e.g. Wx, PoP12h).
type RawElement struct {
	ElementName string    `json:"elementName"`
	Time        []RawTime `json:"time"`
}

// RawLocation is the forecast content for a single location. The CWA serves
// this structure with lowercase or capitalized keys depending on dataset
// revision; encoding/json's case-insensitive field fallback accepts both.
type RawLocation struct {
	LocationName   string       `json:"locationName"`
	WeatherElement []RawElement `json:"weatherElement"`
}

type rawLocations struct {
	Location []RawLocation `json:"location"`
}

type rawRecords struct {
	Locations []rawLocations `json:"locations"`
}

type rawResponse struct {
	Records rawRecords `json:"records"`
}

// FetchWeekly fetches the raw weekly forecast for locationName and returns
// the first location payload. sort=time asks the upstream for deterministic
// time ordering of every element series.
func (c *CWAClient) FetchWeekly(ctx context.Context, locationName string) (RawLocation, error) {
	if c.breaker == nil {
		return c.callAPI(ctx, locationName)
	}
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.callAPI(ctx, locationName)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return RawLocation{}, fmt.Errorf("%w: circuit breaker open", ErrUpstreamFailure)
		}
		return RawLocation{}, err
	}
	return result.(RawLocation), nil
}

func (c *CWAClient) callAPI(ctx context.Context, locationName string) (RawLocation, error) {
	start := time.Now()

	req, err := c.buildRequest(ctx, locationName)
	if err != nil {
		observability.CWAAPICallsTotal.WithLabelValues("error").Inc()
		return RawLocation{}, fmt.Errorf("build request: %w", err)
	}

	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.CWAAPICallsTotal.WithLabelValues("error").Inc()
		observability.CWAAPIDuration.WithLabelValues("error").Observe(duration)
		return RawLocation{}, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.CWAAPICallsTotal.WithLabelValues(status).Inc()
	observability.CWAAPIDuration.WithLabelValues(status).Observe(duration)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return RawLocation{}, fmt.Errorf("%w: HTTP %d", ErrInvalidAPIKey, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return RawLocation{}, fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawLocation{}, fmt.Errorf("%w: read response body: %v", ErrUpstreamFailure, err)
	}

	var apiResp rawResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return RawLocation{}, fmt.Errorf("%w: parse response: %v", ErrMalformedPayload, err)
	}

	if len(apiResp.Records.Locations) == 0 || len(apiResp.Records.Locations[0].Location) == 0 {
		return RawLocation{}, fmt.Errorf("%w: no location data for %s", ErrMalformedPayload, locationName)
	}
	return apiResp.Records.Locations[0].Location[0], nil
}

func (c *CWAClient) buildRequest(ctx context.Context, locationName string) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("Authorization", c.apiKey)
	params.Set("locationName", locationName)
	params.Set("elementName", weatherElements)
	params.Set("sort", "time")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func extractCorrelationID(ctx context.Context) string {
	if v := ctx.Value("correlation_id"); v != nil {
		if corrID, ok := v.(string); ok {
			return corrID
		}
	}
	return ""
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == 429:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}
