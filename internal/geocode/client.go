package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/wfisher/weatherwise/internal/httputil"
	"github.com/wfisher/weatherwise/internal/metrics"
)

const defaultBaseURL = "https://geocoding-api.open-meteo.com/v1/search"

// Client queries the Open-Meteo geocoding API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a geocoding client with the standard HTTP timeout.
func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client:  httputil.NewClient(),
	}
}

// NewClientWithBaseURL is used by tests to point the client at a fake provider.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  httputil.NewClient(),
	}
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Name             string  `json:"name"`
	Admin1           string  `json:"admin1"`
	CountryCode      string  `json:"country_code"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Timezone         string  `json:"timezone"`
	UTCOffsetSeconds int     `json:"utc_offset_seconds"`
}

// ResolveByName resolves a free-text location name to its best match.
// Zero matches fail with *NotFoundError; a transport or status failure fails
// with ErrUnavailable. Both are fatal to the caller.
func (c *Client) ResolveByName(ctx context.Context, name string) (*Location, error) {
	params := url.Values{
		"name":     {name},
		"count":    {"1"},
		"language": {"en"},
		"format":   {"json"},
	}

	result, err := c.search(ctx, params, "forward")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if result == nil {
		return nil, &NotFoundError{Query: name}
	}

	return locationFromResult(result), nil
}

// ResolveByCoordinates reverse-geocodes a coordinate pair. Any provider
// failure, empty result set, or result without a usable place name returns
// (nil, nil): coordinate-based weather lookup proceeds without a friendly
// name, so nothing here is fatal.
func (c *Client) ResolveByCoordinates(ctx context.Context, lat, lon float64) (*Location, error) {
	params := url.Values{
		"latitude":  {fmt.Sprintf("%f", lat)},
		"longitude": {fmt.Sprintf("%f", lon)},
		"count":     {"1"},
		"language":  {"en"},
		"format":    {"json"},
	}

	result, err := c.search(ctx, params, "reverse")
	if err != nil {
		log.Printf("reverse geocode %.4f,%.4f: %v", lat, lon, err)
		return nil, nil
	}
	if result == nil || result.Name == "" {
		return nil, nil
	}

	return locationFromResult(result), nil
}

func (c *Client) search(ctx context.Context, params url.Values, kind string) (*searchResult, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues("geocoding", kind, "error").Inc()
		return nil, fmt.Errorf("%s geocode: %w", kind, err)
	}
	defer resp.Body.Close()

	metrics.ProviderLatency.WithLabelValues("geocoding", kind).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderCalls.WithLabelValues("geocoding", kind, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return nil, fmt.Errorf("%s geocode: status %d", kind, resp.StatusCode)
	}
	metrics.ProviderCalls.WithLabelValues("geocoding", kind, "200").Inc()

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(data.Results) == 0 {
		return nil, nil
	}
	return &data.Results[0], nil
}

func locationFromResult(r *searchResult) *Location {
	return &Location{
		DisplayName:      displayName(r.Name, r.Admin1),
		CountryCode:      r.CountryCode,
		Timezone:         r.Timezone,
		UTCOffsetSeconds: r.UTCOffsetSeconds,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
	}
}
