// Package weather turns a location query into a normalized snapshot of
// current conditions using the Open-Meteo forecast API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wfisher/weatherwise/internal/geocode"
	"github.com/wfisher/weatherwise/internal/httputil"
	"github.com/wfisher/weatherwise/internal/metrics"
)

const defaultBaseURL = "https://api.open-meteo.com/v1/forecast"

// Snapshot is the normalized result of a weather lookup. Created once per
// successful resolution and never mutated; each caller owns its own value.
type Snapshot struct {
	TemperatureCelsius   int      `json:"temperature"`
	FeelsLikeCelsius     *int     `json:"feelsLike,omitempty"`
	HumidityPercent      int      `json:"humidity"`
	WindSpeedKmh         float64  `json:"windSpeed"`
	PressureHpa          *int     `json:"pressure,omitempty"`
	VisibilityMeters     *float64 `json:"visibility,omitempty"`
	ConditionLabel       string   `json:"condition"`
	ConditionDescription string   `json:"description"`
	IconKey              IconKey  `json:"icon"`
	LocationLabel        string   `json:"location"`
	SunriseEpochSeconds  *int64   `json:"sunrise,omitempty"`
	SunsetEpochSeconds   *int64   `json:"sunset,omitempty"`
	UTCOffsetSeconds     int      `json:"utcOffsetSeconds"`
}

// InvalidCoordinatesError reports a latitude/longitude pair that is not a
// finite number within valid ranges. Raised before any network call.
type InvalidCoordinatesError struct {
	Latitude  float64
	Longitude float64
}

func (e *InvalidCoordinatesError) Error() string {
	return fmt.Sprintf("invalid coordinates: %v, %v", e.Latitude, e.Longitude)
}

// UnavailableError reports that the weather provider call did not succeed.
type UnavailableError struct {
	Location string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("weather unavailable for %s: %v", e.Location, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Resolver fetches and normalizes current conditions. At most two sequential
// network calls happen per lookup (geocode, then weather); the second depends
// on the first so they are never parallelized, and no state is shared between
// concurrent lookups.
type Resolver struct {
	geo     geocode.Resolver
	baseURL string
	client  *http.Client
}

// NewResolver creates a resolver backed by the given geocoder.
func NewResolver(geo geocode.Resolver) *Resolver {
	return &Resolver{
		geo:     geo,
		baseURL: defaultBaseURL,
		client:  httputil.NewClient(),
	}
}

// NewResolverWithBaseURL is used by tests to point the resolver at a fake
// weather provider.
func NewResolverWithBaseURL(geo geocode.Resolver, baseURL string) *Resolver {
	r := NewResolver(geo)
	r.baseURL = baseURL
	return r
}

// FetchByLocationName resolves a free-text location and fetches its current
// conditions. Geocoder failures propagate unchanged so callers keep the
// distinction between "not found" and "unavailable".
func (r *Resolver) FetchByLocationName(ctx context.Context, name string) (*Snapshot, error) {
	loc, err := r.geo.ResolveByName(ctx, name)
	if err != nil {
		return nil, err
	}

	data, err := r.fetchCurrent(ctx, loc.Latitude, loc.Longitude, loc.Timezone)
	if err != nil {
		return nil, &UnavailableError{Location: loc.DisplayName, Err: err}
	}

	offset := loc.UTCOffsetSeconds
	if offset == 0 {
		offset = data.UTCOffsetSeconds
	}
	return normalize(data, loc.DisplayName, loc.CountryCode, offset), nil
}

// FetchByCoordinates fetches current conditions for a coordinate pair.
// Reverse geocoding is attempted for a friendly label but is never fatal; on
// a miss the snapshot is labeled with the coordinates themselves.
func (r *Resolver) FetchByCoordinates(ctx context.Context, lat, lon float64) (*Snapshot, error) {
	if !validCoordinates(lat, lon) {
		return nil, &InvalidCoordinatesError{Latitude: lat, Longitude: lon}
	}

	displayName := fmt.Sprintf("Coords: %.2f, %.2f", lat, lon)
	countryCode := ""
	timezone := "auto"
	offset := 0

	loc, err := r.geo.ResolveByCoordinates(ctx, lat, lon)
	if err == nil && loc != nil {
		displayName = loc.DisplayName
		countryCode = loc.CountryCode
		timezone = loc.Timezone
		offset = loc.UTCOffsetSeconds
	}

	data, err := r.fetchCurrent(ctx, lat, lon, timezone)
	if err != nil {
		return nil, &UnavailableError{Location: displayName, Err: err}
	}

	if offset == 0 {
		offset = data.UTCOffsetSeconds
	}
	return normalize(data, displayName, countryCode, offset), nil
}

func validCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

type forecastResponse struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Current          struct {
		Temperature         float64  `json:"temperature_2m"`
		Humidity            float64  `json:"relative_humidity_2m"`
		ApparentTemperature *float64 `json:"apparent_temperature"`
		WeatherCode         int      `json:"weather_code"`
		WindSpeed           float64  `json:"wind_speed_10m"`
		SurfacePressure     *float64 `json:"surface_pressure"`
		Visibility          *float64 `json:"visibility"`
	} `json:"current"`
	Daily struct {
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

func (r *Resolver) fetchCurrent(ctx context.Context, lat, lon float64, timezone string) (*forecastResponse, error) {
	params := url.Values{
		"latitude":        {fmt.Sprintf("%f", lat)},
		"longitude":       {fmt.Sprintf("%f", lon)},
		"current":         {"temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m,surface_pressure,visibility"},
		"daily":           {"sunrise,sunset"},
		"wind_speed_unit": {"kmh"},
		"timezone":        {timezone},
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		metrics.ProviderCalls.WithLabelValues("weather", "current", "error").Inc()
		return nil, fmt.Errorf("fetch current: %w", err)
	}
	defer resp.Body.Close()

	metrics.ProviderLatency.WithLabelValues("weather", "current").Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderCalls.WithLabelValues("weather", "current", fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return nil, fmt.Errorf("fetch current: status %d", resp.StatusCode)
	}
	metrics.ProviderCalls.WithLabelValues("weather", "current", "200").Inc()

	var data forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &data, nil
}

func normalize(data *forecastResponse, displayName, countryCode string, utcOffsetSeconds int) *Snapshot {
	label, description := DescribeCode(data.Current.WeatherCode)

	windSpeed := math.Round(data.Current.WindSpeed*10) / 10
	icon := applyWindOverride(IconForCode(data.Current.WeatherCode), windSpeed)

	locationLabel := displayName
	if countryCode != "" {
		locationLabel += ", " + strings.ToUpper(countryCode)
	}

	snap := &Snapshot{
		TemperatureCelsius:   int(math.Round(data.Current.Temperature)),
		HumidityPercent:      int(math.Round(data.Current.Humidity)),
		WindSpeedKmh:         windSpeed,
		VisibilityMeters:     data.Current.Visibility,
		ConditionLabel:       label,
		ConditionDescription: description,
		IconKey:              icon,
		LocationLabel:        locationLabel,
		UTCOffsetSeconds:     utcOffsetSeconds,
	}

	if data.Current.ApparentTemperature != nil {
		feels := int(math.Round(*data.Current.ApparentTemperature))
		snap.FeelsLikeCelsius = &feels
	}
	if data.Current.SurfacePressure != nil {
		pressure := int(math.Round(*data.Current.SurfacePressure))
		snap.PressureHpa = &pressure
	}

	if len(data.Daily.Sunrise) > 0 {
		snap.SunriseEpochSeconds = localTimeToEpoch(data.Daily.Sunrise[0], utcOffsetSeconds)
	}
	if len(data.Daily.Sunset) > 0 {
		snap.SunsetEpochSeconds = localTimeToEpoch(data.Daily.Sunset[0], utcOffsetSeconds)
	}

	return snap
}

// localTimeToEpoch converts a provider local wall-time string to UTC epoch
// seconds using the location's UTC offset. Unparseable values stay unset.
func localTimeToEpoch(value string, utcOffsetSeconds int) *int64 {
	var t time.Time
	var err error
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05"} {
		t, err = time.Parse(layout, value)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil
	}
	epoch := t.Unix() - int64(utcOffsetSeconds)
	return &epoch
}
