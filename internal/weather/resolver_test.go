package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/wfisher/weatherwise/internal/geocode"
)

// fakeGeocoder counts calls and serves canned results.
type fakeGeocoder struct {
	calls    atomic.Int64
	byName   *geocode.Location
	byCoords *geocode.Location
	nameErr  error
}

func (f *fakeGeocoder) ResolveByName(ctx context.Context, name string) (*geocode.Location, error) {
	f.calls.Add(1)
	if f.nameErr != nil {
		return nil, f.nameErr
	}
	return f.byName, nil
}

func (f *fakeGeocoder) ResolveByCoordinates(ctx context.Context, lat, lon float64) (*geocode.Location, error) {
	f.calls.Add(1)
	return f.byCoords, nil
}

// weatherServer returns an httptest server echoing the given current block
// and a request counter.
func weatherServer(t *testing.T, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

const londonRain = `{
	"utc_offset_seconds": 0,
	"current": {
		"temperature_2m": 21.6,
		"relative_humidity_2m": 71.4,
		"apparent_temperature": 20.2,
		"weather_code": 61,
		"wind_speed_10m": 10,
		"surface_pressure": 1012.6,
		"visibility": 24140
	},
	"daily": {
		"sunrise": ["2026-08-30T06:15"],
		"sunset": ["2026-08-30T19:48"]
	}
}`

func TestFetchByLocationName(t *testing.T) {
	t.Parallel()
	ts, _ := weatherServer(t, londonRain)

	geo := &fakeGeocoder{byName: &geocode.Location{
		DisplayName:      "London, England",
		CountryCode:      "GB",
		Timezone:         "Europe/London",
		UTCOffsetSeconds: 3600,
		Latitude:         51.5,
		Longitude:        -0.12,
	}}
	r := NewResolverWithBaseURL(geo, ts.URL)

	snap, err := r.FetchByLocationName(context.Background(), "London")
	if err != nil {
		t.Fatalf("FetchByLocationName: %v", err)
	}

	if snap.ConditionLabel != "Rain" {
		t.Errorf("ConditionLabel = %q, want Rain", snap.ConditionLabel)
	}
	if snap.IconKey != IconRainy {
		t.Errorf("IconKey = %q, want Rainy", snap.IconKey)
	}
	if snap.TemperatureCelsius != 22 {
		t.Errorf("TemperatureCelsius = %d, want 22 (rounded from 21.6)", snap.TemperatureCelsius)
	}
	if snap.HumidityPercent != 71 {
		t.Errorf("HumidityPercent = %d, want 71", snap.HumidityPercent)
	}
	if snap.WindSpeedKmh != 10 {
		t.Errorf("WindSpeedKmh = %v, want 10", snap.WindSpeedKmh)
	}
	if snap.LocationLabel != "London, England, GB" {
		t.Errorf("LocationLabel = %q, want %q", snap.LocationLabel, "London, England, GB")
	}
	if snap.FeelsLikeCelsius == nil || *snap.FeelsLikeCelsius != 20 {
		t.Errorf("FeelsLikeCelsius = %v, want 20", snap.FeelsLikeCelsius)
	}
	if snap.PressureHpa == nil || *snap.PressureHpa != 1013 {
		t.Errorf("PressureHpa = %v, want 1013", snap.PressureHpa)
	}
	if snap.VisibilityMeters == nil || *snap.VisibilityMeters != 24140 {
		t.Errorf("VisibilityMeters = %v, want 24140 unrounded", snap.VisibilityMeters)
	}
	if snap.UTCOffsetSeconds != 3600 {
		t.Errorf("UTCOffsetSeconds = %d, want geocoder's 3600", snap.UTCOffsetSeconds)
	}
	if snap.SunriseEpochSeconds == nil {
		t.Fatal("expected sunrise to be set")
	}
	// 2026-08-30T06:15 local at +3600 is 05:15 UTC.
	if got := *snap.SunriseEpochSeconds; got != 1788066900 {
		t.Errorf("SunriseEpochSeconds = %d, want 1788066900", got)
	}
}

func TestFetchByLocationName_GeocoderErrorsPropagate(t *testing.T) {
	t.Parallel()
	ts, calls := weatherServer(t, londonRain)

	notFound := &geocode.NotFoundError{Query: "Nowheresville"}
	geo := &fakeGeocoder{nameErr: notFound}
	r := NewResolverWithBaseURL(geo, ts.URL)

	_, err := r.FetchByLocationName(context.Background(), "Nowheresville")
	var gotNotFound *geocode.NotFoundError
	if !errors.As(err, &gotNotFound) {
		t.Fatalf("expected NotFoundError to propagate unchanged, got %v", err)
	}
	if gotNotFound.Query != "Nowheresville" {
		t.Errorf("Query = %q, want original text", gotNotFound.Query)
	}
	if calls.Load() != 0 {
		t.Errorf("weather provider called %d times after geocoding failure, want 0", calls.Load())
	}

	geo = &fakeGeocoder{nameErr: geocode.ErrUnavailable}
	r = NewResolverWithBaseURL(geo, ts.URL)
	_, err = r.FetchByLocationName(context.Background(), "London")
	if !errors.Is(err, geocode.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable to propagate unchanged, got %v", err)
	}
}

func TestFetchByLocationName_WeatherUnavailable(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	geo := &fakeGeocoder{byName: &geocode.Location{DisplayName: "London", Timezone: "auto"}}
	r := NewResolverWithBaseURL(geo, ts.URL)

	_, err := r.FetchByLocationName(context.Background(), "London")
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if unavailable.Location != "London" {
		t.Errorf("Location = %q, want the display name", unavailable.Location)
	}
}

func TestFetchByCoordinates_InvalidBeforeNetwork(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		lat, lon float64
	}{
		{"latitude above range", 91, 0},
		{"latitude below range", -90.5, 0},
		{"longitude above range", 0, 181},
		{"longitude below range", 0, -180.5},
		{"NaN latitude", math.NaN(), 0},
		{"NaN longitude", 0, math.NaN()},
		{"infinite latitude", math.Inf(1), 0},
		{"infinite longitude", 0, math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, weatherCalls := weatherServer(t, londonRain)
			geo := &fakeGeocoder{}
			r := NewResolverWithBaseURL(geo, ts.URL)

			_, err := r.FetchByCoordinates(context.Background(), tt.lat, tt.lon)

			var invalid *InvalidCoordinatesError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidCoordinatesError, got %v", err)
			}
			if geo.calls.Load() != 0 || weatherCalls.Load() != 0 {
				t.Errorf("network calls made before validation: geo=%d weather=%d, want 0",
					geo.calls.Load(), weatherCalls.Load())
			}
		})
	}
}

func TestFetchByCoordinates_CoordinateLabelFallback(t *testing.T) {
	t.Parallel()
	ts, _ := weatherServer(t, londonRain)

	// Reverse geocoding misses; the fetch must still succeed.
	geo := &fakeGeocoder{byCoords: nil}
	r := NewResolverWithBaseURL(geo, ts.URL)

	snap, err := r.FetchByCoordinates(context.Background(), 48.8566, 2.3522)
	if err != nil {
		t.Fatalf("FetchByCoordinates: %v", err)
	}

	want := fmt.Sprintf("Coords: %.2f, %.2f", 48.8566, 2.3522)
	if snap.LocationLabel != want {
		t.Errorf("LocationLabel = %q, want %q", snap.LocationLabel, want)
	}
}

func TestFetchByCoordinates_ResolvedName(t *testing.T) {
	t.Parallel()
	ts, _ := weatherServer(t, londonRain)

	geo := &fakeGeocoder{byCoords: &geocode.Location{
		DisplayName:      "Paris",
		CountryCode:      "fr",
		Timezone:         "Europe/Paris",
		UTCOffsetSeconds: 7200,
	}}
	r := NewResolverWithBaseURL(geo, ts.URL)

	snap, err := r.FetchByCoordinates(context.Background(), 48.8566, 2.3522)
	if err != nil {
		t.Fatalf("FetchByCoordinates: %v", err)
	}

	if snap.LocationLabel != "Paris, FR" {
		t.Errorf("LocationLabel = %q, want %q", snap.LocationLabel, "Paris, FR")
	}
	if snap.UTCOffsetSeconds != 7200 {
		t.Errorf("UTCOffsetSeconds = %d, want geocoder's 7200", snap.UTCOffsetSeconds)
	}
}

func TestFetchByCoordinates_OffsetFallsBackToProvider(t *testing.T) {
	t.Parallel()
	ts, _ := weatherServer(t, `{
		"utc_offset_seconds": 7200,
		"current": {"temperature_2m": 10, "relative_humidity_2m": 50, "weather_code": 0, "wind_speed_10m": 5},
		"daily": {"sunrise": [], "sunset": []}
	}`)

	geo := &fakeGeocoder{byCoords: nil}
	r := NewResolverWithBaseURL(geo, ts.URL)

	snap, err := r.FetchByCoordinates(context.Background(), 10, 10)
	if err != nil {
		t.Fatalf("FetchByCoordinates: %v", err)
	}
	if snap.UTCOffsetSeconds != 7200 {
		t.Errorf("UTCOffsetSeconds = %d, want provider's 7200", snap.UTCOffsetSeconds)
	}
	if snap.SunriseEpochSeconds != nil || snap.SunsetEpochSeconds != nil {
		t.Error("expected sunrise/sunset to stay unset when absent")
	}
}

func TestNormalizeRounding(t *testing.T) {
	data := &forecastResponse{}
	data.Current.Temperature = 21.6
	data.Current.Humidity = 64.5
	data.Current.WeatherCode = 3
	data.Current.WindSpeed = 14.36

	snap := normalize(data, "Testville", "", 0)

	if snap.TemperatureCelsius != 22 {
		t.Errorf("TemperatureCelsius = %d, want 22", snap.TemperatureCelsius)
	}
	if snap.WindSpeedKmh != 14.4 {
		t.Errorf("WindSpeedKmh = %v, want 14.4", snap.WindSpeedKmh)
	}
	if snap.IconKey != IconCloudy {
		t.Errorf("IconKey = %q, want Cloudy", snap.IconKey)
	}
}

func TestNormalizeWindOverride(t *testing.T) {
	data := &forecastResponse{}
	data.Current.WeatherCode = 3 // Cloudy
	data.Current.WindSpeed = 35

	snap := normalize(data, "Testville", "", 0)
	if snap.IconKey != IconWindy {
		t.Errorf("IconKey = %q, want Windy for cloudy at 35 km/h", snap.IconKey)
	}

	data.Current.WeatherCode = 71 // Snow
	snap = normalize(data, "Testville", "", 0)
	if snap.IconKey != IconSnowy {
		t.Errorf("IconKey = %q, want Snowy untouched by wind override", snap.IconKey)
	}
}

func TestNormalizeUnknownCode(t *testing.T) {
	data := &forecastResponse{}
	data.Current.WeatherCode = 42

	snap := normalize(data, "Testville", "", 0)
	if snap.ConditionLabel != "Unknown" || snap.ConditionDescription != "Unknown weather code" {
		t.Errorf("got (%q, %q), want the catch-all pair", snap.ConditionLabel, snap.ConditionDescription)
	}
	if snap.IconKey != IconGeneric {
		t.Errorf("IconKey = %q, want Generic", snap.IconKey)
	}
}
