package api

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/wfisher/weatherwise/internal/activities"
	"github.com/wfisher/weatherwise/internal/geocode"
	"github.com/wfisher/weatherwise/internal/weather"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeLookupError maps the resolution error taxonomy onto HTTP statuses
// without collapsing the distinctions the caller needs for messaging.
func writeLookupError(w http.ResponseWriter, err error) {
	var notFound *geocode.NotFoundError
	var invalid *weather.InvalidCoordinatesError
	var unavailable *weather.UnavailableError

	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "invalid_coordinates"})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Kind: "not_found"})
	case errors.Is(err, geocode.ErrUnavailable):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Kind: "geocoding_unavailable"})
	case errors.As(err, &unavailable):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Kind: "weather_unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "internal"})
	}
}

// handleWeather serves GET /api/weather?q=<name> or ?lat=<f>&lon=<f>.
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query().Get("q")
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")

	switch {
	case q != "":
		result, err := s.lookups.ByName(r.Context(), q)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case latStr != "" || lonStr != "":
		// Malformed numbers become NaN so the resolver's own validation is
		// the single place coordinates are rejected.
		lat := parseCoord(latStr)
		lon := parseCoord(lonStr)
		result, err := s.lookups.ByCoordinates(r.Context(), lat, lon)
		if err != nil {
			writeLookupError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "q or lat/lon required", Kind: "bad_request"})
	}
}

func parseCoord(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

type activitiesResponse struct {
	Activities  []string `json:"activities"`
	RateLimited bool     `json:"rateLimited,omitempty"`
	Notice      string   `json:"notice,omitempty"`
}

// handleActivities serves GET /api/activities?condition=<label>&location=<label>.
// Suggestion failures are soft: the response is always 200 with an empty
// list and a notice, so the weather flow on the page is never blocked.
func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	condition := r.URL.Query().Get("condition")
	location := r.URL.Query().Get("location")
	if condition == "" || location == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "condition and location required", Kind: "bad_request"})
		return
	}

	if s.suggester == nil {
		writeJSON(w, http.StatusOK, activitiesResponse{Activities: []string{}, Notice: "activity suggestions are not configured"})
		return
	}

	suggestions, err := s.suggester.Suggest(r.Context(), condition, location)
	if err != nil {
		log.Printf("suggest activities for %q: %v", location, err)
		resp := activitiesResponse{Activities: []string{}}
		if errors.Is(err, activities.ErrRateLimited) {
			resp.RateLimited = true
			resp.Notice = "suggestions are briefly unavailable due to high demand"
		} else {
			resp.Notice = "could not fetch activity suggestions at this time"
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	writeJSON(w, http.StatusOK, activitiesResponse{Activities: suggestions})
}

type historyEntry struct {
	LocationLabel string `json:"locationLabel"`
	Query         string `json:"query"`
	QueryKind     string `json:"queryKind"`
	Temperature   *int   `json:"temperature,omitempty"`
	IconKey       string `json:"iconKey,omitempty"`
	LookedUpAt    string `json:"lookedUpAt"`
}

// handleHistory serves GET /api/history?limit=<n>.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.history == nil {
		writeJSON(w, http.StatusOK, []historyEntry{})
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	lookups, err := s.history.RecentLookups(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "internal"})
		return
	}

	entries := make([]historyEntry, 0, len(lookups))
	for _, l := range lookups {
		e := historyEntry{
			LocationLabel: l.LocationLabel,
			Query:         l.Query,
			QueryKind:     l.QueryKind,
			LookedUpAt:    l.LookedUpAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if l.Temperature.Valid {
			temp := int(l.Temperature.Int64)
			e.Temperature = &temp
		}
		if l.IconKey.Valid {
			e.IconKey = l.IconKey.String
		}
		entries = append(entries, e)
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if err := s.tmpl.ExecuteTemplate(w, "index.html", nil); err != nil {
		log.Printf("template error: %v", err)
	}
}
