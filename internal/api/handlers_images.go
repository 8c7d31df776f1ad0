package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/wfisher/weatherwise/internal/imagegen"
	"github.com/wfisher/weatherwise/internal/weather"
)

// iconFromQuery returns the icon category named by the ?icon= parameter,
// falling back to Generic for anything outside the enumerated set.
func iconFromQuery(r *http.Request) weather.IconKey {
	icon := weather.IconKey(r.URL.Query().Get("icon"))
	switch icon {
	case weather.IconSunny, weather.IconCloudy, weather.IconPartlyCloudy,
		weather.IconRainy, weather.IconSnowy, weather.IconWindy,
		weather.IconThunderstorm, weather.IconFoggy, weather.IconGeneric:
		return icon
	}
	return weather.IconGeneric
}

// handleBanner serves a banner image for the requested icon category.
// It checks cache first, generates on-demand if needed, and serves any
// cached banner while the right one generates in the background.
func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	icon := iconFromQuery(r)

	if data, ok := s.imageCache.Get(icon); ok {
		s.serveBannerImage(w, data)
		return
	}

	if data, ok := s.imageCache.GetAny(); ok {
		go s.generateAndCache(icon)
		s.serveBannerImage(w, data)
		return
	}

	// No cache - if we can generate, do it synchronously
	if s.imageGen != nil {
		s.genMu.Lock()
		defer s.genMu.Unlock()

		// Double-check cache after acquiring lock
		if data, ok := s.imageCache.Get(icon); ok {
			s.serveBannerImage(w, data)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
		defer cancel()

		log.Printf("generating first banner for: %s", icon)
		data, err := s.imageGen.Generate(ctx, icon)
		if err != nil {
			log.Printf("banner generation failed: %v", err)
			http.Error(w, "Image generation failed", http.StatusServiceUnavailable)
			return
		}

		if err := s.imageCache.Set(icon, data); err != nil {
			log.Printf("failed to cache banner: %v", err)
		}

		s.serveBannerImage(w, data)
		return
	}

	http.Error(w, "Banner image service unavailable", http.StatusServiceUnavailable)
}

func (s *Server) serveBannerImage(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// handleOGImage serves the Open Graph share image: the requested banner
// scaled to OG dimensions, or a plain gradient when no banner exists yet.
func (s *Server) handleOGImage(w http.ResponseWriter, r *http.Request) {
	if data, ok := s.ogCache.Get(); ok {
		s.serveOGImage(w, data)
		return
	}

	icon := iconFromQuery(r)

	var ogImage []byte
	var err error
	if banner, ok := s.imageCache.Get(icon); ok {
		ogImage, err = imagegen.GenerateOGImage(banner)
	} else if banner, ok := s.imageCache.GetAny(); ok {
		ogImage, err = imagegen.GenerateOGImage(banner)
	} else {
		ogImage, err = imagegen.GenerateFallbackOGImage()
	}

	if err != nil {
		log.Printf("og-image: failed to generate: %v", err)
		http.Error(w, "Failed to generate OG image", http.StatusInternalServerError)
		return
	}

	s.ogCache.Set(ogImage)
	s.serveOGImage(w, ogImage)
}

func (s *Server) serveOGImage(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(data)
}

func (s *Server) generateAndCache(icon weather.IconKey) {
	if s.imageGen == nil {
		return
	}

	s.genMu.Lock()
	defer s.genMu.Unlock()

	if _, ok := s.imageCache.Get(icon); ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log.Printf("background generating banner for: %s", icon)
	data, err := s.imageGen.Generate(ctx, icon)
	if err != nil {
		log.Printf("background banner generation failed: %v", err)
		return
	}

	if err := s.imageCache.Set(icon, data); err != nil {
		log.Printf("failed to cache banner: %v", err)
	}
}
