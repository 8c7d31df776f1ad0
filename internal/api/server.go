// Package api serves the weather lookup application: the JSON API, the
// embedded single-page UI, banner images, and operational endpoints.
package api

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfisher/weatherwise/internal/activities"
	"github.com/wfisher/weatherwise/internal/imagegen"
	"github.com/wfisher/weatherwise/internal/store"
)

//go:embed templates/*
var templateFS embed.FS

type Server struct {
	lookups    *LookupService
	suggester  activities.Suggester
	history    *store.Store
	port       string
	tmpl       *template.Template
	imageCache *imagegen.Cache
	imageGen   *imagegen.Generator
	ogCache    *imagegen.OGImageCache
	genMu      sync.Mutex // Prevents concurrent generation of same banner
}

// Config carries the server's collaborators. Suggester and ImageGen may be
// nil; the corresponding features degrade gracefully.
type Config struct {
	Lookups   *LookupService
	Suggester activities.Suggester
	History   *store.Store
	Port      string
	ImageDir  string
	ImageGen  *imagegen.Generator
}

func NewServer(cfg Config) *Server {
	tmpl := template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

	return &Server{
		lookups:    cfg.Lookups,
		suggester:  cfg.Suggester,
		history:    cfg.History,
		port:       cfg.Port,
		tmpl:       tmpl,
		imageCache: imagegen.NewCache(cfg.ImageDir),
		imageGen:   cfg.ImageGen,
		ogCache:    imagegen.NewOGImageCache(5 * time.Minute),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/weather", s.handleWeather)
	mux.HandleFunc("/api/activities", s.handleActivities)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/banner", s.handleBanner)
	mux.HandleFunc("/og-image", s.handleOGImage)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
