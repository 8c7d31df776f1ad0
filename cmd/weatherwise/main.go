package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/wfisher/weatherwise/internal/activities"
	"github.com/wfisher/weatherwise/internal/api"
	"github.com/wfisher/weatherwise/internal/geocode"
	"github.com/wfisher/weatherwise/internal/imagegen"
	"github.com/wfisher/weatherwise/internal/store"
	"github.com/wfisher/weatherwise/internal/weather"
)

var cli struct {
	Port             string `help:"HTTP server port." default:"8080" env:"PORT"`
	DB               string `help:"Path to SQLite database." default:"data/weatherwise.db" env:"DB_PATH"`
	DefaultLocation  string `help:"Fallback location when a coordinate lookup fails." default:"London" env:"DEFAULT_LOCATION"`
	ImageDir         string `help:"Directory for cached banner images." default:"data/images" env:"IMAGE_DIR"`
	GeocodeCacheSize int    `help:"Resolved locations kept in memory." default:"256"`
	HistoryMaxAge    int    `help:"Days of lookup history to keep." default:"30" env:"HISTORY_MAX_AGE_DAYS"`
	NoHistory        bool   `help:"Disable lookup history."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("weatherwise"),
		kong.Description("Weather lookup with activity suggestions."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	var history *store.Store
	if !cli.NoHistory {
		db, err := sql.Open("sqlite", cli.DB)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()

		db.Exec("PRAGMA journal_mode=WAL")
		db.Exec("PRAGMA busy_timeout=5000")

		history = store.New(db)
		if err := history.Migrate(); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Println("database migrated")
	} else {
		log.Println("lookup history disabled (--no-history)")
	}

	geocoder := geocode.NewCachedResolver(geocode.NewClient(), cli.GeocodeCacheSize)
	resolver := weather.NewResolver(geocoder)
	lookups := api.NewLookupService(resolver, history, cli.DefaultLocation)

	// Suggestions and banner generation need an API key; without one the
	// endpoints degrade rather than the server refusing to start.
	var suggester activities.Suggester
	if s, err := activities.NewOpenAISuggester(); err != nil {
		log.Printf("activity suggestions disabled: %v", err)
	} else {
		suggester = s
	}

	var imageGen *imagegen.Generator
	if gen, err := imagegen.NewGenerator(); err != nil {
		log.Printf("banner generation disabled: %v", err)
	} else {
		imageGen = gen
	}

	server := api.NewServer(api.Config{
		Lookups:   lookups,
		Suggester: suggester,
		History:   history,
		Port:      cli.Port,
		ImageDir:  cli.ImageDir,
		ImageGen:  imageGen,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if history != nil {
		pruner := store.NewPruner(history, time.Duration(cli.HistoryMaxAge)*24*time.Hour)
		go pruner.Run(ctx)
	}

	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
