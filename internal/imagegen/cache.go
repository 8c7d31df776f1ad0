package imagegen

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/wfisher/weatherwise/internal/weather"
)

// Cache provides file-based caching for generated banner images.
type Cache struct {
	dir    string
	maxAge time.Duration
}

// NewCache creates a new image cache in the specified directory.
// Images are refreshed after maxAge to provide variety.
func NewCache(dir string) *Cache {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("could not create image cache directory: %v", err)
	}
	return &Cache{
		dir:    dir,
		maxAge: 7 * 24 * time.Hour,
	}
}

func (c *Cache) path(icon weather.IconKey) string {
	return filepath.Join(c.dir, fmt.Sprintf("banner_%s.png", icon))
}

// Get retrieves a cached image if it exists and is not stale.
func (c *Cache) Get(icon weather.IconKey) ([]byte, bool) {
	path := c.path(icon)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	if time.Since(info.ModTime()) > c.maxAge {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	return data, true
}

// Set stores an image in the cache.
func (c *Cache) Set(icon weather.IconKey, data []byte) error {
	return os.WriteFile(c.path(icon), data, 0644)
}

// GetAny returns any cached image as a fallback while the desired category
// is still being generated.
func (c *Cache) GetAny() ([]byte, bool) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, false
	}

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".png" {
			data, err := os.ReadFile(filepath.Join(c.dir, entry.Name()))
			if err == nil {
				return data, true
			}
		}
	}

	return nil, false
}
