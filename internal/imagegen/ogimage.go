package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"golang.org/x/image/draw"
)

// OGImageCache caches the generated OG image for a short period.
type OGImageCache struct {
	mu        sync.RWMutex
	data      []byte
	expiresAt time.Time
	cacheTTL  time.Duration
}

// NewOGImageCache creates a new OG image cache with the specified TTL.
func NewOGImageCache(ttl time.Duration) *OGImageCache {
	return &OGImageCache{
		cacheTTL: ttl,
	}
}

// Get returns the cached OG image if still valid.
func (c *OGImageCache) Get() ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

// Set stores a new OG image in the cache.
func (c *OGImageCache) Set(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = data
	c.expiresAt = time.Now().Add(c.cacheTTL)
}

// OGWidth and OGHeight are the standard Open Graph image dimensions.
const (
	OGWidth  = 1200
	OGHeight = 630
)

// GenerateOGImage scales the banner image to Open Graph dimensions with a
// center crop and a gradient at the bottom where clients overlay their own
// text.
func GenerateOGImage(bannerImage []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(bannerImage))
	if err != nil {
		return nil, fmt.Errorf("decode banner image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, OGWidth, OGHeight))

	// Scale to cover, then center the crop.
	srcBounds := src.Bounds()
	srcW, srcH := srcBounds.Dx(), srcBounds.Dy()

	scaleX := float64(OGWidth) / float64(srcW)
	scaleY := float64(OGHeight) / float64(srcH)
	scale := scaleX
	if scaleY > scaleX {
		scale = scaleY
	}

	scaledW := int(float64(srcW) * scale)
	scaledH := int(float64(srcH) * scale)
	offsetX := (scaledW - OGWidth) / 2
	offsetY := (scaledH - OGHeight) / 2

	scaledRect := image.Rect(-offsetX, -offsetY, scaledW-offsetX, scaledH-offsetY)
	draw.CatmullRom.Scale(dst, scaledRect, src, srcBounds, draw.Over, nil)

	drawGradientOverlay(dst)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode OG image: %w", err)
	}

	return buf.Bytes(), nil
}

// drawGradientOverlay darkens the bottom of the image.
func drawGradientOverlay(img *image.RGBA) {
	bounds := img.Bounds()
	gradientHeight := 300

	for y := bounds.Max.Y - gradientHeight; y < bounds.Max.Y; y++ {
		progress := float64(y-(bounds.Max.Y-gradientHeight)) / float64(gradientHeight)
		progress = progress * progress
		alpha := progress * 0.85

		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			orig := img.RGBAAt(x, y)
			orig.R = uint8(float64(orig.R) * (1 - alpha))
			orig.G = uint8(float64(orig.G) * (1 - alpha))
			orig.B = uint8(float64(orig.B) * (1 - alpha))
			img.SetRGBA(x, y, orig)
		}
	}
}

// GenerateFallbackOGImage creates a plain gradient OG image for when no
// banner has been generated yet.
func GenerateFallbackOGImage() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, OGWidth, OGHeight))

	for y := 0; y < OGHeight; y++ {
		progress := float64(y) / float64(OGHeight)
		r := uint8(20 + progress*10)
		g := uint8(20 + progress*15)
		b := uint8(40 + progress*20)
		for x := 0; x < OGWidth; x++ {
			img.SetRGBA(x, y, color.RGBA{r, g, b, 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode fallback OG image: %w", err)
	}

	return buf.Bytes(), nil
}
