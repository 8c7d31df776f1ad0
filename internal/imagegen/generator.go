package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/wfisher/weatherwise/internal/weather"
)

// Generator produces weather banner images using OpenAI's image API.
type Generator struct {
	client openai.Client
	model  string
}

// NewGenerator creates a new image generator.
// It reads the OPENAI_API_KEY environment variable for authentication.
func NewGenerator() (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Generator{
		client: client,
		model:  "gpt-image-1",
	}, nil
}

const baseStylePrompt = `Serene watercolor landscape painting of an open countryside under a wide sky.
Style: impressionistic watercolor, soft gradients, muted tones, peaceful and minimal.
Wide panoramic composition suitable for a website header banner.
No text, no people, no buildings, no animals.`

// iconPrompts maps each icon category to the visual elements of its banner.
var iconPrompts = map[weather.IconKey]string{
	weather.IconSunny:        "Clear sunny sky, no clouds, bright warm light, vibrant colors.",
	weather.IconPartlyCloudy: "Scattered clouds drifting across the sky, patches of clear sky visible.",
	weather.IconCloudy:       "Overcast, heavy cloud cover, soft diffused light, muted colors.",
	weather.IconRainy:        "Steady rain falling, grey sky, wet glistening ground, fresh feeling.",
	weather.IconSnowy:        "Falling snow, white blanketed ground, pale cold light.",
	weather.IconWindy:        "Strong wind bending trees and grass, streaked fast-moving clouds.",
	weather.IconThunderstorm: "Dramatic stormy sky, dark threatening clouds, a distant lightning strike.",
	weather.IconFoggy:        "Thick mist over the fields, ethereal atmosphere, soft edges, mysterious.",
	weather.IconGeneric:      "Calm neutral sky, soft even light.",
}

// BuildPrompt creates the image generation prompt for an icon category.
func BuildPrompt(icon weather.IconKey) string {
	desc, ok := iconPrompts[icon]
	if !ok {
		desc = iconPrompts[weather.IconGeneric]
	}
	return fmt.Sprintf("%s\n\nWeather: %s", baseStylePrompt, desc)
}

// Generate creates a banner image for the given icon category.
// Returns the image as PNG bytes.
func (g *Generator) Generate(ctx context.Context, icon weather.IconKey) ([]byte, error) {
	prompt := BuildPrompt(icon)

	log.Printf("generating weather banner for: %s", icon)

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:        g.model,
		Prompt:       prompt,
		Size:         openai.ImageGenerateParamsSize1536x1024,
		Quality:      openai.ImageGenerateParamsQualityLow,
		OutputFormat: openai.ImageGenerateParamsOutputFormatPNG,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no image data returned")
	}

	imageData := resp.Data[0].B64JSON
	if imageData == "" {
		return nil, errors.New("empty image data returned")
	}

	imageBytes, err := base64.StdEncoding.DecodeString(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}

	log.Printf("generated banner for: %s (%d bytes)", icon, len(imageBytes))
	return imageBytes, nil
}
