// Package activities suggests things to do for a given weather condition and
// location. The suggestion provider is an opaque collaborator: it either
// returns a list of activity strings or fails, and its failures never reach
// the weather resolution flow.
package activities

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/wfisher/weatherwise/internal/htmlutil"
	"github.com/wfisher/weatherwise/internal/metrics"
)

// Suggester is the activity-suggestion capability.
type Suggester interface {
	Suggest(ctx context.Context, condition, location string) ([]string, error)
}

// ErrRateLimited reports a 429 or quota-exceeded failure. Callers give it a
// softer user-facing treatment than a generic failure.
var ErrRateLimited = errors.New("activity suggestions rate limited")

const systemPrompt = `You are a helpful assistant that suggests activities based on the weather condition and location.
Suggest a short list of activities appropriate for the given weather condition and location.
Format the activities as a numbered list, one activity per line, with no extra commentary.`

// OpenAISuggester backs the Suggester capability with OpenAI chat completions.
type OpenAISuggester struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAISuggester creates a suggester.
// It reads the OPENAI_API_KEY environment variable for authentication.
func NewOpenAISuggester() (*OpenAISuggester, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &OpenAISuggester{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

// NewOpenAISuggesterWithBaseURL is used by tests to point the suggester at a
// fake provider. The client's own retry layer is disabled so the suggester's
// backoff is the only retry in play.
func NewOpenAISuggesterWithBaseURL(baseURL string) *OpenAISuggester {
	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)
	return &OpenAISuggester{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}
}

// Suggest returns activity suggestions for the condition and location.
// Transient provider failures are retried briefly; rate limits and client
// errors are not.
func (s *OpenAISuggester) Suggest(ctx context.Context, condition, location string) ([]string, error) {
	userPrompt := fmt.Sprintf("Weather Condition: %s\nLocation: %s", condition, location)

	var content string
	operation := func() error {
		resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: s.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(userPrompt),
			},
		})
		if err != nil {
			var apierr *openai.Error
			if errors.As(err, &apierr) {
				if apierr.StatusCode == http.StatusTooManyRequests || strings.Contains(strings.ToLower(apierr.Message), "quota") {
					return backoff.Permanent(ErrRateLimited)
				}
				if apierr.StatusCode >= http.StatusInternalServerError {
					return fmt.Errorf("suggest activities: %w", err)
				}
				return backoff.Permanent(fmt.Errorf("suggest activities: %w", err))
			}
			return fmt.Errorf("suggest activities: %w", err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("no completion returned"))
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 15 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		if errors.Is(err, ErrRateLimited) {
			metrics.Suggestions.WithLabelValues("rate_limited").Inc()
		} else {
			metrics.Suggestions.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	suggestions := ParseList(content)
	if len(suggestions) == 0 {
		metrics.Suggestions.WithLabelValues("empty").Inc()
		log.Printf("suggest activities: no usable lines in completion for %q", condition)
		return nil, nil
	}

	metrics.Suggestions.WithLabelValues("ok").Inc()
	return suggestions, nil
}

// ParseList extracts activity strings from a model completion. The model is
// asked for a numbered list but occasionally emits bullets or stray markup,
// so each line is stripped of list markers and run through the HTML cleaner.
func ParseList(content string) []string {
	var activities []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(htmlutil.ToText(line))
		line = stripListMarker(line)
		if line == "" {
			continue
		}
		activities = append(activities, line)
	}
	return activities
}

// stripListMarker removes a leading "1.", "2)", "-" or "*" marker.
func stripListMarker(line string) string {
	trimmed := strings.TrimLeft(line, "-* \t")
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i > 0 && i < len(trimmed) && (trimmed[i] == '.' || trimmed[i] == ')') {
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSpace(trimmed)
}
