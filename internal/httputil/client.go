package httputil

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds each provider call. Neither upstream API streams, so
// a hard deadline per request is safe.
const DefaultTimeout = 10 * time.Second

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}
