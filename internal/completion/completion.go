// Package completion talks to generative-AI text completion services. A
// Client answers a single user message under a fixed system instruction; no
// conversation history is sent.
package completion

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Provider names accepted by New.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Request is one completion call.
type Request struct {
	SystemInstruction string
	Message           string
}

// Sampling bounds the randomness and length of the generated reply.
type Sampling struct {
	Temperature     float32
	MaxOutputTokens int
}

// Client generates a reply for a single request. An empty string with a nil
// error means the service answered successfully but returned no candidate.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Options configures a Client built by New.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Sampling Sampling
}

// UpstreamError is returned when the service answers with a non-success status.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// New builds the Client selected by opts.Provider.
func New(opts Options) (Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("completion API key is not set")
	}
	switch strings.ToLower(opts.Provider) {
	case "", ProviderGemini:
		c := NewGemini(opts.APIKey, opts.Model, opts.Sampling)
		if opts.BaseURL != "" {
			c.baseURL = strings.TrimRight(opts.BaseURL, "/")
		}
		return c, nil
	case ProviderOpenAI:
		return NewOpenAI(opts.APIKey, opts.BaseURL, opts.Model, opts.Sampling), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", opts.Provider)
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}
