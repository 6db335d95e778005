// Package summarizer produces short summaries of note text.
package summarizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

const (
	// DefaultMaxLength is the summary length used when callers pass none.
	DefaultMaxLength = 128
	// MaxInputTokens bounds the text sent to the summarization model.
	MaxInputTokens = 1024
	// passthroughRunes is the length below which text is returned unchanged.
	passthroughRunes = 30
)

// Summarizer condenses text to at most maxLength units.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLength int) (string, error)
}

// prepare trims text and reports whether it is short enough to return as is.
func prepare(text string) (string, bool) {
	stripped := strings.TrimSpace(text)
	if stripped == "" {
		return "", true
	}
	return stripped, utf8.RuneCountInString(stripped) < passthroughRunes
}

var (
	codec     tokenizer.Codec
	codecErr  error
	codecOnce sync.Once
)

func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// Truncate cuts text to at most maxTokens tokens. If no tokenizer is
// available the text is returned unchanged.
func Truncate(text string, maxTokens int) string {
	enc, err := getCodec()
	if err != nil {
		log.Warn().Err(err).Msg("Tokenizer unavailable, summarizer input not truncated")
		return text
	}
	ids, _, err := enc.Encode(text)
	if err != nil || len(ids) <= maxTokens {
		return text
	}
	out, err := enc.Decode(ids[:maxTokens])
	if err != nil {
		return text
	}
	return out
}

// Config configures an OpenAI-compatible chat completions endpoint used for
// abstractive summaries.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// Client summarizes through a chat completions endpoint.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewClient creates a summarization client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "Summarize the user's note in the note's own language. " +
	"Reply with the summary only, at most %d tokens."

// Summarize returns an abstractive summary of text.
func (c *Client) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	stripped, short := prepare(text)
	if short {
		return stripped, nil
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPrompt, maxLength)},
			{Role: "user", Content: Truncate(stripped, MaxInputTokens)},
		},
		MaxTokens: maxLength,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarize request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarizer returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("summarizer error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("summarizer returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// Lead is an extractive summarizer that keeps leading sentences up to
// maxLength runes. It is used when no model endpoint is configured.
type Lead struct{}

// Summarize returns the leading sentences of text.
func (Lead) Summarize(_ context.Context, text string, maxLength int) (string, error) {
	stripped, short := prepare(text)
	if short {
		return stripped, nil
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	var b strings.Builder
	runes := 0
	for _, sentence := range splitSentences(stripped) {
		n := utf8.RuneCountInString(sentence)
		sep := 0
		if b.Len() > 0 {
			sep = 1
		}
		if runes+sep+n > maxLength {
			break
		}
		if sep == 1 {
			b.WriteByte(' ')
		}
		b.WriteString(sentence)
		runes += sep + n
	}
	if b.Len() > 0 {
		return b.String(), nil
	}

	// First sentence alone is too long: cut on a rune boundary.
	r := []rune(stripped)
	if len(r) > maxLength {
		r = r[:maxLength]
	}
	return strings.TrimSpace(string(r)), nil
}

func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i, r := range text {
		switch r {
		case '.', '!', '?', '\n', '。':
			end := i + utf8.RuneLen(r)
			if s := strings.TrimSpace(text[start:end]); s != "" {
				sentences = append(sentences, s)
			}
			start = end
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// WithFallback returns a summarizer that uses primary and falls back to
// secondary when primary fails.
func WithFallback(primary, secondary Summarizer) Summarizer {
	return fallback{primary: primary, secondary: secondary}
}

type fallback struct {
	primary, secondary Summarizer
}

func (f fallback) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	out, err := f.primary.Summarize(ctx, text, maxLength)
	if err == nil {
		return out, nil
	}
	log.Warn().Err(err).Msg("Summarizer failed, using extractive fallback")
	return f.secondary.Summarize(ctx, text, maxLength)
}
