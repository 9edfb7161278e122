package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxSummaryTokens bounds the generated summary.
const maxSummaryTokens = 256

// Client is a minimal Ollama-compatible generate client used to write
// article summaries.
type Client struct {
	url   string
	model string
	hc    *http.Client
	log   *slog.Logger
}

// NewClient creates a new client. If httpClient is nil, a default with timeout is used.
func NewClient(url, model string, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{url: url, model: model, hc: httpClient, log: log}
}

type generateRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
	Stream    bool   `json:"stream"`
}

// generateResponse covers the Ollama shape plus the openai-like one some
// proxies return.
type generateResponse struct {
	Response string `json:"response"`
	Text     string `json:"text"`
	Choices  []struct {
		Text    string `json:"text"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (r generateResponse) summary() string {
	if r.Response != "" {
		return r.Response
	}
	if r.Text != "" {
		return r.Text
	}
	if len(r.Choices) > 0 {
		if r.Choices[0].Text != "" {
			return r.Choices[0].Text
		}
		return r.Choices[0].Message.Content
	}
	return ""
}

// Summarize returns a short summary of an article. The request is sent
// non-streaming.
func (c *Client) Summarize(ctx context.Context, title, content string) (string, error) {
	b, err := json.Marshal(generateRequest{
		Model:     c.model,
		Prompt:    buildPrompt(title, content),
		MaxTokens: maxSummaryTokens,
		Stream:    false,
	})
	if err != nil {
		return "", fmt.Errorf("llm marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("llm new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	c.log.Debug("llm request",
		slog.String("url", c.url),
		slog.String("model", c.model),
		slog.Duration("latency", time.Since(start)),
		slog.Any("err", err),
	)
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// not JSON, take the raw text
		return strings.TrimSpace(string(body)), nil
	}
	text := strings.TrimSpace(parsed.summary())
	if text == "" {
		return "", fmt.Errorf("llm returned an empty summary")
	}
	return text, nil
}

func buildPrompt(title, content string) string {
	return fmt.Sprintf("Summarize the following news article in 2-3 sentences. Title: %s\n\nArticle: %s\n\nSummary:", title, content)
}
