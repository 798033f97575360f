// Package anthropic analyzes transcripts with the Claude messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"intakeflow/internal/clients/httpx"
	"intakeflow/internal/domain/enrichment"
	"intakeflow/internal/pkg/logger"
)

var ErrNotConfigured = errors.New("ANTHROPIC_API_KEY not configured")

const (
	apiVersion         = "2023-06-01"
	maxTokens          = 4096
	maxTranscriptRunes = 150000
)

const systemPrompt = `You analyze meeting and interview transcripts for a product team.
Reply with a single JSON object and nothing else, using this shape:
{
  "summary": "2-4 sentence summary",
  "keyDecisions": [{"title": "...", "description": "..."}],
  "risks": [{"title": "...", "severity": "high|medium|low", "description": "..."}],
  "dependencies": [{"name": "...", "description": "..."}],
  "logicFlags": [{"id": "lf-1", "category": "permissions|import-export|hierarchy|data-flow", "severity": "critical|warning|info", "message": "...", "source": "..."}]
}
Use empty arrays when a section has nothing to report. Write the summary in the transcript's language.`

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Policy  httpx.Policy
}

// Claude is safe for concurrent use. Built without an API key it stays
// constructible and every call fails with ErrNotConfigured.
type Claude struct {
	cfg  Config
	http *http.Client
	log  *logger.Logger
}

func NewClaude(cfg Config, log *logger.Logger) *Claude {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Policy == (httpx.Policy{}) {
		cfg.Policy = httpx.DefaultPolicy()
	}
	return &Claude{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With("client", "anthropic.Claude"),
	}
}

func (c *Claude) Configured() bool { return c.cfg.APIKey != "" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Analyze asks the model for a structured analysis of transcript. Replies
// that are not valid JSON degrade to a summary-only result.
func (c *Claude) Analyze(ctx context.Context, transcript, sourceLabel string) (*enrichment.AnalysisResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []message{{
			Role:    "user",
			Content: buildPrompt(transcript, sourceLabel),
		}},
	})
	if err != nil {
		return nil, err
	}

	raw, err := httpx.Do(ctx, c.http, c.cfg.Policy, c.log, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-api-key", c.cfg.APIKey)
		req.Header.Set("anthropic-version", apiVersion)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("claude analysis: %w", err)
	}

	var out messagesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("claude decode: %w", err)
	}
	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if out.StopReason == "max_tokens" {
		c.log.Warn("analysis reply hit the token limit", "model", out.Model)
	}

	res := enrichment.ParseAnalysis(text.String(), sourceLabel)
	res.Model = out.Model
	if res.Model == "" {
		res.Model = c.cfg.Model
	}
	return &res, nil
}

func buildPrompt(transcript, sourceLabel string) string {
	var b strings.Builder
	b.WriteString("Source: ")
	b.WriteString(sourceLabel)
	b.WriteString("\n\nTranscript:\n")
	b.WriteString(enrichment.TruncateRunes(transcript, maxTranscriptRunes))
	return b.String()
}
