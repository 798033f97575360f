// Package openai transcribes audio through the Whisper transcription API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"intakeflow/internal/clients/httpx"
	"intakeflow/internal/domain/enrichment"
	"intakeflow/internal/pkg/logger"
)

var ErrNotConfigured = errors.New("OPENAI_API_KEY not configured")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Policy  httpx.Policy
}

// Whisper is safe for concurrent use. Built without an API key it stays
// constructible and every call fails with ErrNotConfigured.
type Whisper struct {
	cfg  Config
	http *http.Client
	log  *logger.Logger
}

func NewWhisper(cfg Config, log *logger.Logger) *Whisper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Policy == (httpx.Policy{}) {
		cfg.Policy = httpx.DefaultPolicy()
	}
	return &Whisper{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With("client", "openai.Whisper"),
	}
}

func (w *Whisper) Configured() bool { return w.cfg.APIKey != "" }

func (w *Whisper) Name() string { return w.cfg.Model }

type verboseTranscription struct {
	Text     string   `json:"text"`
	Language string   `json:"language"`
	Duration *float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the audio and returns the verbose_json result.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, filename, mimeType string) (*enrichment.TranscriptResult, error) {
	if !w.Configured() {
		return nil, ErrNotConfigured
	}
	if filename == "" {
		filename = "audio"
	}

	raw, err := httpx.Do(ctx, w.http, w.cfg.Policy, w.log, func(ctx context.Context) (*http.Request, error) {
		body, contentType, err := w.buildForm(audio, filename, mimeType)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.BaseURL+"/v1/audio/transcriptions", body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription: %w", err)
	}

	var out verboseTranscription
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("whisper decode: %w", err)
	}

	res := &enrichment.TranscriptResult{
		Text:     strings.TrimSpace(out.Text),
		Duration: out.Duration,
		Model:    w.cfg.Model,
		Segments: make([]enrichment.Segment, 0, len(out.Segments)),
	}
	if out.Language != "" {
		lang := out.Language
		res.Language = &lang
	}
	for _, s := range out.Segments {
		res.Segments = append(res.Segments, enrichment.Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)})
	}
	return res, nil
}

func (w *Whisper) buildForm(audio []byte, filename, mimeType string) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}
	for k, v := range map[string]string{
		"model":                     w.cfg.Model,
		"response_format":           "verbose_json",
		"timestamp_granularities[]": "segment",
	} {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &body, mw.FormDataContentType(), nil
}
