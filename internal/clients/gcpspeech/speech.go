// Package gcpspeech transcribes audio with Google Cloud Speech-to-Text.
package gcpspeech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"intakeflow/internal/domain/enrichment"
	"intakeflow/internal/pkg/logger"
)

const modelName = "gcp-speech"

var ErrNotConfigured = errors.New("GCP speech credentials not configured")

type recognizeFunc func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)

type Transcriber struct {
	client     *speech.Client
	recognize  recognizeFunc
	language   string
	timeout    time.Duration
	maxRetries int
	log        *logger.Logger
}

// New dials the Speech API with application default credentials.
func New(ctx context.Context, language string, timeout time.Duration, log *logger.Logger) (*Transcriber, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	t := newTranscriber(language, timeout, log, func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := c.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	t.client = c
	return t, nil
}

// Unconfigured returns a transcriber whose calls fail with ErrNotConfigured.
// It stands in when application default credentials are unavailable.
func Unconfigured(language string, log *logger.Logger) *Transcriber {
	return newTranscriber(language, 0, log, nil)
}

func newTranscriber(language string, timeout time.Duration, log *logger.Logger, fn recognizeFunc) *Transcriber {
	if language == "" {
		language = "en-US"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Transcriber{
		recognize:  fn,
		language:   language,
		timeout:    timeout,
		maxRetries: 3,
		log:        log.With("client", "gcp.Speech"),
	}
}

func (t *Transcriber) Configured() bool { return t.recognize != nil }

func (t *Transcriber) Close() error {
	if t == nil || t.client == nil {
		return nil
	}
	return t.client.Close()
}

// Transcribe sends inline audio, so payloads are bounded by the API's
// inline content limit.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, filename, mimeType string) (*enrichment.TranscriptResult, error) {
	if t.recognize == nil {
		return nil, ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               t.language,
			Encoding:                   inferEncoding(mimeType, filename),
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}

	var (
		resp *speechpb.LongRunningRecognizeResponse
		err  error
	)
	backoff := time.Second
	for attempt := 0; ; attempt++ {
		resp, err = t.recognize(ctx, req)
		if err == nil || !retryable(err) || attempt >= t.maxRetries {
			break
		}
		t.log.Warn("speech request retrying", "attempt", attempt+1, "error", err.Error())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if err != nil {
		return nil, fmt.Errorf("speech recognize: %w", err)
	}
	return toResult(resp, t.language), nil
}

func retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	default:
		return false
	}
}

func inferEncoding(mimeType, filename string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(mimeType)
	name := strings.ToLower(filename)
	switch {
	case strings.Contains(m, "wav") || strings.HasSuffix(name, ".wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac") || strings.HasSuffix(name, ".flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mpeg") || strings.Contains(m, "mp3") || strings.HasSuffix(name, ".mp3"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "ogg") || strings.HasSuffix(name, ".ogg") || strings.HasSuffix(name, ".opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	case strings.Contains(m, "webm") || strings.HasSuffix(name, ".webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// toResult turns each recognition result into one segment spanning from the
// previous result's end to its own.
func toResult(resp *speechpb.LongRunningRecognizeResponse, fallbackLang string) *enrichment.TranscriptResult {
	res := &enrichment.TranscriptResult{Model: modelName, Segments: []enrichment.Segment{}}
	if resp == nil {
		return res
	}

	var (
		texts []string
		prev  float64
		lang  string
	)
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		text := strings.TrimSpace(alts[0].GetTranscript())
		end := seconds(r.GetResultEndTime())
		if end < prev {
			end = prev
		}
		if text != "" {
			texts = append(texts, text)
			res.Segments = append(res.Segments, enrichment.Segment{Start: prev, End: end, Text: text})
		}
		if lang == "" {
			lang = r.GetLanguageCode()
		}
		prev = end
	}

	res.Text = strings.Join(texts, " ")
	if lang == "" {
		lang = fallbackLang
	}
	res.Language = &lang
	if prev > 0 {
		d := prev
		res.Duration = &d
	}
	return res
}

func seconds(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return d.AsDuration().Seconds()
}
