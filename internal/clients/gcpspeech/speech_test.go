package gcpspeech

import (
	"context"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"intakeflow/internal/pkg/logger"
)

func result(text string, end time.Duration, lang string) *speechpb.SpeechRecognitionResult {
	return &speechpb.SpeechRecognitionResult{
		Alternatives:  []*speechpb.SpeechRecognitionAlternative{{Transcript: text}},
		ResultEndTime: durationpb.New(end),
		LanguageCode:  lang,
	}
}

func TestTranscribeBuildsSegments(t *testing.T) {
	var got *speechpb.LongRunningRecognizeRequest
	tr := newTranscriber("zh-TW", time.Minute, logger.NewNop(), func(_ context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		got = req
		return &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
			result(" 大家好 ", 2*time.Second, "cmn-hant-tw"),
			result("", 3*time.Second, ""),
			result("開始開會", 5500*time.Millisecond, ""),
		}}, nil
	})

	res, err := tr.Transcribe(context.Background(), []byte("RIFF"), "memo.wav", "audio/wav")
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "zh-TW", got.Config.LanguageCode)
	assert.Equal(t, speechpb.RecognitionConfig_LINEAR16, got.Config.Encoding)
	assert.Equal(t, []byte("RIFF"), got.Audio.GetContent())

	assert.Equal(t, "大家好 開始開會", res.Text)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, 0.0, res.Segments[0].Start)
	assert.Equal(t, 2.0, res.Segments[0].End)
	assert.Equal(t, 3.0, res.Segments[1].Start)
	assert.Equal(t, 5.5, res.Segments[1].End)
	require.NotNil(t, res.Language)
	assert.Equal(t, "cmn-hant-tw", *res.Language)
	require.NotNil(t, res.Duration)
	assert.Equal(t, 5.5, *res.Duration)
	assert.Equal(t, modelName, res.Model)
}

func TestTranscribeDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	tr := newTranscriber("", time.Minute, logger.NewNop(), func(context.Context, *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		calls++
		return nil, status.Error(codes.InvalidArgument, "bad audio")
	})

	_, err := tr.Transcribe(context.Background(), []byte("x"), "a.mp3", "audio/mpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad audio")
	assert.Equal(t, 1, calls)
}

func TestInferEncoding(t *testing.T) {
	cases := map[string]speechpb.RecognitionConfig_AudioEncoding{
		"audio/mpeg": speechpb.RecognitionConfig_MP3,
		"audio/ogg":  speechpb.RecognitionConfig_OGG_OPUS,
		"audio/webm": speechpb.RecognitionConfig_WEBM_OPUS,
		"audio/mp4":  speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
	}
	for mime, want := range cases {
		assert.Equal(t, want, inferEncoding(mime, ""), mime)
	}
	assert.Equal(t, speechpb.RecognitionConfig_FLAC, inferEncoding("", "take.FLAC"))
}

func TestToResultEmpty(t *testing.T) {
	res := toResult(&speechpb.LongRunningRecognizeResponse{}, "en-US")
	assert.Empty(t, res.Text)
	assert.Nil(t, res.Duration)
	assert.NotNil(t, res.Segments)
	assert.Equal(t, "en-US", *res.Language)
}

func TestUnconfiguredFailsEveryCall(t *testing.T) {
	tr := Unconfigured("", logger.NewNop())
	assert.False(t, tr.Configured())

	_, err := tr.Transcribe(context.Background(), []byte("audio"), "a.wav", "audio/wav")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, tr.Close())
}
