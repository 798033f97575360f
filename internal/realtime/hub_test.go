package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakeflow/internal/domain/enrichment"
	"intakeflow/internal/pkg/jwt"
	"intakeflow/internal/pkg/logger"
)

type staticSource struct{}

func (staticSource) ProcessingStatus(_ context.Context, fileID string) (*enrichment.ProcessingStatus, error) {
	return &enrichment.ProcessingStatus{
		FileID:           fileID,
		TranscriptStatus: enrichment.StatusNotStarted,
		AnalysisStatus:   enrichment.StatusNotStarted,
		Overall:          enrichment.StatusNotStarted,
	}, nil
}

func startServer(t *testing.T, required bool) (*Hub, *jwt.Service, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(logger.NewNop())
	tokens := jwt.New("secret", time.Hour)
	r := gin.New()
	RegisterRoutes(r, NewHandler(hub, staticSource{}, tokens, required, nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, tokens, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readEvent(t *testing.T, conn *websocket.Conn) StatusEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev StatusEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	return ev
}

func TestHubDeliversInitialAndPublishedStatus(t *testing.T) {
	hub, _, url := startServer(t, false)

	conn, _, err := websocket.DefaultDialer.Dial(url+"/ws/files/f1", nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readEvent(t, conn)
	assert.Equal(t, "f1", first.FileID)
	assert.Equal(t, enrichment.StatusNotStarted, first.Overall)

	require.Eventually(t, func() bool { return hub.Subscribers("f1") == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(&enrichment.ProcessingStatus{FileID: "other", Overall: enrichment.StatusFailed})
	hub.Publish(&enrichment.ProcessingStatus{
		FileID:           "f1",
		TranscriptStatus: enrichment.StatusCompleted,
		AnalysisStatus:   enrichment.StatusProcessing,
		Overall:          enrichment.StatusProcessing,
	})

	ev := readEvent(t, conn)
	assert.Equal(t, "f1", ev.FileID)
	assert.Equal(t, enrichment.StatusCompleted, ev.TranscriptStatus)
	assert.Equal(t, enrichment.StatusProcessing, ev.Overall)
}

func TestHubUnregistersClosedConnections(t *testing.T) {
	hub, _, url := startServer(t, false)

	conn, _, err := websocket.DefaultDialer.Dial(url+"/ws/files/f2", nil)
	require.NoError(t, err)
	readEvent(t, conn)
	require.Eventually(t, func() bool { return hub.Subscribers("f2") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Subscribers("f2") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatchRequiresTokenWhenConfigured(t *testing.T) {
	_, tokens, url := startServer(t, true)

	_, resp, err := websocket.DefaultDialer.Dial(url+"/ws/files/f3", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	tok, err := tokens.GenerateToken("u1", "member")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(url+"/ws/files/f3?token="+tok, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "f3", readEvent(t, conn).FileID)
}
