package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ran-analytics/internal/models"
)

func startHub(t *testing.T, origins []string) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zap.NewNop(), origins)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	return websocket.DefaultDialer.Dial(url, header)
}

func TestHub_BroadcastsFindings(t *testing.T) {
	hub, srv := startHub(t, nil)

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	hub.PublishAnomaly(models.AnomalyResult{
		ID: "a-1", Kind: models.MetricLatency, Severity: models.SeverityCritical, Actual: 150, DetectedAt: at,
	})
	hub.PublishRecommendation(models.RecommendationResult{
		ID: "r-1", Kind: models.RecommendationParameterAdjustment, MetricKind: models.MetricLatency, GeneratedAt: at,
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first struct {
		Type string               `json:"type"`
		Data models.AnomalyResult `json:"data"`
	}
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &first))
	assert.Equal(t, MessageAnomaly, first.Type)
	assert.Equal(t, "a-1", first.Data.ID)
	assert.Equal(t, models.SeverityCritical, first.Data.Severity)

	var second struct {
		Type string                      `json:"type"`
		Data models.RecommendationResult `json:"data"`
	}
	_, payload, err = conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &second))
	assert.Equal(t, MessageRecommendation, second.Type)
	assert.Equal(t, models.RecommendationParameterAdjustment, second.Data.Kind)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, srv := startHub(t, nil)

	conn, _, err := dial(t, srv, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	_, srv := startHub(t, []string{"http://dashboard.local"})

	_, resp, err := dial(t, srv, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, srv, http.Header{"Origin": []string{"http://dashboard.local"}})
	require.NoError(t, err)
	_ = conn.Close()
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(zap.NewNop(), nil)
	for i := 0; i < 1000; i++ {
		hub.PublishAnomaly(models.AnomalyResult{Kind: models.MetricSINR})
	}
	assert.Zero(t, hub.ClientCount())
}
