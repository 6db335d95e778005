package callback

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/notionflow-ai/internal/metrics"
	"github.com/thebtf/notionflow-ai/pkg/models"
)

type ClientSuite struct {
	suite.Suite
	client *Client
	calls  atomic.Int32
}

func (s *ClientSuite) SetupTest() {
	s.client = New(2*time.Second, metrics.Noop())
	s.calls.Store(0)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

// server answers with statuses in order, repeating the last one.
func (s *ClientSuite) server(statuses ...int) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(s.calls.Add(1))
		if n > len(statuses) {
			n = len(statuses)
		}
		w.WriteHeader(statuses[n-1])
	}))
	s.T().Cleanup(srv.Close)
	return srv
}

func (s *ClientSuite) TestPostJSON_Delivered() {
	srv := s.server(http.StatusOK)
	s.NoError(s.client.PostJSON(context.Background(), srv.URL, map[string]string{"a": "b"}))
	s.Equal(int32(1), s.calls.Load())
}

func (s *ClientSuite) TestPostJSON_RetriesOnceOnServerError() {
	srv := s.server(http.StatusBadGateway, http.StatusOK)
	s.NoError(s.client.PostJSON(context.Background(), srv.URL, map[string]string{}))
	s.Equal(int32(2), s.calls.Load())
}

func (s *ClientSuite) TestPostJSON_DropsAfterSecondFailure() {
	srv := s.server(http.StatusInternalServerError)
	err := s.client.PostJSON(context.Background(), srv.URL, map[string]string{})
	s.ErrorIs(err, ErrDeliveryFailed)
	s.Equal(int32(2), s.calls.Load())
}

func (s *ClientSuite) TestPostJSON_ClientErrorNotRetried() {
	srv := s.server(http.StatusBadRequest)
	err := s.client.PostJSON(context.Background(), srv.URL, map[string]string{})
	s.ErrorIs(err, ErrDeliveryFailed)
	s.Equal(int32(1), s.calls.Load())
}

func (s *ClientSuite) TestPostJSON_TransportErrorRetried() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	err := s.client.PostJSON(context.Background(), target, map[string]string{})
	s.ErrorIs(err, ErrDeliveryFailed)
}

func (s *ClientSuite) TestPostJSON_UnmarshalablePayload() {
	err := s.client.PostJSON(context.Background(), "http://127.0.0.1:1", map[string]any{"ch": make(chan int)})
	s.Error(err)
	s.NotErrorIs(err, ErrDeliveryFailed)
}

func TestSendAIResult_CamelCasePayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
	}))
	defer srv.Close()

	cluster := 2
	err := New(0, nil).SendAIResult(context.Background(), srv.URL, &models.ProcessingResult{
		PageID:     "page-1",
		NoteType:   models.NoteTypeTodo,
		Summary:    "요약",
		Tags:       []models.Tag{{Name: "배포", Score: 0.5}},
		ClusterID:  &cluster,
		Confidence: 0.42,
	})
	require.NoError(t, err)

	assert.Equal(t, "page-1", got["pageId"])
	assert.Equal(t, "todo", got["noteType"])
	assert.Equal(t, float64(2), got["clusterId"])
	assert.Equal(t, 0.42, got["confidence"])
	assert.Contains(t, got, "statusSignals")
}

func TestFetchChanges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/changes", r.URL.Path)
		assert.Equal(t, "2026-01-01T09:00:00+09:00", r.URL.Query().Get("period_start"))
		assert.Equal(t, "2026-01-02T09:00:00+09:00", r.URL.Query().Get("period_end"))
		_, _ = w.Write([]byte(`{"changes":[{"page_id":"p","title":"t","summary":"s","action":"updated"}]}`))
	}))
	defer srv.Close()

	changes, err := New(0, nil).FetchChanges(context.Background(), srv.URL+"/api/", "2026-01-01T09:00:00+09:00", "2026-01-02T09:00:00+09:00")
	require.NoError(t, err)
	assert.Equal(t, []models.ChangeItem{{PageID: "p", Title: "t", Summary: "s", Action: "updated"}}, changes)
}

func TestTriggerRecluster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ai/trigger-recluster" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[{"page_id":"a","vector":[0.6,0.8]}]}`))
	}))
	defer srv.Close()

	c := New(0, nil)
	pages, err := c.TriggerRecluster(context.Background(), srv.URL+"/api")
	require.NoError(t, err)
	assert.Equal(t, []models.PageEmbedding{{PageID: "a", Vector: []float32{0.6, 0.8}}}, pages)

	_, err = c.TriggerRecluster(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestURL(t *testing.T) {
	assert.Equal(t, "http://web/api/ai/report", URL("http://web/api/", "/ai/report"))
	assert.Equal(t, "http://web/api/ai/report", URL("http://web/api", "ai/report"))
}
