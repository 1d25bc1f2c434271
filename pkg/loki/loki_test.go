package loki

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockLogger struct{}

func (m *MockLogger) Error(msg string, args ...any) {
}

func Test_ConfigValidation(t *testing.T) {
	cfg := Config{}
	_, err := New(context.Background(), cfg, &MockLogger{})
	assert.Error(t, err)

	cfg.Url = "SomeUrl"
	pusher, err := New(context.Background(), cfg, &MockLogger{})
	assert.NoError(t, err)
	assert.Equal(t, cfg.Url, pusher.config.Url)
	assert.Equal(t, 1000, pusher.config.BatchMaxSize)
	assert.Equal(t, 5*time.Second, pusher.config.BatchMaxWait)
	assert.Equal(t, map[string]string{}, pusher.config.Labels)
}

func Test_FullBatchIsFlushed(t *testing.T) {

	received := make(chan pushRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gz, err := gzip.NewReader(r.Body)
		require.NoError(t, err)
		var request pushRequest
		require.NoError(t, json.NewDecoder(gz).Decode(&request))
		received <- request
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	pusher, err := New(context.Background(), Config{
		Url:          server.URL,
		BatchMaxSize: 2,
		BatchMaxWait: time.Minute,
		Labels:       map[string]string{"app": "test"},
	}, &MockLogger{})
	require.NoError(t, err)
	defer pusher.Stop()

	require.NoError(t, pusher.Push(LogEntry{Level: "error", Message: "first"}))
	require.NoError(t, pusher.Push(LogEntry{Level: "error", Message: "second"}))

	select {
	case request := <-received:
		require.Len(t, request.Streams, 1)
		assert.Equal(t, "test", request.Streams[0].Stream["app"])
		assert.Len(t, request.Streams[0].Values, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("batch was not flushed")
	}
}
