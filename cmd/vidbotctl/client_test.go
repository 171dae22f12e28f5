package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/jobs", r.URL.Path)
		assert.Equal(t, "FAILED", r.URL.Query().Get("status"))
		w.Write([]byte(`{"count":1,"jobs":[{"id":"abc","platform":"youtube","status":"FAILED"}]}`))
	}))
	defer server.Close()

	var list jobList
	err := newAPIClient(server.URL, time.Second).getJSON("/api/v1/jobs", url.Values{"status": {"FAILED"}}, &list)
	require.NoError(t, err)
	require.Len(t, list.Jobs, 1)
	assert.Equal(t, "abc", list.Jobs[0].ID)
}

func TestAPIClient_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"job not found"}`))
	}))
	defer server.Close()

	var j jobView
	err := newAPIClient(server.URL, time.Second).getJSON("/api/v1/jobs/x", nil, &j)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job not found")
	assert.Contains(t, err.Error(), "404")
}

func TestAPIClient_WaitForReady(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, newAPIClient(server.URL, time.Second).waitForReady(5*time.Second))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestAPIClient_WaitForReadyTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := newAPIClient(server.URL, time.Second).waitForReady(100 * time.Millisecond)
	assert.Error(t, err)
}

func TestFormatLogEntry(t *testing.T) {
	assert.Equal(t, "2025-01-01T00:00:00.000Z [info]: hi",
		formatLogEntry(logEntry{Timestamp: "2025-01-01T00:00:00.000Z", Level: "info", Message: "hi"}))
	assert.Equal(t, "raw", formatLogEntry(logEntry{Message: "raw"}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 8))
	assert.Equal(t, "abcde...", truncate("abcdefghijkl", 8))
}
