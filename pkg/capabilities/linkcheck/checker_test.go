package linkcheck_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/capabilities/linkcheck"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCheck_ReachableURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := linkcheck.NewChecker(nil, testLogger())

	status, err := checker.Check(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, status.Reachable)
	assert.Equal(t, http.StatusOK, status.StatusCode)
}

func TestCheck_NotFoundIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := linkcheck.NewChecker(nil, testLogger())

	status, err := checker.Check(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, status.Reachable)
	assert.Equal(t, http.StatusNotFound, status.StatusCode)
}

func TestCheck_FallsBackToGetWhenHeadRejected(t *testing.T) {
	var gets atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)

			return
		}

		gets.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := linkcheck.NewChecker(nil, testLogger())

	status, err := checker.Check(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, status.Reachable)
	assert.Equal(t, int32(1), gets.Load())
}

func TestCheck_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	server.Close()

	checker := linkcheck.NewChecker(nil, testLogger())

	_, err := checker.Check(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link check failed")
}
