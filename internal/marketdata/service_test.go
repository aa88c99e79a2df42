package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/daybook/internal/common"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-key",
		WithBaseURL(server.URL),
		WithRateLimit(1000),
	)
}

func TestGetEODParsesBars(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/eod/NVDA.US")
		assert.Equal(t, "test-key", r.URL.Query().Get("api_token"))
		w.Write([]byte(`[
			{"date":"2026-01-02","open":98,"high":101,"low":97,"close":100,"volume":5000},
			{"date":"2026-01-03","open":100,"high":106,"low":99,"close":105,"volume":6000}
		]`))
	})

	bars, err := client.GetEOD(context.Background(), "NVDA.US",
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 100.0, bars[0].Close)
	assert.Equal(t, 105.0, bars[1].Close)
	assert.Equal(t, 2026, bars[0].Date.Year())
}

func TestGetEODSurfacesAPIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusForbidden)
	})

	_, err := client.GetEOD(context.Background(), "NVDA.US", time.Time{}, time.Time{})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.False(t, apiErr.Retryable())
}

func TestGetNewsParsesItems(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NVDA.US", r.URL.Query().Get("s"))
		w.Write([]byte(`[
			{"date":"2026-01-03T08:00:00Z","title":"Earnings beat","link":"https://example.com/a","source":"wire"}
		]`))
	})

	items, err := client.GetNews(context.Background(), "NVDA.US", time.Time{}, 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Earnings beat", items[0].Title)
	assert.Equal(t, 8, items[0].PublishedAt.Hour())
}

func TestServiceRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"date":"2026-01-03","open":1,"high":1,"low":1,"close":1,"volume":1}]`))
	})

	svc := NewService(client, common.GetLogger(), 3, time.Millisecond)

	bars, err := svc.GetEOD(context.Background(), "NVDA.US", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestServiceGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusInternalServerError)
	})

	svc := NewService(client, common.GetLogger(), 2, time.Millisecond)

	_, err := svc.GetEOD(context.Background(), "NVDA.US", time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestServiceDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad symbol", http.StatusNotFound)
	})

	svc := NewService(client, common.GetLogger(), 3, time.Millisecond)

	_, err := svc.GetEOD(context.Background(), "BOGUS.US", time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestServiceStopsOnContextCancel(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	})

	svc := NewService(client, common.GetLogger(), 5, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.GetEOD(ctx, "NVDA.US", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, context.Canceled)
}
