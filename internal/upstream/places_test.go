// ABOUTME: Tests for the places client and the shared error taxonomy.
// ABOUTME: Verifies passthrough bodies, StatusError preservation, and ErrUnavailable mapping.

package upstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/auphere/auphere-gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func placesClient(t *testing.T, baseURL string) *PlacesClient {
	t.Helper()
	return NewPlacesClient(config.PlacesConfig{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
	}, testLogger())
}

func TestPlacesSearch_ForwardsParamsAndReturnsBody(t *testing.T) {
	var gotQuery url.Values
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"places":[],"total":0,"page":1,"per_page":20,"total_pages":1}`))
	}))
	defer srv.Close()

	client := placesClient(t, srv.URL)

	params := url.Values{}
	params.Set("city", "Zaragoza")
	params.Set("q", "tapas")
	params.Set("page", "1")
	params.Set("limit", "20")

	body, err := client.Search(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, "/places/search", gotPath)
	assert.Equal(t, "Zaragoza", gotQuery.Get("city"))
	assert.Equal(t, "tapas", gotQuery.Get("q"))
	assert.Equal(t, "1", gotQuery.Get("page"))
	assert.Equal(t, "20", gotQuery.Get("limit"))
	assert.JSONEq(t, `{"places":[],"total":0,"page":1,"per_page":20,"total_pages":1}`, string(body))
}

func TestPlacesSearch_AdminTokenHeader(t *testing.T) {
	var gotToken string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Admin-Token")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewPlacesClient(config.PlacesConfig{
		BaseURL:    srv.URL,
		AdminToken: "secret-admin-token",
		Timeout:    2 * time.Second,
	}, testLogger())

	_, err := client.Search(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "secret-admin-token", gotToken)
}

func TestPlacesSearch_UpstreamErrorStatusPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"invalid radius"}`))
	}))
	defer srv.Close()

	client := placesClient(t, srv.URL)

	_, err := client.Search(context.Background(), nil)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "expected StatusError, got %v", err)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.Status)
	assert.Equal(t, `{"error":"invalid radius"}`, string(statusErr.Body))
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestPlacesSearch_ConnectionFailureIsUnavailable(t *testing.T) {
	// Server started then immediately closed, so the port refuses connections
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := placesClient(t, srv.URL)

	_, err := client.Search(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable), "expected ErrUnavailable, got %v", err)

	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestPlacesSearch_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := placesClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Search(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "expected context.Canceled, got %v", err)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestPlacesDetail_OpaqueIdentifier(t *testing.T) {
	var gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"id":"whatever"}`))
	}))
	defer srv.Close()

	client := placesClient(t, srv.URL)

	// Identifiers of any format are forwarded without interpretation
	ids := []string{
		"b9c9c2e2-6f3a-4af5-9a01-1a2b3c4d5e6f",
		"ChIJd8BlQ2BZwokRAFUEcm_qrcA",
		"12345",
	}
	for _, id := range ids {
		_, err := client.Detail(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "/places/"+id, gotPath)
	}
}

func TestPlacesDetail_EmptyIDRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach upstream for empty id")
	}))
	defer srv.Close()

	client := placesClient(t, srv.URL)

	_, err := client.Detail(context.Background(), "")
	require.Error(t, err)
}

func TestPlacesClusters_Passthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/places/clusters" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"clusters":[{"lat":41.65,"lon":-0.88,"count":17}]}`))
	}))
	defer srv.Close()

	client := placesClient(t, srv.URL)

	params := url.Values{}
	params.Set("bbox", "-0.9,41.6,-0.8,41.7")
	params.Set("zoom", "12")

	body, err := client.Clusters(context.Background(), params)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"count":17`)
}
