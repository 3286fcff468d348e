package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus_wayfinder/internal/geo"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GoogleClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGoogleClient("test-key", WithBaseURL(srv.URL))
}

func TestGoogleClient_ReverseGeocode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "42.3364,-71.1065", r.URL.Query().Get("latlng"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"45 Francis St, Boston, MA 02115, USA"},{"formatted_address":"Boston, MA"}]}`))
	})

	addr, err := client.ReverseGeocode(context.Background(), lobbyPoint)
	require.NoError(t, err)
	assert.Equal(t, "45 Francis St, Boston, MA 02115, USA", addr)
}

func TestGoogleClient_ReverseGeocodeZeroResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	_, err := client.ReverseGeocode(context.Background(), lobbyPoint)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestGoogleClient_ReverseGeocodeDenied(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
	})

	_, err := client.ReverseGeocode(context.Background(), lobbyPoint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestGoogleClient_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ReverseGeocode(context.Background(), lobbyPoint)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestGoogleClient_NotConfigured(t *testing.T) {
	client := NewGoogleClient("")
	_, err := client.ReverseGeocode(context.Background(), lobbyPoint)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = client.Autocomplete(context.Background(), "faulkner", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGoogleClient_Autocomplete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/autocomplete/json", r.URL.Path)
		assert.Equal(t, "faulkner", r.URL.Query().Get("input"))
		assert.Equal(t, "42.3364,-71.1065", r.URL.Query().Get("location"))
		assert.Equal(t, "5000", r.URL.Query().Get("radius"))
		_, _ = w.Write([]byte(`{"status":"OK","predictions":[{"place_id":"abc","description":"Faulkner Hospital, Centre St"}]}`))
	})

	preds, err := client.Autocomplete(context.Background(), "faulkner", &lobbyPoint)
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.Equal(t, "abc", preds[0].PlaceID)
}

func TestGoogleClient_AutocompleteZeroResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("location"))
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS"}`))
	})

	preds, err := client.Autocomplete(context.Background(), "zzzz", nil)
	require.NoError(t, err)
	assert.Empty(t, preds)
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]string
	saves   int
}

func (m *memoryStore) Lookup(_ context.Context, p geo.Point, _ time.Time) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr, ok := m.entries[cacheKey(p)]
	return addr, ok, nil
}

func (m *memoryStore) Save(_ context.Context, p geo.Point, address string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[cacheKey(p)] = address
	m.saves++
	return nil
}

func TestCachedGeocoder_CachesResults(t *testing.T) {
	var calls atomic.Int32
	next := GeocoderFunc(func(ctx context.Context, p geo.Point) (string, error) {
		calls.Add(1)
		return "1153 Centre St, Boston, MA 02130", nil
	})
	store := &memoryStore{entries: map[string]string{}}
	cached := NewCachedGeocoder(next, store, time.Hour)

	p := geo.Point{Latitude: 42.30020001, Longitude: -71.12700004}
	for i := 0; i < 3; i++ {
		addr, err := cached.ReverseGeocode(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, "1153 Centre St, Boston, MA 02130", addr)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, store.saves)
}

func TestCachedGeocoder_DoesNotCacheFailures(t *testing.T) {
	var calls atomic.Int32
	next := GeocoderFunc(func(ctx context.Context, p geo.Point) (string, error) {
		calls.Add(1)
		return "", errors.New("boom")
	})
	store := &memoryStore{entries: map[string]string{}}
	cached := NewCachedGeocoder(next, store, time.Hour)

	_, err := cached.ReverseGeocode(context.Background(), lobbyPoint)
	require.Error(t, err)
	_, err = cached.ReverseGeocode(context.Background(), lobbyPoint)
	require.Error(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 0, store.saves)
}

func TestRoundPoint(t *testing.T) {
	p := roundPoint(geo.Point{Latitude: 42.12345649, Longitude: -71.98765451})
	assert.Equal(t, "42.123456,-71.987655", cacheKey(p))
}
