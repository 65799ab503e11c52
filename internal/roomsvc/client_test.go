package roomsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rooms/bootstrap", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "42", req["room_id"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"ok": true,
			"geofence": {"center_lat": 1.5, "center_lng": 2.5, "radius_m": 100},
			"meeting": null
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	snap, err := c.Bootstrap(context.Background(), "tok-1", "42")
	require.NoError(t, err)
	require.NotNil(t, snap.Geofence)
	assert.Equal(t, 100.0, snap.Geofence.RadiusM)
	assert.Nil(t, snap.Meeting)
}

func TestBootstrapRoomNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"room not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Bootstrap(context.Background(), "tok", "999")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestBootstrapNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Bootstrap(context.Background(), "tok", "42")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestBootstrapUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Bootstrap(context.Background(), "tok", "42")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestBootstrapCanceledContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Bootstrap(ctx, "tok", "42")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
