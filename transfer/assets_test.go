package transfer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssetCount(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{`[]`, 0},
		{`[{"id":1},{"id":2}]`, 2},
		{`{"count":12,"results":[{"id":1}]}`, 12},
		{`{"results":[{"id":1},{"id":2},{"id":3}]}`, 3},
		{``, 0},
	}
	for _, tt := range tests {
		got, err := parseAssetCount([]byte(tt.body))
		require.NoError(t, err, tt.body)
		assert.Equal(t, tt.want, got, tt.body)
	}

	_, err := parseAssetCount([]byte(`{nope`))
	assert.Error(t, err)
}

func TestAssetRefresherRefresh(t *testing.T) {
	requests := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r
		_, _ = io.WriteString(w, `[{"id":1},{"id":2},{"id":3}]`)
	}))
	defer srv.Close()

	r, err := NewAssetRefresher(srv.Client(), srv.URL, "ws-1", "secret", 0)
	require.NoError(t, err)
	var seen int
	r.OnCount(func(n int) { seen = n })

	require.NoError(t, r.Refresh(context.Background()))
	req := <-requests
	assert.Equal(t, "/api/workspaces/ws-1/assets/", req.URL.Path)
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
	assert.Equal(t, 3, r.Count())
	assert.Equal(t, 3, seen)
}

func TestAssetRefresherServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Invalid token"}`)
	}))
	defer srv.Close()

	r, err := NewAssetRefresher(srv.Client(), srv.URL, "ws-1", "", 0)
	require.NoError(t, err)
	err = r.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid token")
	assert.Equal(t, 0, r.Count())
}

func TestAssetRefresherThrottleHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	r, err := NewAssetRefresher(srv.Client(), srv.URL, "ws-1", "", 0.001)
	require.NoError(t, err)
	require.NoError(t, r.Refresh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, r.Refresh(ctx))
}

func TestNewAssetRefresherRejectsBadBase(t *testing.T) {
	_, err := NewAssetRefresher(nil, "not a url", "ws-1", "", 1)
	assert.Error(t, err)
}
