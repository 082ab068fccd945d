package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name      string
		resolvers []Resolver
		want      string
		wantErr   bool
	}{
		{
			name:      "push base wins",
			resolvers: DefaultResolvers("https://push.example.com", "http://api.example.com", "http://page.example.com"),
			want:      "wss://push.example.com/ws/scan/abc/",
		},
		{
			name:      "falls back to api base",
			resolvers: DefaultResolvers("", "http://api.example.com:8000/api", ""),
			want:      "ws://api.example.com:8000/ws/scan/abc/",
		},
		{
			name:      "relative base is skipped",
			resolvers: DefaultResolvers("/push", "", "https://app.example.com/upload"),
			want:      "wss://app.example.com/ws/scan/abc/",
		},
		{
			name:      "ws scheme kept",
			resolvers: []Resolver{FromBase("ws://localhost:9000")},
			want:      "ws://localhost:9000/ws/scan/abc/",
		},
		{
			name:      "unsupported scheme is skipped",
			resolvers: []Resolver{FromBase("ftp://files.example.com"), FromPage("http://page.example.com")},
			want:      "ws://page.example.com/ws/scan/abc/",
		},
		{
			name:      "nothing usable",
			resolvers: DefaultResolvers("", "", ""),
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL("abc", tt.resolvers...)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoEndpoint)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveURLEscapesTicket(t *testing.T) {
	got, err := ResolveURL("a b/c", FromBase("http://api.example.com"))
	require.NoError(t, err)
	assert.Equal(t, "ws://api.example.com/ws/scan/a%20b%2Fc/", got)
}

func TestResolveURLEmptyTicket(t *testing.T) {
	_, err := ResolveURL("", FromBase("http://api.example.com"))
	assert.Error(t, err)
}
