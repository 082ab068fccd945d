package transfer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/scandrop/types"
)

type receivedUpload struct {
	path        string
	auth        string
	fileName    string
	contentType string
	data        []byte
}

func uploadServer(t *testing.T, status int, body string) (*httptest.Server, <-chan receivedUpload) {
	t.Helper()
	received := make(chan receivedUpload, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := receivedUpload{path: r.URL.Path, auth: r.Header.Get("Authorization")}
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			if file, header, err := r.FormFile(UploadFieldName); err == nil {
				got.fileName = header.Filename
				got.contentType = header.Header.Get("Content-Type")
				got.data, _ = io.ReadAll(file)
				file.Close()
			}
		}
		received <- got
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, received
}

func pngFile(size int) types.FileRef {
	return types.FileRef{
		Name:      "photo.png",
		MediaType: "image/png",
		Size:      int64(size),
		Content:   []byte(strings.Repeat("x", size)),
	}
}

func TestUploadReturnsTicket(t *testing.T) {
	srv, received := uploadServer(t, http.StatusCreated, `{"pending_id":"abc"}`)
	u := NewUploader(srv.Client(), srv.URL, "ws-1", "secret")

	var mu sync.Mutex
	var progress []int
	ticket, err := u.Upload(context.Background(), pngFile(64*1024), func(pct int) {
		mu.Lock()
		defer mu.Unlock()
		progress = append(progress, pct)
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", ticket)

	got := <-received
	assert.Equal(t, "/api/workspaces/ws-1/upload/", got.path)
	assert.Equal(t, "Bearer secret", got.auth)
	assert.Equal(t, "photo.png", got.fileName)
	assert.Equal(t, "image/png", got.contentType)
	assert.Len(t, got.data, 64*1024)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i], progress[i-1])
	}
}

func TestUploadTicketForms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty object", `{}`, ""},
		{"empty body", ``, ""},
		{"null ticket", `{"pending_id":null}`, ""},
		{"string ticket", `{"pending_id":"abc"}`, "abc"},
		{"numeric ticket", `{"pending_id":42,"message":"queued for scan"}`, "42"},
		{"large numeric ticket", `{"pending_id":9007199254740993}`, "9007199254740993"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := uploadServer(t, http.StatusOK, tt.body)
			u := NewUploader(srv.Client(), srv.URL, "ws-1", "")

			ticket, err := u.Upload(context.Background(), pngFile(10), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ticket)
		})
	}
}

func TestUploadUnreadableSuccessBody(t *testing.T) {
	srv, _ := uploadServer(t, http.StatusCreated, `<html>ok</html>`)
	u := NewUploader(srv.Client(), srv.URL, "ws-1", "")

	ticket, err := u.Upload(context.Background(), pngFile(10), nil)
	assert.Empty(t, ticket)

	var uploadErr *UploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, http.StatusCreated, uploadErr.StatusCode)
	assert.Equal(t, InvalidResponseError, uploadErr.UserMessage())
}

func TestUploadErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", http.StatusBadRequest, `{"message":"File too large"}`, "File too large"},
		{"detail field", http.StatusForbidden, `{"detail":"Not allowed"}`, "Not allowed"},
		{"message wins over detail", http.StatusBadRequest, `{"message":"m","detail":"d"}`, "m"},
		{"empty body", http.StatusInternalServerError, ``, DefaultServerError},
		{"non json body", http.StatusBadGateway, `<html>bad gateway</html>`, DefaultServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := uploadServer(t, tt.status, tt.body)
			u := NewUploader(srv.Client(), srv.URL, "ws-1", "")

			ticket, err := u.Upload(context.Background(), pngFile(10), nil)
			assert.Empty(t, ticket)

			var uploadErr *UploadError
			require.True(t, errors.As(err, &uploadErr))
			assert.Equal(t, tt.status, uploadErr.StatusCode)
			assert.Equal(t, tt.want, uploadErr.UserMessage())
		})
	}
}

func TestUploadCancelled(t *testing.T) {
	u := NewUploader(http.DefaultClient, "http://127.0.0.1:1", "ws-1", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := u.Upload(ctx, pngFile(10), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUploadConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := NewUploader(http.DefaultClient, base, "ws-1", "").Upload(context.Background(), pngFile(10), nil)
	var uploadErr *UploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, 0, uploadErr.StatusCode)
	assert.Equal(t, DefaultServerError, uploadErr.UserMessage())
}

func TestEscapeQuotes(t *testing.T) {
	assert.Equal(t, `my \"best\" shot.png`, escapeQuotes(`my "best" shot.png`))
}
