package tool

import (
	"crypto/tls"
	"net/http"
	"time"
)

var (
	DefaultTimeout = 30 * time.Second
	// UploadTimeout bounds a whole upload request; large videos need more than DefaultTimeout.
	UploadTimeout    = 30 * time.Minute
	UploadHttpClient *http.Client
	APIHttpClient    *http.Client
)

func init() {
	InitHTTPClients(false)
}

// NewHTTPClient creates an HTTP client. When insecure is set, certificate verification is skipped.
func NewHTTPClient(timeout time.Duration, insecure bool) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   false,
	}
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// InitHTTPClients (re)initializes the shared clients. Call after flags are parsed.
func InitHTTPClients(insecure bool) {
	UploadHttpClient = NewHTTPClient(UploadTimeout, insecure)
	APIHttpClient = NewHTTPClient(DefaultTimeout, insecure)
}

// SetAuthHeader adds the bearer token when one is configured.
func SetAuthHeader(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
