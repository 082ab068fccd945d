package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"github.com/moyoez/scandrop/tool"
	"github.com/moyoez/scandrop/types"
)

// AssetRefresher re-reads the workspace asset list, the source of truth once a
// scan has finished. Calls are throttled so a batch of completions cannot flood
// the listing endpoint.
type AssetRefresher struct {
	client  *http.Client
	url     string
	token   string
	limiter *rate.Limiter
	count   atomic.Int64
	onCount func(int)
}

// NewAssetRefresher creates a refresher. perSecond <= 0 disables throttling.
func NewAssetRefresher(client *http.Client, apiBase, workspaceID, token string, perSecond float64) (*AssetRefresher, error) {
	url, err := tool.BuildAssetsURL(apiBase, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to build assets URL: %v", err)
	}
	if client == nil {
		client = tool.APIHttpClient
	}
	r := &AssetRefresher{
		client: client,
		url:    url,
		token:  token,
	}
	if perSecond > 0 {
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return r, nil
}

// OnCount registers a callback receiving the asset count after each refresh.
func (r *AssetRefresher) OnCount(fn func(int)) {
	r.onCount = fn
}

// Count returns the asset count seen by the last successful refresh.
func (r *AssetRefresher) Count() int {
	return int(r.count.Load())
}

// Refresh fetches the asset list once.
func (r *AssetRefresher) Refresh(ctx context.Context) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("asset refresh throttled: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create assets request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	tool.SetAuthHeader(req, r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send assets request: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read assets response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("assets request failed: %s: %s", resp.Status, serverMessage(body))
	}

	count, err := parseAssetCount(body)
	if err != nil {
		return err
	}
	r.count.Store(int64(count))
	tool.DefaultLogger.Debugf("[Assets] Refreshed asset list: %d assets", count)
	if r.onCount != nil {
		r.onCount(count)
	}
	return nil
}

// parseAssetCount accepts either a bare JSON array or a paginated object.
func parseAssetCount(body []byte) (int, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return 0, nil
	}
	if trimmed[0] == '[' {
		var items []map[string]any
		if err := sonic.Unmarshal(trimmed, &items); err != nil {
			return 0, fmt.Errorf("failed to parse assets response: %v", err)
		}
		return len(items), nil
	}
	var page types.AssetListResponse
	if err := sonic.Unmarshal(trimmed, &page); err != nil {
		return 0, fmt.Errorf("failed to parse assets response: %v", err)
	}
	if page.Count == 0 {
		return len(page.Results), nil
	}
	return page.Count, nil
}
