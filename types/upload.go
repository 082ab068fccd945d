package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// UploadResponse is the success body of POST /api/workspaces/{id}/upload/.
// An absent or empty pending_id means the server finished (or skipped) the scan synchronously.
// Servers send the id either as a string or as a number.
type UploadResponse struct {
	PendingID any `json:"pending_id,omitempty"`
}

// Ticket returns pending_id as a string, "" when absent.
func (r UploadResponse) Ticket() string {
	switch v := r.PendingID.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// ErrorResponse is the failure body of the upload and asset endpoints.
type ErrorResponse struct {
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// AssetListResponse is the subset of the asset listing we care about.
// The endpoint answers either a bare array or a paginated object.
type AssetListResponse struct {
	Count   int              `json:"count"`
	Results []map[string]any `json:"results"`
}
