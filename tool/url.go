package tool

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildUploadURL builds POST /api/workspaces/{workspaceId}/upload/.
func BuildUploadURL(apiBase, workspaceID string) (string, error) {
	return buildWorkspaceURL(apiBase, workspaceID, "upload/")
}

// BuildAssetsURL builds GET /api/workspaces/{workspaceId}/assets/.
func BuildAssetsURL(apiBase, workspaceID string) (string, error) {
	return buildWorkspaceURL(apiBase, workspaceID, "assets/")
}

func buildWorkspaceURL(apiBase, workspaceID, suffix string) (string, error) {
	if workspaceID == "" {
		return "", fmt.Errorf("workspace id must not be empty")
	}
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL: %v", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base URL %q is not absolute", apiBase)
	}
	rawBase := strings.TrimSuffix(u.EscapedPath(), "/")
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/workspaces/" + workspaceID + "/" + suffix
	u.RawPath = rawBase + "/api/workspaces/" + url.PathEscape(workspaceID) + "/" + suffix
	return u.String(), nil
}
