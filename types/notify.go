package types

// Notification represents a notification message structure
type Notification struct {
	Type    string         `json:"type,omitempty"`    // Notification type, e.g. "task_updated", "task_removed"
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}

const (
	NotifyTypeTaskUpdated   = "task_updated"
	NotifyTypeTaskRemoved   = "task_removed"
	NotifyTypeTasksCleared  = "tasks_cleared"
	NotifyTypeUploadDone    = "upload_completed"
	NotifyTypeUploadFailed  = "upload_failed"
	NotifyTypeAssetsRefresh = "assets_refreshed"
)
