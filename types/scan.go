package types

// Scan status vocabulary sent by the push channel.
const (
	ScanInProgress = "in_progress"
	ScanCompleted  = "completed"
	ScanFailed     = "failed"
)

// ScanMessage is the inbound payload of /ws/scan/{pending_id}/.
type ScanMessage struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
}
