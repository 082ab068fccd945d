package scan

import (
	"strings"

	"github.com/bytedance/sonic"

	"github.com/moyoez/scandrop/types"
)

// EventKind is the normalized meaning of one channel message.
type EventKind int

const (
	EventProgress EventKind = iota // still working, message only
	EventCompleted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "in_progress"
	}
}

// Terminal reports whether the event ends the scan.
func (k EventKind) Terminal() bool {
	return k == EventCompleted || k == EventFailed
}

const (
	DefaultProgressMessage  = "Security scan in progress..."
	DefaultCompletedMessage = "Upload completed"
	DefaultFailedMessage    = "Security scan failed"
)

// Event is a normalized scan status update.
type Event struct {
	Kind    EventKind
	Message string
}

// ParseMessage normalizes a raw channel payload. ok is false for anything that
// is not a JSON object with a recognized status.
func ParseMessage(raw []byte) (Event, bool) {
	var msg types.ScanMessage
	if err := sonic.Unmarshal(raw, &msg); err != nil {
		return Event{}, false
	}
	text := strings.TrimSpace(msg.Msg)
	switch strings.ToLower(strings.TrimSpace(msg.Status)) {
	case types.ScanCompleted:
		return Event{Kind: EventCompleted, Message: orDefault(text, DefaultCompletedMessage)}, true
	case types.ScanFailed:
		return Event{Kind: EventFailed, Message: orDefault(text, DefaultFailedMessage)}, true
	case types.ScanInProgress:
		return Event{Kind: EventProgress, Message: orDefault(text, DefaultProgressMessage)}, true
	default:
		return Event{}, false
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
