package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		raw    string
		want   Event
		wantOK bool
	}{
		{`{"status":"completed","msg":"Clean"}`, Event{Kind: EventCompleted, Message: "Clean"}, true},
		{`{"status":"completed"}`, Event{Kind: EventCompleted, Message: DefaultCompletedMessage}, true},
		{`{"status":"failed","msg":"Malware detected"}`, Event{Kind: EventFailed, Message: "Malware detected"}, true},
		{`{"status":"FAILED"}`, Event{Kind: EventFailed, Message: DefaultFailedMessage}, true},
		{`{"status":"in_progress","msg":"  "}`, Event{Kind: EventProgress, Message: DefaultProgressMessage}, true},
		{`{"status":"queued"}`, Event{}, false},
		{`not json`, Event{}, false},
		{`[]`, Event{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseMessage([]byte(tt.raw))
		assert.Equal(t, tt.wantOK, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestEventKindTerminal(t *testing.T) {
	assert.False(t, EventProgress.Terminal())
	assert.True(t, EventCompleted.Terminal())
	assert.True(t, EventFailed.Terminal())
	assert.Equal(t, "in_progress", EventProgress.String())
}
