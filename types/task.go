package types

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"
)

// TaskStatus is the lifecycle state of one upload task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusUploading TaskStatus = "uploading"
	StatusScanning  TaskStatus = "scanning"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// IsTerminal reports whether no transition can leave the status.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// FileRef is an immutable handle to a file selected for upload.
// Bytes come from Path when set, otherwise from Content.
type FileRef struct {
	Name      string `json:"fileName"`
	MediaType string `json:"fileType"`
	Size      int64  `json:"size"`
	Path      string `json:"path,omitempty"`
	Content   []byte `json:"-"`
}

// Open returns a reader over the file bytes.
func (f FileRef) Open() (io.ReadCloser, error) {
	if f.Path != "" {
		file, err := os.Open(f.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %v", f.Path, err)
		}
		return file, nil
	}
	return io.NopCloser(bytes.NewReader(f.Content)), nil
}

// UploadTask is one file's journey through validation, upload and scan tracking.
type UploadTask struct {
	ID        string     `json:"id"`
	File      FileRef    `json:"file"`
	Status    TaskStatus `json:"status"`
	Progress  int        `json:"progress"`
	Message   string     `json:"message,omitempty"`
	Error     string     `json:"error,omitempty"`
	TicketID  string     `json:"ticketId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// TaskPatch is a partial update of an UploadTask; nil fields are left unchanged.
type TaskPatch struct {
	Status   *TaskStatus
	Progress *int
	Message  *string
	Error    *string
	TicketID *string
}

// Pointer helpers for building a TaskPatch.

func WithStatus(s TaskStatus) *TaskStatus { return &s }
func WithInt(v int) *int                  { return &v }
func WithString(v string) *string         { return &v }
