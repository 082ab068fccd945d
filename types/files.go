package types

// FileInput represents a file submitted to the control API.
// fileUrl is required; size always comes from the file on disk.
type FileInput struct {
	FileUrl  string `json:"fileUrl"`            // file:/// URL of a local file
	FileName string `json:"fileName,omitempty"` // overrides the name taken from the path
	FileType string `json:"fileType,omitempty"` // overrides the media type detected from the extension
}

// AddFilesRequest is the body of POST /api/self/v1/tasks.
type AddFilesRequest struct {
	Files []FileInput `json:"files"`
}

// AddFilesResponse reports the task ids created for one batch.
type AddFilesResponse struct {
	BatchId string   `json:"batchId"`
	TaskIds []string `json:"taskIds"`
}

// Batch groups the task ids created by one AddFiles call.
type Batch struct {
	BatchId string   `json:"batchId"`
	TaskIds []string `json:"taskIds"`
}
