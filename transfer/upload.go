package transfer

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/moyoez/scandrop/tool"
	"github.com/moyoez/scandrop/types"
)

const (
	// UploadFieldName is the multipart field the upload endpoint reads.
	UploadFieldName = "file"
	// DefaultServerError is shown when the server gives no message of its own.
	DefaultServerError = "server error"
	// InvalidResponseError is shown when a 2xx body cannot be decoded.
	InvalidResponseError = "invalid server response"
)

// UploadError is a failed upload call. Message is safe to show to the user.
type UploadError struct {
	StatusCode int // 0 for transport-level failures
	Message    string
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload failed (%d): %s", e.StatusCode, e.Message)
	}
	return "upload failed: " + e.Message
}

func (e *UploadError) Unwrap() error { return e.Err }

// UserMessage is the text shown on the failed task.
func (e *UploadError) UserMessage() string { return e.Message }

// Uploader performs the single-request multipart upload of one file.
type Uploader struct {
	client      *http.Client
	apiBase     string
	workspaceID string
	token       string
}

// NewUploader creates an uploader for one workspace. A nil client uses tool.UploadHttpClient.
func NewUploader(client *http.Client, apiBase, workspaceID, token string) *Uploader {
	if client == nil {
		client = tool.UploadHttpClient
	}
	return &Uploader{
		client:      client,
		apiBase:     apiBase,
		workspaceID: workspaceID,
		token:       token,
	}
}

// Upload sends file and returns the scan ticket, which is empty when the server
// finished the scan synchronously. onProgress receives 0-100 and may be nil.
func (u *Uploader) Upload(ctx context.Context, file types.FileRef, onProgress func(int)) (string, error) {
	select {
	case <-ctx.Done():
		return "", &UploadError{Message: "upload cancelled", Err: ctx.Err()}
	default:
	}

	url, err := tool.BuildUploadURL(u.apiBase, u.workspaceID)
	if err != nil {
		return "", &UploadError{Message: DefaultServerError, Err: fmt.Errorf("failed to build upload URL: %v", err)}
	}

	src, err := file.Open()
	if err != nil {
		return "", &UploadError{Message: "could not read file", Err: err}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer src.Close()
		pw.CloseWithError(writeMultipart(mw, file, &progressReader{r: src, total: file.Size, report: onProgress}))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		pr.CloseWithError(err)
		wg.Wait()
		return "", &UploadError{Message: DefaultServerError, Err: fmt.Errorf("failed to create upload request: %v", err)}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	tool.SetAuthHeader(req, u.token)

	resp, err := u.client.Do(req)
	// unblock the writer if the request died before draining the body
	pr.CloseWithError(io.ErrClosedPipe)
	wg.Wait()
	if err != nil {
		if ctx.Err() != nil {
			return "", &UploadError{Message: "upload cancelled", Err: ctx.Err()}
		}
		return "", &UploadError{Message: DefaultServerError, Err: fmt.Errorf("failed to send upload request: %v", err)}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		tool.DefaultLogger.Warnf("[Upload] Failed to read response body: %v", readErr)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &UploadError{
			StatusCode: resp.StatusCode,
			Message:    serverMessage(body),
			Err:        fmt.Errorf("upload request failed: %s", resp.Status),
		}
	}

	var response types.UploadResponse
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := responseAPI.Unmarshal(body, &response); err != nil {
			return "", &UploadError{
				StatusCode: resp.StatusCode,
				Message:    InvalidResponseError,
				Err:        fmt.Errorf("failed to decode upload response: %v", err),
			}
		}
	}
	if onProgress != nil {
		onProgress(100)
	}
	ticket := response.Ticket()
	tool.DefaultLogger.Infof("[Upload] %s uploaded to %s (ticket=%q)", file.Name, url, ticket)
	return ticket, nil
}

// responseAPI keeps numeric pending ids exact.
var responseAPI = sonic.Config{UseNumber: true}.Froze()

func writeMultipart(mw *multipart.Writer, file types.FileRef, src io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, UploadFieldName, escapeQuotes(file.Name)))
	contentType := file.MediaType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create multipart part: %v", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to write file data: %v", err)
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// serverMessage extracts message or detail from an error body.
func serverMessage(body []byte) string {
	if len(body) == 0 {
		return DefaultServerError
	}
	var errorResponse types.ErrorResponse
	if err := sonic.Unmarshal(body, &errorResponse); err != nil {
		return DefaultServerError
	}
	if errorResponse.Message != "" {
		return errorResponse.Message
	}
	if errorResponse.Detail != "" {
		return errorResponse.Detail
	}
	return DefaultServerError
}

// progressReader reports integer percentages as bytes are consumed.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.report != nil && p.total > 0 {
		pct := int(p.read * 100 / p.total)
		if pct > 99 {
			pct = 99 // 100 is reported once the server answered
		}
		if pct > p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
