package tool

import (
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/moyoez/scandrop/types"
)

func init() {
	// not in Go's builtin table; system mime.types may be missing
	for ext, typ := range map[string]string{
		".mp4":  "video/mp4",
		".webm": "video/webm",
		".mov":  "video/quicktime",
	} {
		if mime.TypeByExtension(ext) == "" {
			_ = mime.AddExtensionType(ext, typ)
		}
	}
}

// FileRefFromInput turns a control API file entry into a FileRef.
// When fileUrl is provided, missing information is read from the local file.
func FileRefFromInput(input types.FileInput) (types.FileRef, error) {
	if input.FileUrl == "" {
		return types.FileRef{}, fmt.Errorf("fileUrl is required")
	}
	parsedUrl, err := url.Parse(input.FileUrl)
	if err != nil {
		return types.FileRef{}, fmt.Errorf("invalid fileUrl: %v", err)
	}
	if parsedUrl.Scheme != "file" {
		return types.FileRef{}, fmt.Errorf("only file:// protocol is supported for fileUrl")
	}

	ref, err := FileRefFromPath(parsedUrl.Path)
	if err != nil {
		return types.FileRef{}, err
	}
	// Declared values override detected ones.
	if input.FileName != "" {
		ref.Name = input.FileName
	}
	if input.FileType != "" {
		ref.MediaType = input.FileType
	}
	return ref, nil
}

// FileRefFromPath stats a local file and detects its media type from the extension.
func FileRefFromPath(filePath string) (types.FileRef, error) {
	DefaultLogger.Debugf("Reading file info from: %s", filePath)
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return types.FileRef{}, fmt.Errorf("failed to stat file: %v", err)
	}
	if fileInfo.IsDir() {
		return types.FileRef{}, fmt.Errorf("path is a directory, not a file")
	}

	fileType := DetectMediaType(filePath)
	return types.FileRef{
		Name:      filepath.Base(filePath),
		MediaType: fileType,
		Size:      fileInfo.Size(),
		Path:      filePath,
	}, nil
}

// DetectMediaType returns the media type for a file name, without parameters.
func DetectMediaType(name string) string {
	fileType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if fileType == "" {
		return "application/octet-stream" // Default MIME type
	}
	if mediaType, _, err := mime.ParseMediaType(fileType); err == nil {
		return mediaType
	}
	return fileType
}
