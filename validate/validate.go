// Package validate checks selected files against the upload whitelist before
// any network call is made.
package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/moyoez/scandrop/types"
)

const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB

	MaxImageSize = 10 * MB
	MaxVideoSize = 100 * MB
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)

// RejectError carries the human-readable reason a file was refused.
type RejectError struct {
	Reason string
	Err    error
}

func (e *RejectError) Error() string { return e.Reason }
func (e *RejectError) Unwrap() error { return e.Err }

// UserMessage is the text shown on the failed task.
func (e *RejectError) UserMessage() string { return e.Reason }

// DefaultRules is the whitelist used when the config file provides none.
func DefaultRules() []types.WhitelistRule {
	return []types.WhitelistRule{
		{MediaType: "image/jpeg", Extensions: []string{".jpg", ".jpeg"}, MaxSize: MaxImageSize},
		{MediaType: "image/png", Extensions: []string{".png"}, MaxSize: MaxImageSize},
		{MediaType: "image/gif", Extensions: []string{".gif"}, MaxSize: MaxImageSize},
		{MediaType: "image/webp", Extensions: []string{".webp"}, MaxSize: MaxImageSize},
		{MediaType: "video/mp4", Extensions: []string{".mp4"}, MaxSize: MaxVideoSize},
		{MediaType: "video/webm", Extensions: []string{".webm"}, MaxSize: MaxVideoSize},
		{MediaType: "video/quicktime", Extensions: []string{".mov"}, MaxSize: MaxVideoSize},
	}
}

// Validator is safe for concurrent use; it is never mutated after New.
type Validator struct {
	rules map[string]types.WhitelistRule
	order []string
}

// New builds a validator from rules. An empty rule set falls back to DefaultRules.
func New(rules []types.WhitelistRule) *Validator {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	v := &Validator{rules: make(map[string]types.WhitelistRule, len(rules))}
	for _, r := range rules {
		mediaType := strings.ToLower(strings.TrimSpace(r.MediaType))
		if mediaType == "" {
			continue
		}
		if _, dup := v.rules[mediaType]; !dup {
			v.order = append(v.order, mediaType)
		}
		r.MediaType = mediaType
		v.rules[mediaType] = r
	}
	return v
}

// Validate returns nil when the file may be uploaded, or a *RejectError.
func (v *Validator) Validate(f types.FileRef) error {
	mediaType := strings.ToLower(strings.TrimSpace(f.MediaType))
	rule, ok := v.rules[mediaType]
	if !ok {
		shown := f.MediaType
		if shown == "" {
			shown = "unknown"
		}
		return &RejectError{
			Reason: fmt.Sprintf("Unsupported file type: %s. Allowed types: %s", shown, strings.Join(v.order, ", ")),
			Err:    ErrUnsupportedType,
		}
	}
	if f.Size > rule.MaxSize {
		return &RejectError{
			Reason: fmt.Sprintf("File size %s exceeds the maximum of %s for %s", FormatBytes(f.Size), FormatBytes(rule.MaxSize), mediaType),
			Err:    ErrFileTooLarge,
		}
	}
	return nil
}

// Rules returns the whitelist in configuration order.
func (v *Validator) Rules() []types.WhitelistRule {
	out := make([]types.WhitelistRule, 0, len(v.order))
	for _, mediaType := range v.order {
		out = append(out, v.rules[mediaType])
	}
	return out
}

// AcceptHints returns the sorted, de-duplicated extension hints for file pickers.
func (v *Validator) AcceptHints() []string {
	seen := make(map[string]struct{})
	var hints []string
	for _, r := range v.rules {
		for _, ext := range r.Extensions {
			ext = strings.ToLower(ext)
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			if _, ok := seen[ext]; ok {
				continue
			}
			seen[ext] = struct{}{}
			hints = append(hints, ext)
		}
	}
	sort.Strings(hints)
	return hints
}

// FormatBytes renders n in base-1024 units: one decimal up to MB, two at GB.
func FormatBytes(n int64) string {
	switch {
	case n < KB:
		return fmt.Sprintf("%d bytes", n)
	case n < MB:
		return fmt.Sprintf("%.1f KB", float64(n)/KB)
	case n < GB:
		return fmt.Sprintf("%.1f MB", float64(n)/MB)
	default:
		return fmt.Sprintf("%.2f GB", float64(n)/GB)
	}
}
