package studyguide

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	apperrors "github.com/yanqian/gistflow/pkg/errors"
)

// DefaultMaxUploadBytes caps uploaded note files at 1 MiB.
const DefaultMaxUploadBytes int64 = 1 << 20

// Upload is a note file supplied by the caller.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ReadNotes validates an uploaded plain text file and returns its content.
// A missing content type is sniffed from the first bytes.
func ReadNotes(upload Upload, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if upload.Body == nil {
		return "", apperrors.Wrap(CodeInvalidInput, "Please upload a text file (.txt)", nil)
	}

	data, err := io.ReadAll(io.LimitReader(upload.Body, maxBytes+1))
	if err != nil {
		return "", apperrors.Wrap(CodeInvalidInput, "Error reading file", err)
	}
	if int64(len(data)) > maxBytes {
		return "", apperrors.Wrap(CodeInvalidInput, fmt.Sprintf("File is too large - the limit is %s", humanBytes(maxBytes)), nil)
	}

	contentType := strings.TrimSpace(upload.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "text/plain" {
		return "", apperrors.Wrap(CodeInvalidInput, "Please upload a text file (.txt)", err)
	}
	if !utf8.Valid(data) {
		return "", apperrors.Wrap(CodeInvalidInput, "File is not valid UTF-8 text", nil)
	}

	notes := strings.TrimPrefix(string(data), "\ufeff")
	if strings.TrimSpace(notes) == "" {
		return "", apperrors.Wrap(CodeInvalidInput, "The uploaded file is empty", nil)
	}
	return notes, nil
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MiB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KiB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
