// Package extract turns stored resume files into plain text for the AI
// summary pipeline. PDF, Word and image (OCR) formats are supported; anything
// else is rejected up front.
package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"code.sajari.com/docconv"
)

// ErrUnsupportedType means the resume's extension has no extraction path.
var ErrUnsupportedType = errors.New("unsupported resume file type")

var mimeByExtension = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
}

// Supported reports whether text can be extracted for the extension.
func Supported(extension string) bool {
	_, ok := mimeByExtension[normalizeExt(extension)]
	return ok
}

// Extension pulls the lower-cased extension out of an object key or filename.
func Extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// Text extracts plain text from the reader based on the declared extension.
// An empty result with a nil error is possible (e.g. a scanned PDF without an
// OCR layer); callers decide how to degrade.
func Text(r io.Reader, extension string) (string, error) {
	mime, ok := mimeByExtension[normalizeExt(extension)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, extension)
	}

	res, err := docconv.Convert(r, mime, true)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", extension, err)
	}
	return strings.TrimSpace(res.Body), nil
}

func normalizeExt(extension string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(extension), "."))
}
