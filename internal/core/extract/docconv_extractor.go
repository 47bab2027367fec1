package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"

	"campusassist/internal/core"
)

// DocconvExtractor implements core.TextExtractor using sajari/docconv.
// All PDF/docx/html parsing lives behind this boundary.
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

// Extract converts the file bytes to plain text based on content type.
func (e *DocconvExtractor) Extract(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if contentType == "" || contentType == "application/octet-stream" || strings.HasPrefix(contentType, "text/") {
		return string(data), nil
	}
	res, err := docconv.Convert(bytes.NewReader(data), contentType, e.useReadability)
	if err != nil {
		return "", fmt.Errorf("docconv %s: %w", contentType, err)
	}
	return res.Body, nil
}

var _ core.TextExtractor = (*DocconvExtractor)(nil)
