package util

import (
	"bytes"
	"io"
	"net/http"
	"strings"
)

const sniffLen = 512

// DetectMIME sniffs the content type of r and returns a reader that yields
// the full original stream.
func DetectMIME(r io.Reader) (string, io.Reader, error) {
	buffer := make([]byte, sniffLen)
	n, err := io.ReadFull(r, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	buffer = buffer[:n]

	return http.DetectContentType(buffer), io.MultiReader(bytes.NewReader(buffer), r), nil
}

func baseMIME(mimeType string) string {
	cleaned := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(cleaned, ";"); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[:idx])
	}
	return cleaned
}

// IsAllowedMIME matches mimeType against exact entries ("application/pdf")
// and family wildcards ("image/*"). An empty allow-list allows everything.
func IsAllowedMIME(mimeType string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}

	base := baseMIME(mimeType)
	for _, candidate := range allowed {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		if family, ok := strings.CutSuffix(candidate, "/*"); ok {
			if strings.HasPrefix(base, family+"/") {
				return true
			}
			continue
		}
		if base == candidate {
			return true
		}
	}
	return false
}

func IsImageMIME(mimeType string) bool {
	return strings.HasPrefix(baseMIME(mimeType), "image/")
}
