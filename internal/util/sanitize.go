package util

import (
	"path"
	"regexp"
	"strings"
	"unicode"

	"freight-backoffice/pkg/apierror"
)

const maxFilenameRunes = 200

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// SanitizeFilename turns a client-supplied upload name into a safe single
// path segment. Directory parts are dropped, leading dots are stripped and
// overlong names are cut while keeping the extension.
func SanitizeFilename(name string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	base := path.Base(normalized)
	if base == "." || base == "/" {
		base = ""
	}

	var builder strings.Builder
	builder.Grow(len(base))
	for _, char := range base {
		if unicode.IsControl(char) || unicode.Is(unicode.Cf, char) {
			continue
		}
		builder.WriteRune(char)
	}

	cleaned := invalidFilenameChars.ReplaceAllString(builder.String(), "_")
	cleaned = strings.TrimLeft(strings.TrimSpace(cleaned), ". ")
	if cleaned == "" {
		return "", apierror.BadRequest("invalid file name", name)
	}

	stem, ext := cleaned, ""
	if idx := strings.LastIndex(cleaned, "."); idx > 0 {
		stem, ext = cleaned[:idx], cleaned[idx:]
	}
	if _, reserved := reservedNames[strings.ToUpper(strings.SplitN(stem, ".", 2)[0])]; reserved {
		stem = "_" + stem
	}

	if runes := []rune(stem + ext); len(runes) > maxFilenameRunes {
		extRunes := []rune(ext)
		if len(extRunes) > 16 {
			extRunes = nil
		}
		stemRunes := []rune(stem)
		stemRunes = stemRunes[:maxFilenameRunes-len(extRunes)]
		stem, ext = string(stemRunes), string(extRunes)
	}

	return stem + ext, nil
}
