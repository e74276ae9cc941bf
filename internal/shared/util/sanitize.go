package util

import (
	"errors"
	"path"
	"strings"
	"unicode"
)

// maxFileNameLen bounds sanitized names; the extension is kept when truncating.
const maxFileNameLen = 100

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens path separators and whitespace to underscores,
// drops control characters and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\' || unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteRune('_')
			}
			lastUnderscore = true
			continue
		case unicode.IsControl(r):
			continue
		}
		b.WriteRune(r)
		lastUnderscore = r == '_'
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "", ErrInvalidFileName
	}
	if len(s) > maxFileNameLen {
		ext := path.Ext(s)
		if len(ext) > 10 {
			ext = ""
		}
		s = strings.ToValidUTF8(s[:maxFileNameLen-len(ext)], "") + ext
	}
	return s, nil
}
