package util

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var errInvalidFileName = errors.New("invalid file name")

// SanitizeFileName turns a generated output name into a single safe path segment.
// Separators, reserved punctuation and control characters become underscores; the result is
// NFC-normalized.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errInvalidFileName
	}
	s := norm.NFC.String(strings.TrimSpace(name))
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, s)
	if strings.Trim(s, "_ ") == "" {
		return "", errInvalidFileName
	}
	return s, nil
}
