// Package utils holds small helpers shared by the upload paths.
package utils

import (
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
	multipleSpaces       = regexp.MustCompile(`\s+`)
)

// maxFilenameLength leaves room for the random prefix storage keys carry.
const maxFilenameLength = 200

// DefaultFilename replaces names that sanitize to nothing.
const DefaultFilename = "download"

// SanitizeFilename turns a client supplied upload name into something safe to
// store and to send back in a Content-Disposition header. Directory parts are
// dropped, including Windows ones some browsers still send.
func SanitizeFilename(filename string) string {
	if i := strings.LastIndexAny(filename, `/\`); i >= 0 {
		filename = filename[i+1:]
	}

	// Whitespace first so tabs and newlines become spaces, not nothing
	filename = multipleSpaces.ReplaceAllString(filename, " ")
	filename = invalidFilenameChars.ReplaceAllString(filename, "")
	filename = strings.Trim(filename, " .")

	if len(filename) > maxFilenameLength {
		ext := path.Ext(filename)
		if len(ext) > 16 {
			ext = ""
		}
		filename = strings.TrimSpace(truncateUTF8(strings.TrimSuffix(filename, ext), maxFilenameLength-len(ext))) + ext
	}

	if filename == "" {
		return DefaultFilename
	}
	return filename
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
