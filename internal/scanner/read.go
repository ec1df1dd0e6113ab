package scanner

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// readFileText reads a source file as UTF-8, retrying once as Latin-1 when
// the bytes are not valid UTF-8. Repositories routinely contain a handful of
// legacy-encoded files and those must still produce nodes rather than errors.
func readFileText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return string(decoded), nil
}

// splitLines splits file content into lines without the trailing newline.
func splitLines(content string) []string {
	return strings.Split(content, "\n")
}

// snippet extracts the lines around line (1-indexed) with context lines of
// surrounding code on each side.
func snippet(lines []string, line, context int) string {
	start := line - context - 1
	if start < 0 {
		start = 0
	}
	end := line + context
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}
