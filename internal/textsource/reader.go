// Package textsource reads the plain text inputs of a parse: the raw
// codebook dump and the reference subcategory list.
package textsource

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// maxLineLength bounds a single line. PDF text dumps can contain very long
// lines when a table is flattened.
const maxLineLength = 1 << 20

// ReadLines returns every line of the file in order. Blank lines are kept
// because rules look at the line that follows a header.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	lines, err := ScanLines(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}

// ScanLines splits r into lines. A leading byte order mark selects UTF-8 or
// UTF-16 decoding and is removed; input without one is read as UTF-8.
// Trailing carriage returns are dropped.
func ScanLines(r io.Reader) ([]string, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	scanner := bufio.NewScanner(decoded)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// ReadReferenceList returns the trimmed, non-blank lines of the file.
func ReadReferenceList(path string) ([]string, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return nil, err
	}

	entries := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			entries = append(entries, l)
		}
	}
	return entries, nil
}
