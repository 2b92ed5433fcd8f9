package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	return ReadFiltered(path, maxLines, "")
}

// ReadFiltered is Read restricted to lines containing filter, ignoring case.
// maxLines counts matching lines only.
func ReadFiltered(path string, maxLines int, filter string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	needle := strings.ToLower(strings.TrimSpace(filter))
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			if matches(scanner.Text(), needle) {
				lines = append(lines, scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		line := scanner.Text()
		if !matches(line, needle) {
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Severity classifies a log line by the words taskdeck's own log messages use.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

// Classify guesses a line's severity. Retry notices are warnings, failures
// and give-ups are errors.
func Classify(line string) Severity {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "giving up"):
		return SeverityError
	case strings.Contains(lower, "retrying"):
		return SeverityWarn
	case strings.Contains(lower, "failed"), strings.Contains(lower, "error"):
		return SeverityError
	case strings.Contains(lower, "warn"), strings.Contains(lower, "timed out"):
		return SeverityWarn
	default:
		return SeverityInfo
	}
}

func matches(line, needle string) bool {
	return needle == "" || strings.Contains(strings.ToLower(line), needle)
}
