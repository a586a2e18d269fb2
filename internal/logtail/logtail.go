package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns the whole file.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
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
		ring[idx] = scanner.Text()
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

// TimeFormat is the timestamp layout the application logger writes.
const TimeFormat = "2006-01-02 15:04:05"

// Entry is one parsed log line.
type Entry struct {
	Time    string
	Level   string
	Message string
	Fields  string
}

var (
	linePattern  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) (DEBU|INFO|WARN|ERRO|FATA) ?(.*)$`)
	fieldPattern = regexp.MustCompile(`(^| )[A-Za-z_][\w.]*=`)
)

// Parse splits a line written by the text logger into its parts. Lines in
// any other shape come back with only Message set and ok false.
func Parse(line string) (Entry, bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return Entry{Message: line}, false
	}
	e := Entry{Time: m[1], Level: m[2]}
	rest := m[3]
	if loc := fieldPattern.FindStringIndex(rest); loc != nil {
		e.Message = strings.TrimSpace(rest[:loc[0]])
		e.Fields = strings.TrimSpace(rest[loc[0]:])
	} else {
		e.Message = strings.TrimSpace(rest)
	}
	return e, true
}

// Filter keeps the lines at or above level. Lines that cannot be parsed
// belong to the entry before them and share its fate.
func Filter(lines []string, level string) []string {
	floor := levelRank(level)
	if floor <= 0 {
		return lines
	}
	out := make([]string, 0, len(lines))
	keep := true
	for _, line := range lines {
		if e, ok := Parse(line); ok {
			keep = levelRank(e.Level) >= floor
		}
		if keep {
			out = append(out, line)
		}
	}
	return out
}

func levelRank(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBU", "DEBUG":
		return 0
	case "INFO":
		return 1
	case "WARN", "WARNING":
		return 2
	case "ERRO", "ERROR":
		return 3
	case "FATA", "FATAL":
		return 4
	}
	return 0
}
