package logger

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// LogEntry represents a parsed log feed line
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

var linePattern = regexp.MustCompile(`^(\S+) \[(\w+)\]: (.*)$`)

// ParseLine parses a "<timestamp> [<level>]: <text>" line.
// Lines in any other shape become an info entry carrying the raw text.
func ParseLine(line string) LogEntry {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return LogEntry{Level: string(LevelInfo), Message: line}
	}
	return LogEntry{Timestamp: m[1], Level: m[2], Message: m[3]}
}

// LogReader reads the durable log feed file
type LogReader struct {
	path string
}

// NewLogReader creates a new log reader
func NewLogReader(path string) *LogReader {
	return &LogReader{
		path: path,
	}
}

// Path returns the file the reader reads from
func (lr *LogReader) Path() string {
	return lr.path
}

// ReadLines returns every non-empty line in file order
func (lr *LogReader) ReadLines() ([]string, error) {
	file, err := os.Open(lr.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// ReadLogs reads the last limit entries (all when limit <= 0)
func (lr *LogReader) ReadLogs(limit int) ([]LogEntry, error) {
	lines, err := lr.ReadLines()
	if err != nil {
		return nil, err
	}

	startIdx := 0
	if limit > 0 && len(lines) > limit {
		startIdx = len(lines) - limit
	}

	entries := make([]LogEntry, 0, len(lines)-startIdx)
	for _, line := range lines[startIdx:] {
		entries = append(entries, ParseLine(line))
	}

	return entries, nil
}

// SearchLogs returns the last limit entries whose message or level contains query
func (lr *LogReader) SearchLogs(query string, limit int) ([]LogEntry, error) {
	entries, err := lr.ReadLogs(0)
	if err != nil {
		return nil, err
	}

	var filtered []LogEntry
	query = strings.ToLower(query)

	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Message), query) ||
			strings.Contains(strings.ToLower(entry.Level), query) {
			filtered = append(filtered, entry)
		}
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	return filtered, nil
}
