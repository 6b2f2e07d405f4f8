package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Entry is one line of a JSON log file written by New.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  map[string]any
	// Raw is set instead of the decoded fields when the line is not JSON.
	Raw string
}

// String renders the entry as "15:04:05 INFO  message key=value ...".
func (e Entry) String() string {
	if e.Raw != "" {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", strings.ToUpper(e.Level), e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

// Tail returns at most maxLines entries from the end of the log file at
// path, skipping entries below minLevel. An empty minLevel keeps every
// entry. A missing file yields no entries.
func Tail(path string, maxLines int, minLevel string) ([]Entry, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	floor := zapcore.DebugLevel
	if minLevel != "" {
		lvl := parseLevel(strings.ToLower(minLevel))
		if lvl == nil {
			return nil, fmt.Errorf("unknown log level %q", minLevel)
		}
		floor = *lvl
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]Entry, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry := decodeEntry(line)
		if entry.Raw == "" && !atLeast(entry.Level, floor) {
			continue
		}
		ring[idx] = entry
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	entries := make([]Entry, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			entries[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(entries, ring[:count])
	}
	return entries, nil
}

func decodeEntry(line string) Entry {
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return Entry{Raw: line}
	}
	entry := Entry{Fields: fields}
	if lvl, ok := fields["level"].(string); ok {
		entry.Level = lvl
	}
	if msg, ok := fields["msg"].(string); ok {
		entry.Message = msg
	}
	if ts, ok := fields["ts"].(float64); ok {
		sec, frac := math.Modf(ts)
		entry.Time = time.Unix(int64(sec), int64(frac*1e9))
	}
	for _, k := range []string{"level", "msg", "ts", "caller"} {
		delete(fields, k)
	}
	return entry
}

func atLeast(level string, floor zapcore.Level) bool {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return true
	}
	return lvl >= floor
}
