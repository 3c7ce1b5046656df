package infra

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/act_mon/internal/domain"
)

const (
	logFilePrefix = "events-"
	logFileSuffix = ".jsonl"
	logDayLayout  = "20060102"
)

// logLine is the on-disk shape of one event.
type logLine struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Data      any    `json:"data"`
}

// JSONLSink implements domain.EventSink and domain.LogRotator.
// One newline-delimited JSON file per UTC day under <dataDir>/logs.
type JSONLSink struct {
	dir string

	mu     sync.Mutex
	day    string
	file   *os.File
	writer *bufio.Writer
}

// LogDir returns the event log directory for a data directory.
func LogDir(dataDir string) string {
	return filepath.Join(dataDir, "logs")
}

// LogFileName returns the file name holding events of t's UTC day.
func LogFileName(t time.Time) string {
	return logFilePrefix + t.UTC().Format(logDayLayout) + logFileSuffix
}

// NewJSONLSink creates the log directory if needed. Files are opened lazily.
func NewJSONLSink(dataDir string) (*JSONLSink, error) {
	dir := LogDir(dataDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &JSONLSink{dir: dir}, nil
}

// Dir returns the log directory.
func (s *JSONLSink) Dir() string {
	return s.dir
}

// Write appends ev to the file of its UTC day, switching files on rollover.
func (s *JSONLSink) Write(ev domain.ActivityEvent) error {
	var data any = struct{}{}
	if ev.Payload != nil {
		data = ev.Payload
	}
	line, err := json.Marshal(logLine{
		Timestamp: ev.Timestamp.Format(time.RFC3339Nano),
		Type:      string(ev.Kind),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.Kind, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	day := ev.Timestamp.UTC().Format(logDayLayout)
	if s.file == nil || day != s.day {
		if err := s.openLocked(day); err != nil {
			return err
		}
	}

	if _, err := s.writer.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Flush pushes buffered lines to the file.
func (s *JSONLSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		return nil
	}
	return s.writer.Flush()
}

// Close flushes and closes the current file. The sink reopens on the next Write.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *JSONLSink) openLocked(day string) error {
	if err := s.closeLocked(); err != nil {
		return err
	}
	path := filepath.Join(s.dir, logFilePrefix+day+logFileSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	s.file = f
	s.writer = bufio.NewWriter(f)
	s.day = day
	return nil
}

func (s *JSONLSink) closeLocked() error {
	if s.file == nil {
		return nil
	}
	flushErr := s.writer.Flush()
	closeErr := s.file.Close()
	s.file, s.writer, s.day = nil, nil, ""
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

type logFile struct {
	path    string
	size    int64
	modTime time.Time
}

// Rotate deletes event logs older than retentionDays, then deletes the
// oldest remaining logs until their total size is within maxSizeMB.
// maxSizeMB <= 0 disables the size budget.
func (s *JSONLSink) Rotate(now time.Time, retentionDays, maxSizeMB int) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list event logs: %w", err)
	}

	s.mu.Lock()
	active := ""
	if s.file != nil {
		active = s.file.Name()
	}
	s.mu.Unlock()

	var files []logFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, logFileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // Removed concurrently
		}
		files = append(files, logFile{
			path:    filepath.Join(s.dir, name),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	var removed []string
	var firstErr error
	remove := func(f logFile) bool {
		if f.path == active {
			return false
		}
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = err
			}
			return false
		}
		removed = append(removed, f.path)
		return true
	}

	cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour)
	var kept []logFile
	var total int64
	for _, f := range files {
		if retentionDays > 0 && f.modTime.Before(cutoff) && remove(f) {
			continue
		}
		kept = append(kept, f)
		total += f.size
	}

	if maxSizeMB > 0 {
		budget := int64(maxSizeMB) * 1024 * 1024
		for _, f := range kept {
			if total <= budget {
				break
			}
			if remove(f) {
				total -= f.size
			}
		}
	}

	return removed, firstErr
}

// Ensure JSONLSink implements domain.EventSink and domain.LogRotator.
var _ domain.EventSink = (*JSONLSink)(nil)
var _ domain.LogRotator = (*JSONLSink)(nil)
