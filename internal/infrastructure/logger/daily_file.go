package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultRetentionDays is how many days of log files are kept
	DefaultRetentionDays = 5
	dailyLayout          = "20060102"
	logExt               = ".log"
)

// DailyFileWriter writes to <dir>/YYYYMMDD.log, switching file at midnight
// (local time) and pruning files older than the retention window on open and
// on every switch
type DailyFileWriter struct {
	dir       string
	retention int
	now       func() time.Time
	prune     func(dir string, retentionDays int, now time.Time) ([]string, error)
	// errOutput receives prune failures, like zap's own ErrorOutput
	errOutput io.Writer

	mu   sync.Mutex
	day  string
	file *os.File
}

// NewDailyFileWriter creates dir if needed and opens today's file
func NewDailyFileWriter(dir string, retentionDays int) (*DailyFileWriter, error) {
	return newDailyFileWriter(dir, retentionDays, time.Now)
}

func newDailyFileWriter(dir string, retentionDays int, now func() time.Time) (*DailyFileWriter, error) {
	if dir == "" {
		dir = "logs"
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	w := &DailyFileWriter{
		dir:       dir,
		retention: retentionDays,
		now:       now,
		prune:     PruneOldLogs,
		errOutput: os.Stderr,
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateLocked(now()); err != nil {
		return nil, err
	}
	return w, nil
}

// Write implements io.Writer
func (w *DailyFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if now := w.now(); now.Format(dailyLayout) != w.day {
		if err := w.rotateLocked(now); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

// Sync flushes the current file
func (w *DailyFileWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close closes the current file
func (w *DailyFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// CurrentPath returns the path of the file being written
func (w *DailyFileWriter) CurrentPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return filepath.Join(w.dir, w.day+logExt)
}

func (w *DailyFileWriter) rotateLocked(now time.Time) error {
	day := now.Format(dailyLayout)
	f, err := os.OpenFile(filepath.Join(w.dir, day+logExt), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	w.file = f
	w.day = day

	// a failed prune must not drop the line being written
	if _, err := w.prune(w.dir, w.retention, now); err != nil {
		fmt.Fprintf(w.errOutput, "%v daily log prune error: %v\n", now, err)
	}
	return nil
}

// PruneOldLogs deletes YYYYMMDD.log files in dir dated more than retentionDays
// before now. Files that do not follow the naming scheme are left alone.
// Returns the names of the removed files.
func PruneOldLogs(dir string, retentionDays int, now time.Time) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list log dir: %w", err)
	}

	cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour)
	var removed []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, logExt) {
			continue
		}
		day, err := time.ParseInLocation(dailyLayout, strings.TrimSuffix(name, logExt), now.Location())
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
				return removed, fmt.Errorf("failed to remove %s: %w", name, err)
			}
			removed = append(removed, name)
		}
	}
	return removed, nil
}
