package eventlog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	defaultReadRetries = 3
	defaultRetryDelay  = 100 * time.Millisecond

	dirPerm  = 0o755
	filePerm = 0o644
)

// writeMu serialises every append in the process, whichever Log issued it.
var writeMu sync.Mutex

// Logger is the subset of logging the event log needs.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the settings for a Log.
type Config struct {
	// Root is the directory holding one sub-directory per device.
	Root string

	// Device names the sub-directory. It must be a single path element.
	Device string

	// ReadRetries is the number of read attempts (default 3).
	ReadRetries int

	// RetryDelay is multiplied by the attempt number between reads (default 100ms).
	RetryDelay time.Duration

	// Location is used for file names and the time column (default time.Local).
	Location *time.Location
}

// Log writes and reads the daily event files of one device.
type Log struct {
	dir   string
	retry Retry
	loc   *time.Location

	logger   Logger
	loggerMu sync.RWMutex
}

// New returns a Log for cfg. Nothing is created on disk until the first append.
func New(cfg Config) (*Log, error) {
	if cfg.Root == "" {
		return nil, errors.New("eventlog: root is required")
	}
	if cfg.Device == "" || cfg.Device == "." || cfg.Device == ".." ||
		strings.ContainsAny(cfg.Device, `/\`) {
		return nil, fmt.Errorf("eventlog: invalid device name %q", cfg.Device)
	}

	l := &Log{
		dir:   filepath.Join(cfg.Root, cfg.Device),
		retry: Retry{Attempts: cfg.ReadRetries, Delay: cfg.RetryDelay}.withDefaults(),
		loc:   cfg.Location,
	}
	if l.loc == nil {
		l.loc = time.Local
	}
	return l, nil
}

// SetLogger sets the logger used for write and read failures.
func (l *Log) SetLogger(logger Logger) {
	l.loggerMu.Lock()
	defer l.loggerMu.Unlock()
	l.logger = logger
}

// Dir returns the device directory.
func (l *Log) Dir() string {
	return l.dir
}

// Location returns the zone used for file names and the time column.
func (l *Log) Location() *time.Location {
	return l.loc
}

// Path returns the file that holds events of the given day.
func (l *Log) Path(day time.Time) string {
	return filepath.Join(l.dir, day.In(l.loc).Format(dayLayout)+fileExt)
}

// EnsureFile creates the day file with its header row if it does not exist.
// It reports whether the file was created by this call.
func (l *Log) EnsureFile(day time.Time) (bool, error) {
	writeMu.Lock()
	defer writeMu.Unlock()
	return l.ensureFileLocked(l.Path(day))
}

func (l *Log) ensureFileLocked(path string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return false, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("creating log file: %w", err)
	}

	_, werr := f.WriteString(Header + "\n")
	cerr := f.Close()
	if werr != nil {
		return true, fmt.Errorf("writing log header: %w", werr)
	}
	if cerr != nil {
		return true, fmt.Errorf("closing log file: %w", cerr)
	}
	return true, nil
}

// Append writes rec to the file of rec.Time's day, creating it if needed.
// The file is opened and closed again for every call.
func (l *Log) Append(rec Record) error {
	return l.AppendOn(rec.Time, rec)
}

// AppendOn writes rec to the file of day. The time column still carries
// rec.Time, so a clear line can keep its raise time while landing in the
// file of the day it was cleared.
func (l *Log) AppendOn(day time.Time, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	path := l.Path(day)
	line := rec.line(l.loc) + "\n"

	writeMu.Lock()
	defer writeMu.Unlock()

	if _, err := l.ensureFileLocked(path); err != nil {
		l.logError("event log write failed", err, "path", path)
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		l.logError("event log write failed", err, "path", path)
		return fmt.Errorf("opening log file: %w", err)
	}
	_, werr := f.WriteString(line)
	cerr := f.Close()
	if werr != nil {
		l.logError("event log write failed", werr, "path", path)
		return fmt.Errorf("appending to log file: %w", werr)
	}
	if cerr != nil {
		l.logError("event log write failed", cerr, "path", path)
		return fmt.Errorf("closing log file: %w", cerr)
	}
	return nil
}

// Read returns every record of the day, newest first. A missing file is
// an empty day. I/O errors are retried; once the attempts are used up the
// failure is logged and an empty result is returned.
func (l *Log) Read(ctx context.Context, day time.Time) []Record {
	path := l.Path(day)

	records, err := ReadWithRetry(ctx, l.retry, func() ([]Record, error) {
		return l.readFile(path)
	}, func(attempt int, err error) {
		l.logDebug("event log read failed", "path", path, "attempt", attempt, "error", err)
	})
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) && ctx.Err() == nil {
			l.logError("event log read gave up", err, "path", path, "attempts", l.retry.Attempts)
		}
		return []Record{}
	}
	sortNewestFirst(records)
	return records
}

// Query reads a day and keeps the records matching f.
func (l *Log) Query(ctx context.Context, day time.Time, f Filter) []Record {
	records := l.Read(ctx, day)
	if f.empty() {
		return records
	}

	out := records[:0]
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Days lists the days that have a log file, newest first.
func (l *Log) Days() ([]time.Time, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []time.Time{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing log directory: %w", err)
	}

	days := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		day, err := time.ParseInLocation(dayLayout, strings.TrimSuffix(name, fileExt), l.loc)
		if err != nil {
			continue
		}
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days, nil
}

func (l *Log) readFile(path string) ([]Record, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the configured root
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only

	records := []Record{}
	first := true
	skipped, err := EachLine(f, func(text string) {
		if first {
			first = false
			if text == Header {
				return
			}
		}
		if strings.TrimSpace(text) == "" {
			return
		}
		rec, perr := parseLine(text, l.loc)
		if perr != nil {
			l.logDebug("skipping event log line", "path", path, "error", perr)
			return
		}
		records = append(records, rec)
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		l.logDebug("skipped oversized event log lines", "path", path, "lines", skipped)
	}
	return records, nil
}

// sortNewestFirst orders by the time column. Lines with equal times come
// out in reverse file order.
func sortNewestFirst(records []Record) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Time.After(records[j].Time)
	})
}

func (l *Log) logDebug(msg string, args ...any) {
	l.loggerMu.RLock()
	logger := l.logger
	l.loggerMu.RUnlock()
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

func (l *Log) logError(msg string, err error, args ...any) {
	l.loggerMu.RLock()
	logger := l.logger
	l.loggerMu.RUnlock()
	if logger != nil {
		logger.Error(msg, append(args, "error", err)...)
	}
}
