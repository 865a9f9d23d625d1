package production

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/eventlog"
)

// Header substrings locating the series columns.
const (
	ColumnLabel = "时间"
	ColumnOK    = "OK"
	ColumnNG    = "NG"
)

// Logger is the subset of logging the archive needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Config holds the settings for an Archive.
type Config struct {
	// Root holds the "{yyyy_MM}月" month directories.
	Root string

	// RecordFiles are served whole by Records. Entries that do not exist
	// or are not .csv files are hidden.
	RecordFiles []string

	// Encoding is "auto" (default), "utf-8" or "gbk".
	Encoding string

	// Retry bounds every read (default eventlog.DefaultRetry).
	Retry eventlog.Retry
}

// Series is one chart of production output: a label per row and the OK
// and NG counts of that row. The three slices have the length of the
// label column; a short row reads as zero.
type Series struct {
	// Labels is the "时间" column, e.g. "08:00-09:00" or "03月01号".
	Labels []string `json:"labels"`

	// OK is the count of good parts per row.
	OK []float64 `json:"ok"`

	// NG is the count of rejected parts per row.
	NG []float64 `json:"ng"`
}

// Archive reads daily, monthly and record files.
type Archive struct {
	root    string
	records []string
	decode  decoder
	retry   eventlog.Retry

	logger   Logger
	loggerMu sync.RWMutex
}

// New returns an archive over cfg.Root.
func New(cfg Config) (*Archive, error) {
	dec, err := newDecoder(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	return &Archive{
		root:    cfg.Root,
		records: append([]string(nil), cfg.RecordFiles...),
		decode:  dec,
		retry:   cfg.Retry,
	}, nil
}

// SetLogger sets the logger.
func (a *Archive) SetLogger(logger Logger) {
	a.loggerMu.Lock()
	defer a.loggerMu.Unlock()
	a.logger = logger
}

// DayPath returns the daily file of day.
func (a *Archive) DayPath(day time.Time) string {
	return filepath.Join(a.monthDir(day), "ProductData_"+day.Format("2006_01_02")+".csv")
}

// MonthPath returns the monthly file of month.
func (a *Archive) MonthPath(month time.Time) string {
	return filepath.Join(a.monthDir(month), "ProductData_"+month.Format("2006_01")+".csv")
}

func (a *Archive) monthDir(t time.Time) string {
	return filepath.Join(a.root, t.Format("2006_01")+"月")
}

// Day returns the hourly series of day.
func (a *Archive) Day(ctx context.Context, day time.Time) (Series, error) {
	return a.series(ctx, a.DayPath(day))
}

// Month returns the daily series of month.
func (a *Archive) Month(ctx context.Context, month time.Time) (Series, error) {
	return a.series(ctx, a.MonthPath(month))
}

func (a *Archive) series(ctx context.Context, path string) (Series, error) {
	tbl, err := a.table(ctx, path)
	if err != nil {
		return emptySeries(), err
	}

	labelCol := tbl.Column(ColumnLabel)
	if labelCol < 0 {
		a.logWarn("production file has no label column", "path", path, "column", ColumnLabel)
		return emptySeries(), nil
	}
	okCol, ngCol := tbl.Column(ColumnOK), tbl.Column(ColumnNG)

	s := emptySeries()
	for _, row := range tbl.Rows {
		if labelCol >= len(row) {
			continue
		}
		s.Labels = append(s.Labels, row[labelCol])
		s.OK = append(s.OK, cellValue(row, okCol))
		s.NG = append(s.NG, cellValue(row, ngCol))
	}
	return s, nil
}

// Files returns the configured record files that exist, in configured order.
func (a *Archive) Files() []string {
	files := []string{}
	for _, f := range a.records {
		if !strings.EqualFold(filepath.Ext(f), ".csv") {
			continue
		}
		if info, err := os.Stat(f); err == nil && info.Mode().IsRegular() {
			files = append(files, f)
		}
	}
	return files
}

// Records returns the whole table of Files()[index].
func (a *Archive) Records(ctx context.Context, index int) (eventlog.Table, error) {
	files := a.Files()
	if index < 0 || index >= len(files) {
		return eventlog.Table{}, fmt.Errorf("%w: %d", ErrUnknownRecordFile, index)
	}
	return a.table(ctx, files[index])
}

// table reads path with retries. A missing file is an empty table.
func (a *Archive) table(ctx context.Context, path string) (eventlog.Table, error) {
	tbl, err := eventlog.ReadWithRetry(ctx, a.retry, func() (eventlog.Table, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return eventlog.Table{}, err
		}
		text, err := a.decode(raw)
		if err != nil {
			return eventlog.Table{}, err
		}
		return eventlog.ParseTable(text)
	}, func(attempt int, err error) {
		a.logDebug("production file read failed", "path", path, "attempt", attempt, "error", err)
	})
	switch {
	case err == nil:
		return tbl, nil
	case errors.Is(err, fs.ErrNotExist):
		return eventlog.Table{Header: []string{}, Rows: [][]string{}}, nil
	default:
		return eventlog.Table{}, fmt.Errorf("reading %s: %w", path, err)
	}
}

func emptySeries() Series {
	return Series{Labels: []string{}, OK: []float64{}, NG: []float64{}}
}

// cellValue parses column col of row; a missing or non-numeric cell is 0.
func cellValue(row []string, col int) float64 {
	if col < 0 || col >= len(row) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return 0
	}
	return v
}

func (a *Archive) getLogger() Logger {
	a.loggerMu.RLock()
	defer a.loggerMu.RUnlock()
	return a.logger
}

func (a *Archive) logDebug(msg string, args ...any) {
	if l := a.getLogger(); l != nil {
		l.Debug(msg, args...)
	}
}

func (a *Archive) logWarn(msg string, args ...any) {
	if l := a.getLogger(); l != nil {
		l.Warn(msg, args...)
	}
}
