package eventlog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Header is the first line of every day file.
const Header = "id,type,content,station,time,activeFlag"

// TimeLayout is the layout of the time column.
const TimeLayout = "2006-01-02 15:04:05"

const (
	dayLayout = "2006_01_02"
	fileExt   = ".csv"
	numFields = 6
)

// Record is one line of the log.
type Record struct {
	ID      int       `json:"id"`
	Kind    string    `json:"type"`
	Content string    `json:"content"`
	Station string    `json:"station"`
	Time    time.Time `json:"time"`
	Active  bool      `json:"active"`
}

// Validate rejects records that cannot be written without quoting.
func (r Record) Validate() error {
	for name, v := range map[string]string{"type": r.Kind, "content": r.Content, "station": r.Station} {
		if strings.ContainsAny(v, ",\r\n") {
			return fmt.Errorf("%w: %s %q", ErrDelimiterInField, name, v)
		}
	}
	return nil
}

// line renders r without a trailing newline.
func (r Record) line(loc *time.Location) string {
	return strings.Join([]string{
		strconv.Itoa(r.ID),
		r.Kind,
		r.Content,
		r.Station,
		r.Time.In(loc).Format(TimeLayout),
		strconv.FormatBool(r.Active),
	}, ",")
}

// parseLine is the inverse of line. activeFlag accepts any case.
func parseLine(s string, loc *time.Location) (Record, error) {
	fields := strings.Split(s, ",")
	if len(fields) != numFields {
		return Record{}, fmt.Errorf("%w: %d fields", ErrMalformedLine, len(fields))
	}

	id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Record{}, fmt.Errorf("%w: id %q", ErrMalformedLine, fields[0])
	}
	at, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(fields[4]), loc)
	if err != nil {
		return Record{}, fmt.Errorf("%w: time %q", ErrMalformedLine, fields[4])
	}
	active, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(fields[5])))
	if err != nil {
		return Record{}, fmt.Errorf("%w: activeFlag %q", ErrMalformedLine, fields[5])
	}

	return Record{
		ID:      id,
		Kind:    fields[1],
		Content: fields[2],
		Station: fields[3],
		Time:    at,
		Active:  active,
	}, nil
}
