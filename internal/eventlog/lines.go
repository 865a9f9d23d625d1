package eventlog

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// MaxLineBytes is the longest line EachLine hands out. Longer lines are
// skipped instead of failing the whole file.
const MaxLineBytes = 1 << 20

// EachLine calls fn for every line of r without its line ending.
//
// Returns the number of lines skipped for exceeding MaxLineBytes and any
// read error.
func EachLine(r io.Reader, fn func(line string)) (skipped int, err error) {
	br := bufio.NewReader(r)
	var buf []byte
	tooLong := false

	for {
		chunk, more, rerr := br.ReadLine()
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return skipped, nil
			}
			return skipped, rerr
		}

		if !tooLong {
			if len(buf)+len(chunk) > MaxLineBytes {
				tooLong = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if more {
			continue
		}

		if tooLong {
			skipped++
		} else {
			fn(string(buf))
		}
		buf = buf[:0]
		tooLong = false
	}
}

// Table is a comma separated file split into its header and rows. Fields
// are not unquoted.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// Column returns the index of the first header cell containing name, or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Header {
		if strings.Contains(h, name) {
			return i
		}
	}
	return -1
}

// Values returns column i of every row that has it.
func (t Table) Values(i int) []string {
	out := []string{}
	if i < 0 {
		return out
	}
	for _, row := range t.Rows {
		if i < len(row) {
			out = append(out, row[i])
		}
	}
	return out
}

// ParseTable reads r as a header line followed by rows. Blank lines are
// ignored; a UTF-8 byte order mark on the header is dropped.
func ParseTable(r io.Reader) (Table, error) {
	t := Table{Rows: [][]string{}}
	first := true
	_, err := EachLine(r, func(line string) {
		if strings.TrimSpace(line) == "" {
			return
		}
		cells := strings.Split(line, ",")
		if first {
			first = false
			cells[0] = strings.TrimPrefix(cells[0], "\ufeff")
			t.Header = cells
			return
		}
		t.Rows = append(t.Rows, cells)
	})
	if err != nil {
		return Table{}, err
	}
	return t, nil
}
