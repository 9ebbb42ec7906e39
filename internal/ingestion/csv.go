package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrMalformedCSV is returned when the upload cannot be read as CSV at all.
var ErrMalformedCSV = errors.New("malformed csv")

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// Cell is one header/value pair of an input line.
type Cell struct {
	Header string
	Value  string
}

// RowError reports a data row that could not be parsed. Reading may continue after it.
type RowError struct {
	Number int
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("Row %d: %s", e.Number, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Row is one data line in input order. Number is 1-based over data rows, blank rows included.
type Row struct {
	Number int
	Cells  []Cell
}

// rowReader streams data rows from a CSV source, pairing cells with the header row.
type rowReader struct {
	reader  *csv.Reader
	headers []string
	count   int
	done    bool
}

func newRowReader(src io.Reader) (*rowReader, error) {
	buffered := bufio.NewReader(src)
	if prefix, err := buffered.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = buffered.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(buffered)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	rr := &rowReader{reader: csvReader}
	header, err := csvReader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			rr.done = true
			return rr, nil
		}
		return nil, errors.Mark(errors.Wrap(err, "failed to read csv header"), ErrMalformedCSV)
	}
	rr.headers = make([]string, len(header))
	for i, value := range header {
		rr.headers[i] = strings.TrimSpace(value)
	}
	return rr, nil
}

// Next returns the next non-blank data row, or io.EOF when the input is exhausted.
// A data row that fails to parse yields a *RowError; the caller may keep calling Next.
func (rr *rowReader) Next() (Row, error) {
	if rr.done {
		return Row{}, io.EOF
	}
	for {
		record, err := rr.reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				rr.done = true
				return Row{}, io.EOF
			}
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rr.count++
				return Row{}, &RowError{Number: rr.count, Err: parseErr}
			}
			return Row{}, errors.Mark(errors.Wrap(err, "failed to read csv"), ErrMalformedCSV)
		}
		rr.count++
		if isBlank(record) {
			continue
		}

		row := Row{Number: rr.count, Cells: make([]Cell, 0, len(record))}
		for i, value := range record {
			if i >= len(rr.headers) {
				break
			}
			row.Cells = append(row.Cells, Cell{Header: rr.headers[i], Value: value})
		}
		return row, nil
	}
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
