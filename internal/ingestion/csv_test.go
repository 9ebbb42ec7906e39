package ingestion

import (
	"io"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, data string) []Row {
	t.Helper()
	rr, err := newRowReader(strings.NewReader(data))
	require.NoError(t, err)

	var rows []Row
	for {
		row, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestRowReaderStripsBOMAndTrimsHeaders(t *testing.T) {
	rows := readAll(t, "\xEF\xBB\xBF Yatri Id , Name\nYT1,Asha\n")

	require.Len(t, rows, 1)
	assert.Equal(t, []Cell{{Header: "Yatri Id", Value: "YT1"}, {Header: "Name", Value: "Asha"}}, rows[0].Cells)
}

func TestRowReaderSkipsBlankRowsAndNumbersDataRows(t *testing.T) {
	rows := readAll(t, "a,b\n1,2\n , \n,\n3,4\n")

	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Number)
	assert.Equal(t, 4, rows[1].Number, "blank rows keep their place in the numbering")
	assert.Equal(t, "3", rows[1].Cells[0].Value)
}

func TestRowReaderToleratesRaggedRows(t *testing.T) {
	rows := readAll(t, "a,b\n1\n1,2,3\n")

	require.Len(t, rows, 2)
	assert.Len(t, rows[0].Cells, 1)
	assert.Len(t, rows[1].Cells, 2, "cells past the header row are dropped")
}

func TestRowReaderEmptyInput(t *testing.T) {
	assert.Empty(t, readAll(t, ""))
	assert.Empty(t, readAll(t, "a,b\n"))
}

func TestRowReaderBadQuoteIsRowLevel(t *testing.T) {
	rr, err := newRowReader(strings.NewReader("a,b\n1,2\n3,x \"y\" z\n5,6\n"))
	require.NoError(t, err)

	row, err := rr.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, row.Number)

	_, err = rr.Next()
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 2, rowErr.Number)
	assert.False(t, errors.Is(err, ErrMalformedCSV))
	assert.Contains(t, rowErr.Error(), "Row 2: ")

	row, err = rr.Next()
	require.NoError(t, err)
	assert.Equal(t, 3, row.Number)
	assert.Equal(t, "5", row.Cells[0].Value)
}

func TestRowReaderUnterminatedQuoteEndsInput(t *testing.T) {
	rr, err := newRowReader(strings.NewReader("a,b\n\"1,2\n"))
	require.NoError(t, err)

	_, err = rr.Next()
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))

	_, err = rr.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestRowReaderMalformedHeader(t *testing.T) {
	_, err := newRowReader(strings.NewReader("a,\"b\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedCSV))
}
