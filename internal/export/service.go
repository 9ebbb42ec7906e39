package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/roster/internal/domain"
	"github.com/rpattn/roster/internal/repository"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"
)

// Format selects the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned for formats other than csv and xlsx.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat maps a query value to a Format. Empty means xlsx.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedFormat, "%q", raw)
	}
}

// ContentType is the response media type of the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Service writes every stored record of a kind as a spreadsheet.
type Service struct {
	records repository.RecordRepository
	now     func() time.Time
}

func NewService(records repository.RecordRepository) *Service {
	return &Service{records: records, now: time.Now}
}

// Export writes all records of the kind, oldest first. Columns are id, the canonical
// fields in declaration order, then created_at.
func (s *Service) Export(ctx context.Context, kind domain.EntityKind, format Format, w io.Writer) error {
	spec, err := domain.SpecFor(kind)
	if err != nil {
		return err
	}

	records, err := s.records.List(ctx, spec, repository.ListOptions{Order: repository.SortOldestFirst})
	if err != nil && !errors.Is(err, repository.ErrCollectionMissing) {
		return errors.Wrapf(err, "list %s", spec.Plural)
	}

	headers := exportHeaders(spec)
	switch format {
	case FormatCSV:
		return writeCSV(w, spec, headers, records)
	case FormatXLSX:
		return writeXLSX(w, spec, headers, records)
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "%q", string(format))
	}
}

// FileName builds the attachment name, e.g. "priority-pass-20240301.xlsx".
func (s *Service) FileName(kind domain.EntityKind, format Format) string {
	return fmt.Sprintf("%s-%s.%s", sanitizeFileComponent(string(kind)), s.now().UTC().Format("20060102"), format)
}

func exportHeaders(spec domain.FieldSpec) []string {
	headers := make([]string, 0, len(spec.Fields)+2)
	headers = append(headers, "id")
	headers = append(headers, spec.FieldNames()...)
	return append(headers, "created_at")
}

func exportRow(spec domain.FieldSpec, record domain.Record) []string {
	row := make([]string, 0, len(spec.Fields)+2)
	row = append(row, record.ID.String())
	for _, name := range spec.FieldNames() {
		row = append(row, formatValue(record.Fields[name]))
	}
	return append(row, record.CreatedAt.UTC().Format(domain.TimestampLayout))
}

func writeCSV(w io.Writer, spec domain.FieldSpec, headers []string, records []domain.Record) error {
	buffered := bufio.NewWriterSize(w, 64<<10)
	csvWriter := csv.NewWriter(buffered)

	if err := csvWriter.Write(headers); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, record := range records {
		if err := csvWriter.Write(exportRow(spec, record)); err != nil {
			return errors.Wrap(err, "write row")
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return errors.Wrap(err, "flush csv")
	}
	return errors.Wrap(buffered.Flush(), "flush buffered csv")
}

func writeXLSX(w io.Writer, spec domain.FieldSpec, headers []string, records []domain.Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := string(spec.Kind)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return errors.Wrap(err, "name sheet")
	}

	stream, err := f.NewStreamWriter(sheet)
	if err != nil {
		return errors.Wrap(err, "open sheet stream")
	}

	if err := stream.SetRow("A1", toCells(headers)); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "resolve cell")
		}
		if err := stream.SetRow(cell, xlsxRow(spec, record)); err != nil {
			return errors.Wrapf(err, "write row %d", i+2)
		}
	}
	if err := stream.Flush(); err != nil {
		return errors.Wrap(err, "flush sheet")
	}

	_, err = f.WriteTo(w)
	return errors.Wrap(err, "write workbook")
}

// xlsxRow keeps numbers numeric so spreadsheet formulas work on them.
func xlsxRow(spec domain.FieldSpec, record domain.Record) []any {
	row := make([]any, 0, len(spec.Fields)+2)
	row = append(row, record.ID.String())
	for _, name := range spec.FieldNames() {
		value := record.Fields[name]
		if value.Kind() == domain.ValueNumber {
			row = append(row, value.Num())
			continue
		}
		row = append(row, formatValue(value))
	}
	return append(row, record.CreatedAt.UTC().Format(domain.TimestampLayout))
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func formatValue(value domain.Value) string {
	switch value.Kind() {
	case domain.ValueNumber:
		return strconv.FormatFloat(value.Num(), 'f', -1, 64)
	case domain.ValueNull:
		return ""
	default:
		return value.Str()
	}
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('-')
		}
	}
	result := strings.Trim(builder.String(), "-")
	if result == "" {
		return "export"
	}
	return result
}
