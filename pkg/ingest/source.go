package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Source yields rows in input order. Next returns io.EOF after the last row.
type Source interface {
	Next() (Row, error)
}

// SliceSource serves rows from memory.
type SliceSource struct {
	rows []Row
	pos  int
}

// FromRows wraps rows as a Source.
func FromRows(rows []Row) *SliceSource {
	return &SliceSource{rows: rows}
}

func (s *SliceSource) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

var (
	// ErrEmptyUpload is returned when a CSV upload has no header line.
	ErrEmptyUpload = errors.New("upload has no header row")

	// ErrMalformedRow marks a single record that could not be decoded. The
	// source stays usable and the next call reads the following record.
	ErrMalformedRow = errors.New("malformed csv row")
)

// CSVSource decodes a CSV upload whose first line is the header. Rows shorter
// than the header simply lack the trailing columns; extra cells are dropped.
// Stray quotes inside a field are kept as literal characters.
type CSVSource struct {
	r      *csv.Reader
	header []string
}

// NewCSVSource reads the header from r.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyUpload
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	return &CSVSource{r: cr, header: header}, nil
}

// Header returns the column names as read.
func (s *CSVSource) Header() []string {
	return s.header
}

func (s *CSVSource) Next() (Row, error) {
	record, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRow, err)
		}
		return nil, fmt.Errorf("read csv: %w", err)
	}

	// A line of bare commas yields an empty row, which the pipeline skips.
	row := make(Row, len(s.header))
	for i, cell := range record {
		if i >= len(s.header) {
			break
		}
		if cell != "" {
			row[s.header[i]] = cell
		}
	}
	return row, nil
}

// CountRows drains src and reports how many rows it holds, malformed ones
// included.
func CountRows(src Source) (int, error) {
	n := 0
	for {
		_, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil && !errors.Is(err, ErrMalformedRow) {
			return n, err
		}
		n++
	}
}

// ReadAll drains a Source, stopping at the first error.
func ReadAll(src Source) ([]Row, error) {
	var rows []Row
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}
