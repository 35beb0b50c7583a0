package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spigell/internship-recommender/internal/catalog"
)

var (
	ErrEmptySource   = errors.New("source has no header row")
	ErrMissingColumn = errors.New("required column is missing")
)

// nullMarkers mirror the cell values pandas reads as NaN by default.
var nullMarkers = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// CSVFile reads the dataset from a local CSV file with a header row.
type CSVFile struct {
	Path string
}

func (f *CSVFile) Read(_ context.Context) ([]catalog.RawRow, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	return rows, nil
}

// ParseCSV decodes a whole CSV document. Header problems fail the load; problems with
// single records are attached to the row so the normalizer can skip it.
func ParseCSV(r io.Reader) ([]catalog.RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptySource
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	if err := checkColumns(header); err != nil {
		return nil, err
	}

	rows := make([]catalog.RawRow, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rows = append(rows, catalog.RawRow{Malformed: err})
			continue
		}

		if len(record) > len(header) {
			rows = append(rows, catalog.RawRow{
				Malformed: fmt.Errorf("expected %d fields, saw %d", len(header), len(record)),
			})
			continue
		}

		values := make(map[string]any, len(header))
		for idx, column := range header {
			if idx >= len(record) {
				values[column] = nil
				continue
			}
			if _, null := nullMarkers[record[idx]]; null {
				values[column] = nil
				continue
			}
			values[column] = record[idx]
		}

		rows = append(rows, catalog.DecodeRow(values))
	}

	return rows, nil
}

func checkColumns(header []string) error {
	present := make(map[string]struct{}, len(header))
	for _, column := range header {
		present[column] = struct{}{}
	}

	var missing []string
	for _, column := range catalog.Columns {
		if _, ok := present[column]; !ok {
			missing = append(missing, column)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}
