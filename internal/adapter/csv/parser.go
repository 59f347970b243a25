// Package csv turns an uploaded user file into raw ingestion rows.
package csv

import (
	"bytes"
	encsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"usersapi/internal/core/domain"
)

var ErrMissingHeader = errors.New("csv file has no header row")

const bom = "\ufeff"

// Parse reads a header row followed by data rows. Header names are matched
// case-insensitively against the raw ingestion columns, unknown columns are
// ignored and rows made only of blank cells are skipped. A row shorter than
// the header leaves its trailing columns absent.
func Parse(r io.Reader) ([]domain.RawUserRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	reader := encsv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte(bom))))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	if len(rows) == 0 {
		return nil, ErrMissingHeader
	}

	columns := headerIndex(rows[0])
	records := make([]domain.RawUserRecord, 0, len(rows)-1)

	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}

		record := domain.RawUserRecord{}
		for pos, name := range columns {
			if pos < len(row) {
				record[name] = row[pos]
			}
		}
		records = append(records, record)
	}

	return records, nil
}

// headerIndex maps a header position to its raw column name.
func headerIndex(header []string) map[int]string {
	known := make(map[string]bool, len(domain.RawColumns))
	for _, c := range domain.RawColumns {
		known[c] = true
	}

	// the first occurrence of a repeated column wins
	index := make(map[int]string, len(header))
	for pos, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, bom)))
		if !known[name] {
			continue
		}
		known[name] = false
		index[pos] = name
	}

	return index
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
