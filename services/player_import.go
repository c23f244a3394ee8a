package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ImportRow is one candidate player from an import file. Err is set when the row could not be parsed.
type ImportRow struct {
	Line  int
	Input PlayerInput
	Err   error
}

var csvColumns = []string{
	"name", "email", "phone", "sport", "emergency_contact_name", "emergency_contact_phone", "medical_info",
}

// ParsePlayersCSV reads players from CSV. A header row is optional: when the first record
// contains a "name" column its headers pick the columns, otherwise csvColumns order is assumed.
func ParsePlayersCSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		rows    []ImportRow
		columns map[string]int
		first   = true
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rows = append(rows, ImportRow{Line: parseErr.Line, Err: parseErr.Err})
				continue
			}
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)

		if first {
			first = false
			if header, ok := headerColumns(record); ok {
				columns = header
				continue
			}
			columns = defaultColumns()
		}
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, recordToRow(line, record, columns))
	}
	return rows, nil
}

func defaultColumns() map[string]int {
	cols := make(map[string]int, len(csvColumns))
	for i, c := range csvColumns {
		cols[c] = i
	}
	return cols
}

func headerColumns(record []string) (map[string]int, bool) {
	cols := make(map[string]int, len(record))
	for i, h := range record {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
		cols[key] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, false
	}
	return cols, true
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func recordToRow(line int, record []string, columns map[string]int) ImportRow {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	optional := func(name string) *string {
		v := field(name)
		if v == "" {
			return nil
		}
		return &v
	}

	return ImportRow{
		Line: line,
		Input: PlayerInput{
			Name:                  field("name"),
			Email:                 optional("email"),
			Phone:                 optional("phone"),
			Sport:                 field("sport"),
			EmergencyContactName:  optional("emergency_contact_name"),
			EmergencyContactPhone: optional("emergency_contact_phone"),
			MedicalInfo:           optional("medical_info"),
		},
	}
}
