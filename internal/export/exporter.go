package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ToCSV writes a tabular query result to a CSV file.
func ToCSV(columns []string, rows [][]string, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ToJSON writes a tabular query result to a JSON file as an array of
// column-keyed objects.
func ToJSON(columns []string, rows [][]string, path string) error {
	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		records = append(records, record)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}

// ToFile picks the output format from the file extension (.csv or .json).
func ToFile(columns []string, rows [][]string, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ToCSV(columns, rows, path)
	case ".json":
		return ToJSON(columns, rows, path)
	default:
		return fmt.Errorf("unsupported export format: %s", filepath.Ext(path))
	}
}
