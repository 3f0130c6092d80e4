package ingest

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// decodeCSV renders each row as a "column: value" sentence per field,
// header-labelled, so extraction (which expects prose) has something
// coherent to read regardless of how tabular the source is.
func decodeCSV(data []byte) (string, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("decode csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	header := records[0]
	rows := records
	if len(records) > 1 {
		rows = records[1:]
	} else {
		rows = nil
	}

	var b strings.Builder
	for _, row := range rows {
		for i, val := range row {
			if strings.TrimSpace(val) == "" {
				continue
			}
			name := fmt.Sprintf("column%d", i+1)
			if i < len(header) && header[i] != "" {
				name = header[i]
			}
			fmt.Fprintf(&b, "%s: %s. ", name, val)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}
