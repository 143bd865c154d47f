package google

import (
	"fmt"
	"strings"

	"budget/internal/core"
	"budget/internal/ledger"
)

// parseRecords converts a values matrix (as returned by the Sheets API)
// into records. The first row is the header; blank rows are skipped.
func parseRecords(values [][]interface{}) ([]core.Record, error) {
	if len(values) <= 1 {
		return nil, nil
	}
	out := make([]core.Record, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		rec, err := ledger.DecodeRow(padRow(row))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// parseRows is parseRecords without decoding.
func parseRows(values [][]interface{}) [][]string {
	var out [][]string
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		out = append(out, padRow(row))
	}
	return out
}

// lastDataRow returns the 0-based index of the last non-blank row after
// the header, or -1.
func lastDataRow(values [][]interface{}) int {
	for i := len(values) - 1; i >= 1; i-- {
		if !isBlank(toStrings(values[i])) {
			return i
		}
	}
	return -1
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func toRow(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// padRow fills trailing cells the API omits when they are empty (a blank note).
func padRow(row []string) []string {
	for len(row) < len(ledger.Header) {
		row = append(row, "")
	}
	return row
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
