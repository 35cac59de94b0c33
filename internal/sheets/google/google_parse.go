package google

import (
	"fmt"
	"strings"
)

// parseIDColumn extracts non-empty ids from a single-column values matrix
// (as returned by Sheets API), skipping a stray header cell.
func parseIDColumn(values [][]any) []string {
	out := make([]string, 0, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(row[0]))
		if id == "" || strings.EqualFold(id, "id") {
			continue
		}
		out = append(out, id)
	}
	return out
}
