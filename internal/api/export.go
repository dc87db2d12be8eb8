package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/Amine0019/Data-Extraction-Portal/internal/core"
	"github.com/Amine0019/Data-Extraction-Portal/internal/logger"
)

// writeCSV streams a result table as a CSV attachment, columns in
// driver order, one record per row.
func writeCSV(w http.ResponseWriter, table *core.Table, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	if err := cw.Write(table.Columns); err != nil {
		logger.Error.Printf("csv export: %v", err)
		return
	}

	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			record[i] = formatCell(row[col])
		}
		if err := cw.Write(record); err != nil {
			logger.Error.Printf("csv export: %v", err)
			return
		}
	}
	cw.Flush()
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}
