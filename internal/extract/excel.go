package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

// extractExcel pulls the narrative cells out of every sheet. Account
// spreadsheets mix activity descriptions with figure columns; only cells
// carrying letters feed classification, so purely numeric cells are dropped.
func extractExcel(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			wrote := false
			for _, cell := range row {
				if !hasLetter(cell) {
					continue
				}
				if wrote {
					buf.WriteByte(' ')
				}
				buf.WriteString(strings.TrimSpace(cell))
				wrote = true
			}
			if wrote {
				buf.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(buf.String()), nil
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
