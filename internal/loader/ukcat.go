package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/openfunders/fundermatch/internal/models"
)

// LoadUKCATWorkbook reads the UKCAT tag catalogue from an xlsx workbook.
// The first sheet must carry a header row; columns are matched by name
// (tag, level, pattern, exclude_pattern), case-insensitively, so column
// order in the published workbook does not matter.
func LoadUKCATWorkbook(path string) ([]models.UKCATTag, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open UKCAT workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("UKCAT workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("UKCAT workbook %s is empty", path)
	}

	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	tagCol, ok := cols["tag"]
	if !ok {
		return nil, fmt.Errorf("UKCAT workbook %s: missing tag column", path)
	}
	levelCol, ok := cols["level"]
	if !ok {
		return nil, fmt.Errorf("UKCAT workbook %s: missing level column", path)
	}
	patternCol, hasPattern := cols["pattern"]
	excludeCol, hasExclude := cols["exclude_pattern"]

	var tags []models.UKCATTag
	for i, row := range rows[1:] {
		tag := cell(row, tagCol)
		if tag == "" {
			continue
		}
		level, err := strconv.Atoi(cell(row, levelCol))
		if err != nil {
			return nil, fmt.Errorf("UKCAT workbook %s row %d: bad level %q", path, i+2, cell(row, levelCol))
		}
		t := models.UKCATTag{Tag: tag, Level: level}
		if hasPattern {
			t.Pattern = cell(row, patternCol)
		}
		if hasExclude {
			t.ExcludePattern = cell(row, excludeCol)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// cell returns the trimmed cell value, tolerating short rows: excelize
// drops trailing empty cells.
func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
