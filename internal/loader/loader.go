// Package loader ingests the reference data files: taxonomy CSVs, the UKCAT
// tag workbook, funder dumps, and grant history CSVs.
package loader

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/openfunders/fundermatch/internal/models"
)

// LoadAreas reads an areas CSV with columns area_id, area_name, area_level.
func LoadAreas(path string) ([]models.Area, error) {
	rows, err := readCSV(path, 3)
	if err != nil {
		return nil, err
	}
	areas := make([]models.Area, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad area_id %q", path, i+2, row[0])
		}
		areas = append(areas, models.Area{
			ID:    id,
			Name:  strings.TrimSpace(row[1]),
			Level: models.AreaLevel(strings.TrimSpace(row[2])),
		})
	}
	return areas, nil
}

// LoadHierarchy reads an area hierarchy CSV with columns parent_area_id,
// child_area_id.
func LoadHierarchy(path string) ([]models.HierarchyEdge, error) {
	rows, err := readCSV(path, 2)
	if err != nil {
		return nil, err
	}
	edges := make([]models.HierarchyEdge, 0, len(rows))
	for i, row := range rows {
		parent, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad parent_area_id %q", path, i+2, row[0])
		}
		child, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad child_area_id %q", path, i+2, row[1])
		}
		edges = append(edges, models.HierarchyEdge{ParentID: parent, ChildID: child})
	}
	return edges, nil
}

// LoadCauses reads a causes CSV with columns cause_id, cause_name.
func LoadCauses(path string) ([]models.Cause, error) {
	rows, err := readCSV(path, 2)
	if err != nil {
		return nil, err
	}
	causes := make([]models.Cause, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad cause_id %q", path, i+2, row[0])
		}
		causes = append(causes, models.Cause{ID: id, Name: strings.TrimSpace(row[1])})
	}
	return causes, nil
}

// LoadBeneficiaries reads a beneficiaries CSV with columns ben_id, ben_name.
func LoadBeneficiaries(path string) ([]models.Beneficiary, error) {
	rows, err := readCSV(path, 2)
	if err != nil {
		return nil, err
	}
	bens := make([]models.Beneficiary, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad ben_id %q", path, i+2, row[0])
		}
		bens = append(bens, models.Beneficiary{ID: id, Name: strings.TrimSpace(row[1])})
	}
	return bens, nil
}

// LoadGrants reads a grants CSV with columns grant_id, funder_num,
// recipient_id, recipient_name, amount, year, recipient_areas,
// recipient_extracted_class. The last two columns are JSON lists; the
// classification column tolerates the doubly-encoded form the upstream
// dumps produce.
func LoadGrants(path string) ([]models.Grant, error) {
	rows, err := readCSV(path, 8)
	if err != nil {
		return nil, err
	}
	grants := make([]models.Grant, 0, len(rows))
	for i, row := range rows {
		amount := 0.0
		if strings.TrimSpace(row[4]) != "" {
			amount, err = strconv.ParseFloat(row[4], 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d: bad amount %q", path, i+2, row[4])
			}
		}
		year, err := strconv.Atoi(strings.TrimSpace(row[5]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad year %q", path, i+2, row[5])
		}
		areas, err := models.ParseKeywordList(row[6])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: recipient_areas: %w", path, i+2, err)
		}
		classes, err := models.ParseKeywordList(row[7])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: recipient_extracted_class: %w", path, i+2, err)
		}
		grants = append(grants, models.Grant{
			ID:               strings.TrimSpace(row[0]),
			FunderNum:        strings.TrimSpace(row[1]),
			RecipientID:      strings.TrimSpace(row[2]),
			RecipientName:    strings.TrimSpace(row[3]),
			Amount:           amount,
			Year:             year,
			RecipientAreas:   areas,
			RecipientClasses: classes,
		})
	}
	return grants, nil
}

// LoadFunders reads a funder dump: a JSON array of funder objects. Keyword
// fields may be plain arrays or stringified arrays; both decode.
func LoadFunders(path string) ([]*models.Funder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read funders file: %w", err)
	}
	var funders []*models.Funder
	if err := json.Unmarshal(data, &funders); err != nil {
		return nil, fmt.Errorf("parse funders file %s: %w", path, err)
	}
	return funders, nil
}

// readCSV reads all data rows, skipping the header, and validates the
// column count.
func readCSV(path string, wantCols int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = wantCols

	// Header row.
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
