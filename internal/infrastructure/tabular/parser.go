// Package tabular parses uploaded questionnaire sheets into question rows.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
)

var questionHeaders = []string{"question", "questions"}

// ParseQuestionnaire reads a CSV or Excel sheet and returns its question rows.
// The sheet must carry a "question" (or "questions") column, matched
// case-insensitively; an "id" column is optional. Blank question cells are
// kept so row indices stay aligned with the uploaded file.
func ParseQuestionnaire(filename string, r io.Reader) ([]domain.QuestionnaireRow, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(r)
	case ".xlsx":
		return parseExcel(r)
	case ".xls":
		// excelize reads OOXML only, not the legacy binary format.
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse questionnaire",
			errors.New("legacy .xls is not supported, save the sheet as .xlsx"))
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse questionnaire",
			fmt.Errorf("unsupported file format: %s", filepath.Ext(filename)))
	}
}

func parseCSV(r io.Reader) ([]domain.QuestionnaireRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse csv", err)
	}
	if len(records) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse csv", errors.New("empty file"))
	}
	return rowsFromRecords(records)
}

func parseExcel(r io.Reader) ([]domain.QuestionnaireRow, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse excel", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse excel", errors.New("workbook has no sheets"))
	}
	records, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse excel", err)
	}
	if len(records) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse excel", errors.New("empty sheet"))
	}
	return rowsFromRecords(records)
}

func rowsFromRecords(records [][]string) ([]domain.QuestionnaireRow, error) {
	header := records[0]
	questionCol := -1
	idCol := -1
	for i, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		for _, candidate := range questionHeaders {
			if normalized == candidate {
				questionCol = i
			}
		}
		if normalized == "id" {
			idCol = i
		}
	}
	if questionCol < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse questionnaire",
			errors.New(`missing "question" column`))
	}

	rows := make([]domain.QuestionnaireRow, 0, len(records)-1)
	for _, record := range records[1:] {
		var row domain.QuestionnaireRow
		if questionCol < len(record) {
			row.Question = strings.TrimSpace(record[questionCol])
		}
		if idCol >= 0 && idCol < len(record) {
			row.ID = strings.TrimSpace(record[idCol])
		}
		rows = append(rows, row)
	}
	return rows, nil
}
