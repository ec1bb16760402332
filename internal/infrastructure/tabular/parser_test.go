package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/secomply/questionnaire-assistant/internal/core/domain"
)

func TestParseQuestionnaireCSVWithIDColumn(t *testing.T) {
	input := strings.NewReader("ID,Question\nSEC-1,Do you encrypt data at rest?\nSEC-2,Is MFA enforced?\n")

	rows, err := ParseQuestionnaire("vendor.csv", input)
	if err != nil {
		t.Fatalf("ParseQuestionnaire() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ID != "SEC-1" || rows[0].Question != "Do you encrypt data at rest?" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
}

func TestParseQuestionnaireCSVHeaderIsCaseInsensitive(t *testing.T) {
	input := strings.NewReader("QUESTIONS\nIs access reviewed quarterly?\n")

	rows, err := ParseQuestionnaire("sheet.csv", input)
	if err != nil {
		t.Fatalf("ParseQuestionnaire() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Question != "Is access reviewed quarterly?" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[0].ID != "" {
		t.Fatalf("expected empty id, got %q", rows[0].ID)
	}
}

func TestParseQuestionnaireCSVKeepsBlankRows(t *testing.T) {
	input := strings.NewReader("Question\nFirst?\n\nThird?\n")

	rows, err := ParseQuestionnaire("sheet.csv", input)
	if err != nil {
		t.Fatalf("ParseQuestionnaire() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[1].Question != "" {
		t.Fatalf("expected blank middle row, got %q", rows[1].Question)
	}
}

func TestParseQuestionnaireMissingQuestionColumn(t *testing.T) {
	input := strings.NewReader("Name,Value\na,b\n")

	_, err := ParseQuestionnaire("sheet.csv", input)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestParseQuestionnaireUnsupportedFormat(t *testing.T) {
	_, err := ParseQuestionnaire("notes.txt", strings.NewReader("Question\nq\n"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestParseQuestionnaireLegacyXLSRejectedWithHint(t *testing.T) {
	_, err := ParseQuestionnaire("vendor.xls", strings.NewReader("not really a workbook"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if !strings.Contains(err.Error(), ".xlsx") {
		t.Fatalf("error %q should point at .xlsx", err.Error())
	}
}

func TestParseQuestionnaireExcel(t *testing.T) {
	workbook := excelize.NewFile()
	sheet := workbook.GetSheetName(0)
	for i, record := range [][]string{
		{"id", "question"},
		{"Q1", "Do you run annual penetration tests?"},
		{"Q2", "Are backups encrypted?"},
	} {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := workbook.SetSheetRow(sheet, cell, &record); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	rows, err := ParseQuestionnaire("vendor.xlsx", &buf)
	if err != nil {
		t.Fatalf("ParseQuestionnaire() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].ID != "Q2" || rows[1].Question != "Are backups encrypted?" {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}
