package export

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/hpkns/evidenceangel/internal/pkgengine"
	"github.com/hpkns/evidenceangel/internal/testcase"
)

// exportSpreadsheet renders ids as a workbook: one worksheet per test
// case for a package-scoped export, or a single worksheet for a
// test-case-scoped one. Each sheet starts with a metadata header block
// followed by one row per evidence item.
func exportSpreadsheet(pkg *pkgengine.Engine, scope Scope, ids []uuid.UUID, tempPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	firstSheet := true
	usedSheetNames := make(map[string]int)
	for _, id := range ids {
		tc, ok := pkg.TestCase(id)
		if !ok {
			continue
		}
		sheetName := disambiguate(sanitizeSheetName(tc.Metadata.Title), usedSheetNames)
		if firstSheet {
			if err := f.SetSheetName("Sheet1", sheetName); err != nil {
				return &FailedError{Backend: "spreadsheet", Reason: err.Error()}
			}
			firstSheet = false
		} else if _, err := f.NewSheet(sheetName); err != nil {
			return &FailedError{Backend: "spreadsheet", Reason: err.Error()}
		}
		if err := writeTestCaseSheet(f, pkg, sheetName, tc); err != nil {
			return &FailedError{Backend: "spreadsheet", Reason: err.Error()}
		}
	}

	if err := f.SaveAs(tempPath); err != nil {
		return &FailedError{Backend: "spreadsheet", Reason: err.Error()}
	}
	return nil
}

func writeTestCaseSheet(f *excelize.File, pkg *pkgengine.Engine, sheet string, tc testcase.Case) error {
	f.SetCellValue(sheet, "A1", "Title")
	f.SetCellValue(sheet, "B1", tc.Metadata.Title)
	f.SetCellValue(sheet, "A2", "Executed")
	f.SetCellValue(sheet, "B2", tc.Metadata.ExecutionDatetime.Format("2006-01-02 15:04:05"))
	f.SetCellValue(sheet, "A3", "Result")
	f.SetCellValue(sheet, "B3", passedLabel(tc.Metadata.Passed))

	row := 4
	for _, field := range pkg.CustomFields() {
		value, ok := tc.Metadata.Custom[field.ID]
		if !ok {
			continue
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), field.ID)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), value)
		row++
	}
	row++

	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Kind")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), "Caption")
	f.SetCellValue(sheet, fmt.Sprintf("C%d", row), "Content")
	row++

	for _, ev := range tc.Evidence {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), string(ev.Kind))
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), ev.Caption)
		if err := writeEvidenceCell(f, pkg, sheet, row, ev); err != nil {
			return err
		}
		row++
	}
	return nil
}

func writeEvidenceCell(f *excelize.File, pkg *pkgengine.Engine, sheet string, row int, ev testcase.Evidence) error {
	cell := fmt.Sprintf("C%d", row)
	switch ev.Kind {
	case testcase.KindText, testcase.KindRichText:
		text, _, err := resolveBytes(pkg, ev.Value)
		if err != nil {
			return err
		}
		f.SetCellValue(sheet, cell, string(text))
	case testcase.KindImage:
		data, mimeType, err := resolveBytes(pkg, ev.Value)
		if err != nil {
			return err
		}
		return f.AddPictureFromBytes(sheet, cell, &excelize.Picture{
			Extension: extensionFor(mimeType),
			File:      data,
			Format:    &excelize.GraphicOptions{AutoFit: true},
		})
	case testcase.KindFile:
		data, _, err := resolveBytes(pkg, ev.Value)
		if err != nil {
			return err
		}
		f.SetCellValue(sheet, cell, fmt.Sprintf("File: %s, %d bytes", ev.OriginalFilename, len(data)))
	case testcase.KindHttp:
		raw, _, err := resolveBytes(pkg, ev.Value)
		if err != nil {
			return err
		}
		request, response, err := testcase.DecodeHttp(raw)
		if err != nil {
			return err
		}
		f.SetCellValue(sheet, cell, fmt.Sprintf("Request:\n%s\n\nResponse:\n%s", request, response))
	}
	return nil
}

func passedLabel(p testcase.Passed) string {
	switch p {
	case testcase.PassedTrue:
		return "Passed"
	case testcase.PassedFalse:
		return "Failed"
	default:
		return "Not recorded"
	}
}

func sanitizeSheetName(name string) string {
	name = sanitizeName(name)
	for _, r := range []string{"[", "]", ":", "*", "?", "/", "\\"} {
		name = strings.ReplaceAll(name, r, "_")
	}
	if len(name) > 31 {
		name = name[:31]
	}
	if name == "" {
		name = "Sheet"
	}
	return name
}
