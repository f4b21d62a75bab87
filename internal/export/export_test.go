package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hpkns/evidenceangel/internal/manifest"
	"github.com/hpkns/evidenceangel/internal/pkgengine"
	"github.com/hpkns/evidenceangel/internal/testcase"
)

func newTestPackage(t *testing.T) *pkgengine.Engine {
	t.Helper()
	dir := t.TempDir()
	pkg, err := pkgengine.Create(filepath.Join(dir, "evidence.evp"), "Export Fixtures", []manifest.Author{{Name: "Tester"}}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { pkg.Close() })

	tc, err := pkg.CreateTestCase("Login works", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("create test case: %v", err)
	}
	if _, err := pkg.InsertEvidence(tc.ID, testcase.Evidence{
		Kind:  testcase.KindText,
		Value: testcase.PlainData("the user reached the dashboard"),
	}); err != nil {
		t.Fatalf("insert evidence: %v", err)
	}
	if _, err := pkg.InsertEvidence(tc.ID, testcase.Evidence{
		Kind:  testcase.KindRichText,
		Value: testcase.PlainData("# Result\n\nAll **good**."),
	}); err != nil {
		t.Fatalf("insert evidence: %v", err)
	}
	// A complete 1x1 PNG: the spreadsheet backend decodes images to embed
	// them, so a bare signature would not do.
	screenshot := []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D,
		0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x00, 0x00, 0x00, 0x00, 0x3A, 0x7E, 0x9B, 0x55, 0x00, 0x00, 0x00,
		0x0B, 0x49, 0x44, 0x41, 0x54, 0x78, 0xDA, 0x62, 0xFA, 0x0F, 0x18, 0x00,
		0x01, 0x05, 0x01, 0x02, 0x2C, 0x6A, 0x36, 0x28, 0x00, 0x00, 0x00, 0x00,
		0x49, 0x45, 0x4E, 0x44, 0xAE, 0x42, 0x60, 0x82,
	}
	if _, err := pkg.InsertImageEvidence(tc.ID, screenshot, "image/png", "screenshot"); err != nil {
		t.Fatalf("insert image: %v", err)
	}
	payload := testcase.EncodeHttp([]byte("GET / HTTP/1.1"), []byte("200 OK"))
	if _, err := pkg.InsertEvidence(tc.ID, testcase.Evidence{
		Kind:  testcase.KindHttp,
		Value: testcase.Base64Data(payload),
	}); err != nil {
		t.Fatalf("insert http evidence: %v", err)
	}
	return pkg
}

func TestExportZipFilesProducesLayeredArchive(t *testing.T) {
	pkg := newTestPackage(t)
	target := filepath.Join(t.TempDir(), "out.zip")
	if err := Export(pkg, target, PackageScope(), FormatZipFiles, Options{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat export: %v", err)
	}
	if info.Size() == 0 {
		t.Error("expected a non-empty archive")
	}
}

func TestExportHTMLProducesDocument(t *testing.T) {
	pkg := newTestPackage(t)
	target := filepath.Join(t.TempDir(), "out.html")
	if err := Export(pkg, target, PackageScope(), FormatHTML, Options{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !containsAll(string(data), "<html>", "Login works", "Result") {
		t.Errorf("unexpected document contents: %s", data)
	}
}

func TestExportHTMLIncludesMetadataTabForPackageScope(t *testing.T) {
	pkg := newTestPackage(t)
	target := filepath.Join(t.TempDir(), "out.html")
	if err := Export(pkg, target, PackageScope(), FormatHTML, Options{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !containsAll(string(data), `id="metadata"`, "Tester") {
		t.Errorf("expected a metadata tab naming the author, got: %s", data)
	}
}

func TestExportHTMLOmitsMetadataTabForTestCaseScope(t *testing.T) {
	pkg := newTestPackage(t)
	ids := pkg.TestCaseIDs()
	target := filepath.Join(t.TempDir(), "out.html")
	if err := Export(pkg, target, TestCaseScope(ids[0]), FormatHTML, Options{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if strings.Contains(string(data), `id="metadata"`) {
		t.Errorf("expected no metadata tab for a test-case-scoped export, got: %s", data)
	}
}

func TestExportSpreadsheetCustomFieldOrderMatchesDeclarationOrder(t *testing.T) {
	pkg := newTestPackage(t)
	for _, id := range []string{"zzz", "aaa", "mmm"} {
		if err := pkg.DeclareCustomField(manifest.CustomMetadataField{ID: id, Name: id}); err != nil {
			t.Fatalf("declare custom field %s: %v", id, err)
		}
	}
	tcID := pkg.TestCaseIDs()[0]
	tc, _ := pkg.TestCase(tcID)
	tc.Metadata.Custom = map[string]string{"zzz": "1", "aaa": "2", "mmm": "3"}
	if err := pkg.PutTestCase(tc); err != nil {
		t.Fatalf("put test case: %v", err)
	}

	var rows [][]string
	for i := 0; i < 5; i++ {
		target := filepath.Join(t.TempDir(), "out.xlsx")
		if err := Export(pkg, target, PackageScope(), FormatSpreadsheet, Options{}); err != nil {
			t.Fatalf("export run %d: %v", i, err)
		}
		f, err := excelize.OpenFile(target)
		if err != nil {
			t.Fatalf("open run %d: %v", i, err)
		}
		sheet := f.GetSheetName(0)
		var ids []string
		for row := 4; ; row++ {
			cell, err := f.GetCellValue(sheet, fmt.Sprintf("A%d", row))
			if err != nil {
				t.Fatalf("read cell run %d: %v", i, err)
			}
			if cell == "" || cell == "Kind" {
				break
			}
			ids = append(ids, cell)
		}
		f.Close()
		rows = append(rows, ids)
	}
	want := []string{"zzz", "aaa", "mmm"}
	for i, ids := range rows {
		if len(ids) != len(want) {
			t.Fatalf("run %d: expected %d custom field rows, got %v", i, len(want), ids)
		}
		for j := range want {
			if ids[j] != want[j] {
				t.Fatalf("run %d: expected declaration order %v, got %v", i, want, ids)
			}
		}
	}
}

func TestExportSpreadsheetProducesWorkbook(t *testing.T) {
	pkg := newTestPackage(t)
	target := filepath.Join(t.TempDir(), "out.xlsx")
	if err := Export(pkg, target, PackageScope(), FormatSpreadsheet, Options{}); err != nil {
		t.Fatalf("export: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat export: %v", err)
	}
	if info.Size() == 0 {
		t.Error("expected a non-empty workbook")
	}
}

func TestExportRefusesExistingTargetWithoutOverwrite(t *testing.T) {
	pkg := newTestPackage(t)
	target := filepath.Join(t.TempDir(), "out.html")
	if err := os.WriteFile(target, []byte("existing"), 0600); err != nil {
		t.Fatalf("seed target: %v", err)
	}
	err := Export(pkg, target, PackageScope(), FormatHTML, Options{})
	if _, ok := err.(*TargetExistsError); !ok {
		t.Fatalf("expected *TargetExistsError, got %v", err)
	}
}

func TestExportOverwriteReplacesExistingTarget(t *testing.T) {
	pkg := newTestPackage(t)
	target := filepath.Join(t.TempDir(), "out.html")
	if err := os.WriteFile(target, []byte("existing"), 0600); err != nil {
		t.Fatalf("seed target: %v", err)
	}
	if err := Export(pkg, target, PackageScope(), FormatHTML, Options{Overwrite: true}); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(data) == "existing" {
		t.Error("expected the target to be replaced")
	}
}

func TestSanitizeNameReplacesReservedCharacters(t *testing.T) {
	got := sanitizeName(`a/b:c*d`)
	if got != "a_b_c_d" {
		t.Errorf("sanitizeName = %q", got)
	}
}

func TestDisambiguateSuffixesRepeats(t *testing.T) {
	used := make(map[string]int)
	first := disambiguate("Case", used)
	second := disambiguate("Case", used)
	third := disambiguate("Case", used)
	if first != "Case" || second != "Case-1" || third != "Case-2" {
		t.Errorf("unexpected sequence: %q %q %q", first, second, third)
	}
}

func containsAll(haystack string, needles ...string) bool {
	for _, n := range needles {
		if !strings.Contains(haystack, n) {
			return false
		}
	}
	return true
}
