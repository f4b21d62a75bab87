package evidenceangel

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCreateSaveOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.evp")

	pkg, err := Create(path, "Demo", []Author{{Name: "Ada"}}, Config{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	tc, err := pkg.CreateTestCase("Login works", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create test case failed: %v", err)
	}
	if _, err := pkg.AddTextEvidence(tc.ID, "logged in", "step 1"); err != nil {
		t.Fatalf("add text evidence failed: %v", err)
	}
	if err := pkg.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := pkg.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := Open(path, Config{})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if reopened.Metadata().Title != "Demo" {
		t.Errorf("title mismatch: %q", reopened.Metadata().Title)
	}
	got, ok, err := reopened.TestCase(tc.ID)
	if err != nil {
		t.Fatalf("test case lookup failed: %v", err)
	}
	if !ok {
		t.Fatal("expected test case to survive the round trip")
	}
	if len(got.Evidence) != 1 || got.Evidence[0].Text != "logged in" {
		t.Errorf("unexpected evidence: %+v", got.Evidence)
	}
}

func TestOpenLockedPackageReturnsLockedError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.evp")

	pkg, err := Create(path, "Demo", nil, Config{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer pkg.Close()

	_, err = Open(path, Config{})
	if err == nil {
		t.Fatal("expected second open to fail while the lock is held")
	}
	var locked *LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected *LockedError in the chain, got %v", err)
	}
}

func TestOpenZipWithoutManifestReturnsInvalidManifestError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.evp")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file failed: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("testcases/" + uuid.New().String() + ".json")
	if err != nil {
		t.Fatalf("create entry failed: %v", err)
	}
	if _, err := w.Write([]byte("{}")); err != nil {
		t.Fatalf("write entry failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file failed: %v", err)
	}

	_, err = Open(path, Config{})
	if err == nil {
		t.Fatal("expected open to fail for a ZIP without manifest.json")
	}
	var invalidManifest *InvalidManifestError
	if !errors.As(err, &invalidManifest) {
		t.Fatalf("expected *InvalidManifestError in the chain, got %v", err)
	}
	var notArchive *NotAnArchiveError
	if errors.As(err, &notArchive) {
		t.Fatal("expected a missing manifest to be reported distinctly from a genuinely broken archive")
	}
}

func TestOpenMissingFileReturnsIoError(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "does-not-exist.evp"), Config{})
	if err == nil {
		t.Fatal("expected an error opening a nonexistent path")
	}
	var ioErr *IoError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected *IoError in the chain, got %v", err)
	}
}

func TestSetTitleRejectsEmptyName(t *testing.T) {
	dir := t.TempDir()
	pkg, err := Create(filepath.Join(dir, "demo.evp"), "Demo", nil, Config{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer pkg.Close()

	err = pkg.SetTitle("")
	if err == nil {
		t.Fatal("expected an error for an empty title")
	}
	var empty *NameEmptyError
	if !errors.As(err, &empty) {
		t.Fatalf("expected *NameEmptyError in the chain, got %v", err)
	}
}

func TestCustomFieldRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pkg, err := Create(filepath.Join(dir, "demo.evp"), "Demo", nil, Config{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer pkg.Close()

	if err := pkg.DeclareCustomField(CustomField{ID: "env", Name: "Environment"}); err != nil {
		t.Fatalf("declare custom field failed: %v", err)
	}
	tc, err := pkg.CreateTestCase("Case", time.Now().UTC())
	if err != nil {
		t.Fatalf("create test case failed: %v", err)
	}
	if err := pkg.SetTestCaseCustomField(tc.ID, "env", "staging"); err != nil {
		t.Fatalf("set custom field failed: %v", err)
	}

	got, ok, err := pkg.TestCase(tc.ID)
	if err != nil || !ok {
		t.Fatalf("lookup failed: ok=%v err=%v", ok, err)
	}
	if got.Custom["env"] != "staging" {
		t.Errorf("expected custom field value to round-trip, got %q", got.Custom["env"])
	}
}

func TestSetTestCaseCustomFieldRejectsUndeclaredFieldWithoutCorruptingState(t *testing.T) {
	dir := t.TempDir()
	pkg, err := Create(filepath.Join(dir, "demo.evp"), "Demo", nil, Config{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer pkg.Close()

	if err := pkg.DeclareCustomField(CustomField{ID: "env", Name: "Environment"}); err != nil {
		t.Fatalf("declare custom field failed: %v", err)
	}
	tc, err := pkg.CreateTestCase("Case", time.Now().UTC())
	if err != nil {
		t.Fatalf("create test case failed: %v", err)
	}
	if err := pkg.SetTestCaseCustomField(tc.ID, "env", "staging"); err != nil {
		t.Fatalf("set custom field failed: %v", err)
	}

	if err := pkg.SetTestCaseCustomField(tc.ID, "unknown", "x"); err == nil {
		t.Fatal("expected an error for an undeclared custom field")
	}

	got, ok, err := pkg.TestCase(tc.ID)
	if err != nil || !ok {
		t.Fatalf("lookup failed: ok=%v err=%v", ok, err)
	}
	if _, present := got.Custom["unknown"]; present {
		t.Error("expected the rejected field to be absent from the stored test case")
	}
	if got.Custom["env"] != "staging" {
		t.Errorf("expected the prior valid field to survive, got %q", got.Custom["env"])
	}

	if err := pkg.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := pkg.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	reopened, err := Open(filepath.Join(dir, "demo.evp"), Config{})
	if err != nil {
		t.Fatalf("reopen failed after rejected custom field write: %v", err)
	}
	reopened.Close()
}

func TestAddImageEvidenceResolvesBytesOnRead(t *testing.T) {
	dir := t.TempDir()
	pkg, err := Create(filepath.Join(dir, "demo.evp"), "Demo", nil, Config{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer pkg.Close()

	tc, _ := pkg.CreateTestCase("Case", time.Now().UTC())
	png := []byte{0x89, 0x50, 0x4E, 0x47}
	if _, err := pkg.AddImageEvidence(tc.ID, png, "image/png", "screenshot"); err != nil {
		t.Fatalf("add image evidence failed: %v", err)
	}

	evidence, err := pkg.Evidence(tc.ID)
	if err != nil {
		t.Fatalf("evidence lookup failed: %v", err)
	}
	if len(evidence) != 1 || string(evidence[0].Data) != string(png) {
		t.Errorf("expected resolved image bytes, got %+v", evidence)
	}
	if evidence[0].MimeType != "image/png" {
		t.Errorf("expected mime type to round-trip, got %q", evidence[0].MimeType)
	}
}

func TestExportPackageToHTML(t *testing.T) {
	dir := t.TempDir()
	pkg, err := Create(filepath.Join(dir, "demo.evp"), "Demo", nil, Config{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer pkg.Close()

	tc, _ := pkg.CreateTestCase("Login works", time.Now().UTC())
	pkg.AddTextEvidence(tc.ID, "it worked", "")

	target := filepath.Join(dir, "report.html")
	if err := pkg.Export(target, ExportHTML, ExportOptions{}); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	if err := pkg.Export(target, ExportHTML, ExportOptions{}); err == nil {
		t.Fatal("expected re-export without Overwrite to fail")
	} else {
		var exists *ExportTargetExistsError
		if !errors.As(err, &exists) {
			t.Fatalf("expected *ExportTargetExistsError, got %v", err)
		}
	}

	if err := pkg.Export(target, ExportHTML, ExportOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite export failed: %v", err)
	}
}
