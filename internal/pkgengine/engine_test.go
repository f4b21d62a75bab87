package pkgengine

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/manifest"
	"github.com/hpkns/evidenceangel/internal/testcase"
)

func TestCreateSaveOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.evp")

	e, err := Create(path, "Demo", []manifest.Author{{Name: "Ada"}}, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	tc, err := e.CreateTestCase("First case", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create test case failed: %v", err)
	}
	if _, err := e.InsertEvidence(tc.ID, testcase.Evidence{Kind: testcase.KindText, Value: testcase.PlainData("hello")}); err != nil {
		t.Fatalf("insert evidence failed: %v", err)
	}
	if err := e.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if reopened.Metadata().Title != "Demo" {
		t.Errorf("title mismatch: %q", reopened.Metadata().Title)
	}
	got, ok := reopened.TestCase(tc.ID)
	if !ok {
		t.Fatal("expected test case to survive the round trip")
	}
	if len(got.Evidence) != 1 || got.Evidence[0].Value.String() != "plain:hello" {
		t.Errorf("unexpected evidence: %+v", got.Evidence)
	}
}

func TestSecondOpenIsLocked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.evp")

	e, err := Create(path, "Demo", nil, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer e.Close()

	_, err = Open(path, nil)
	if err == nil {
		t.Fatal("expected second open to fail while the lock is held")
	}
	if _, ok := err.(*LockedError); !ok {
		t.Fatalf("expected *LockedError, got %T", err)
	}
}

func TestMediaGarbageCollectedOnSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.evp")

	e, err := Create(path, "Demo", nil, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer e.Close()

	tc, _ := e.CreateTestCase("Case", time.Now().UTC())
	if _, err := e.InsertImageEvidence(tc.ID, []byte{0x89, 0x50, 0x4E, 0x47}, "image/png", ""); err != nil {
		t.Fatalf("insert image failed: %v", err)
	}
	if err := e.Save(); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if len(e.manifest.Media) != 1 {
		t.Fatalf("expected 1 media entry after first save, got %d", len(e.manifest.Media))
	}

	if !e.DeleteTestCase(tc.ID) {
		t.Fatal("expected delete to succeed")
	}
	if err := e.Save(); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if len(e.manifest.Media) != 0 {
		t.Fatalf("expected media to be garbage collected, got %d entries", len(e.manifest.Media))
	}
}

func TestDuplicateTestCaseDeepClones(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.evp")
	e, err := Create(path, "Demo", nil, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer e.Close()

	original, _ := e.CreateTestCase("Original", time.Now().UTC())
	e.InsertEvidence(original.ID, testcase.Evidence{Kind: testcase.KindText, Value: testcase.PlainData("x")})

	dup, err := e.DuplicateTestCase(original.ID)
	if err != nil {
		t.Fatalf("duplicate failed: %v", err)
	}
	if dup.ID == original.ID {
		t.Fatal("expected a freshly generated UUID")
	}
	if dup.Metadata.Title != "Original copy" {
		t.Errorf("expected a \" copy\" suffix, got %q", dup.Metadata.Title)
	}
	if len(dup.Evidence) != 1 {
		t.Fatalf("expected cloned evidence, got %d items", len(dup.Evidence))
	}
}

func TestCloneTitleTruncatesByRuneNotByte(t *testing.T) {
	title := strings.Repeat("é", 28) // 56 bytes, 28 runes
	got := cloneTitle(title)
	if !utf8.ValidString(got) {
		t.Fatalf("cloneTitle produced invalid UTF-8: %q", got)
	}
	if utf8.RuneCountInString(got) > 30 {
		t.Errorf("expected at most 30 runes, got %d: %q", utf8.RuneCountInString(got), got)
	}
	if !strings.HasSuffix(got, " copy") {
		t.Errorf("expected a \" copy\" suffix, got %q", got)
	}
}

func TestDanglingMediaReferenceFailsSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.evp")
	e, err := Create(path, "Demo", nil, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer e.Close()

	tc, _ := e.CreateTestCase("Case", time.Now().UTC())
	e.InsertEvidence(tc.ID, testcase.Evidence{Kind: testcase.KindImage, Value: testcase.MediaData("0000000000000000000000000000000000000000000000000000000000000000")})

	if err := e.Save(); err == nil {
		t.Fatal("expected save to fail on a dangling media reference")
	} else if _, ok := err.(*DanglingMediaRefError); !ok {
		t.Fatalf("expected *DanglingMediaRefError, got %T (%v)", err, err)
	}
}

func TestOpenZipWithoutManifestReportsInvalidManifest(t *testing.T) {
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

	_, err = Open(path, nil)
	if err == nil {
		t.Fatal("expected open to fail for a ZIP without manifest.json")
	}
	var invalidManifest *manifest.InvalidError
	if !errors.As(err, &invalidManifest) {
		t.Fatalf("expected *manifest.InvalidError, got %T (%v)", err, err)
	}
	var archiveErr *ArchiveLayoutError
	if errors.As(err, &archiveErr) {
		t.Fatal("expected a missing manifest to be reported distinctly from a genuine archive layout error")
	}
}

func TestSetTestCaseOrderRejectsUnknownID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.evp")
	e, err := Create(path, "Demo", nil, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer e.Close()

	e.CreateTestCase("A", time.Now().UTC())
	if err := e.SetTestCaseOrder([]uuid.UUID{uuid.New()}); err == nil {
		t.Fatal("expected an error for an unknown test case id")
	}
}
