package pkgengine

import (
	"archive/zip"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/jsonextra"
	"github.com/hpkns/evidenceangel/internal/manifest"
	"github.com/hpkns/evidenceangel/internal/testcase"
)

const (
	manifestEntryName  = "manifest.json"
	mediaDirPrefix     = "media/"
	testCasesDirPrefix = "testcases/"
)

// parsedArchive is everything readArchive extracts from a ZIP-structured
// evidence package, before it is wired into a live Engine.
type parsedArchive struct {
	manifest       manifest.Document
	manifestExtras jsonextra.Bag
	cases          map[uuid.UUID]testcase.Case
	caseExtras     map[uuid.UUID]jsonextra.Bag
	unknownRoot    map[string][]byte
}

// readArchive parses a ZIP-structured evidence package per §4.3's Open
// steps 2-4: it reads and validates manifest.json, then reads and
// validates every test case the manifest references. A referenced test
// case whose file is missing is fatal; a testcases/*.json file the
// manifest does not reference is silently ignored (it is removed on the
// next save). Media blobs are deliberately not read here — they stay in
// the archive until GetMedia or Save needs them, so opening a package
// never buffers its media in full.
func readArchive(zr *zip.Reader) (*parsedArchive, error) {
	pa := &parsedArchive{
		cases:       make(map[uuid.UUID]testcase.Case),
		caseExtras:  make(map[uuid.UUID]jsonextra.Bag),
		unknownRoot: make(map[string][]byte),
	}

	var manifestRaw []byte
	testCaseFiles := make(map[string][]byte)

	for _, f := range zr.File {
		switch {
		case f.Name == manifestEntryName:
			data, err := readZipEntry(f)
			if err != nil {
				return nil, &manifest.InvalidError{Reason: "reading manifest.json: " + err.Error()}
			}
			manifestRaw = data
		case strings.HasPrefix(f.Name, testCasesDirPrefix) && strings.HasSuffix(f.Name, ".json"):
			id := strings.TrimSuffix(strings.TrimPrefix(f.Name, testCasesDirPrefix), ".json")
			data, err := readZipEntry(f)
			if err != nil {
				return nil, &ArchiveLayoutError{Reason: "reading " + f.Name + ": " + err.Error()}
			}
			testCaseFiles[id] = data
		case strings.HasPrefix(f.Name, mediaDirPrefix):
			// Media blobs are read on demand; see GetMedia and Save.
		case f.FileInfo().IsDir():
			// Directory entries carry no content of their own.
		case !strings.Contains(f.Name, "/"):
			data, err := readZipEntry(f)
			if err != nil {
				return nil, &ArchiveLayoutError{Reason: "reading " + f.Name + ": " + err.Error()}
			}
			pa.unknownRoot[f.Name] = data
		default:
			// Unrecognized nested entries are dropped; only root-level
			// files are preserved, per §4.3.
		}
	}

	if manifestRaw == nil {
		return nil, &manifest.InvalidError{Reason: `missing "manifest.json"`}
	}
	doc, extras, err := manifest.Unmarshal(manifestRaw)
	if err != nil {
		return nil, err
	}
	pa.manifest = doc
	pa.manifestExtras = extras

	knownField := func(id string) bool {
		_, ok := doc.CustomTestCaseMetadata.Get(id)
		return ok
	}
	for _, ref := range doc.TestCases {
		raw, ok := testCaseFiles[ref.ID.String()]
		if !ok {
			return nil, &MissingTestCaseError{ID: ref.ID}
		}
		tc, tcExtras, err := testcase.Unmarshal(ref.ID, raw, knownField)
		if err != nil {
			return nil, err
		}
		pa.cases[ref.ID] = tc
		pa.caseExtras[ref.ID] = tcExtras
	}

	return pa, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// findZipFile looks up name among zr's entries, returning nil if absent.
func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}
