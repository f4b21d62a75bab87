package export

import (
	"archive/zip"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/pkgengine"
	"github.com/hpkns/evidenceangel/internal/testcase"
)

// exportZipFiles renders ids as a ZIP archive of plain files, one
// directory per test case, named "<test case title>/NNN-<kind>[.ext]"
// with the evidence index zero-padded to preserve order. Titles that
// collide after sanitizing get a "-<n>" suffix.
func exportZipFiles(pkg *pkgengine.Engine, ids []uuid.UUID, tempPath string) error {
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return &FailedError{Backend: "zip", Reason: err.Error()}
	}
	w := zip.NewWriter(f)

	preview := newPreviewTree("export")
	usedDirNames := make(map[string]int)

	for _, id := range ids {
		tc, ok := pkg.TestCase(id)
		if !ok {
			continue
		}
		dirName := disambiguate(sanitizeName(tc.Metadata.Title), usedDirNames)
		if err := writeTestCaseFiles(w, pkg, tc, dirName, &preview); err != nil {
			w.Close()
			f.Close()
			return &FailedError{Backend: "zip", Reason: err.Error()}
		}
	}

	if err := w.Close(); err != nil {
		f.Close()
		return &FailedError{Backend: "zip", Reason: err.Error()}
	}
	if err := f.Close(); err != nil {
		return &FailedError{Backend: "zip", Reason: err.Error()}
	}

	slog.Debug("zip export layout", "tree", preview.render())
	return nil
}

func writeTestCaseFiles(w *zip.Writer, pkg *pkgengine.Engine, tc testcase.Case, dirName string, preview *previewTree) error {
	width := digitWidth(len(tc.Evidence))
	for i, ev := range tc.Evidence {
		names, blobs, err := renderEvidenceFiles(pkg, ev, i, width)
		if err != nil {
			return fmt.Errorf("test case %s, evidence %d: %w", tc.ID, i, err)
		}
		for j, name := range names {
			entryPath := path.Join(dirName, name)
			fw, err := w.Create(entryPath)
			if err != nil {
				return err
			}
			if _, err := fw.Write(blobs[j]); err != nil {
				return err
			}
			preview.add(entryPath)
		}
	}
	return nil
}

// renderEvidenceFiles resolves one evidence item's payload to the file
// name(s) and byte content it should be written as. Http evidence
// produces two files (request and response); everything else produces
// one.
func renderEvidenceFiles(pkg *pkgengine.Engine, ev testcase.Evidence, index int, width int) ([]string, [][]byte, error) {
	prefix := fmt.Sprintf("%0*d-%s", width, index, strings.ToLower(string(ev.Kind)))

	if ev.Kind == testcase.KindHttp {
		raw, _, err := resolveBytes(pkg, ev.Value)
		if err != nil {
			return nil, nil, err
		}
		request, response, err := testcase.DecodeHttp(raw)
		if err != nil {
			return nil, nil, err
		}
		return []string{prefix + "-request.txt", prefix + "-response.txt"}, [][]byte{request, response}, nil
	}

	data, mimeType, err := resolveBytes(pkg, ev.Value)
	if err != nil {
		return nil, nil, err
	}

	var name string
	switch ev.Kind {
	case testcase.KindFile:
		name = prefix + "-" + sanitizeName(ev.OriginalFilename)
	case testcase.KindText, testcase.KindRichText:
		name = prefix + ".txt"
	default:
		name = prefix + extensionFor(mimeType)
	}
	return []string{name}, [][]byte{data}, nil
}

// resolveBytes materializes an evidence value regardless of which
// discriminated form it was stored in, fetching from the media store
// when it's a reference.
func resolveBytes(pkg *pkgengine.Engine, d testcase.Data) ([]byte, string, error) {
	switch d.Form {
	case testcase.FormPlain:
		return []byte(d.Text), "text/plain", nil
	case testcase.FormBase64:
		return d.Bytes, "application/octet-stream", nil
	case testcase.FormMedia:
		mimeType, data, err := pkg.GetMedia(d.Text)
		if err != nil {
			return nil, "", err
		}
		return data, mimeType, nil
	default:
		return nil, "", fmt.Errorf("export: evidence value has unknown form %d", d.Form)
	}
}

func extensionFor(mimeType string) string {
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}

func digitWidth(count int) int {
	width := 1
	for count >= 10 {
		count /= 10
		width++
	}
	return width
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "untitled"
	}
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func disambiguate(name string, used map[string]int) string {
	count := used[name]
	used[name] = count + 1
	if count == 0 {
		return name
	}
	return fmt.Sprintf("%s-%d", name, count)
}
