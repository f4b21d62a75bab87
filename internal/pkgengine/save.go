package pkgengine

import (
	"archive/zip"
	"io"
	"os"

	"github.com/hpkns/evidenceangel/internal/manifest"
	"github.com/hpkns/evidenceangel/internal/testcase"
)

// Save serializes the manifest and all test-case files, garbage-collects
// any media no longer referenced by evidence, and rewrites the archive
// atomically: a temp file beside the target is written and flushed, then
// renamed over the original. On failure the temp file is removed and the
// original is left untouched. Preserved unknown root files and test cases
// are written first, then media, then the manifest last — matching the write order the file format was
// designed around, so a reader that stops partway through a crash never
// sees a manifest whose references outrun the data beside it.
func (e *Engine) Save() error {
	if err := e.checkReferentialIntegrity(); err != nil {
		return err
	}

	used := e.referencedMediaHashes()
	e.manifest.Media = filterMediaEntries(e.manifest.Media, used)

	tempPath := e.path + workInProgressSuffix
	out, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	writer := zip.NewWriter(out)

	if err := e.writeUnknownRoot(writer); err != nil {
		writer.Close()
		out.Close()
		os.Remove(tempPath)
		return err
	}
	if err := e.writeTestCases(writer); err != nil {
		writer.Close()
		out.Close()
		os.Remove(tempPath)
		return err
	}
	if err := e.writeMedia(writer, used); err != nil {
		writer.Close()
		out.Close()
		os.Remove(tempPath)
		return err
	}
	if err := e.writeManifest(writer); err != nil {
		writer.Close()
		out.Close()
		os.Remove(tempPath)
		return err
	}

	if err := writer.Close(); err != nil {
		out.Close()
		os.Remove(tempPath)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	if e.sourceFile != nil {
		e.sourceFile.Close()
		e.sourceFile = nil
		e.sourceZip = nil
	}

	if err := os.Rename(tempPath, e.path); err != nil {
		return err
	}

	if err := e.reopenSource(); err != nil {
		return err
	}

	e.dirty = false
	return nil
}

func (e *Engine) reopenSource() error {
	file, err := os.Open(e.path)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	zr, err := zip.NewReader(file, info.Size())
	if err != nil {
		file.Close()
		return err
	}
	e.sourceFile = file
	e.sourceZip = zr
	return nil
}

func (e *Engine) writeUnknownRoot(w *zip.Writer) error {
	for name, data := range e.unknownRoot {
		fw, err := w.Create(name)
		if err != nil {
			return err
		}
		if _, err := fw.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) writeTestCases(w *zip.Writer) error {
	for _, ref := range e.manifest.TestCases {
		tc, ok := e.cases[ref.ID]
		if !ok {
			continue
		}
		extras := e.caseExtras[ref.ID]
		data, err := testcase.Marshal(testcase.CurrentSchema, tc, extras)
		if err != nil {
			return err
		}
		fw, err := w.Create(testCasesDirPrefix + ref.ID.String() + ".json")
		if err != nil {
			return err
		}
		if _, err := fw.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) writeMedia(w *zip.Writer, used map[string]bool) error {
	for _, entry := range e.manifest.Media {
		if !used[entry.SHA256] {
			continue
		}
		fw, err := w.Create(mediaDirPrefix + entry.SHA256)
		if err != nil {
			return err
		}
		if mime, r, ok := e.media.Get(entry.SHA256); ok {
			_ = mime
			if _, err := io.Copy(fw, r); err != nil {
				return err
			}
			continue
		}
		if e.sourceZip != nil {
			if f := findZipFile(e.sourceZip, mediaDirPrefix+entry.SHA256); f != nil {
				src, err := f.Open()
				if err != nil {
					return err
				}
				_, copyErr := io.Copy(fw, src)
				src.Close()
				if copyErr != nil {
					return copyErr
				}
				continue
			}
		}
		return &DanglingMediaRefError{SHA256: entry.SHA256}
	}
	return nil
}

func (e *Engine) writeManifest(w *zip.Writer) error {
	data, err := manifest.Marshal(e.manifest, e.manifestExtras)
	if err != nil {
		return err
	}
	fw, err := w.Create(manifestEntryName)
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}

// referencedMediaHashes is the union, over every evidence item in every
// test case, of checksums carried by media-form evidence values.
func (e *Engine) referencedMediaHashes() map[string]bool {
	used := make(map[string]bool)
	for _, tc := range e.cases {
		for _, ev := range tc.Evidence {
			if ev.Value.Form == testcase.FormMedia {
				used[ev.Value.Text] = true
			}
		}
	}
	return used
}

func filterMediaEntries(entries []manifest.MediaEntry, used map[string]bool) []manifest.MediaEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if used[e.SHA256] {
			out = append(out, e)
		}
	}
	return out
}

// checkReferentialIntegrity verifies every media: reference in evidence
// resolves to a present manifest entry before Save rewrites the archive.
func (e *Engine) checkReferentialIntegrity() error {
	declared := make(map[string]bool, len(e.manifest.Media))
	for _, m := range e.manifest.Media {
		declared[m.SHA256] = true
	}
	for _, tc := range e.cases {
		for _, ev := range tc.Evidence {
			if ev.Value.Form == testcase.FormMedia && !declared[ev.Value.Text] {
				return &DanglingMediaRefError{SHA256: ev.Value.Text}
			}
		}
	}
	return nil
}
