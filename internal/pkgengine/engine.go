// Package pkgengine implements the mechanics of an evidence package: the
// ZIP archive layout, the single-writer lock file, dirty tracking, and
// referential integrity between evidence, media, and test cases. It is
// the mutable model the public API exposes; callers mutate an Engine in
// memory and explicitly Save it back to disk.
package pkgengine

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/hpkns/evidenceangel/internal/jsonextra"
	"github.com/hpkns/evidenceangel/internal/manifest"
	"github.com/hpkns/evidenceangel/internal/mediastore"
	"github.com/hpkns/evidenceangel/internal/testcase"
)

const workInProgressSuffix = ".wip"

// Engine is an open evidence package: its in-memory model plus the
// bookkeeping needed to read unchanged media back out of the file it was
// opened from and to save changes atomically.
type Engine struct {
	path string
	lock *lock
	log  *slog.Logger

	manifest       manifest.Document
	manifestExtras jsonextra.Bag
	cases          map[uuid.UUID]testcase.Case
	caseExtras     map[uuid.UUID]jsonextra.Bag
	unknownRoot    map[string][]byte
	media          *mediastore.Store

	// sourceFile/sourceZip are the archive this Engine was last opened
	// from or saved to. A freshly Created package that has never been
	// saved has neither set. They let Save stream unchanged media
	// straight from the old archive into the new one.
	sourceFile *os.File
	sourceZip  *zip.Reader

	dirty bool
}

// Create makes a brand new, empty evidence package and writes it to path
// immediately, so a Package value is never left in an unsaved state that
// doesn't exist on disk. title must satisfy the same 1..30 character
// rule Validate enforces; an empty authors list keeps the default single
// "Anonymous Author".
func Create(path string, title string, authors []manifest.Author, log *slog.Logger) (*Engine, error) {
	l, err := acquireLock(path, log)
	if err != nil {
		return nil, err
	}

	doc := manifest.New()
	doc.Metadata.Title = title
	if len(authors) > 0 {
		doc.Metadata.Authors = authors
	}
	if err := manifest.Validate(doc); err != nil {
		l.release()
		return nil, err
	}

	e := &Engine{
		path:        path,
		lock:        l,
		log:         log,
		manifest:    doc,
		cases:       make(map[uuid.UUID]testcase.Case),
		caseExtras:  make(map[uuid.UUID]jsonextra.Bag),
		unknownRoot: make(map[string][]byte),
		media:       mediastore.New(),
		dirty:       true,
	}
	if err := e.Save(); err != nil {
		l.release()
		return nil, err
	}
	return e, nil
}

// Open acquires the package's lock and parses it from disk, per §4.3.
func Open(path string, log *slog.Logger) (*Engine, error) {
	l, err := acquireLock(path, log)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		l.release()
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		l.release()
		return nil, err
	}
	zr, err := zip.NewReader(file, info.Size())
	if err != nil {
		file.Close()
		l.release()
		return nil, &ArchiveLayoutError{Reason: err.Error()}
	}

	pa, err := readArchive(zr)
	if err != nil {
		file.Close()
		l.release()
		return nil, err
	}

	e := &Engine{
		path:           path,
		lock:           l,
		log:            log,
		manifest:       pa.manifest,
		manifestExtras: pa.manifestExtras,
		cases:          pa.cases,
		caseExtras:     pa.caseExtras,
		unknownRoot:    pa.unknownRoot,
		media:          mediastore.New(),
		sourceFile:     file,
		sourceZip:      zr,
	}
	return e, nil
}

// Path reports the filesystem path this package was opened from or
// created at.
func (e *Engine) Path() string {
	return e.path
}

// Dirty reports whether the in-memory model has unsaved mutations.
func (e *Engine) Dirty() bool {
	return e.dirty
}

func (e *Engine) markDirty() {
	e.dirty = true
}

func (e *Engine) logger() *slog.Logger {
	if e.log != nil {
		return e.log
	}
	return slog.Default()
}

// Close releases the package's lock without saving. Callers with unsaved
// mutations are responsible for deciding whether to Save first; the core
// permits closing dirty, matching §4.3's "UI collaborator is responsible
// for prompting" policy.
func (e *Engine) Close() error {
	if e.sourceFile != nil {
		e.sourceFile.Close()
		e.sourceFile = nil
		e.sourceZip = nil
	}
	return e.lock.release()
}

// SaveAs saves the package to a new path, acquiring that path's lock
// before releasing the current one, and continues operating from the new
// location afterwards. The original file on disk is left untouched.
func (e *Engine) SaveAs(newPath string) error {
	newLock, err := acquireLock(newPath, e.log)
	if err != nil {
		return err
	}

	oldPath := e.path
	oldLock := e.lock
	e.path = newPath
	e.lock = newLock
	if err := e.Save(); err != nil {
		e.path = oldPath
		e.lock = oldLock
		newLock.release()
		return err
	}

	oldLock.release()
	return nil
}

// GetMedia resolves a media checksum to its declared MIME type and bytes,
// checking the in-memory store first and falling back to a lazy,
// cache-filling read from the archive this package was opened from. A
// hash with no matching manifest entry is reported as a dangling
// reference rather than a generic not-found.
func (e *Engine) GetMedia(sha256 string) (mimeType string, data []byte, err error) {
	entryMime, _, hasEntry := e.lookupMediaEntry(sha256)
	if mime, r, ok := e.media.Get(sha256); ok {
		e.logger().Debug("media cache hit", "sha256", sha256)
		buf, err := io.ReadAll(r)
		if err != nil {
			return "", nil, err
		}
		return mime, buf, nil
	}
	if !hasEntry {
		return "", nil, &DanglingMediaRefError{SHA256: sha256}
	}
	if e.sourceZip == nil {
		return "", nil, &DanglingMediaRefError{SHA256: sha256}
	}
	e.logger().Debug("media cache miss, loading from archive", "sha256", sha256)
	f := findZipFile(e.sourceZip, mediaDirPrefix+sha256)
	if f == nil {
		return "", nil, &DanglingMediaRefError{SHA256: sha256}
	}
	raw, err := readZipEntry(f)
	if err != nil {
		return "", nil, err
	}
	actualKey, err := e.media.Insert(raw, entryMime)
	if err != nil {
		return "", nil, err
	}
	if actualKey != sha256 {
		return "", nil, fmt.Errorf("pkgengine: media blob stored at %s actually hashes to %s", sha256, actualKey)
	}
	return entryMime, raw, nil
}

// MediaReader ensures sha256 is loaded into the in-memory media store and
// returns a streaming reader over it, matching the public API's
// media().get(sha256) -> (mime, stream) contract. Unlike GetMedia, it
// never hands the caller a fully materialized copy of its own; the
// returned reader is mediastore's own streaming view.
func (e *Engine) MediaReader(sha256 string) (mimeType string, r io.ReadSeeker, err error) {
	if mime, r, ok := e.media.Get(sha256); ok {
		return mime, r, nil
	}
	mime, _, err := e.GetMedia(sha256)
	if err != nil {
		return "", nil, err
	}
	_, r, _ = e.media.Get(sha256)
	return mime, r, nil
}

func (e *Engine) lookupMediaEntry(sha256 string) (mimeType string, entry manifest.MediaEntry, ok bool) {
	for _, m := range e.manifest.Media {
		if m.SHA256 == sha256 {
			return m.MimeType, m, true
		}
	}
	return "", manifest.MediaEntry{}, false
}

// AddMedia inserts bytes into the package's media store, deduplicating
// against existing content, and ensures the manifest carries a matching
// entry. It returns the checksum evidence should reference.
func (e *Engine) AddMedia(data []byte, mimeType string) (string, error) {
	key, err := e.media.Insert(data, mimeType)
	if err != nil {
		return "", err
	}
	for _, m := range e.manifest.Media {
		if m.SHA256 == key {
			e.markDirty()
			return key, nil
		}
	}
	e.manifest.Media = append(e.manifest.Media, manifest.MediaEntry{SHA256: key, MimeType: mimeType})
	e.markDirty()
	return key, nil
}

