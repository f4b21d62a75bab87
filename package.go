// Package evidenceangel is the public API for evidence packages: ZIP
// archives that bundle a package manifest, per-test-case documents, and
// the media they reference. Callers open or create a Package, mutate it
// in memory through the methods below, and explicitly Save it back to
// disk.
package evidenceangel

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hpkns/evidenceangel/internal/manifest"
	"github.com/hpkns/evidenceangel/internal/pkgengine"
)

// VerbosityLevel selects where a Package's progress writers send their
// output. It does not affect the structured diagnostics sent to Config's
// Logger, which are emitted the same way at every level.
type VerbosityLevel int

const (
	// DefaultVerbosity sends ordinary progress to stdout and discards the
	// extra and verbose progress lines.
	DefaultVerbosity VerbosityLevel = iota
	// VerboseMode also sends the extra and verbose progress lines to
	// stdout.
	VerboseMode
	// QuietMode discards all progress output except errors.
	QuietMode
)

// OptimizationLevel is carried on Config for callers to set. Save and
// media access behave the same at every level; neither re-verifies media
// checksums on save.
type OptimizationLevel int

const (
	// DefaultOptimizations is the zero value.
	DefaultOptimizations OptimizationLevel = iota
	// ThoroughMode is accepted, but selects no different behavior.
	ThoroughMode
)

// Config holds the switches that govern a Package's behavior. The zero
// value is a sensible default.
type Config struct {
	Verbosity    VerbosityLevel
	Optimization OptimizationLevel
	// Logger receives diagnostic output. A nil Logger falls back to
	// slog.Default(), so callers who don't care about logging never have
	// to configure one.
	Logger *slog.Logger
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Package is an open evidence package. Mutations happen in memory;
// nothing reaches disk until Save or SaveAs is called.
type Package struct {
	engine *pkgengine.Engine
	log    *slog.Logger
	config Config

	out        io.Writer // essential output (i.e. requested information)
	extraOut   io.Writer // more output for convenience (repeats context)
	verboseOut io.Writer // most output, talkative
	errOut     io.Writer // error output
}

func makePackage(engine *pkgengine.Engine, logger *slog.Logger, config Config) *Package {
	p := &Package{engine: engine, log: logger, config: config,
		out: os.Stdout, extraOut: io.Discard, verboseOut: io.Discard, errOut: os.Stderr}
	switch config.Verbosity {
	case VerboseMode:
		p.extraOut = os.Stdout
		p.verboseOut = os.Stdout
	case QuietMode:
		p.out = io.Discard
	}
	return p
}

// Create makes a brand new evidence package at path with the given title
// and authors, and saves it immediately.
func Create(path string, title string, authors []Author, config Config) (*Package, error) {
	manifestAuthors := make([]manifest.Author, 0, len(authors))
	for _, a := range authors {
		manifestAuthors = append(manifestAuthors, manifest.Author{Name: a.Name, Email: a.Email})
	}
	logger := config.logger()
	engine, err := pkgengine.Create(path, title, manifestAuthors, logger)
	if err != nil {
		return nil, classifyErr("create evidence package", err)
	}
	p := makePackage(engine, logger, config)
	p.log.Debug("created evidence package", "path", path)
	fmt.Fprintf(p.out, "created %s\n", path)
	return p, nil
}

// Open loads the evidence package at path, acquiring its lock for the
// lifetime of the returned Package.
func Open(path string, config Config) (*Package, error) {
	logger := config.logger()
	engine, err := pkgengine.Open(path, logger)
	if err != nil {
		return nil, classifyErr("open evidence package", err)
	}
	p := makePackage(engine, logger, config)
	p.log.Debug("opened evidence package", "path", path)
	fmt.Fprintf(p.extraOut, "opened %s\n", path)
	return p, nil
}

// Path reports the filesystem path this package was created at or
// opened from.
func (p *Package) Path() string {
	return p.engine.Path()
}

// Dirty reports whether the package has unsaved mutations.
func (p *Package) Dirty() bool {
	return p.engine.Dirty()
}

// Save writes the package back to its path, atomically.
func (p *Package) Save() error {
	fmt.Fprintf(p.verboseOut, "saving %s (dirty=%v)\n", p.Path(), p.Dirty())
	if err := p.engine.Save(); err != nil {
		return classifyErr("save evidence package", err)
	}
	fmt.Fprintf(p.out, "saved %s\n", p.Path())
	return nil
}

// SaveAs saves the package to a new path and continues operating from
// there. The file at the original path is left untouched.
func (p *Package) SaveAs(path string) error {
	if err := p.engine.SaveAs(path); err != nil {
		return classifyErr("save evidence package as "+path, err)
	}
	fmt.Fprintf(p.out, "saved %s\n", path)
	return nil
}

// Close releases the package's lock without saving. Callers with unsaved
// mutations decide for themselves whether to Save first.
func (p *Package) Close() error {
	if p.Dirty() {
		fmt.Fprintf(p.errOut, "closing %s with unsaved changes\n", p.Path())
	}
	if err := p.engine.Close(); err != nil {
		return classifyErr("close evidence package", err)
	}
	return nil
}

// Author is a named contributor to an evidence package.
type Author struct {
	Name  string
	Email string
}

// Metadata describes an evidence package as a whole.
type Metadata struct {
	Title       string
	Description string
	Authors     []Author
}

// Metadata returns the package's title, description, and authors.
func (p *Package) Metadata() Metadata {
	m := p.engine.Metadata()
	authors := make([]Author, 0, len(m.Authors))
	for _, a := range m.Authors {
		authors = append(authors, Author{Name: a.Name, Email: a.Email})
	}
	return Metadata{Title: m.Title, Description: m.Description, Authors: authors}
}

// SetTitle renames the package. title must be 1..30 characters.
func (p *Package) SetTitle(title string) error {
	if err := p.engine.SetTitle(title); err != nil {
		return classifyErr("set title", err)
	}
	return nil
}

// SetDescription replaces the package's description.
func (p *Package) SetDescription(description string) {
	p.engine.SetDescription(description)
}

// AddAuthor appends an author to the package.
func (p *Package) AddAuthor(author Author) error {
	if err := p.engine.AddAuthor(manifest.Author{Name: author.Name, Email: author.Email}); err != nil {
		return classifyErr("add author", err)
	}
	return nil
}

// RemoveAuthor removes the author at index. It reports whether one was
// removed.
func (p *Package) RemoveAuthor(index int) bool {
	return p.engine.RemoveAuthor(index)
}
