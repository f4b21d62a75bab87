package export

import (
	"path/filepath"

	"github.com/disiqueira/gotree/v3"
)

// previewTree builds a human-readable directory tree of a ZIP-of-files
// export while it's being assembled, the same way the tree construction
// this was adapted from lays out a set of paths under a root label.
type previewTree struct {
	tree gotree.Tree
	dirs map[string]gotree.Tree
}

func newPreviewTree(rootLabel string) previewTree {
	return previewTree{tree: gotree.New(rootLabel), dirs: make(map[string]gotree.Tree)}
}

func (t previewTree) getDir(dirPath string) (dir gotree.Tree) {
	if dirPath == "." {
		return t.tree
	}
	dir = t.dirs[dirPath]
	if dir == nil {
		parentDir := t.getDir(filepath.Dir(dirPath))
		dir = parentDir.Add(filepath.Base(dirPath))
		t.dirs[dirPath] = dir
	}
	return
}

// add registers one archive entry's path in the tree.
func (t previewTree) add(entryPath string) {
	dir := t.getDir(filepath.Dir(entryPath))
	dir.Add(filepath.Base(entryPath))
}

// render returns the tree as indented text, suitable for a verbose log
// line describing what a ZIP-of-files export produced.
func (t previewTree) render() string {
	return t.tree.Print()
}
