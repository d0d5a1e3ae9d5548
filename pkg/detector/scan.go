package detector

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// Directories never descended into during tree enumeration.
var excludedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	".venv":        true,
	"venv":         true,
}

// scanBudget is the shared file-enumeration budget for one detection call.
// Atomic so concurrent evaluators could share it safely.
type scanBudget struct {
	used  atomic.Int64
	limit int64
}

func newScanBudget(limit int) *scanBudget {
	return &scanBudget{limit: int64(limit)}
}

// take consumes one unit and reports whether the budget still held it.
func (b *scanBudget) take() bool {
	return b.used.Add(1) <= b.limit
}

func (b *scanBudget) spent() int {
	if n := b.used.Load(); n < b.limit {
		return int(n)
	}
	return int(b.limit)
}

// workspaceFS provides bounded, cached filesystem access for one detection
// call. Many stacks probe the same manifest files; each file is read at most
// once per call.
type workspaceFS struct {
	root     string
	maxBytes int64

	mu       sync.Mutex
	contents map[string][]byte
}

func newWorkspaceFS(root string, maxBytes int64) *workspaceFS {
	return &workspaceFS{
		root:     root,
		maxBytes: maxBytes,
		contents: make(map[string][]byte),
	}
}

func (w *workspaceFS) hasFile(rel string) bool {
	info, err := os.Stat(filepath.Join(w.root, rel))
	return err == nil && info.Mode().IsRegular()
}

func (w *workspaceFS) hasDir(rel string) bool {
	info, err := os.Stat(filepath.Join(w.root, rel))
	return err == nil && info.IsDir()
}

// readFile returns the first maxBytes of rel, or nil when the file is
// missing or unreadable. A failed read is indistinguishable from an absent
// file on purpose: both mean "no evidence".
func (w *workspaceFS) readFile(rel string) []byte {
	w.mu.Lock()
	data, ok := w.contents[rel]
	w.mu.Unlock()
	if ok {
		return data
	}

	f, err := os.Open(filepath.Join(w.root, rel))
	if err != nil {
		data = nil
	} else {
		data, err = io.ReadAll(io.LimitReader(f, w.maxBytes))
		f.Close()
		if err != nil {
			data = nil
		}
	}

	w.mu.Lock()
	w.contents[rel] = data
	w.mu.Unlock()
	return data
}

// treeIndex is the relative-path enumeration shared by pattern and
// path-matches indicators, built once per detection call.
type treeIndex struct {
	paths     []string
	truncated bool
}

// buildTreeIndex walks root up to maxDepth, skipping excluded directories
// and charging every entry against the shared budget. The walk stops early
// on budget exhaustion or context expiry, flagging the index truncated.
func buildTreeIndex(ctx context.Context, root string, maxDepth int, budget *scanBudget) *treeIndex {
	idx := &treeIndex{}

	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			idx.truncated = true
			return filepath.SkipAll
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			if strings.Count(rel, "/")+1 >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		if !budget.take() {
			idx.truncated = true
			return filepath.SkipAll
		}
		idx.paths = append(idx.paths, rel)
		return nil
	})

	return idx
}
