package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Remover = (*Remover)(nil)

// Remover deletes trees with an explicit work-list instead of recursion, so a
// hostile archive cannot exhaust the stack.
type Remover struct{}

// NewRemover creates a new Remover.
func NewRemover() *Remover {
	return &Remover{}
}

type pending struct {
	path     string
	depth    int
	expanded bool
}

// RemoveAll deletes path and its contents in post-order.
func (r *Remover) RemoveAll(path string, maxDepth int) error {
	info, err := os.Lstat(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return ioError(err, path)
	}
	if !info.IsDir() {
		return removeEntry(path)
	}

	stack := []pending{{path: path}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.expanded {
			stack = stack[:len(stack)-1]
			if err := removeEntry(top.path); err != nil {
				return err
			}
			continue
		}
		if top.depth > maxDepth {
			return zerr.With(zerr.With(zerr.Wrap(domain.ErrDepthExceeded, "directory tree too deep"), "path", top.path), "max_depth", maxDepth)
		}
		stack[len(stack)-1].expanded = true

		entries, err := os.ReadDir(top.path)
		if err != nil {
			return ioError(err, top.path)
		}
		for _, e := range entries {
			child := filepath.Join(top.path, e.Name())
			// DirEntry types come from lstat, so symlinks to directories are
			// removed as links.
			if e.IsDir() {
				stack = append(stack, pending{path: child, depth: top.depth + 1})
				continue
			}
			if err := removeEntry(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func removeEntry(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		return ioError(err, path)
	}
	return nil
}

func ioError(err error, path string) error {
	return zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
}
