// Package registry records installed packages in a plain text file, one
// name@version per line.
package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"strings"

	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Registry = (*File)(nil)

// File implements ports.Registry. Every mutation rewrites the whole file
// through a staging copy, so a crash leaves either the old or the new list.
type File struct {
	path string
}

// New creates a registry backed by the file at path.
func New(path string) *File {
	return &File{path: path}
}

// List returns the installed packages in file order. Unparsable lines are skipped.
func (r *File) List() ([]domain.PackageID, error) {
	lines, err := r.lines()
	if err != nil {
		return nil, err
	}
	ids := make([]domain.PackageID, 0, len(lines))
	for _, line := range lines {
		id, err := domain.ParsePackageID(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Contains reports whether id is registered.
func (r *File) Contains(id domain.PackageID) (bool, error) {
	lines, err := r.lines()
	if err != nil {
		return false, err
	}
	want := id.String()
	for _, line := range lines {
		if strings.TrimSpace(line) == want {
			return true, nil
		}
	}
	return false, nil
}

// Add appends id unless it is already present. Existing lines are kept verbatim.
func (r *File) Add(id domain.PackageID) error {
	lines, err := r.lines()
	if err != nil {
		return err
	}
	want := id.String()
	for _, line := range lines {
		if strings.TrimSpace(line) == want {
			return nil
		}
	}
	return r.rewrite(append(lines, want))
}

// Remove drops every line naming id.
func (r *File) Remove(id domain.PackageID) error {
	lines, err := r.lines()
	if err != nil {
		return err
	}
	want := id.String()
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) != want {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(lines) {
		return nil
	}
	return r.rewrite(kept)
}

// lines returns the non-blank lines of the registry file.
func (r *File) lines() ([]string, error) {
	f, err := os.Open(r.path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", r.path)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			continue
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", r.path)
	}
	return lines, nil
}

func (r *File) rewrite(lines []string) error {
	err := fs.ReplaceFile(r.path, func(w io.Writer) error {
		for _, line := range lines {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, domain.ErrNotDurable) {
		return err
	}
	if err != nil {
		return zerr.With(fmt.Errorf("%w: %w", domain.ErrRegistryWrite, err), "path", r.path)
	}
	return nil
}
