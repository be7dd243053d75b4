// Package lockfile reads and rewrites forge.lock, a table of
// "name@version url digest" rows pinning where each package comes from.
package lockfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"iter"
	"os"
	"strings"

	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.LockTable = (*Table)(nil)

// Table implements ports.LockTable over a whitespace separated text file.
type Table struct {
	path string
}

// New creates a lock table backed by the file at path.
func New(path string) *Table {
	return &Table{path: path}
}

// Exists reports whether the lock file is present.
func (t *Table) Exists() bool {
	info, err := os.Stat(t.path)
	return err == nil && info.Mode().IsRegular()
}

// Entries yields the well-formed rows of the table, reading the file lazily.
// Each call opens the file afresh. A missing file yields nothing; a read
// failure is yielded once as the final element.
func (t *Table) Entries() iter.Seq2[domain.LockEntry, error] {
	return func(yield func(domain.LockEntry, error) bool) {
		f, err := os.Open(t.path)
		if errors.Is(err, iofs.ErrNotExist) {
			return
		}
		if err != nil {
			yield(domain.LockEntry{}, t.ioError(err))
			return
		}
		defer f.Close() //nolint:errcheck // Read-only handle

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			entry, ok := parseRow(scanner.Text())
			if !ok {
				continue
			}
			if !yield(entry, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(domain.LockEntry{}, t.ioError(err))
		}
	}
}

// Lookup returns the first row pinning id.
func (t *Table) Lookup(id domain.PackageID) (domain.LockEntry, bool, error) {
	for entry, err := range t.Entries() {
		if err != nil {
			return domain.LockEntry{}, false, err
		}
		if entry.ID == id {
			return entry, true, nil
		}
	}
	return domain.LockEntry{}, false, nil
}

// Remove rewrites the table without the rows pinning id. Other lines,
// malformed ones included, are kept verbatim.
func (t *Table) Remove(id domain.PackageID) error {
	data, err := os.ReadFile(t.path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return t.ioError(err)
	}

	var kept []string
	removed := false
	for line := range strings.Lines(string(data)) {
		line = strings.TrimRight(line, "\r\n")
		if entry, ok := parseRow(line); ok && entry.ID == id {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return nil
	}

	return fs.ReplaceFile(t.path, func(w io.Writer) error {
		for _, line := range kept {
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

func (t *Table) ioError(err error) error {
	return zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", t.path)
}

// parseRow parses "name@version url digest". Anything else is not a row.
func parseRow(line string) (domain.LockEntry, bool) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return domain.LockEntry{}, false
	}
	id, err := domain.ParsePackageID(fields[0])
	if err != nil {
		return domain.LockEntry{}, false
	}
	digest, err := domain.ParseDigest(fields[2])
	if err != nil {
		return domain.LockEntry{}, false
	}
	return domain.LockEntry{ID: id, URL: fields[1], Digest: digest}, true
}
