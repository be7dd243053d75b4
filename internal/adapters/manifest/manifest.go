// Package manifest parses forge.json dependency manifests.
//
// A manifest is a JSON object whose "dependencies" member maps package names
// to versions:
//
//	{
//	  "name": "app",
//	  "dependencies": {
//	    "zlib": "1.3.1", // comments and trailing commas are accepted
//	  },
//	}
//
// Dependencies are returned in document order.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"

	"github.com/tidwall/jsonc"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

const dependenciesKey = "dependencies"

// Parse reads the manifest at path. A missing file is reported as
// domain.ErrManifestMissing, which callers must not confuse with a manifest
// that declares no dependencies.
func Parse(path string) ([]domain.PackageID, error) {
	f, err := os.Open(path) //nolint:gosec // Path is a staging file owned by the caller
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, zerr.With(zerr.Wrap(domain.ErrManifestMissing, ""), "path", path)
	}
	if err != nil {
		return nil, zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
	}
	defer f.Close() //nolint:errcheck // Read-only handle

	data, err := io.ReadAll(io.LimitReader(f, domain.MaxManifestSize+1))
	if err != nil {
		return nil, zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", path)
	}
	if len(data) > domain.MaxManifestSize {
		return nil, zerr.With(zerr.Wrap(domain.ErrManifestTooLarge, ""), "path", path)
	}

	deps, err := ParseBytes(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return deps, nil
}

// ParseBytes parses manifest content. Entries whose name or version is not a
// safe path component are skipped.
func ParseBytes(data []byte) ([]domain.PackageID, error) {
	if len(data) > domain.MaxManifestSize {
		return nil, fmt.Errorf("%w: %d bytes", domain.ErrManifestTooLarge, len(data))
	}

	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	deps := []domain.PackageID{}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != dependenciesKey {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, invalid(err)
			}
			continue
		}
		if deps, err = readDependencies(dec); err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after object", domain.ErrManifestInvalid)
	}
	return deps, nil
}

func readDependencies(dec *json.Decoder) ([]domain.PackageID, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, invalid(err)
	}
	if tok == nil {
		return []domain.PackageID{}, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: %q must be an object", domain.ErrManifestInvalid, dependenciesKey)
	}

	deps := []domain.PackageID{}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, invalid(err)
		}
		version, ok := tok.(string)
		if !ok {
			return nil, zerr.With(fmt.Errorf("%w: version must be a string", domain.ErrManifestInvalid), "dependency", name)
		}

		id := domain.PackageID{Name: name, Version: version}
		if id.Validate() != nil {
			continue
		}
		if len(deps) == domain.MaxManifestDeps {
			return nil, zerr.With(zerr.Wrap(domain.ErrTooManyDependencies, ""), "max", domain.MaxManifestDeps)
		}
		deps = append(deps, id)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return deps, nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", invalid(err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key", domain.ErrManifestInvalid)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return invalid(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q", domain.ErrManifestInvalid, want)
	}
	return nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrManifestInvalid, err)
}
