package domain_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestParsePackageID(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		id, err := domain.ParsePackageID("json@1.2.3")
		require.NoError(t, err)
		assert.Equal(t, domain.PackageID{Name: "json", Version: "1.2.3"}, id)
		assert.Equal(t, "json@1.2.3", id.String())
	})

	rejected := []struct {
		name  string
		input string
	}{
		{"missing separator", "json"},
		{"empty name", "@1.0.0"},
		{"empty version", "json@"},
		{"double separator", "a@1@2"},
		{"parent in name", "..@1.0.0"},
		{"parent in version", "json@../1"},
		{"slash in name", "a/b@1.0.0"},
		{"backslash in version", `json@1\0`},
		{"name too long", strings.Repeat("n", domain.MaxNameLen+1) + "@1.0.0"},
		{"version too long", "json@" + strings.Repeat("1", domain.MaxVersionLen+1)},
		{"whitespace in name", "js on@1.0.0"},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := domain.ParsePackageID(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidPackageID)
			assert.ErrorIs(t, err, domain.ErrValidation)

			var zErr *zerr.Error
			require.True(t, errors.As(err, &zErr))
			assert.Equal(t, tt.input, zErr.Metadata()["package"])
		})
	}
}

func TestDigest(t *testing.T) {
	t.Parallel()

	empty := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	d, err := domain.ParseDigest(empty)
	require.NoError(t, err)
	assert.Equal(t, empty, d.String())

	for _, bad := range []string{"", "abc", strings.ToUpper(empty), empty[:63] + "g"} {
		_, err := domain.ParseDigest(bad)
		require.ErrorIs(t, err, domain.ErrInvalidDigest, bad)
	}
}

func TestSource_Pinned(t *testing.T) {
	t.Parallel()

	assert.False(t, domain.Source{URL: "http://x"}.Pinned())
	entry := domain.LockEntry{URL: "http://x", Digest: "abc"}
	assert.True(t, entry.Source().Pinned())
}

func TestRefinedErrorsMatchTheirKind(t *testing.T) {
	t.Parallel()

	kinds := map[error]error{
		domain.ErrManifestMissing:   domain.ErrNotFound,
		domain.ErrLockEntryMissing:  domain.ErrNotFound,
		domain.ErrDigestMismatch:    domain.ErrIntegrity,
		domain.ErrChecksumMismatch:  domain.ErrIntegrity,
		domain.ErrUnsafeArchive:     domain.ErrDecode,
		domain.ErrDigestRead:        domain.ErrIO,
		domain.ErrRegistryWrite:     domain.ErrIO,
		domain.ErrFetchFailed:       domain.ErrTransport,
		domain.ErrInvalidPackageID:  domain.ErrValidation,
		domain.ErrUnsupportedMethod: domain.ErrDecode,
	}
	for refined, kind := range kinds {
		assert.ErrorIs(t, refined, kind, refined.Error())
		assert.ErrorIs(t, zerr.Wrap(refined, "context"), kind)

		tagged := zerr.With(zerr.Wrap(refined, ""), "package", "a@1.0.0")
		assert.ErrorIs(t, tagged, refined)
		assert.ErrorIs(t, tagged, kind)
	}
}

func TestSettingsPaths(t *testing.T) {
	t.Parallel()

	s := domain.DefaultSettings("/home/dev")
	id := domain.PackageID{Name: "a", Version: "1.0.0"}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"RegistryPath", s.RegistryPath(), filepath.Join("user-app/vendor/forge", "installed.txt")},
		{"PackageDir", s.PackageDir(id), filepath.Join("user-app/vendor/forge", "a", "1.0.0")},
		{"CacheDir", s.CacheDir, filepath.Join("/home/dev", ".forge", "cache")},
		{"ManifestURL", s.ManifestURL(id), "http://localhost:8080/a/1.0.0/forge.json"},
		{"ArchiveURL", s.ArchiveURL(id), "http://localhost:8080/a/1.0.0/a.zip"},
		{"LatestVersionURL", s.LatestVersionURL("a"), "https://forge-packages.example.com/a/latest.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.got)
		})
	}

	assert.Equal(t, domain.MaxDepth, s.MaxDepth)
	assert.False(t, s.LockEnforced)
}

func TestInstallResult_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "installed", domain.Installed.String())
	assert.Equal(t, "already satisfied", domain.AlreadySatisfied.String())
}
