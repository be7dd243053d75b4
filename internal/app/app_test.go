package app_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vprogrock "github.com/vito/progrock"
	"go.trai.ch/forge/internal/adapters/archive"
	"go.trai.ch/forge/internal/adapters/digest"
	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/adapters/telemetry/progrock"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

// repo is an in-memory package repository served over HTTP.
type repo struct {
	files map[string][]byte
}

func (r *repo) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, ok := r.files[req.URL.Path]
	if !ok {
		http.NotFound(w, req)
		return
	}
	_, _ = w.Write(body)
}

// publish adds a package with the given files and dependencies and returns
// the hex digest of its archive.
func (r *repo) publish(t *testing.T, pkg string, deps map[string]string, files map[string]string) string {
	t.Helper()
	id, err := domain.ParsePackageID(pkg)
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	var entries []string
	for name, version := range deps {
		entries = append(entries, fmt.Sprintf("%q: %q", name, version))
	}
	manifest := fmt.Sprintf(`{"name": %q, "dependencies": {%s}}`, id.Name, strings.Join(entries, ", "))

	base := "/" + id.Name + "/" + id.Version + "/"
	r.files[base+domain.ManifestFileName] = []byte(manifest)
	r.files[base+id.Name+domain.ArchiveExt] = buf.Bytes()

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// tape keeps the latest state of every progress vertex and the log lines
// written to them.
type tape struct {
	mu       sync.Mutex
	vertexes map[string]*vprogrock.Vertex
	logs     []byte
}

func (p *tape) WriteStatus(update *vprogrock.StatusUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, v := range update.Vertexes {
		p.vertexes[v.Name] = v
	}
	for _, l := range update.Logs {
		p.logs = append(p.logs, l.Data...)
	}
	return nil
}

func (p *tape) Close() error { return nil }

type fixture struct {
	repo     *repo
	server   *httptest.Server
	settings domain.Settings
	app      *app.App
	progress *tape
	out      *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	r := &repo{files: map[string][]byte{}}
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	root := t.TempDir()
	settings := domain.DefaultSettings(root)
	settings.VendorRoot = filepath.Join(root, "vendor")
	settings.LockFile = filepath.Join(root, domain.DefaultLockFile)
	settings.Repository = server.URL
	settings.LatestURL = server.URL

	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load("forge.yaml").Return(settings, nil).AnyTimes()

	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	progress := &tape{vertexes: map[string]*vprogrock.Vertex{}}
	a := app.New(
		loader,
		logger,
		digest.NewDigester(),
		archive.NewExtractor(),
		fs.NewFingerprinter(fs.NewWalker()),
		fs.NewRemover(),
		progrock.NewRecorder(progress),
	)
	return &fixture{repo: r, server: server, settings: settings, app: a, progress: progress, out: new(bytes.Buffer)}
}

var opts = app.Options{ConfigPath: "forge.yaml"}

func (f *fixture) registry(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(f.settings.RegistryPath())
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) install(pkg string) error {
	return f.app.Install(context.Background(), app.InstallOptions{Options: opts, Package: pkg})
}

func TestApp_Install(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.repo.publish(t, "a@1.0.0", map[string]string{"b": "1.0.0"}, map[string]string{"include/a.h": "int a(void);\n"})
	f.repo.publish(t, "b@1.0.0", nil, map[string]string{"include/b.h": "int b(void);\n", "src/b.c": "int b(void) { return 1; }\n"})

	require.NoError(t, f.install("a@1.0.0"))

	assert.Equal(t, "b@1.0.0\na@1.0.0\n", f.registry(t))
	assert.FileExists(t, filepath.Join(f.settings.VendorRoot, "a", "1.0.0", "include", "a.h"))
	assert.FileExists(t, filepath.Join(f.settings.VendorRoot, "b", "1.0.0", "src", "b.c"))

	cached, err := os.ReadDir(f.settings.CacheDir)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	t.Run("second install is a no-op", func(t *testing.T) {
		fingerprints := func() []string {
			require.NoError(t, f.app.List(context.Background(), f.out, app.ListOptions{Options: opts, Fingerprint: true}))
			lines := strings.Split(strings.TrimSpace(f.out.String()), "\n")
			f.out.Reset()
			return lines
		}
		before := fingerprints()

		require.NoError(t, f.install("a@1.0.0"))

		assert.Equal(t, "b@1.0.0\na@1.0.0\n", f.registry(t))
		assert.Equal(t, before, fingerprints())
	})
}

func TestApp_Install_Cycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.repo.publish(t, "x@1.0.0", map[string]string{"y": "1.0.0"}, map[string]string{"x": "x"})
	f.repo.publish(t, "y@1.0.0", map[string]string{"x": "1.0.0"}, map[string]string{"y": "y"})

	err := f.install("x@1.0.0")
	require.ErrorIs(t, err, domain.ErrCycle)
	assert.Empty(t, f.registry(t))
}

func TestApp_Install_MissingPackage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	err := f.install("ghost@1.0.0")
	require.ErrorIs(t, err, domain.ErrManifestFetch)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestApp_InstallLocked(t *testing.T) {
	t.Parallel()

	t.Run("pinned packages", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		da := f.repo.publish(t, "a@1.0.0", map[string]string{"b": "1.0.0"}, map[string]string{"a.txt": "a"})
		db := f.repo.publish(t, "b@1.0.0", nil, map[string]string{"b.txt": "b"})
		lock := fmt.Sprintf("a@1.0.0 %s/a/1.0.0/a.zip %s\nb@1.0.0 %s/b/1.0.0/b.zip %s\n", f.server.URL, da, f.server.URL, db)
		require.NoError(t, os.WriteFile(f.settings.LockFile, []byte(lock), 0o600))

		require.NoError(t, f.app.InstallLocked(context.Background(), opts))
		assert.Equal(t, "b@1.0.0\na@1.0.0\n", f.registry(t))
	})

	t.Run("digest mismatch installs nothing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.repo.publish(t, "a@1.0.0", nil, map[string]string{"a.txt": "a"})
		lock := fmt.Sprintf("a@1.0.0 %s/a/1.0.0/a.zip %s\n", f.server.URL, strings.Repeat("0", 64))
		require.NoError(t, os.WriteFile(f.settings.LockFile, []byte(lock), 0o600))

		err := f.app.InstallLocked(context.Background(), opts)
		require.ErrorIs(t, err, domain.ErrDigestMismatch)
		assert.Empty(t, f.registry(t))
		assert.NoDirExists(t, filepath.Join(f.settings.VendorRoot, "a", "1.0.0"))
	})

	t.Run("unpinned dependency fails closed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		da := f.repo.publish(t, "a@1.0.0", map[string]string{"b": "1.0.0"}, map[string]string{"a.txt": "a"})
		f.repo.publish(t, "b@1.0.0", nil, map[string]string{"b.txt": "b"})
		lock := fmt.Sprintf("a@1.0.0 %s/a/1.0.0/a.zip %s\n", f.server.URL, da)
		require.NoError(t, os.WriteFile(f.settings.LockFile, []byte(lock), 0o600))

		err := f.app.InstallLocked(context.Background(), opts)
		require.ErrorIs(t, err, domain.ErrLockEntryMissing)
		assert.Empty(t, f.registry(t))
	})

	t.Run("missing lock file", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		err := f.app.InstallLocked(context.Background(), opts)
		require.ErrorIs(t, err, domain.ErrLockFileMissing)
	})
}

func TestApp_Remove(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	da := f.repo.publish(t, "a@1.0.0", nil, map[string]string{"a.txt": "a"})
	f.repo.publish(t, "b@1.0.0", nil, map[string]string{"b.txt": "b"})
	require.NoError(t, f.install("a@1.0.0"))
	require.NoError(t, f.install("b@1.0.0"))
	lock := fmt.Sprintf("a@1.0.0 %s/a/1.0.0/a.zip %s\n", f.server.URL, da)
	require.NoError(t, os.WriteFile(f.settings.LockFile, []byte(lock), 0o600))

	require.NoError(t, f.app.Remove(context.Background(), app.RemoveOptions{Options: opts, Package: "a@1.0.0"}))

	assert.Equal(t, "b@1.0.0\n", f.registry(t))
	assert.NoDirExists(t, filepath.Join(f.settings.VendorRoot, "a"))
	data, err := os.ReadFile(f.settings.LockFile)
	require.NoError(t, err)
	assert.Empty(t, string(data))

	err = f.app.Remove(context.Background(), app.RemoveOptions{Options: opts, Package: "a@1.0.0"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApp_Install_RecordsProgress(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.repo.publish(t, "a@1.0.0", map[string]string{"b": "1.0.0"}, map[string]string{"a.txt": "a"})
	f.repo.publish(t, "b@1.0.0", nil, map[string]string{"b.txt": "b"})
	f.repo.publish(t, "c@1.0.0", map[string]string{"missing": "1.0.0"}, map[string]string{"c.txt": "c"})

	require.NoError(t, f.install("a@1.0.0"))
	require.Error(t, f.install("c@1.0.0"))

	f.progress.mu.Lock()
	defer f.progress.mu.Unlock()

	for _, name := range []string{"a@1.0.0", "b@1.0.0"} {
		v, ok := f.progress.vertexes[name]
		require.True(t, ok, name)
		assert.NotNil(t, v.Completed, name)
		assert.Nil(t, v.Error, name)
	}

	failed, ok := f.progress.vertexes["c@1.0.0"]
	require.True(t, ok)
	assert.NotNil(t, failed.Completed)
	require.NotNil(t, failed.Error)
	assert.Contains(t, *failed.Error, "failed to fetch manifest")

	logs := string(f.progress.logs)
	assert.Contains(t, logs, "requires b@1.0.0")
	assert.Contains(t, logs, "installing from "+f.server.URL+"/b/1.0.0/b.zip")
}

func TestApp_List(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.repo.publish(t, "a@1.0.0", nil, map[string]string{"a.txt": "a"})
	require.NoError(t, f.install("a@1.0.0"))

	require.NoError(t, f.app.List(context.Background(), f.out, app.ListOptions{Options: opts}))
	assert.Equal(t, "  • a@1.0.0\n", f.out.String())

	f.out.Reset()
	require.NoError(t, os.RemoveAll(filepath.Join(f.settings.VendorRoot, "a")))
	require.NoError(t, f.app.List(context.Background(), f.out, app.ListOptions{Options: opts, Fingerprint: true}))
	assert.Equal(t, "  • a@1.0.0  missing\n", f.out.String())

	assert.NoError(t, f.app.Close())
}

func TestApp_Update(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.repo.publish(t, "a@1.0.0", nil, map[string]string{"v1.txt": "1"})
	f.repo.publish(t, "a@1.1.0", nil, map[string]string{"v2.txt": "2"})
	f.repo.publish(t, "b@1.0.0", nil, map[string]string{"b.txt": "b"})
	f.repo.files["/a/latest.txt"] = []byte("1.1.0\n")
	f.repo.files["/b/latest.txt"] = []byte("1.0.0\n")

	require.NoError(t, f.install("a@1.0.0"))
	require.NoError(t, f.install("b@1.0.0"))

	require.NoError(t, f.app.Update(context.Background(), app.UpdateOptions{Options: opts}))

	assert.Equal(t, "b@1.0.0\na@1.1.0\n", f.registry(t))
	assert.NoDirExists(t, filepath.Join(f.settings.VendorRoot, "a", "1.0.0"))
	assert.FileExists(t, filepath.Join(f.settings.VendorRoot, "a", "1.1.0", "v2.txt"))
}

func TestApp_Update_FailedInstallKeepsOld(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.repo.publish(t, "a@1.0.0", nil, map[string]string{"v1.txt": "1"})
	f.repo.files["/a/latest.txt"] = []byte("2.0.0\n")

	require.NoError(t, f.install("a@1.0.0"))

	err := f.app.Update(context.Background(), app.UpdateOptions{Options: opts, Package: "a@1.0.0"})
	require.ErrorIs(t, err, domain.ErrManifestFetch)
	assert.Equal(t, "a@1.0.0\n", f.registry(t))
	assert.FileExists(t, filepath.Join(f.settings.VendorRoot, "a", "1.0.0", "v1.txt"))
}
