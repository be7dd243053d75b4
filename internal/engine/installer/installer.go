// Package installer implements the single-package install transaction:
// fetch, verify, extract, activate and register, with rollback on failure.
package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.trai.ch/forge/internal/adapters/fs" //nolint:depguard // Durability helpers
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Installer = (*Installer)(nil)

var syncDir = fs.SyncDir

// Deps are the collaborators of an Installer.
type Deps struct {
	Registry  ports.Registry
	Locks     ports.LockTable
	Cache     ports.ContentCache
	Fetcher   ports.Fetcher
	Digester  ports.Digester
	Extractor ports.Extractor
	Remover   ports.Remover
	Logger    ports.Logger
}

// Installer performs install and remove transactions against one vendor root.
type Installer struct {
	settings domain.Settings
	deps     Deps
}

// New creates an Installer for the given settings.
func New(settings domain.Settings, deps Deps) *Installer {
	return &Installer{settings: settings, deps: deps}
}

// layout holds the sibling paths used while activating one package.
type layout struct {
	final   string
	staging string
	backup  string
}

func (i *Installer) layoutFor(id domain.PackageID) layout {
	final := i.settings.PackageDir(id)
	return layout{
		final:   final,
		staging: final + domain.StagingSuffix,
		backup:  final + domain.BackupSuffix,
	}
}

// Install runs the transaction for id. The package is committed only once the
// registry has been rewritten; every earlier failure restores the previous
// installed directory.
func (i *Installer) Install(ctx context.Context, id domain.PackageID, src domain.Source) (domain.InstallResult, error) {
	if err := id.Validate(); err != nil {
		return domain.Installed, err
	}

	installed, err := i.deps.Registry.Contains(id)
	if err != nil {
		return domain.Installed, err
	}
	if installed {
		return domain.AlreadySatisfied, nil
	}

	l := i.layoutFor(id)
	if err := i.clearLeftovers(l); err != nil {
		return domain.Installed, err
	}

	archive, release, err := i.obtainArchive(ctx, id, src)
	if err != nil {
		return domain.Installed, zerr.With(err, "package", id.String())
	}
	defer release()

	if err := i.stage(ctx, archive, l); err != nil {
		return domain.Installed, zerr.With(err, "package", id.String())
	}

	hadPrevious, err := i.activate(l)
	if err != nil {
		return domain.Installed, zerr.With(err, "package", id.String())
	}

	if err := i.deps.Registry.Add(id); err != nil {
		if !errors.Is(err, domain.ErrNotDurable) {
			i.rollback(l, hadPrevious)
			return domain.Installed, zerr.With(err, "package", id.String())
		}
		// The registry rename landed, so the install is committed.
		i.warnNotDurable(err)
	}

	if err := i.deps.Remover.RemoveAll(l.backup, i.settings.MaxDepth); err != nil {
		i.deps.Logger.Warn(fmt.Sprintf("could not remove backup %s: %v", l.backup, err))
	}
	return domain.Installed, nil
}

func (i *Installer) clearLeftovers(l layout) error {
	for _, dir := range []string{l.staging, l.backup} {
		if err := i.deps.Remover.RemoveAll(dir, i.settings.MaxDepth); err != nil {
			return err
		}
	}
	return nil
}

// obtainArchive returns a local path holding verified archive bytes. release
// removes any temporary file created along the way.
func (i *Installer) obtainArchive(ctx context.Context, id domain.PackageID, src domain.Source) (path string, release func(), err error) {
	noop := func() {}

	if src.Pinned() && i.deps.Cache.Has(src.Digest) {
		i.deps.Logger.Info(fmt.Sprintf("using cached archive for %s", id))
		return i.deps.Cache.PathFor(src.Digest), noop, nil
	}

	if err := os.MkdirAll(i.settings.VendorRoot, domain.DirPerm); err != nil {
		return "", noop, zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", i.settings.VendorRoot)
	}
	tmp, err := os.CreateTemp(i.settings.VendorRoot, fmt.Sprintf(".%s-%s-*%s", id.Name, id.Version, domain.ArchiveExt))
	if err != nil {
		return "", noop, zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", i.settings.VendorRoot)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	release = func() { _ = os.Remove(tmpPath) }

	if err := i.deps.Fetcher.Fetch(ctx, src.URL, tmpPath); err != nil {
		release()
		return "", noop, err
	}

	actual, err := i.deps.Digester.DigestFile(tmpPath)
	if err != nil {
		release()
		return "", noop, err
	}
	if src.Pinned() && actual != src.Digest {
		release()
		err := zerr.With(zerr.Wrap(domain.ErrDigestMismatch, ""), "expected", src.Digest.String())
		return "", noop, zerr.With(err, "actual", actual.String())
	}

	if info, err := os.Stat(tmpPath); err == nil {
		i.deps.Logger.Info(fmt.Sprintf("fetched %s (%s)", id, humanize.IBytes(uint64(info.Size())))) //nolint:gosec // Size is non-negative
	}

	if err := i.deps.Cache.Store(actual, tmpPath); err != nil {
		i.deps.Logger.Warn(fmt.Sprintf("could not cache archive of %s: %v", id, err))
	}
	return tmpPath, release, nil
}

// stage extracts the archive into the staging directory. On failure the
// staging directory is removed.
func (i *Installer) stage(ctx context.Context, archive string, l layout) error {
	if err := os.MkdirAll(l.staging, domain.DirPerm); err != nil {
		return zerr.With(fmt.Errorf("%w: %w", domain.ErrIO, err), "path", l.staging)
	}
	if err := i.deps.Extractor.Extract(ctx, archive, l.staging); err != nil {
		if rmErr := i.deps.Remover.RemoveAll(l.staging, i.settings.MaxDepth); rmErr != nil {
			i.deps.Logger.Warn(fmt.Sprintf("could not remove staging directory %s: %v", l.staging, rmErr))
		}
		return err
	}
	return nil
}

// activate moves the staged tree into place, keeping any previous
// installation as the backup. It reports whether a previous installation
// existed. A failing directory sync after both renames only warns.
func (i *Installer) activate(l layout) (bool, error) {
	hadPrevious := true
	if err := os.Rename(l.final, l.backup); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return false, activationError(err, l.final)
		}
		hadPrevious = false
	}

	if err := os.Rename(l.staging, l.final); err != nil {
		if hadPrevious {
			_ = os.Rename(l.backup, l.final)
		}
		_ = os.RemoveAll(l.staging)
		return hadPrevious, activationError(err, l.final)
	}

	if err := syncDir(filepath.Dir(l.final)); err != nil {
		i.warnNotDurable(err)
	}
	return hadPrevious, nil
}

func (i *Installer) warnNotDurable(err error) {
	i.deps.Logger.Warn(fmt.Sprintf("change applied but not yet durable: %v", err))
}

// rollback restores the state before activation: the new tree is removed and
// the backup, if any, moves back to the final path.
func (i *Installer) rollback(l layout, hadPrevious bool) {
	if err := i.deps.Remover.RemoveAll(l.final, i.settings.MaxDepth); err != nil {
		i.deps.Logger.Warn(fmt.Sprintf("rollback could not remove %s: %v", l.final, err))
		return
	}
	if hadPrevious {
		if err := os.Rename(l.backup, l.final); err != nil {
			i.deps.Logger.Warn(fmt.Sprintf("rollback could not restore %s: %v", l.final, err))
			return
		}
	}
	_ = syncDir(filepath.Dir(l.final))
}

func activationError(err error, path string) error {
	return zerr.With(fmt.Errorf("%w: %w", domain.ErrActivationFailed, err), "path", path)
}

// Remove deletes the installed tree of id and drops its registry and lock
// entries. The per-name parent directory goes too once it is empty.
func (i *Installer) Remove(ctx context.Context, id domain.PackageID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := id.Validate(); err != nil {
		return err
	}

	dir := i.settings.PackageDir(id)
	installed, err := i.deps.Registry.Contains(id)
	if err != nil {
		return err
	}
	if _, statErr := os.Lstat(dir); !installed && errors.Is(statErr, os.ErrNotExist) {
		return zerr.With(zerr.Wrap(domain.ErrPackageNotInstalled, ""), "package", id.String())
	}

	if err := i.deps.Remover.RemoveAll(dir, i.settings.MaxDepth); err != nil {
		return zerr.With(err, "package", id.String())
	}
	removeIfEmpty(filepath.Dir(dir))

	if err := i.deps.Registry.Remove(id); err != nil {
		if !errors.Is(err, domain.ErrNotDurable) {
			return zerr.With(err, "package", id.String())
		}
		i.warnNotDurable(err)
	}
	if err := i.deps.Locks.Remove(id); err != nil {
		if !errors.Is(err, domain.ErrNotDurable) {
			return zerr.With(err, "package", id.String())
		}
		i.warnNotDurable(err)
	}
	return nil
}

func removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
}
