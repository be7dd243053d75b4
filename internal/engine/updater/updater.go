// Package updater moves installed packages to their newest published version.
package updater

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/ui/style"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators of an Updater.
type Deps struct {
	Registry  ports.Registry
	Versions  ports.VersionSource
	Resolver  ports.Resolver
	Installer ports.Installer
	Logger    ports.Logger
}

// Updater replaces registered packages with newer versions.
type Updater struct {
	deps Deps
	opts domain.ResolveOptions
}

// New creates an Updater. opts apply to every install of a new version.
func New(deps Deps, opts domain.ResolveOptions) *Updater {
	return &Updater{deps: deps, opts: opts}
}

type lookup struct {
	latest string
	err    error
}

// UpdateAll updates every registered package. Latest versions are queried
// concurrently; installs then run one at a time in registry order. A failed
// entry keeps its old version and does not stop the others.
func (u *Updater) UpdateAll(ctx context.Context) error {
	ids, err := u.deps.Registry.List()
	if err != nil {
		return err
	}

	lookups := u.lookupAll(ctx, ids)

	var failures []error
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(failures, err)...)
		}
		err := lookups[i].err
		if err == nil {
			err = u.apply(ctx, id, lookups[i].latest)
		}
		if err != nil {
			u.deps.Logger.Warn(fmt.Sprintf("update of %s failed, keeping the installed version", id))
			failures = append(failures, zerr.Wrap(err, "failed to update "+id.String()))
		}
	}
	return errors.Join(failures...)
}

// Update moves a single registered package to its newest version.
func (u *Updater) Update(ctx context.Context, id domain.PackageID) error {
	installed, err := u.deps.Registry.Contains(id)
	if err != nil {
		return err
	}
	if !installed {
		return zerr.With(zerr.Wrap(domain.ErrPackageNotInstalled, ""), "package", id.String())
	}

	latest, err := u.deps.Versions.Latest(ctx, id.Name)
	if err != nil {
		return err
	}
	return u.apply(ctx, id, latest)
}

// lookupAll queries the latest version of every id. The result at index i
// belongs to ids[i].
func (u *Updater) lookupAll(ctx context.Context, ids []domain.PackageID) []lookup {
	results := make([]lookup, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, id := range ids {
		g.Go(func() error {
			latest, err := u.deps.Versions.Latest(gctx, id.Name)
			results[i] = lookup{latest: latest, err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// apply installs name@latest and removes id when latest is newer.
func (u *Updater) apply(ctx context.Context, id domain.PackageID, latest string) error {
	if !Newer(latest, id.Version) {
		u.deps.Logger.Info(fmt.Sprintf("%s %s is up to date", style.Check, id))
		return nil
	}

	next := domain.PackageID{Name: id.Name, Version: latest}
	if err := next.Validate(); err != nil {
		return err
	}

	u.deps.Logger.Info(fmt.Sprintf("updating %s %s %s", id, style.Arrow, next))
	if _, err := u.deps.Resolver.Resolve(ctx, next.String(), u.opts); err != nil {
		return err
	}
	return u.deps.Installer.Remove(ctx, id)
}
