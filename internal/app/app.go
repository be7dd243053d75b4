// Package app implements the application layer for forge.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.trai.ch/forge/internal/adapters/cas"      //nolint:depguard // Built per invocation from settings
	"go.trai.ch/forge/internal/adapters/lockfile" //nolint:depguard // Built per invocation from settings
	"go.trai.ch/forge/internal/adapters/registry" //nolint:depguard // Built per invocation from settings
	"go.trai.ch/forge/internal/adapters/remote"   //nolint:depguard // Built per invocation from settings
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/installer"
	"go.trai.ch/forge/internal/engine/resolver"
	"go.trai.ch/forge/internal/engine/updater"
	"go.trai.ch/forge/internal/ui/style"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	configLoader  ports.ConfigLoader
	logger        ports.Logger
	digester      ports.Digester
	extractor     ports.Extractor
	fingerprinter ports.Fingerprinter
	remover       ports.Remover
	telemetry     ports.Telemetry
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	digester ports.Digester,
	extractor ports.Extractor,
	fingerprinter ports.Fingerprinter,
	remover ports.Remover,
	telemetry ports.Telemetry,
) *App {
	return &App{
		configLoader:  loader,
		logger:        log,
		digester:      digester,
		extractor:     extractor,
		fingerprinter: fingerprinter,
		remover:       remover,
		telemetry:     telemetry,
	}
}

// SetJSON switches the logger to JSON output when it supports it.
func (a *App) SetJSON(enable bool) {
	if l, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		l.SetJSON(enable)
	}
}

// Options are shared by every command.
type Options struct {
	// ConfigPath is the forge.yaml to load. A missing file yields defaults.
	ConfigPath string
}

// InstallOptions configuration for the Install method.
type InstallOptions struct {
	Options
	Package string
	Locked  bool
}

// session holds the collaborators bound to one invocation's settings.
type session struct {
	settings  domain.Settings
	registry  ports.Registry
	locks     ports.LockTable
	client    *remote.Client
	installer *installer.Installer
	resolver  *resolver.Resolver
}

func (a *App) newSession(opts Options) (*session, error) {
	settings, err := a.configLoader.Load(opts.ConfigPath)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	s := &session{
		settings: settings,
		registry: registry.New(settings.RegistryPath()),
		locks:    lockfile.New(settings.LockFile),
		client:   remote.New(settings),
	}
	s.installer = installer.New(settings, installer.Deps{
		Registry:  s.registry,
		Locks:     s.locks,
		Cache:     cas.NewStore(settings.CacheDir),
		Fetcher:   s.client,
		Digester:  a.digester,
		Extractor: a.extractor,
		Remover:   a.remover,
		Logger:    a.logger,
	})
	s.resolver = resolver.New(settings, resolver.Deps{
		Registry:  s.registry,
		Manifests: s.client,
		Locks:     s.locks,
		Installer: s.installer,
		Telemetry: a.telemetry,
		Logger:    a.logger,
	})
	return s, nil
}

// Close flushes the progress recording.
func (a *App) Close() error {
	return a.telemetry.Close()
}

// Install resolves and installs one package with its dependencies.
func (a *App) Install(ctx context.Context, opts InstallOptions) error {
	s, err := a.newSession(opts.Options)
	if err != nil {
		return err
	}

	resolveOpts := domain.ResolveOptions{LockEnforced: opts.Locked || s.settings.LockEnforced}
	res, err := s.resolver.Resolve(ctx, opts.Package, resolveOpts)
	if err != nil {
		return zerr.Wrap(err, "failed to install "+opts.Package)
	}
	a.logger.Info(fmt.Sprintf("%s %s %s", style.Check, opts.Package, res))
	return nil
}

// InstallLocked installs every package pinned in the lock file. A failing
// entry is reported and the remaining entries still run.
func (a *App) InstallLocked(ctx context.Context, opts Options) error {
	s, err := a.newSession(opts)
	if err != nil {
		return err
	}

	if !s.locks.Exists() {
		return zerr.With(zerr.Wrap(domain.ErrLockFileMissing, ""), "path", s.settings.LockFile)
	}

	var failures []error
	count := 0
	for entry, err := range s.locks.Entries() {
		if err != nil {
			return errors.Join(append(failures, err)...)
		}
		count++
		pkg := entry.ID.String()
		if _, err := s.resolver.Resolve(ctx, pkg, domain.ResolveOptions{LockEnforced: true}); err != nil {
			a.logger.Warn(fmt.Sprintf("failed to install locked package %s", pkg))
			failures = append(failures, zerr.Wrap(err, "failed to install "+pkg))
		}
	}
	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	a.logger.Info(fmt.Sprintf("%s %d locked packages satisfied", style.Check, count))
	return nil
}

// RemoveOptions configuration for the Remove method.
type RemoveOptions struct {
	Options
	Package string
}

// Remove uninstalls one package.
func (a *App) Remove(ctx context.Context, opts RemoveOptions) error {
	id, err := domain.ParsePackageID(opts.Package)
	if err != nil {
		return err
	}
	s, err := a.newSession(opts.Options)
	if err != nil {
		return err
	}
	if err := s.installer.Remove(ctx, id); err != nil {
		return zerr.Wrap(err, "failed to remove "+opts.Package)
	}
	a.logger.Info(fmt.Sprintf("%s removed %s", style.Check, id))
	return nil
}

// ListOptions configuration for the List method.
type ListOptions struct {
	Options
	Fingerprint bool
}

// List writes the installed packages to w in registry order.
func (a *App) List(_ context.Context, w io.Writer, opts ListOptions) error {
	s, err := a.newSession(opts.Options)
	if err != nil {
		return err
	}
	ids, err := s.registry.List()
	if err != nil {
		return err
	}

	for _, id := range ids {
		if !opts.Fingerprint {
			_, _ = fmt.Fprintf(w, "  • %s\n", id)
			continue
		}
		fp, err := a.fingerprinter.Fingerprint(s.settings.PackageDir(id))
		if err != nil {
			a.logger.Warn(fmt.Sprintf("%s is registered but its directory is unreadable", id))
			fp = "missing"
		}
		_, _ = fmt.Fprintf(w, "  • %s  %s\n", id, fp)
	}
	return nil
}

// UpdateOptions configuration for the Update method. An empty Package
// updates every registered package.
type UpdateOptions struct {
	Options
	Package string
}

// Update moves installed packages to their newest published versions.
func (a *App) Update(ctx context.Context, opts UpdateOptions) error {
	s, err := a.newSession(opts.Options)
	if err != nil {
		return err
	}

	u := updater.New(updater.Deps{
		Registry:  s.registry,
		Versions:  s.client,
		Resolver:  s.resolver,
		Installer: s.installer,
		Logger:    a.logger,
	}, domain.ResolveOptions{LockEnforced: s.settings.LockEnforced})

	if opts.Package == "" {
		return u.UpdateAll(ctx)
	}
	id, err := domain.ParsePackageID(opts.Package)
	if err != nil {
		return err
	}
	return u.Update(ctx, id)
}
