// Package resolver installs a package after all of its transitive
// dependencies, depth-first in manifest order.
package resolver

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/ui/style"
	"go.trai.ch/zerr"
)

var _ ports.Resolver = (*Resolver)(nil)

// Deps are the collaborators of a Resolver.
type Deps struct {
	Registry  ports.Registry
	Manifests ports.ManifestSource
	Locks     ports.LockTable
	Installer ports.Installer
	Telemetry ports.Telemetry
	Logger    ports.Logger
}

// Resolver walks the dependency graph of one root package.
type Resolver struct {
	settings domain.Settings
	deps     Deps
}

// New creates a Resolver for the given settings.
func New(settings domain.Settings, deps Deps) *Resolver {
	return &Resolver{settings: settings, deps: deps}
}

// chain is the active resolution path. Each recursive call receives its own
// extended copy, so returning from a call drops its entry.
type chain struct {
	stack []string
	depth int
}

func (c chain) contains(id string) bool {
	return slices.Contains(c.stack, id)
}

func (c chain) push(id string) chain {
	stack := make([]string, len(c.stack), len(c.stack)+1)
	copy(stack, c.stack)
	return chain{stack: append(stack, id), depth: c.depth + 1}
}

// cyclePath renders the chain from the first occurrence of id back to id.
func (c chain) cyclePath(id string) string {
	start := slices.Index(c.stack, id)
	return strings.Join(append(slices.Clone(c.stack[start:]), id), " -> ")
}

// Resolve installs the package named by raw, a name@version token, after its
// dependencies.
func (r *Resolver) Resolve(ctx context.Context, raw string, opts domain.ResolveOptions) (domain.InstallResult, error) {
	return r.resolve(ctx, raw, opts, chain{})
}

func (r *Resolver) resolve(ctx context.Context, raw string, opts domain.ResolveOptions, c chain) (domain.InstallResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.Installed, err
	}

	if c.contains(raw) {
		err := zerr.With(zerr.Wrap(domain.ErrCycle, ""), "package", raw)
		return domain.Installed, zerr.With(err, "cycle", c.cyclePath(raw))
	}
	if c.depth > r.settings.MaxDepth || len(c.stack) >= domain.MaxStack {
		err := zerr.With(zerr.Wrap(domain.ErrDepthExceeded, "dependency graph too deep"), "package", raw)
		return domain.Installed, zerr.With(err, "depth", c.depth)
	}
	inner := c.push(raw)

	id, err := domain.ParsePackageID(raw)
	if err != nil {
		return domain.Installed, err
	}

	installed, err := r.deps.Registry.Contains(id)
	if err != nil {
		return domain.Installed, err
	}
	if installed {
		r.logf(c, "%s already installed", id)
		return domain.AlreadySatisfied, nil
	}

	ctx, vertex := r.deps.Telemetry.Record(ctx, id.String())
	res, err := r.resolveNew(ctx, id, opts, c, inner, vertex)
	if res == domain.AlreadySatisfied {
		vertex.Cached()
	}
	vertex.Complete(err)
	return res, err
}

// resolveNew handles a package that is not yet registered: manifest, children,
// then the install transaction.
func (r *Resolver) resolveNew(
	ctx context.Context,
	id domain.PackageID,
	opts domain.ResolveOptions,
	c, inner chain,
	vertex ports.Vertex,
) (domain.InstallResult, error) {
	r.logf(c, "resolving %s", id)

	children, err := r.deps.Manifests.Dependencies(ctx, id)
	if err != nil {
		return domain.Installed, err
	}

	for _, child := range children {
		vertex.Log("requires " + child.String())
		if _, err := r.resolve(ctx, child.String(), opts, inner); err != nil {
			return domain.Installed, err
		}
	}

	src, err := r.sourceFor(id, opts)
	if err != nil {
		return domain.Installed, err
	}

	r.logf(c, "installing %s", id)
	vertex.Log("installing from " + src.URL)
	return r.deps.Installer.Install(ctx, id, src)
}

// sourceFor picks the archive source of id. Lock-enforced resolution fails
// closed on unpinned packages.
func (r *Resolver) sourceFor(id domain.PackageID, opts domain.ResolveOptions) (domain.Source, error) {
	if !opts.LockEnforced {
		return domain.Source{URL: r.settings.ArchiveURL(id)}, nil
	}
	entry, ok, err := r.deps.Locks.Lookup(id)
	if err != nil {
		return domain.Source{}, err
	}
	if !ok {
		return domain.Source{}, zerr.With(zerr.Wrap(domain.ErrLockEntryMissing, ""), "package", id.String())
	}
	return entry.Source(), nil
}

// logf reports progress indented by resolution depth.
func (r *Resolver) logf(c chain, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if c.depth > 0 {
		msg = strings.Repeat("  ", c.depth-1) + style.Branch + " " + msg
	}
	r.deps.Logger.Info(msg)
}
