// Package container provides dependency injection for the application.
package container

import (
	"context"
	"log/slog"
	"time"

	"github.com/plugwarden/plugwarden/internal/application/ports"
	"github.com/plugwarden/plugwarden/internal/application/services"
	"github.com/plugwarden/plugwarden/internal/domain/repositories"
	"github.com/plugwarden/plugwarden/internal/infrastructure/audit"
	"github.com/plugwarden/plugwarden/internal/infrastructure/cache"
	"github.com/plugwarden/plugwarden/internal/infrastructure/conditions"
	"github.com/plugwarden/plugwarden/internal/infrastructure/manifestio"
	"github.com/plugwarden/plugwarden/internal/infrastructure/persistence/memory"
	"github.com/plugwarden/plugwarden/internal/infrastructure/persistence/sqlite"
)

// RouteAdmin resolves route approvals. Only the persistent repository
// implements it; in-memory mode has no host-side approval surface.
type RouteAdmin interface {
	SetRouteStatus(ctx context.Context, pluginID, routeID, status, guard string) error
}

// Container holds all application dependencies.
type Container struct {
	permissions *services.PermissionService
	loader      *manifestio.Loader
	repo        repositories.CapabilityRepository
	routeAdmin  RouteAdmin
	store       *sqlite.Store
	logger      *slog.Logger
}

// Options configure the container.
type Options struct {
	Logger *slog.Logger

	// DatabasePath selects the SQLite store. Empty means the in-memory
	// repository, which lives only for the process.
	DatabasePath string

	// HostVersion gates manifests declaring a host_version constraint.
	HostVersion string

	// CacheTTL bounds snapshot lifetime in the cache. Zero means
	// snapshots never expire and are replaced only on invalidation.
	CacheTTL time.Duration

	// Settings backs the setting_link condition predicate. Nil makes
	// setting-linked grants fail closed.
	Settings conditions.SettingResolver
}

// New creates a new dependency injection container.
func New(opts Options) (*Container, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Container{logger: opts.Logger}

	if opts.DatabasePath != "" {
		store, err := sqlite.Open(opts.DatabasePath)
		if err != nil {
			return nil, err
		}
		repo := sqlite.NewCapabilityRepository(store)
		c.store = store
		c.repo = repo
		c.routeAdmin = repo
	} else {
		c.repo = memory.NewCapabilityRepository()
	}

	snapshotCache := cache.NewMemorySnapshotCache()
	auditor := audit.NewSlogEmitter(opts.Logger)
	evaluator := conditions.New(opts.Settings)

	svc := services.NewPermissionService(
		c.repo,
		snapshotCache,
		auditor,
		ports.SystemClock{},
		opts.CacheTTL,
		opts.Logger,
	)
	svc.SetRegistry(services.DefaultRegistry(svc, c.repo, evaluator))

	c.permissions = svc
	c.loader = manifestio.NewLoader(opts.HostVersion)
	return c, nil
}

// Permissions returns the permission service.
func (c *Container) Permissions() *services.PermissionService {
	return c.permissions
}

// ManifestLoader returns the manifest loader.
func (c *Container) ManifestLoader() *manifestio.Loader {
	return c.loader
}

// Repository returns the capability repository.
func (c *Container) Repository() repositories.CapabilityRepository {
	return c.repo
}

// RouteAdmin returns the route approval surface, or nil when running on
// the in-memory repository.
func (c *Container) RouteAdmin() RouteAdmin {
	return c.routeAdmin
}

// Logger returns the configured logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Close releases the container's resources.
func (c *Container) Close() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
