// Package migrations hands the embedded treasury schema migrations to a
// persistence client, one filesystem per dialect.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	treasury "github.com/goliatone/go-treasury"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	// SourceLabel names this module's migrations when several sources
	// feed the same persistence client.
	SourceLabel = "go-treasury"

	migrationsPath = "data/sql/migrations"
	sqliteSubdir   = "sqlite"
)

// FilesystemSpec is one dialect's slice of the embedded migration tree.
type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Registration reports what Register resolved and handed over.
type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []FilesystemSpec
}

// RegisterFunc receives one dialect's migration filesystem, typically to
// call persistence.Client.RegisterSQLMigrations with it.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

// WithValidationTargets limits registration to the named dialects. The
// default registers both postgres and sqlite.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		seen := make(map[string]struct{}, len(targets))
		next := make([]string, 0, len(targets))
		for _, target := range targets {
			dialect := strings.TrimSpace(strings.ToLower(target))
			if dialect == "" {
				continue
			}
			if _, dup := seen[dialect]; dup {
				continue
			}
			seen[dialect] = struct{}{}
			next = append(next, dialect)
		}
		if len(next) > 0 {
			r.ValidationTargets = next
		}
	}
}

// Filesystems resolves the embedded migration tree into per-dialect
// filesystems: postgres files at the root, sqlite alternatives in a
// subdirectory. Every up migration must ship its rollback counterpart.
func Filesystems() ([]FilesystemSpec, error) {
	root, err := fs.Sub(treasury.GetCoreMigrationsFS(), migrationsPath)
	if err != nil {
		return nil, fmt.Errorf("migrations: %s not found: %w", migrationsPath, err)
	}
	sqliteFS, err := fs.Sub(root, sqliteSubdir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	specs := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: migrationsPath, FS: root},
		{Dialect: DialectSQLite, Path: migrationsPath + "/" + sqliteSubdir, FS: sqliteFS},
	}
	for _, spec := range specs {
		if err := checkMigrationPairs(spec); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

func checkMigrationPairs(spec FilesystemSpec) error {
	ups, err := fs.Glob(spec.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("migrations: glob %s %s: %w", spec.Dialect, spec.Path, err)
	}
	if len(ups) == 0 {
		return fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", spec.Dialect, spec.Path)
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, statErr := fs.Stat(spec.FS, down); statErr != nil {
			return fmt.Errorf("migrations: %s migration %s has no rollback %s", spec.Dialect, up, down)
		}
	}
	return nil
}

// Register resolves the embedded filesystems and hands each targeted
// dialect to registerFn.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	if registerFn == nil {
		return Registration{}, fmt.Errorf("migrations: register function is required")
	}

	reg := Registration{
		SourceLabel:       SourceLabel,
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}
	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if len(reg.ValidationTargets) == 0 {
		return reg, fmt.Errorf("migrations: validation targets are required")
	}

	for _, spec := range reg.Filesystems {
		if !slices.Contains(reg.ValidationTargets, spec.Dialect) {
			continue
		}
		if err := registerFn(ctx, spec.Dialect, reg.SourceLabel, spec.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", spec.Dialect, spec.Path, err)
		}
	}
	return reg, nil
}
