// Package migration applies file based schema migrations with golang-migrate.
package migration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Options are the flags every migration binary shares.
type Options struct {
	Steps int `long:"steps" env:"RELAY_MIGRATION_STEPS" description:"apply n migrations, negative rolls back, 0 applies all"`
	Force int `long:"force" description:"mark the schema as this version without running it, clears a dirty state" default:"-1"`
}

// Source returns the file source URL of dir. dir must exist.
func Source(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve migrations dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat migrations dir %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// Run applies the migrations in dir to databaseURL. The database driver must
// be registered by the caller.
func Run(ctx context.Context, dir, databaseURL string, opts Options, logger *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	source, err := Source(dir)
	if err != nil {
		return err
	}

	m, err := migrate.New(source, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("migration source close error", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("migration database close error", zap.Error(dbErr))
		}
	}()

	if opts.Force >= 0 {
		if err := m.Force(opts.Force); err != nil {
			return fmt.Errorf("force version %d: %w", opts.Force, err)
		}
		logger.Info("schema version forced", zap.Int("version", opts.Force))
		return nil
	}

	if opts.Steps != 0 {
		err = m.Steps(opts.Steps)
	} else {
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to apply")
		return nil
	}
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
