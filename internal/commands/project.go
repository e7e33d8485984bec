package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/meudinheiro/meudinheiro/internal/classify"
	"github.com/meudinheiro/meudinheiro/internal/config"
	"github.com/meudinheiro/meudinheiro/internal/importer"
	"github.com/meudinheiro/meudinheiro/internal/logger"
	"github.com/meudinheiro/meudinheiro/internal/store"
	"github.com/meudinheiro/meudinheiro/internal/store/postgres"
	"github.com/meudinheiro/meudinheiro/internal/store/sqlite"
)

// project is an opened project directory: its config, logger and store.
type project struct {
	root  string
	cfg   *config.Config
	log   zerolog.Logger
	store store.Store
}

func openProject(dir string) (*project, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if err := config.LoadDotEnv(root); err != nil {
		return nil, err
	}

	cfgPath := filepath.Join(root, config.FileName)
	if _, err := os.Stat(cfgPath); err != nil {
		return nil, fmt.Errorf("%s not found in %s (run meudinheiro init)", config.FileName, root)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg, root)
	if err != nil {
		return nil, err
	}
	return &project{
		root:  root,
		cfg:   cfg,
		log:   logger.New(cfg.Log.Level),
		store: st,
	}, nil
}

// openStore opens the store selected by cfg.Database.
func openStore(cfg *config.Config, root string) (store.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		st, err := postgres.Open(cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverSQLite:
		st, err := sqlite.Open(config.Resolve(root, cfg.Database.Path))
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func (p *project) Close() error {
	return p.store.Close()
}

// withLogger returns ctx carrying the project logger.
func (p *project) withLogger(ctx context.Context) context.Context {
	return logger.WithContext(ctx, p.log)
}

func (p *project) importer() *importer.Importer {
	return importer.New(p.store, classify.New(p.store, p.store), importer.Options{
		DefaultTag: p.cfg.Import.DefaultTag,
		Category:   p.cfg.Import.Category,
		OnRowError: p.cfg.Import.OnRowError,
		Delimiter:  p.cfg.Import.DelimiterRune(),
	})
}

func (p *project) importDir() string {
	return config.Resolve(p.root, p.cfg.Import.Dir)
}

func parseID(name, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return id, nil
}
