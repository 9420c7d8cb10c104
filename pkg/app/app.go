// Package app wires the stamps components together for CLI commands: it
// resolves configuration, opens the storage backends, and builds the
// collection store so each command does not repeat the plumbing.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tomp11/sb-stamp-manager/pkg/collection"
	"github.com/tomp11/sb-stamp-manager/pkg/config"
	"github.com/tomp11/sb-stamp-manager/pkg/credentials"
	"github.com/tomp11/sb-stamp-manager/pkg/dotdir"
	"github.com/tomp11/sb-stamp-manager/pkg/extract"
	"github.com/tomp11/sb-stamp-manager/pkg/extract/gemini"
	"github.com/tomp11/sb-stamp-manager/pkg/extract/mock"
	"github.com/tomp11/sb-stamp-manager/pkg/identity"
	"github.com/tomp11/sb-stamp-manager/pkg/logger"
	"github.com/tomp11/sb-stamp-manager/pkg/storage"
	"github.com/tomp11/sb-stamp-manager/pkg/storage/postgres"
	"github.com/tomp11/sb-stamp-manager/pkg/storage/sqlite"
)

// App holds the wired components for one command invocation.
type App struct {
	Viper    *viper.Viper
	Logger   *zap.Logger
	Identity *identity.Manager
	Local    *sqlite.Cache
	Remote   storage.Backend
	Store    *collection.Store

	configDir string
}

// New resolves configuration and opens the backends. The remote backend is
// only opened when remote.postgres_dsn is set; without it signed-in
// sessions stay device-local.
func New(ctx context.Context, configDir string, debug bool) (*App, error) {
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(debug)

	idm, err := identity.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening identity manager: %w", err)
	}

	local, err := sqlite.NewCache(resolveSQLitePath(v, configDir), log)
	if err != nil {
		return nil, fmt.Errorf("opening local cache: %w", err)
	}

	a := &App{
		Viper:     v,
		Logger:    log,
		Identity:  idm,
		Local:     local,
		configDir: configDir,
	}

	if dsn := v.GetString("remote.postgres_dsn"); dsn != "" {
		opts := postgres.DefaultOptions()
		if ms := v.GetUint("sync.load_timeout_ms"); ms > 0 {
			opts.LoadTimeout = time.Duration(ms) * time.Millisecond
		}
		if ms := v.GetUint("sync.save_timeout_ms"); ms > 0 {
			opts.SaveTimeout = time.Duration(ms) * time.Millisecond
		}
		if n := v.GetUint("sync.batch_size"); n > 0 {
			opts.BatchSize = int(n)
		}

		remote, err := postgres.NewCollection(ctx, dsn, opts, a.activeOwner, log)
		if err != nil {
			local.Close()
			return nil, fmt.Errorf("opening remote collection: %w", err)
		}
		a.Remote = remote
	}

	a.Store = collection.NewStore(collection.Options{
		Local:    local,
		Remote:   a.Remote,
		Debounce: time.Duration(v.GetUint("sync.debounce_ms")) * time.Millisecond,
		Logger:   log,
	})

	return a, nil
}

// ActivateCurrent initializes the store for the session on disk.
func (a *App) ActivateCurrent(ctx context.Context) (identity.Session, error) {
	session, err := a.Identity.Current()
	if err != nil {
		return identity.Session{}, err
	}
	a.Store.Activate(ctx, session)
	return session, nil
}

// Extractor builds the configured extraction provider. With mocked true the
// fixed sample dataset is returned regardless of configuration.
func (a *App) Extractor(mocked bool) (extract.Extractor, error) {
	if mocked {
		return mock.NewExtractor(), nil
	}

	provider := a.Viper.GetString("extraction.provider")
	switch provider {
	case "mock":
		return mock.NewExtractor(), nil
	case "gemini":
		mgr, err := credentials.NewManager(a.configDir)
		if err != nil {
			return nil, fmt.Errorf("loading credentials: %w", err)
		}
		key, err := mgr.ResolveKey("gemini")
		if err != nil {
			return nil, err
		}
		if key == "" {
			return nil, fmt.Errorf("no gemini API key found; run 'stamps auth gemini' or set %s",
				credentials.EnvVarForProvider("gemini"))
		}
		return gemini.NewExtractor(gemini.Config{
			APIKey:  key,
			BaseURL: a.Viper.GetString("extraction.target"),
			Model:   a.Viper.GetString("extraction.model"),
		})
	default:
		return nil, fmt.Errorf("unknown extraction provider: %q", provider)
	}
}

// Close releases the store and backends.
func (a *App) Close() error {
	var firstErr error
	if a.Store != nil {
		firstErr = a.Store.Close()
	}
	if a.Remote != nil {
		if err := a.Remote.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Local != nil {
		if err := a.Local.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// activeOwner reports the owner id the remote backend should accept writes
// for. Anonymous sessions have no remote owner.
func (a *App) activeOwner() string {
	session, err := a.Identity.Current()
	if err != nil || session.IsAnonymous() {
		return ""
	}
	return session.OwnerID()
}

// resolveSQLitePath anchors a relative sqlite path in the .stamps/ directory.
func resolveSQLitePath(v *viper.Viper, configDir string) string {
	path := v.GetString("storage.sqlite_path")
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil || target == "" {
		return path
	}
	return filepath.Join(target, path)
}
