package common

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/bszwed/linkmark/models"
	"github.com/bszwed/linkmark/pkg/cachestore"
	"github.com/bszwed/linkmark/pkg/content"
	"github.com/bszwed/linkmark/pkg/db"
	"github.com/bszwed/linkmark/pkg/docconv"
	"github.com/bszwed/linkmark/pkg/fetcher"
	"github.com/bszwed/linkmark/pkg/headless"
	"github.com/bszwed/linkmark/pkg/store"
	"github.com/bszwed/linkmark/pkg/video"
)

// NewLogger builds the shared JSON logger on stderr. Quiet raises the level
// so only errors surface; stdout stays reserved for command output.
func NewLogger(quiet bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if quiet {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// Runtime bundles what nearly every command needs.
type Runtime struct {
	Config *models.Config
	Logger *slog.Logger
	Cache  *cachestore.Store
	DB     *db.DB
}

// InitRuntime loads configuration and opens the cache and telemetry store.
// Callers must Close the runtime when done.
func InitRuntime(c *cli.Context) (*Runtime, error) {
	logger := NewLogger(c.Bool("quiet"))

	config, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.Open(config.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Runtime{
		Config: config,
		Logger: logger,
		Cache:  cachestore.New(config.CacheDir),
		DB:     database,
	}, nil
}

// Pipeline assembles the full content acquisition chain from the config.
func (r *Runtime) Pipeline() *content.Pipeline {
	return content.NewPipeline(
		fetcher.NewFetcher(),
		headless.NewRenderer(r.Config.BrowserPath),
		video.NewFetcher(r.Cache, r.Logger),
		docconv.NewConverter(r.Config.ConverterCmd),
		r.Cache,
		r.Logger,
	)
}

// Store builds the bookmark service client, failing when no token is set.
func (r *Runtime) Store() (*store.Client, error) {
	if err := r.Config.RequireStoreToken(); err != nil {
		return nil, err
	}
	return store.NewClient(r.Config.StoreURL, r.Config.StoreToken, r.Cache, r.Logger), nil
}

func (r *Runtime) Close() {
	if r.DB != nil {
		_ = r.DB.Close()
	}
}
