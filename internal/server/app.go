// Package server initializes and runs the main application server.
// It opens the database, runs migrations, wires the security services,
// handles graceful shutdown, and runs the background share cleanup sweep.
package server

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/snipvault/snipvault/internal/logging"
	"github.com/snipvault/snipvault/internal/ratelimit"
	"github.com/snipvault/snipvault/internal/server/blobstore"
	"github.com/snipvault/snipvault/internal/server/config"
	"github.com/snipvault/snipvault/internal/server/repositories/repomanager"
	"github.com/snipvault/snipvault/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	shareService   *services.ShareService
	snippetService *services.SnippetService
	gate           *services.RateLimitGate
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	contentKey, err := hex.DecodeString(c.ContentKeyHex)
	if err != nil {
		return nil, fmt.Errorf("content key: %w", err)
	}

	db, rm, err := repomanager.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	blobs := blobstore.New(blobstore.Config{
		Region:       c.S3Region,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
	})

	snippetService, err := services.NewSnippetService(db, rm, blobs, contentKey, logger)
	if err != nil {
		return nil, err
	}
	shareService := services.NewShareService(rm.Shares(db), snippetService, logger)

	limiter := ratelimit.New(rm.Buckets(db), ratelimit.DefaultRules())
	gate := services.NewRateLimitGate(limiter, logger)

	return &App{
		config:         c,
		logger:         logger,
		db:             db,
		shareService:   shareService,
		snippetService: snippetService,
		gate:           gate,
	}, nil
}

// ShareService exposes the share state machine to the transport boundary.
func (app *App) ShareService() *services.ShareService { return app.shareService }

// SnippetService exposes the snippet save pipeline to the transport boundary.
func (app *App) SnippetService() *services.SnippetService { return app.snippetService }

// Gate exposes the rate-limit front door to the transport boundary.
func (app *App) Gate() *services.RateLimitGate { return app.gate }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runCleanupLoop periodically retires shares whose time or view budget ran
// out, so stale Active rows don't linger between accesses.
func (app *App) runCleanupLoop(ctx context.Context) {
	interval := app.config.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.shareService.CleanupExpired(ctx); err != nil {
				app.logger.Error(ctx, "share cleanup failed", "error", err.Error())
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddr)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runCleanupLoop(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err.Error())
	}
	app.logger.Info(ctx, "App stopped")
}
