package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/smith3v/lexicon-clash/pkg/api"
	"github.com/smith3v/lexicon-clash/pkg/bot/handlers"
	"github.com/smith3v/lexicon-clash/pkg/config"
	"github.com/smith3v/lexicon-clash/pkg/content"
	"github.com/smith3v/lexicon-clash/pkg/db"
	"github.com/smith3v/lexicon-clash/pkg/game"
	"github.com/smith3v/lexicon-clash/pkg/logger"
	"github.com/smith3v/lexicon-clash/pkg/service"
	"github.com/smith3v/lexicon-clash/pkg/store"
	"github.com/smith3v/lexicon-clash/pkg/words"
)

func main() {
	fs := config.NewFlagSet(os.Args[0])
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	configPath, _ := fs.GetString("config")
	if err := config.LoadConfigWithFlags(configPath, fs); err != nil {
		os.Exit(1)
	}
	cfg := config.AppConfig
	if err := logger.Configure(logger.Options{
		Level:  cfg.Logging.Level,
		File:   cfg.Logging.File,
		Format: cfg.Logging.Format,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logger.Error("lexicon-clash stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	sessions, cleanup, err := openStore(cfg)
	if err != nil {
		return err
	}

	catalog, provider, err := buildContent(cfg)
	if err != nil {
		return err
	}

	rule, err := game.ParseWildcardRule(cfg.Game.WildcardRule)
	if err != nil {
		return err
	}
	termMode, err := words.ParseTermMode(cfg.Game.TermMode)
	if err != nil {
		return err
	}
	retry, err := game.ParseRetryPolicy(cfg.Game.MaxRerollAttempts, cfg.Game.OnExhausted)
	if err != nil {
		return err
	}
	builder := game.NewBuilder(game.BuilderOptions{
		Provider:     provider,
		Retry:        retry,
		WildcardRule: rule,
		TermMode:     termMode,
		Timeout:      cfg.Game.ProviderTimeout,
		PoolLimit:    cfg.Game.PoolLimit,
		Analyzer:     game.Analyzer{ExcerptLimit: cfg.Game.ExcerptLimit},
	})

	engine, err := service.New(service.Options{
		Store:                sessions,
		Builder:              builder,
		Words:                catalog,
		ClearCompletedOnInit: cfg.Game.ClearCompletedOnInit,
		JournalLimit:         cfg.Game.JournalLimit,
	})
	if err != nil {
		return err
	}

	logger.Info("engine ready",
		"words", catalog.Len(),
		"sources", cfg.Content.Sources,
		"wildcard_rule", rule,
		"term_mode", termMode,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cleanup(ctx)
		return nil
	})
	if cfg.HTTP.Enabled {
		g.Go(func() error { return serveHTTP(ctx, cfg.HTTP, engine) })
	}
	if cfg.Telegram.Enabled {
		g.Go(func() error { return runBot(ctx, cfg.Telegram, engine) })
	}
	if !cfg.HTTP.Enabled && !cfg.Telegram.Enabled {
		logger.Warn("neither the HTTP API nor the Telegram bot is enabled")
	}
	return g.Wait()
}

// openStore picks the session store for the configured driver and the job
// that removes expired sessions from it.
func openStore(cfg config.Config) (store.Store, func(context.Context), error) {
	opts := store.Options{
		TTL:        cfg.Game.SessionTTL,
		Optimistic: cfg.Game.OptimisticLocking,
	}
	if cfg.Database.Driver == "memory" {
		logger.Warn("sessions are kept in memory and lost on restart")
		mem := store.NewMemory(opts)
		return mem, func(ctx context.Context) { mem.StartSweep(ctx, db.SessionCleanupInterval) }, nil
	}
	if err := db.InitDB(cfg.Database); err != nil {
		return nil, nil, fmt.Errorf("initialize database: %w", err)
	}
	return store.NewGorm(db.DB, opts), func(ctx context.Context) {
		db.StartSessionCleanup(ctx, db.SessionCleanupInterval)
	}, nil
}

// buildContent loads the word catalog and the provider chain. With only the
// curated source, the catalog is narrowed to words that have curated posts.
func buildContent(cfg config.Config) (*words.Catalog, content.Provider, error) {
	var (
		catalog *words.Catalog
		err     error
	)
	if cfg.Catalog.Path != "" {
		catalog, err = words.LoadFile(cfg.Catalog.Path)
	} else {
		catalog, err = words.Default()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load word catalog: %w", err)
	}

	var chain content.Chain
	var curated *content.Curated
	for _, source := range cfg.Content.Sources {
		switch source {
		case "curated":
			curated, err = content.NewCurated()
			if err != nil {
				return nil, nil, fmt.Errorf("load curated posts: %w", err)
			}
			chain = append(chain, curated)
		case "reddit":
			chain = append(chain, content.NewReddit(content.RedditOptions{
				BaseURL:             cfg.Content.RedditBaseURL,
				UserAgent:           cfg.Content.UserAgent,
				FetchComments:       cfg.Content.FetchComments,
				FetchLinkedArticles: cfg.Content.FetchLinkedArticles,
				MaxBodyBytes:        cfg.Content.MaxBodyBytes,
			}))
		default:
			return nil, nil, fmt.Errorf("unknown content source %q", source)
		}
	}

	if len(chain) == 1 && curated != nil {
		catalog, err = catalog.Subset(curated.Words())
		if err != nil {
			return nil, nil, fmt.Errorf("narrow catalog to curated words: %w", err)
		}
	}
	return catalog, chain, nil
}

func serveHTTP(ctx context.Context, cfg config.HTTPConfig, engine *service.Engine) error {
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.New(engine, api.Options{
			RequestTimeout: cfg.RequestTimeout,
			CORSOrigin:     cfg.CORSOrigin,
		}).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown HTTP server: %w", err)
	}
	logger.Info("HTTP API stopped")
	return nil
}

func runBot(ctx context.Context, cfg config.TelegramConfig, engine *service.Engine) error {
	b, err := bot.New(cfg.Token, bot.WithDefaultHandler(handlers.DefaultHandler))
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}
	handlers.New(engine).Register(b)

	logger.Info("Starting bot...")
	b.Start(ctx)
	return nil
}
