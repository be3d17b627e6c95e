package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mnemo-app/mnemo/internal/api"
	"github.com/mnemo-app/mnemo/internal/config"
	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/domain/srs"
	"github.com/mnemo-app/mnemo/internal/generation"
	"github.com/mnemo-app/mnemo/internal/outbox"
	"github.com/mnemo-app/mnemo/internal/platform/gemini"
	"github.com/mnemo-app/mnemo/internal/platform/sqlite"
	"github.com/mnemo-app/mnemo/internal/service/auth"
	"github.com/mnemo-app/mnemo/internal/service/authoring"
	"github.com/mnemo-app/mnemo/internal/service/study"
	"github.com/mnemo-app/mnemo/internal/store"
	syncengine "github.com/mnemo-app/mnemo/internal/sync"
)

// application holds the wired component graph.
type application struct {
	cfg    *config.Config
	logger *slog.Logger

	db     *sqlite.DB
	engine *syncengine.Engine

	tokens    *auth.TokenProvider
	study     study.Service
	authoring authoring.Service

	statusServer *http.Server
}

// newApplication opens the store and wires every component. Nothing
// starts running until run is called.
func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	log := slog.Default()

	db, err := sqlite.Open(ctx, cfg.Storage.Path, log)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	decks := sqlite.NewCollection[domain.Deck](db.SQL(), store.CollectionDecks, log)
	cards := sqlite.NewCollection[domain.Flashcard](db.SQL(), store.CollectionFlashcards, log)
	progress := sqlite.NewCollection[domain.CardProgress](db.SQL(), store.CollectionCardProgress, log)
	sessions := sqlite.NewCollection[domain.StudySession](db.SQL(), store.CollectionStudySessions, log)
	entries := sqlite.NewCollection[outbox.Entry](db.SQL(), store.CollectionSyncOutbox, log)
	meta := sqlite.NewCollection[syncengine.Metadata](db.SQL(), store.CollectionSyncMetadata, log)
	users := sqlite.NewCollection[domain.User](db.SQL(), store.CollectionUsers, log)

	journal := outbox.NewJournal(entries, log)
	tokens := auth.NewTokenProvider(users, auth.NewBcryptVerifier(bcrypt.DefaultCost), log)

	client := syncengine.NewHTTPClient(
		cfg.Sync.ServerURL,
		time.Duration(cfg.Sync.RequestTimeoutSeconds)*time.Second,
		tokens,
		log,
	)
	engine := syncengine.NewEngine(
		client,
		db.SQL(),
		decks, cards, progress, meta,
		journal,
		syncengine.Config{
			Interval:     time.Duration(cfg.Sync.IntervalSeconds) * time.Second,
			RetryCeiling: cfg.Sync.RetryCeiling,
		},
		log,
	)
	if cfg.Sync.ServerURL == "" {
		// No server configured; everything queues locally.
		engine.SetOnline(false)
	}

	var generator generation.Generator
	if cfg.Generation.Enabled() {
		generator, err = gemini.NewGenerator(ctx, log, cfg.Generation)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize card generator: %w", err)
		}
	}

	studyService := study.NewService(
		db.SQL(), cards, progress, sessions, journal,
		srs.DefaultParams(), log, engine.NotifyMutation,
	)
	authoringService := authoring.NewService(
		db.SQL(), decks, cards, journal, generator, log, engine.NotifyMutation,
	)

	statusHandler := api.NewStatusHandler(engine, journal, meta, log)
	statusServer := &http.Server{
		Addr:              cfg.Server.StatusAddr,
		Handler:           api.NewRouter(statusHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &application{
		cfg:          cfg,
		logger:       log,
		db:           db,
		engine:       engine,
		tokens:       tokens,
		study:        studyService,
		authoring:    authoringService,
		statusServer: statusServer,
	}, nil
}

// run starts the sync engine, the connectivity prober, and the status
// server, then blocks until ctx is canceled and everything drains.
func (a *application) run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("status server listening", slog.String("addr", a.statusServer.Addr))
		if err := a.statusServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("status server: %w", err)
		}
	}()

	if a.cfg.Sync.ServerURL != "" {
		go func() {
			if err := a.engine.Run(ctx); err != nil {
				errCh <- fmt.Errorf("sync engine: %w", err)
			}
		}()
		go a.engine.WatchConnectivity(ctx, time.Duration(a.cfg.Sync.ProbeIntervalSeconds)*time.Second)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		a.shutdown()
		return err
	}

	a.shutdown()
	return nil
}

func (a *application) shutdown() {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.statusServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("status server shutdown failed", slog.String("error", err.Error()))
	}

	if err := a.db.Close(); err != nil {
		a.logger.Warn("store close failed", slog.String("error", err.Error()))
	}
}
