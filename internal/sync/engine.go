package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/outbox"
	"github.com/mnemo-app/mnemo/internal/store"
)

// Config controls the engine's cadence and give-up behavior.
type Config struct {
	// Interval is the periodic cycle cadence.
	Interval time.Duration

	// RetryCeiling is the number of transient failures after which an
	// outbox entry is abandoned with a warning.
	RetryCeiling int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     30 * time.Second,
		RetryCeiling: 5,
	}
}

// Engine coordinates push/pull cycles against the sync server.
//
// Exactly one cycle runs at a time. A trigger that arrives mid-cycle is
// coalesced into a single follow-up cycle rather than queued, so a burst
// of local mutations costs one extra round trip at most.
type Engine struct {
	client   Client
	db       *sql.DB
	decks    store.Collection[domain.Deck]
	cards    store.Collection[domain.Flashcard]
	progress store.Collection[domain.CardProgress]
	meta     store.Collection[Metadata]
	journal  *outbox.Journal
	cfg      Config
	logger   *slog.Logger

	mu      gosync.Mutex
	state   State
	online  bool
	syncing bool
	rerun   bool

	notifyCh chan struct{}
	subs     *subscribers
}

// NewEngine creates a sync engine. The engine starts online and idle;
// call Run to start its trigger loop.
func NewEngine(
	client Client,
	db *sql.DB,
	decks store.Collection[domain.Deck],
	cards store.Collection[domain.Flashcard],
	progress store.Collection[domain.CardProgress],
	meta store.Collection[Metadata],
	journal *outbox.Journal,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	if client == nil {
		panic("client cannot be nil")
	}
	if db == nil {
		panic("db cannot be nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.RetryCeiling <= 0 {
		cfg.RetryCeiling = DefaultConfig().RetryCeiling
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		client:   client,
		db:       db,
		decks:    decks,
		cards:    cards,
		progress: progress,
		meta:     meta,
		journal:  journal,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "sync_engine")),
		state:    StateIdle,
		online:   true,
		notifyCh: make(chan struct{}, 1),
		subs:     newSubscribers(),
	}
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Subscribe registers a status listener. The returned cancel function
// unregisters it and closes the channel; it is safe to call twice.
// Delivery is best-effort and never blocks a cycle.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	return e.subs.subscribe()
}

// NotifyMutation signals that a local mutation was committed. The signal
// is coalesced; calling it a thousand times while a cycle is pending
// still schedules one cycle.
func (e *Engine) NotifyMutation() {
	select {
	case e.notifyCh <- struct{}{}:
	default:
	}
}

// SetOnline records a connectivity transition. Coming back online
// triggers an immediate cycle to drain the queue; going offline flips
// the state so callers can show an indicator, while local writes keep
// queuing untouched.
func (e *Engine) SetOnline(online bool) {
	e.mu.Lock()
	changed := e.online != online
	e.online = online
	if changed && !online {
		e.state = StateOffline
	}
	e.mu.Unlock()

	if !changed {
		return
	}
	if online {
		e.logger.Info("connectivity restored")
		e.NotifyMutation()
	} else {
		e.logger.Info("connectivity lost, queuing locally")
		e.publish(Event{})
	}
}

// Run drives the engine until ctx is canceled: an immediate startup
// cycle, then the periodic timer and mutation notifications. Cycle
// errors are logged and reported to subscribers, never returned; the
// next trigger retries.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	e.cycleAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.cycleAndLog(ctx)
		case <-e.notifyCh:
			e.cycleAndLog(ctx)
		}
	}
}

func (e *Engine) cycleAndLog(ctx context.Context) {
	if err := e.Sync(ctx); err != nil {
		e.logger.Warn("sync cycle failed", slog.String("error", err.Error()))
	}
}

// Sync runs one push/pull cycle. When offline or when a cycle is already
// in flight it returns nil immediately; in the latter case a follow-up
// cycle is scheduled once the current one finishes.
func (e *Engine) Sync(ctx context.Context) error {
	e.mu.Lock()
	if !e.online {
		e.state = StateOffline
		e.mu.Unlock()
		e.publish(Event{})
		return nil
	}
	if e.syncing {
		e.rerun = true
		e.mu.Unlock()
		return nil
	}
	e.syncing = true
	e.state = StateSyncing
	e.mu.Unlock()

	e.publish(Event{})

	err := e.cycle(ctx)

	e.mu.Lock()
	e.syncing = false
	switch {
	case err != nil:
		e.state = StateError
	case e.online:
		e.state = StateIdle
	}
	rerun := e.rerun
	e.rerun = false
	e.mu.Unlock()

	e.publish(Event{Err: err})

	if rerun {
		e.NotifyMutation()
	}
	return err
}

func (e *Engine) cycle(ctx context.Context) error {
	if err := e.push(ctx); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	if err := e.pull(ctx); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

// push drains the outbox: abandon entries past the retry ceiling, send
// the rest in one batch, then settle each entry by the server's verdict.
func (e *Engine) push(ctx context.Context) error {
	entries, err := e.journal.Pending(ctx)
	if err != nil {
		return fmt.Errorf("load pending entries: %w", err)
	}

	sendable := make([]*outbox.Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Retries >= e.cfg.RetryCeiling {
			if err := e.journal.Remove(ctx, entry.ID); err != nil {
				return fmt.Errorf("abandon entry %s: %w", entry.ID, err)
			}
			e.logger.Warn("outbox entry abandoned",
				slog.String("entry_id", entry.ID.String()),
				slog.String("collection", entry.Collection),
				slog.String("entity_id", entry.EntityID),
				slog.Int("retries", entry.Retries))
			e.publish(Event{
				Warning: fmt.Sprintf("change to %s/%s abandoned after %d attempts",
					entry.Collection, entry.EntityID, entry.Retries),
				Err: ErrRetryExceeded,
			})
			continue
		}
		sendable = append(sendable, entry)
	}

	if len(sendable) == 0 {
		return nil
	}

	changes := make([]ChangeRequest, 0, len(sendable))
	for _, entry := range sendable {
		changes = append(changes, ChangeRequest{
			OutboxID:   entry.ID,
			Collection: entry.Collection,
			EntityID:   entry.EntityID,
			Operation:  entry.Operation,
			Data:       entry.Data,
			Timestamp:  entry.Timestamp,
		})
	}

	resp, err := e.client.Push(ctx, changes)
	if err != nil {
		// The whole batch failed; every entry gets a retry tick.
		for _, entry := range sendable {
			if bumpErr := e.journal.Bump(ctx, entry); bumpErr != nil {
				e.logger.Error("failed to record retry",
					slog.String("entry_id", entry.ID.String()),
					slog.String("error", bumpErr.Error()))
			}
		}
		return fmt.Errorf("push batch of %d: %w", len(sendable), err)
	}

	byID := make(map[uuid.UUID]*outbox.Entry, len(sendable))
	for _, entry := range sendable {
		byID[entry.ID] = entry
	}

	settled := true
	for _, result := range resp.Results {
		entry, ok := byID[result.OutboxID]
		if !ok {
			e.logger.Warn("push result for unknown entry",
				slog.String("outbox_id", result.OutboxID.String()))
			continue
		}
		delete(byID, result.OutboxID)

		switch {
		case result.Success:
			if err := e.journal.Remove(ctx, entry.ID); err != nil {
				return fmt.Errorf("confirm entry %s: %w", entry.ID, err)
			}
		case result.Conflict:
			// Server wins. Drop the local change; the authoritative
			// record arrives in the pull that follows.
			if err := e.journal.Remove(ctx, entry.ID); err != nil {
				return fmt.Errorf("resolve conflict for entry %s: %w", entry.ID, err)
			}
			e.logger.Info("local change overwritten by server",
				slog.String("collection", entry.Collection),
				slog.String("entity_id", entry.EntityID),
				slog.Int64("server_version", result.ServerVersion))
			e.publish(Event{
				Warning: fmt.Sprintf("local change to %s/%s was overwritten by the server",
					entry.Collection, entry.EntityID),
				Err: ErrConflict,
			})
		default:
			if err := e.journal.Bump(ctx, entry); err != nil {
				return fmt.Errorf("record retry for entry %s: %w", entry.ID, err)
			}
			settled = false
		}
	}

	// Entries without a verdict stay queued for the next cycle.
	for id := range byID {
		e.logger.Warn("no push result for entry, keeping queued",
			slog.String("entry_id", id.String()))
		settled = false
	}

	// The watermark records the last fully settled push; a partial pass
	// leaves it alone and the stragglers go out again next cycle.
	if !settled {
		return nil
	}

	meta, err := e.loadMetadata(ctx, e.meta)
	if err != nil {
		return err
	}
	meta.LastPushedAt = resp.ServerTime
	if err := e.meta.Put(ctx, MetadataKey, meta); err != nil {
		return fmt.Errorf("record push watermark: %w", err)
	}
	return nil
}

// pull fetches changes since the watermark and applies them in one
// transaction: upserts for live records, physical deletes for tombstones,
// and the advanced watermark. An error rolls everything back, so the
// watermark only moves after a clean pass and the next pull refetches.
func (e *Engine) pull(ctx context.Context) error {
	meta, err := e.loadMetadata(ctx, e.meta)
	if err != nil {
		return err
	}

	resp, err := e.client.Pull(ctx, meta.LastPulledAt)
	if err != nil {
		return fmt.Errorf("pull since %s: %w", meta.LastPulledAt.Format(time.RFC3339), err)
	}

	applied := 0
	err = store.RunInTransaction(ctx, e.db, func(ctx context.Context, tx *sql.Tx) error {
		decksTx := e.decks.WithTx(tx)
		for _, deck := range resp.Decks {
			if err := applyRecord(ctx, decksTx, deck.ID.String(), deck, deck.Tombstone); err != nil {
				return fmt.Errorf("apply deck %s: %w", deck.ID, err)
			}
			applied++
		}

		cardsTx := e.cards.WithTx(tx)
		for _, card := range resp.Flashcards {
			if err := applyRecord(ctx, cardsTx, card.ID.String(), card, card.Tombstone); err != nil {
				return fmt.Errorf("apply card %s: %w", card.ID, err)
			}
			applied++
		}

		progressTx := e.progress.WithTx(tx)
		for _, prog := range resp.CardProgress {
			if err := applyRecord(ctx, progressTx, prog.ID.String(), prog, prog.Tombstone); err != nil {
				return fmt.Errorf("apply progress %s: %w", prog.ID, err)
			}
			applied++
		}

		meta.LastPulledAt = resp.ServerTime
		return e.meta.WithTx(tx).Put(ctx, MetadataKey, meta)
	})
	if err != nil {
		return fmt.Errorf("apply pulled changes: %w", err)
	}

	if applied > 0 {
		e.logger.Info("pulled server changes",
			slog.Int("applied", applied),
			slog.Time("watermark", resp.ServerTime))
	}
	return nil
}

// applyRecord upserts a live record or physically removes a tombstoned
// one. The server retains tombstones for stragglers, so a delete for a
// record never seen locally is a no-op.
func applyRecord[T any](ctx context.Context, c store.Collection[T], id string, record *T, tombstone bool) error {
	if tombstone {
		err := c.Delete(ctx, id)
		if err != nil && !store.IsNotFound(err) {
			return err
		}
		return nil
	}
	return c.Put(ctx, id, record)
}

func (e *Engine) loadMetadata(ctx context.Context, c store.Collection[Metadata]) (*Metadata, error) {
	meta, err := c.Get(ctx, MetadataKey)
	if err != nil {
		if store.IsNotFound(err) {
			return &Metadata{ID: MetadataKey}, nil
		}
		return nil, fmt.Errorf("load sync metadata: %w", err)
	}
	return meta, nil
}

// publish stamps the event with the current state and queue depth and
// fans it out.
func (e *Engine) publish(ev Event) {
	e.mu.Lock()
	ev.State = e.state
	e.mu.Unlock()

	if pending, err := e.journal.Len(context.Background()); err == nil {
		ev.Pending = pending
	}
	ev.At = domain.NowUTC()
	e.subs.publish(ev)
}

// WatchConnectivity probes the server at the given interval and feeds
// transitions into SetOnline. Run it as its own goroutine alongside Run.
func (e *Engine) WatchConnectivity(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = e.cfg.Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := e.client.Ping(ctx)
			if errors.Is(err, context.Canceled) {
				return
			}
			e.SetOnline(err == nil)
		}
	}
}
