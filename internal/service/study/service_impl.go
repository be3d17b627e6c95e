package study

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/domain/srs"
	"github.com/mnemo-app/mnemo/internal/outbox"
	"github.com/mnemo-app/mnemo/internal/store"
)

// service is the default Service implementation over the local store.
type service struct {
	db       *sql.DB
	cards    store.Collection[domain.Flashcard]
	progress store.Collection[domain.CardProgress]
	sessions store.Collection[domain.StudySession]
	journal  *outbox.Journal
	params   *srs.Params
	logger   *slog.Logger

	// onMutation is invoked after a syncable mutation is committed so the
	// sync engine can schedule a cycle. Nil-safe; sessions are local-only
	// and never trigger it.
	onMutation func()

	// now is the clock used for due comparisons and review timestamps.
	// Swapped in tests.
	now func() time.Time
}

// NewService creates the study queue service.
func NewService(
	db *sql.DB,
	cards store.Collection[domain.Flashcard],
	progress store.Collection[domain.CardProgress],
	sessions store.Collection[domain.StudySession],
	journal *outbox.Journal,
	params *srs.Params,
	logger *slog.Logger,
	onMutation func(),
) Service {
	if db == nil {
		panic("db cannot be nil")
	}
	if params == nil {
		params = srs.DefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &service{
		db:         db,
		cards:      cards,
		progress:   progress,
		sessions:   sessions,
		journal:    journal,
		params:     params,
		logger:     logger.With(slog.String("component", "study_service")),
		onMutation: onMutation,
		now:        domain.NowUTC,
	}
}

// Ensure service implements the Service interface
var _ Service = (*service)(nil)

// NextDueCards implements Service.NextDueCards.
func (s *service) NextDueCards(
	ctx context.Context,
	deckID, userID uuid.UUID,
	limit int,
) ([]*StudyCard, error) {
	if limit <= 0 {
		return nil, newServiceError("next_due_cards", "invalid limit", ErrInvalidLimit)
	}

	rows, err := s.progress.Scan(ctx, store.Query{
		Where: []store.Predicate{
			store.Eq("deckId", deckID),
			store.Eq("userId", userID),
			store.Eq("tombstone", false),
			store.Lte("dueDate", s.now()),
		},
		OrderBy: []string{"dueDate"},
		Limit:   limit,
	})
	if err != nil {
		return nil, newServiceError("next_due_cards", "failed to scan due progress", err)
	}

	batch := make([]*StudyCard, 0, len(rows))
	for _, p := range rows {
		card, err := s.cards.Get(ctx, p.CardID.String())
		if err != nil {
			if store.IsNotFound(err) {
				// The card was deleted out from under its progress row;
				// skip it rather than surface an error mid-study.
				continue
			}
			return nil, newServiceError("next_due_cards", "failed to load card", err)
		}
		if card.Tombstone {
			continue
		}
		batch = append(batch, &StudyCard{Card: card, Progress: p})
	}

	return batch, nil
}

// NextNewCards implements Service.NextNewCards.
func (s *service) NextNewCards(
	ctx context.Context,
	deckID, userID uuid.UUID,
	limit int,
) ([]*StudyCard, error) {
	if limit <= 0 {
		return nil, newServiceError("next_new_cards", "invalid limit", ErrInvalidLimit)
	}

	cards, err := s.cards.Scan(ctx, store.Query{
		Where: []store.Predicate{
			store.Eq("deckId", deckID),
			store.Eq("tombstone", false),
		},
		OrderBy: []string{"createdAt", "id"},
	})
	if err != nil {
		return nil, newServiceError("next_new_cards", "failed to scan deck cards", err)
	}

	seen, err := s.progress.Scan(ctx, store.Query{
		Where: []store.Predicate{
			store.Eq("deckId", deckID),
			store.Eq("userId", userID),
		},
	})
	if err != nil {
		return nil, newServiceError("next_new_cards", "failed to scan existing progress", err)
	}

	started := make(map[uuid.UUID]bool, len(seen))
	for _, p := range seen {
		started[p.CardID] = true
	}

	var batch []*StudyCard
	for _, card := range cards {
		if len(batch) == limit {
			break
		}
		if started[card.ID] {
			continue
		}
		progress, err := domain.NewCardProgress(userID, card.ID, deckID)
		if err != nil {
			return nil, newServiceError("next_new_cards", "failed to create progress", err)
		}
		batch = append(batch, &StudyCard{Card: card, Progress: progress})
	}

	if len(batch) == 0 {
		return []*StudyCard{}, nil
	}

	// Progress rows and their outbox entries commit as one unit so a
	// crash cannot persist a mutation the sync engine never hears about.
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		progressTx := s.progress.WithTx(tx)
		journalTx := s.journal.WithTx(tx)

		for _, sc := range batch {
			if err := progressTx.Put(ctx, sc.Progress.ID.String(), sc.Progress); err != nil {
				return err
			}
			entry, err := outbox.NewEntry(
				store.CollectionCardProgress,
				sc.Progress.ID.String(),
				outbox.OpCreate,
				sc.Progress,
			)
			if err != nil {
				return err
			}
			if err := journalTx.Append(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, newServiceError("next_new_cards", "failed to persist new progress", err)
	}

	s.notifyMutation()
	return batch, nil
}

// SubmitReview implements Service.SubmitReview.
func (s *service) SubmitReview(
	ctx context.Context,
	progressID uuid.UUID,
	rating domain.Rating,
) (*domain.CardProgress, error) {
	if err := rating.Validate(); err != nil {
		return nil, newServiceError("submit_review", "invalid rating", err)
	}

	current, err := s.progress.Get(ctx, progressID.String())
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrProgressNotFound, progressID)
		}
		return nil, newServiceError("submit_review", "failed to load progress", err)
	}

	now := s.now()
	next := srs.Schedule(srs.ReviewState{
		EaseFactor:  current.EaseFactor,
		Interval:    current.Interval,
		Repetitions: current.Repetitions,
	}, rating, now, s.params)

	updated := *current
	updated.EaseFactor = next.EaseFactor
	updated.Interval = next.Interval
	updated.Repetitions = next.Repetitions
	updated.DueDate = next.DueDate
	updated.Status = srs.StatusFor(next.Repetitions, next.Interval, s.params)
	updated.LastReviewedAt = now
	updated.UpdatedAt = now
	// Version increments exactly once per committed mutation, inside the
	// same transaction that writes the record.
	updated.Version = current.Version + 1

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.progress.WithTx(tx).Put(ctx, updated.ID.String(), &updated); err != nil {
			return err
		}
		entry, err := outbox.NewEntry(
			store.CollectionCardProgress,
			updated.ID.String(),
			outbox.OpUpdate,
			&updated,
		)
		if err != nil {
			return err
		}
		return s.journal.WithTx(tx).Append(ctx, entry)
	})
	if err != nil {
		return nil, newServiceError("submit_review", "failed to persist review", err)
	}

	s.logger.Debug("review submitted",
		slog.String("progress_id", progressID.String()),
		slog.String("rating", rating.String()),
		slog.Int("interval", updated.Interval),
		slog.String("status", string(updated.Status)))

	s.notifyMutation()
	return &updated, nil
}

// DeckStats implements Service.DeckStats.
func (s *service) DeckStats(
	ctx context.Context,
	deckID, userID uuid.UUID,
) (*DeckStats, error) {
	rows, err := s.progress.Scan(ctx, store.Query{
		Where: []store.Predicate{
			store.Eq("deckId", deckID),
			store.Eq("userId", userID),
			store.Eq("tombstone", false),
		},
	})
	if err != nil {
		return nil, newServiceError("deck_stats", "failed to scan progress", err)
	}

	stats := &DeckStats{}
	midnight := nextLocalMidnight(s.now())

	for _, p := range rows {
		card, err := s.cards.Get(ctx, p.CardID.String())
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return nil, newServiceError("deck_stats", "failed to load card", err)
		}
		if card.Tombstone {
			continue
		}

		switch p.Status {
		case domain.CardStatusNew:
			stats.New++
		case domain.CardStatusLearning:
			stats.Learning++
		case domain.CardStatusRelearning:
			stats.Relearning++
		case domain.CardStatusReview:
			stats.Review++
		case domain.CardStatusMastered:
			stats.Mastered++
		}

		if p.DueDate.Before(midnight) {
			stats.DueToday++
		}
	}

	total, err := s.cards.Count(ctx,
		store.Eq("deckId", deckID),
		store.Eq("tombstone", false),
	)
	if err != nil {
		return nil, newServiceError("deck_stats", "failed to count cards", err)
	}
	stats.TotalCards = total

	return stats, nil
}

// StartSession implements Service.StartSession.
func (s *service) StartSession(
	ctx context.Context,
	userID, deckID uuid.UUID,
) (*domain.StudySession, error) {
	session, err := domain.NewStudySession(userID, deckID)
	if err != nil {
		return nil, newServiceError("start_session", "invalid session", err)
	}

	if err := s.sessions.Put(ctx, session.ID.String(), session); err != nil {
		return nil, newServiceError("start_session", "failed to persist session", err)
	}

	return session, nil
}

// RecordReview implements Service.RecordReview.
func (s *service) RecordReview(
	ctx context.Context,
	sessionID uuid.UUID,
	review domain.Review,
) (*domain.StudySession, error) {
	session, err := s.loadSession(ctx, sessionID, "record_review")
	if err != nil {
		return nil, err
	}

	if err := session.AppendReview(review); err != nil {
		return nil, err
	}

	if err := s.sessions.Put(ctx, session.ID.String(), session); err != nil {
		return nil, newServiceError("record_review", "failed to persist session", err)
	}

	return session, nil
}

// EndSession implements Service.EndSession.
func (s *service) EndSession(
	ctx context.Context,
	sessionID uuid.UUID,
) (*domain.StudySession, error) {
	session, err := s.loadSession(ctx, sessionID, "end_session")
	if err != nil {
		return nil, err
	}

	if err := session.End(s.now()); err != nil {
		return nil, err
	}

	if err := s.sessions.Put(ctx, session.ID.String(), session); err != nil {
		return nil, newServiceError("end_session", "failed to persist session", err)
	}

	return session, nil
}

func (s *service) loadSession(
	ctx context.Context,
	sessionID uuid.UUID,
	operation string,
) (*domain.StudySession, error) {
	session, err := s.sessions.Get(ctx, sessionID.String())
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, newServiceError(operation, "failed to load session", err)
	}
	return session, nil
}

func (s *service) notifyMutation() {
	if s.onMutation != nil {
		s.onMutation()
	}
}

// nextLocalMidnight returns the first instant of the next local calendar
// day, the upper bound of the "due today" bucket.
func nextLocalMidnight(now time.Time) time.Time {
	local := now.Local()
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, local.Location())
}
