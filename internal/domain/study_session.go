package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// StudySession validation and lifecycle errors
var (
	// ErrSessionIDEmpty is returned when a session ID is empty or nil.
	ErrSessionIDEmpty = errors.New("study session ID cannot be empty")

	// ErrSessionUserIDEmpty is returned when a session user ID is empty or nil.
	ErrSessionUserIDEmpty = errors.New("study session user ID cannot be empty")

	// ErrSessionEnded is returned when appending a review to, or ending,
	// a session that has already ended.
	ErrSessionEnded = errors.New("study session has already ended")
)

// Review is one graded card presentation inside a study session.
type Review struct {
	CardID     uuid.UUID `json:"cardId"`
	Rating     Rating    `json:"rating"`
	DurationMs int64     `json:"durationMs"`
	ReviewedAt time.Time `json:"reviewedAt"`
}

// SessionStats summarizes a session's review list. Stats are always the
// result of ComputeStats over the full list, never mutated incrementally,
// so they cannot drift from the reviews they describe.
type SessionStats struct {
	CardsStudied   int   `json:"cardsStudied"`
	CorrectCount   int   `json:"correctCount"`
	IncorrectCount int   `json:"incorrectCount"`
	AverageTimeMs  int64 `json:"averageTimeMs"`
}

// ComputeStats folds a review list into its summary statistics.
func ComputeStats(reviews []Review) SessionStats {
	stats := SessionStats{CardsStudied: len(reviews)}
	if len(reviews) == 0 {
		return stats
	}

	var totalMs int64
	for _, r := range reviews {
		if r.Rating.Correct() {
			stats.CorrectCount++
		} else {
			stats.IncorrectCount++
		}
		totalMs += r.DurationMs
	}
	stats.AverageTimeMs = totalMs / int64(len(reviews))

	return stats
}

// StudySession is an append-only, single-writer aggregate of one sitting
// of reviews. Reviews are appended one at a time and the stats are
// recomputed from the full list on every append. A session ends exactly
// once; appending after the end is rejected.
type StudySession struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"userId"`
	DeckID    uuid.UUID    `json:"deckId"`
	StartedAt time.Time    `json:"startedAt"`
	EndedAt   time.Time    `json:"endedAt"` // zero while the session is open
	Reviews   []Review     `json:"reviews"`
	Stats     SessionStats `json:"stats"`
}

// NewStudySession starts a new session for the given user and deck.
func NewStudySession(userID, deckID uuid.UUID) (*StudySession, error) {
	session := &StudySession{
		ID:        uuid.New(),
		UserID:    userID,
		DeckID:    deckID,
		StartedAt: NowUTC(),
		Reviews:   []Review{},
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate checks if the StudySession has valid data.
func (s *StudySession) Validate() error {
	if s.ID == uuid.Nil {
		return ErrSessionIDEmpty
	}

	if s.UserID == uuid.Nil {
		return ErrSessionUserIDEmpty
	}

	return nil
}

// Ended reports whether the session has been closed.
func (s *StudySession) Ended() bool {
	return !s.EndedAt.IsZero()
}

// AppendReview adds a review to the session and recomputes the stats
// from the full review list. Returns ErrSessionEnded if the session
// has already been closed.
func (s *StudySession) AppendReview(review Review) error {
	if s.Ended() {
		return ErrSessionEnded
	}

	if err := review.Rating.Validate(); err != nil {
		return err
	}

	s.Reviews = append(s.Reviews, review)
	s.Stats = ComputeStats(s.Reviews)
	return nil
}

// End closes the session. Ending an already-ended session returns
// ErrSessionEnded so callers cannot silently move the end marker.
func (s *StudySession) End(at time.Time) error {
	if s.Ended() {
		return ErrSessionEnded
	}

	s.EndedAt = at
	s.Stats = ComputeStats(s.Reviews)
	return nil
}
