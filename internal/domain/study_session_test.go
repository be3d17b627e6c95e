package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-app/mnemo/internal/domain"
)

func TestComputeStats(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		reviews  []domain.Review
		expected domain.SessionStats
	}{
		{
			name:     "empty list",
			reviews:  nil,
			expected: domain.SessionStats{},
		},
		{
			name: "mixed results",
			reviews: []domain.Review{
				{CardID: uuid.New(), Rating: domain.RatingGood, DurationMs: 4000},
				{CardID: uuid.New(), Rating: domain.RatingAgain, DurationMs: 9000},
				{CardID: uuid.New(), Rating: domain.RatingEasy, DurationMs: 2000},
			},
			expected: domain.SessionStats{
				CardsStudied:   3,
				CorrectCount:   2,
				IncorrectCount: 1,
				AverageTimeMs:  5000,
			},
		},
		{
			name: "hard counts as correct",
			reviews: []domain.Review{
				{CardID: uuid.New(), Rating: domain.RatingHard, DurationMs: 6000},
			},
			expected: domain.SessionStats{
				CardsStudied:  1,
				CorrectCount:  1,
				AverageTimeMs: 6000,
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, domain.ComputeStats(tc.reviews))
		})
	}
}

func TestStudySession_AppendReview(t *testing.T) {
	t.Parallel()

	session, err := domain.NewStudySession(uuid.New(), uuid.New())
	require.NoError(t, err)

	err = session.AppendReview(domain.Review{
		CardID:     uuid.New(),
		Rating:     domain.RatingGood,
		DurationMs: 3000,
		ReviewedAt: domain.NowUTC(),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, session.Stats.CardsStudied)
	assert.Equal(t, 1, session.Stats.CorrectCount)

	// An invalid rating is rejected and leaves the stats untouched.
	err = session.AppendReview(domain.Review{CardID: uuid.New(), Rating: domain.Rating(9)})
	require.Error(t, err)
	assert.Equal(t, 1, session.Stats.CardsStudied)
}

func TestStudySession_EndIsFinal(t *testing.T) {
	t.Parallel()

	session, err := domain.NewStudySession(uuid.New(), uuid.New())
	require.NoError(t, err)

	endedAt := domain.NowUTC()
	require.NoError(t, session.End(endedAt))
	assert.True(t, session.Ended())
	assert.Equal(t, endedAt, session.EndedAt)

	// The end marker cannot move.
	err = session.End(endedAt.Add(time.Minute))
	assert.ErrorIs(t, err, domain.ErrSessionEnded)
	assert.Equal(t, endedAt, session.EndedAt)

	// Appending after the end is rejected.
	err = session.AppendReview(domain.Review{CardID: uuid.New(), Rating: domain.RatingGood})
	assert.ErrorIs(t, err, domain.ErrSessionEnded)
}
