// Package srs implements the review scheduling algorithm, an SM-2 variant.
//
// Everything in this package is pure arithmetic over validated inputs:
// no I/O, no shared state, no clock access beyond the caller-supplied
// reference time. Calling Schedule twice with identical inputs always
// yields identical outputs.
package srs

import (
	"math"
	"time"

	"github.com/mnemo-app/mnemo/internal/domain"
)

// ReviewState is the scheduling-relevant slice of a card's progress.
type ReviewState struct {
	EaseFactor  float64
	Interval    int
	Repetitions int
}

// Result is the next review state computed from a rating.
type Result struct {
	EaseFactor  float64
	Interval    int
	Repetitions int
	DueDate     time.Time
}

// qualityFor maps the four-grade rating scale onto the 0-5 quality scale
// the SM-2 ease-factor formula is defined over.
//
//	Again (1) -> 0, Hard (2) -> 3, Good (3) -> 4, Easy (4) -> 5
func qualityFor(rating domain.Rating) int {
	switch rating {
	case domain.RatingAgain:
		return 0
	case domain.RatingHard:
		return 3
	case domain.RatingGood:
		return 4
	default:
		return 5
	}
}

// nextEaseFactor applies the SM-2 ease-factor update for quality q.
// The update is applied on every review, including failures, and the
// result is clamped to the configured floor.
func nextEaseFactor(current float64, q int, params *Params) float64 {
	ef := current + 0.1 - float64(5-q)*(0.08+float64(5-q)*0.02)
	if ef < params.MinEaseFactor {
		ef = params.MinEaseFactor
	}
	return ef
}

// Schedule computes the next review state from the current state and a
// recall rating. The reference time now anchors the returned due date.
//
// A quality below 3 (rating "Again") is a full relearning restart:
// repetitions reset to 0 and the interval snaps back to one day,
// independent of prior history. Successful recalls grow the interval
// 1 -> 6 -> round(interval x ease factor).
func Schedule(state ReviewState, rating domain.Rating, now time.Time, params *Params) Result {
	q := qualityFor(rating)

	// Ease factor updates unconditionally, every review.
	ef := nextEaseFactor(state.EaseFactor, q, params)

	result := Result{EaseFactor: ef}

	if q >= 3 {
		result.Repetitions = state.Repetitions + 1
		switch result.Repetitions {
		case 1:
			result.Interval = params.FirstInterval
		case 2:
			result.Interval = params.SecondInterval
		default:
			result.Interval = int(math.Round(float64(state.Interval) * ef))
		}
	} else {
		result.Repetitions = 0
		result.Interval = params.RelearnInterval
	}

	result.DueDate = now.AddDate(0, 0, result.Interval)
	return result
}

// StatusFor derives the lifecycle status from scheduling state. The status
// is a denormalized view of (repetitions, interval) and must always be
// recomputed through this function rather than set directly.
func StatusFor(repetitions, interval int, params *Params) domain.CardStatus {
	switch {
	case repetitions == 0 && interval == 0:
		return domain.CardStatusNew
	case repetitions == 0:
		return domain.CardStatusRelearning
	case repetitions == 1:
		return domain.CardStatusLearning
	case interval >= params.MasteredIntervalDays:
		return domain.CardStatusMastered
	default:
		return domain.CardStatusReview
	}
}
