package domain

import "errors"

// Rating is the recall grade a user assigns after reviewing a card.
type Rating int

// Possible rating values, ordered from complete failure to effortless recall.
const (
	RatingAgain Rating = 1
	RatingHard  Rating = 2
	RatingGood  Rating = 3
	RatingEasy  Rating = 4
)

// ErrInvalidRating is returned when a rating is outside the 1..4 range.
var ErrInvalidRating = errors.New("rating must be between 1 (again) and 4 (easy)")

// Validate checks that the rating is one of the four defined grades.
func (r Rating) Validate() error {
	if r < RatingAgain || r > RatingEasy {
		return ErrInvalidRating
	}
	return nil
}

// Correct reports whether the rating counts as a successful recall.
// "Again" is the only failing grade.
func (r Rating) Correct() bool {
	return r > RatingAgain
}

// String returns the human-readable name of the rating.
func (r Rating) String() string {
	switch r {
	case RatingAgain:
		return "again"
	case RatingHard:
		return "hard"
	case RatingGood:
		return "good"
	case RatingEasy:
		return "easy"
	default:
		return "unknown"
	}
}
