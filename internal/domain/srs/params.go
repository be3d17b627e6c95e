package srs

// Params defines the configurable parameters of the scheduling algorithm.
// The defaults reproduce classic SM-2 behavior; deployments may tune them
// but the zero-configuration path must stay compatible with the defaults.
type Params struct {
	// MinEaseFactor is the floor for the ease factor. Repeated failures
	// never drive the ease factor below this value.
	MinEaseFactor float64

	// FirstInterval is the interval in days after the first successful
	// repetition.
	FirstInterval int

	// SecondInterval is the interval in days after the second successful
	// repetition.
	SecondInterval int

	// RelearnInterval is the interval in days a card snaps back to after
	// an "Again" rating.
	RelearnInterval int

	// MasteredIntervalDays is the interval at or beyond which a card is
	// considered mastered.
	MasteredIntervalDays int
}

// DefaultParams returns the standard SM-2 parameter set.
func DefaultParams() *Params {
	return &Params{
		MinEaseFactor:        1.3,
		FirstInterval:        1,
		SecondInterval:       6,
		RelearnInterval:      1,
		MasteredIntervalDays: 21,
	}
}
