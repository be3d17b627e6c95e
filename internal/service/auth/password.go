package auth

import "golang.org/x/crypto/bcrypt"

// PasscodeVerifier defines the interface for hashing and comparing the
// local unlock passcode.
type PasscodeVerifier interface {
	// Hash returns a one-way hash of the passcode for storage.
	Hash(passcode string) (string, error)

	// Compare compares a stored hash with a candidate passcode.
	// Returns nil on success, or an error on mismatch.
	Compare(hashedPasscode, passcode string) error
}

// BcryptVerifier implements PasscodeVerifier using bcrypt.
type BcryptVerifier struct {
	cost int
}

// NewBcryptVerifier creates a new BcryptVerifier. A cost outside bcrypt's
// valid range falls back to the default cost.
func NewBcryptVerifier(cost int) *BcryptVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptVerifier{cost: cost}
}

// Hash implements the PasscodeVerifier interface using bcrypt.
func (v *BcryptVerifier) Hash(passcode string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(passcode), v.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare implements the PasscodeVerifier interface using bcrypt.
func (v *BcryptVerifier) Compare(hashedPasscode, passcode string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPasscode), []byte(passcode))
}
