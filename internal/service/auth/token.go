// Package auth manages the device's local credentials: the server-issued
// session token attached to sync requests and the optional app-lock
// passcode. The token is never minted or verified cryptographically here;
// only the server holds the signing key. The client inspects the expiry
// claim so it can prompt for sign-in before a sync is rejected.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mnemo-app/mnemo/internal/domain"
	"github.com/mnemo-app/mnemo/internal/store"
)

// TokenProvider manages the local user profile and its session token.
// It implements the sync transport's TokenSource.
type TokenProvider struct {
	users    store.Collection[domain.User]
	verifier PasscodeVerifier
	logger   *slog.Logger
	timeFunc func() time.Time
	leeway   time.Duration
}

// NewTokenProvider creates a TokenProvider over the users collection.
func NewTokenProvider(
	users store.Collection[domain.User],
	verifier PasscodeVerifier,
	logger *slog.Logger,
) *TokenProvider {
	if users == nil {
		panic("users collection cannot be nil for TokenProvider")
	}
	if verifier == nil {
		verifier = NewBcryptVerifier(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenProvider{
		users:    users,
		verifier: verifier,
		logger:   logger.With(slog.String("component", "auth")),
		timeFunc: time.Now,
		leeway:   time.Minute,
	}
}

// CurrentUser returns the device's local profile.
// Returns ErrNoLocalUser if no profile exists.
func (p *TokenProvider) CurrentUser(ctx context.Context) (*domain.User, error) {
	users, err := p.users.Scan(ctx, store.Query{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("load local user: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrNoLocalUser
	}
	return users[0], nil
}

// Register creates the local profile. The user ID comes from the server
// at sign-in so progress records carry the same owner on every replica.
// Returns ErrUserExists if a profile is already present.
func (p *TokenProvider) Register(ctx context.Context, id uuid.UUID, email string) (*domain.User, error) {
	if _, err := p.CurrentUser(ctx); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrNoLocalUser) {
		return nil, err
	}

	user, err := domain.NewUser(id, email)
	if err != nil {
		return nil, err
	}
	if err := p.users.Put(ctx, user.ID.String(), user); err != nil {
		return nil, fmt.Errorf("persist local user: %w", err)
	}

	p.logger.Info("local user profile created", slog.String("user_id", user.ID.String()))
	return user, nil
}

// Token implements the sync TokenSource. It returns the stored session
// token after checking it has not expired, so the engine fails fast with
// a sign-in prompt instead of burning a round trip on a 401.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	user, err := p.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	if user.SessionToken == "" {
		return "", ErrMissingToken
	}
	if err := p.checkExpiry(user.SessionToken); err != nil {
		return "", err
	}
	return user.SessionToken, nil
}

// SetSessionToken stores a freshly issued session token on the profile.
// The token must parse and must not already be expired.
func (p *TokenProvider) SetSessionToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	if err := p.checkExpiry(token); err != nil {
		return err
	}

	user, err := p.CurrentUser(ctx)
	if err != nil {
		return err
	}
	user.SessionToken = token
	user.UpdatedAt = domain.NowUTC()
	if err := p.users.Put(ctx, user.ID.String(), user); err != nil {
		return fmt.Errorf("persist session token: %w", err)
	}

	p.logger.Info("session token updated", slog.String("user_id", user.ID.String()))
	return nil
}

// ClearSessionToken drops the stored token, forcing a sign-in before the
// next authenticated sync.
func (p *TokenProvider) ClearSessionToken(ctx context.Context) error {
	user, err := p.CurrentUser(ctx)
	if err != nil {
		return err
	}
	user.SessionToken = ""
	user.UpdatedAt = domain.NowUTC()
	return p.users.Put(ctx, user.ID.String(), user)
}

// SetPasscode hashes and stores the app-lock passcode.
func (p *TokenProvider) SetPasscode(ctx context.Context, passcode string) error {
	user, err := p.CurrentUser(ctx)
	if err != nil {
		return err
	}

	hash, err := p.verifier.Hash(passcode)
	if err != nil {
		return fmt.Errorf("hash passcode: %w", err)
	}
	user.PasscodeHash = hash
	user.UpdatedAt = domain.NowUTC()
	return p.users.Put(ctx, user.ID.String(), user)
}

// VerifyPasscode checks a candidate passcode against the stored hash.
// Returns ErrPasscodeNotSet when no passcode exists and
// ErrPasscodeMismatch when the candidate is wrong.
func (p *TokenProvider) VerifyPasscode(ctx context.Context, passcode string) error {
	user, err := p.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if user.PasscodeHash == "" {
		return ErrPasscodeNotSet
	}
	if err := p.verifier.Compare(user.PasscodeHash, passcode); err != nil {
		return ErrPasscodeMismatch
	}
	return nil
}

// checkExpiry parses the token without verifying the signature and
// rejects it when the exp claim is in the past. Signature verification
// happens server-side; a forged token would simply be rejected there.
func (p *TokenProvider) checkExpiry(token string) error {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		// No expiry claim; let the server decide.
		return nil
	}
	if p.timeFunc().Add(-p.leeway).After(claims.ExpiresAt.Time) {
		return ErrExpiredToken
	}
	return nil
}
