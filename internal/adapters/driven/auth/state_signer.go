package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
)

// Ensure StateSigner implements driven.StateSigner
var _ driven.StateSigner = (*StateSigner)(nil)

const stateAudience = "oauth-state"

// StateSigner issues OAuth state values as short-lived HS256 JWTs.
// The callback only needs the shared secret to check them, so any instance
// can complete a flow another instance started. The subject carries the
// SHA-256 of the browser binding; the binding itself never enters the URL.
type StateSigner struct {
	secret []byte
	clock  clockwork.Clock
}

// NewStateSigner creates a signer using the wall clock.
func NewStateSigner(secret string) *StateSigner {
	return NewStateSignerWithClock(secret, clockwork.NewRealClock())
}

// NewStateSignerWithClock creates a signer with an injected clock (for tests).
func NewStateSignerWithClock(secret string, clock clockwork.Clock) *StateSigner {
	return &StateSigner{secret: []byte(secret), clock: clock}
}

func bindingDigest(binding string) string {
	sum := sha256.Sum256([]byte(binding))
	return hex.EncodeToString(sum[:])
}

// Issue returns a state bound to binding and valid for ttl.
func (s *StateSigner) Issue(binding string, ttl time.Duration) (string, error) {
	if binding == "" {
		return "", fmt.Errorf("%w: empty binding", domain.ErrInvalidInput)
	}

	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   bindingDigest(binding),
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, audience, expiry and binding of state.
func (s *StateSigner) Verify(state, binding string) error {
	if state == "" || binding == "" {
		return domain.ErrTokenInvalid
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithAudience(stateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return domain.ErrTokenExpired
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	if subtle.ConstantTimeCompare([]byte(claims.Subject), []byte(bindingDigest(binding))) != 1 {
		return fmt.Errorf("%w: state issued to another browser", domain.ErrTokenInvalid)
	}
	return nil
}
