package driven

import "time"

// StateSigner issues and verifies the OAuth state parameter.
// State is self-contained so no server-side storage is needed. Each state
// is bound to a per-browser value the caller keeps outside the URL (a
// cookie), so a state fetched by one browser cannot complete a flow in another.
type StateSigner interface {
	// Issue returns a signed state bound to binding and valid for ttl.
	Issue(binding string, ttl time.Duration) (string, error)

	// Verify checks signature, expiry and that state was issued for binding.
	// Returns domain.ErrTokenExpired or domain.ErrTokenInvalid.
	Verify(state, binding string) error
}
