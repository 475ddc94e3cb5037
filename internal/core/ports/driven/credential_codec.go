package driven

// CredentialCodec turns a secret into an opaque token and back.
// Tokens are safe to hand to untrusted intermediaries.
type CredentialCodec interface {
	// Encode produces a fresh token for plaintext. Two calls never return the same token.
	Encode(plaintext string) (string, error)

	// Decode recovers the plaintext.
	// Errors wrap domain.ErrDecodeMalformed or domain.ErrDecodeCrypto.
	Decode(token string) (string, error)
}
