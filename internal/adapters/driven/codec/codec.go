package codec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/box"
)

// Verify interface compliance
var _ driven.CredentialCodec = (*SealedBoxCodec)(nil)

const (
	// tokenVersion is the leading byte of every token.
	tokenVersion = 0x01

	// MaxPlaintextSize bounds a single secret. Larger input is rejected, never truncated.
	MaxPlaintextSize = 2048

	// minSeedSize is the shortest accepted seed.
	minSeedSize = 16

	keyInfo = "dropbox-connector/credential-codec/v1"
)

// DefaultSeed derives the process key pair.
//
// The seed is fixed on purpose. Encoded tokens are stored by the automation
// platform and handed back on later requests, possibly to another instance or
// after a restart, so every instance must derive the same key pair. A random
// key would make every previously issued token undecodable. Deployments that
// need their own key material set CODEC_SEED to a stable value.
const DefaultSeed = "wWud6hFm7mcCj$^2eeffv2d@2aeLYNUn"

// ErrSeedTooShort is returned when the seed has too little material.
var ErrSeedTooShort = errors.New("codec seed must be at least 16 bytes")

// SealedBoxCodec encodes secrets as anonymous NaCl sealed boxes.
// Token format: hex(version(1) || ephemeral public key(32) || box).
// Every Encode uses a fresh ephemeral key so equal secrets give unrelated tokens.
type SealedBoxCodec struct {
	publicKey  *[32]byte
	privateKey *[32]byte
}

// New derives a codec key pair deterministically from seed.
func New(seed []byte) (*SealedBoxCodec, error) {
	if len(seed) < minSeedSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrSeedTooShort, len(seed))
	}

	kdf := hkdf.New(sha256.New, seed, nil, []byte(keyInfo))
	pub, priv, err := box.GenerateKey(kdf)
	if err != nil {
		return nil, fmt.Errorf("derive key pair: %w", err)
	}

	return &SealedBoxCodec{publicKey: pub, privateKey: priv}, nil
}

var defaultCodec = sync.OnceValues(func() (*SealedBoxCodec, error) {
	return New([]byte(DefaultSeed))
})

// Default returns the process-wide codec built from DefaultSeed.
// The key pair is derived once, on first use, and shared read-only.
func Default() (*SealedBoxCodec, error) {
	return defaultCodec()
}

// Encode seals plaintext and returns a lowercase hex token.
func (c *SealedBoxCodec) Encode(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: empty secret", domain.ErrInvalidInput)
	}
	if len(plaintext) > MaxPlaintextSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", domain.ErrPlaintextTooLarge, len(plaintext), MaxPlaintextSize)
	}

	out := []byte{tokenVersion}
	out, err := box.SealAnonymous(out, []byte(plaintext), c.publicKey, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("seal secret: %w", err)
	}

	return hex.EncodeToString(out), nil
}

// Decode opens a token produced by Encode under the same key pair.
func (c *SealedBoxCodec) Decode(token string) (string, error) {
	raw, err := hex.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: not hex", domain.ErrDecodeMalformed)
	}
	if len(raw) < 1+box.AnonymousOverhead {
		return "", fmt.Errorf("%w: %d bytes is too short", domain.ErrDecodeMalformed, len(raw))
	}
	if raw[0] != tokenVersion {
		return "", fmt.Errorf("%w: unsupported version %d", domain.ErrDecodeMalformed, raw[0])
	}

	plaintext, ok := box.OpenAnonymous(nil, raw[1:], c.publicKey, c.privateKey)
	if !ok {
		return "", domain.ErrDecodeCrypto
	}

	return string(plaintext), nil
}
