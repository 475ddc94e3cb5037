package codec

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/dropbox-connector/internal/core/domain"
)

func newTestCodec(t *testing.T, seed string) *SealedBoxCodec {
	t.Helper()
	c, err := New([]byte(seed))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSealedBoxCodec_RoundTrip(t *testing.T) {
	c := newTestCodec(t, "0123456789abcdef0123456789abcdef")

	secrets := []string{
		"sl.BxAbC123-access-token",
		"x",
		strings.Repeat("r", MaxPlaintextSize),
		"ünïcødé secret ✓",
	}

	for _, secret := range secrets {
		token, err := c.Encode(secret)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if token != strings.ToLower(token) {
			t.Errorf("token is not lowercase hex: %s", token)
		}

		got, err := c.Decode(token)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got != secret {
			t.Errorf("round trip: got %q, want %q", got, secret)
		}
	}
}

func TestSealedBoxCodec_Unlinkable(t *testing.T) {
	c := newTestCodec(t, "0123456789abcdef0123456789abcdef")

	first, err := c.Encode("same-secret")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	second, err := c.Encode("same-secret")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if first == second {
		t.Error("encoding the same secret twice should give different tokens")
	}
}

func TestSealedBoxCodec_DeterministicKeys(t *testing.T) {
	a := newTestCodec(t, "0123456789abcdef0123456789abcdef")
	b := newTestCodec(t, "0123456789abcdef0123456789abcdef")

	token, err := a.Encode("shared")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := b.Decode(token)
	if err != nil {
		t.Fatalf("codec from the same seed should decode: %v", err)
	}
	if got != "shared" {
		t.Errorf("got %q", got)
	}
}

func TestSealedBoxCodec_WrongKey(t *testing.T) {
	a := newTestCodec(t, "0123456789abcdef0123456789abcdef")
	b := newTestCodec(t, "fedcba9876543210fedcba9876543210")

	token, err := a.Encode("secret")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, err = b.Decode(token)
	if !errors.Is(err, domain.ErrDecodeCrypto) {
		t.Errorf("expected ErrDecodeCrypto, got %v", err)
	}
}

func TestSealedBoxCodec_Tampered(t *testing.T) {
	c := newTestCodec(t, "0123456789abcdef0123456789abcdef")

	token, err := c.Encode("secret")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	raw, _ := hex.DecodeString(token)

	// Flip one bit in every region after the version byte.
	for _, i := range []int{1, 20, 40, len(raw) - 1} {
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x01
		_, err := c.Decode(hex.EncodeToString(tampered))
		if !errors.Is(err, domain.ErrDecodeCrypto) {
			t.Errorf("byte %d: expected ErrDecodeCrypto, got %v", i, err)
		}
	}
}

func TestSealedBoxCodec_Malformed(t *testing.T) {
	c := newTestCodec(t, "0123456789abcdef0123456789abcdef")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not hex", "zz-not-hex"},
		{"odd length", "abc"},
		{"too short", "01" + strings.Repeat("00", 10)},
		{"unknown version", "02" + strings.Repeat("00", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(tt.token)
			if !errors.Is(err, domain.ErrDecodeMalformed) {
				t.Errorf("expected ErrDecodeMalformed, got %v", err)
			}
			if !errors.Is(err, domain.ErrDecode) {
				t.Errorf("expected error to match ErrDecode, got %v", err)
			}
		})
	}
}

func TestSealedBoxCodec_PlaintextBounds(t *testing.T) {
	c := newTestCodec(t, "0123456789abcdef0123456789abcdef")

	if _, err := c.Encode(strings.Repeat("a", MaxPlaintextSize+1)); !errors.Is(err, domain.ErrPlaintextTooLarge) {
		t.Errorf("expected ErrPlaintextTooLarge, got %v", err)
	}
	if _, err := c.Encode(""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNew_SeedTooShort(t *testing.T) {
	if _, err := New([]byte("short")); !errors.Is(err, ErrSeedTooShort) {
		t.Errorf("expected ErrSeedTooShort, got %v", err)
	}
}

func TestDefault_Singleton(t *testing.T) {
	a, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	b, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if a != b {
		t.Error("expected the same codec instance")
	}

	token, err := a.Encode("secret")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	fresh := newTestCodec(t, DefaultSeed)
	if got, err := fresh.Decode(token); err != nil || got != "secret" {
		t.Errorf("default tokens must decode with a codec from DefaultSeed: %q, %v", got, err)
	}
}
