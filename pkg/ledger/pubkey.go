package ledger

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKeySize is the width of every ledger identity in bytes.
const PublicKeySize = 32

// PublicKey is a ledger identity: a wallet, a program, or a derived account address.
// Its text form is base58.
type PublicKey [PublicKeySize]byte

// Well-known program and mint addresses.
var (
	SystemProgramID          = MustPublicKey("11111111111111111111111111111111")
	TokenProgramID           = MustPublicKey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = MustPublicKey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	NativeMint               = MustPublicKey("So11111111111111111111111111111111111111112")
)

// ParsePublicKey decodes a base58 identity.
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %q: %v", ErrInvalidPublicKey, s, err)
	}
	return PublicKeyFromBytes(raw)
}

// MustPublicKey is ParsePublicKey for compile-time constants. Panics on invalid input.
func MustPublicKey(s string) PublicKey {
	pk, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PublicKeyFromBytes copies a 32-byte slice into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, PublicKeySize, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

func (k PublicKey) Bytes() []byte {
	return bytes.Clone(k[:])
}

// IsZero reports whether k is the all-zero key, used as "no identity".
func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

func (k PublicKey) Equals(other PublicKey) bool {
	return k == other
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts base58 text. Empty input yields the zero key.
func (k *PublicKey) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = PublicKey{}
		return nil
	}
	pk, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = pk
	return nil
}
