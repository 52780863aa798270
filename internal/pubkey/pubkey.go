// Package pubkey implements 32-byte ledger identities and program-derived
// addresses.
package pubkey

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Size is the length in bytes of a public key.
const Size = 32

const (
	maxSeeds   = 16
	maxSeedLen = 32
	pdaMarker  = "ProgramDerivedAddress"
)

var (
	ErrInvalidKey     = errors.New("invalid_public_key")
	ErrSeedTooLong    = errors.New("seed_too_long")
	ErrTooManySeeds   = errors.New("too_many_seeds")
	ErrNoViableBump   = errors.New("no_viable_bump_seed")
	ErrAddressOnCurve = errors.New("address_on_curve")
)

// PublicKey identifies an account, an auction resource, a bidder or a
// program on the ledger.
type PublicKey [Size]byte

// Zero is the all-zero key, used as "unset".
var Zero PublicKey

// Parse decodes a base58 string into a PublicKey.
func Parse(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(b) != Size {
		return pk, fmt.Errorf("%w: decoded length %d", ErrInvalidKey, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// MustParse is Parse for compile-time constants. It panics on error.
func MustParse(s string) PublicKey {
	pk, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// NewFromSeed derives a deterministic key from a label. It is meant for
// fixtures and local tooling, not for keys that must be unguessable.
func NewFromSeed(label string) PublicKey {
	return PublicKey(sha256.Sum256([]byte(label)))
}

// String returns the base58 form.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// IsZero reports whether pk is the zero key.
func (pk PublicKey) IsZero() bool {
	return pk == Zero
}

// Bytes returns a copy of the key bytes.
func (pk PublicKey) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, pk[:])
	return b
}

// MarshalText implements encoding.TextMarshaler so keys render as base58 in
// YAML, JSON and logs.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// IsOnCurve reports whether b is a valid compressed ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != Size {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// CreateProgramAddress hashes the seeds with the program ID and returns the
// address, failing if the result lies on the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, error) {
	if len(seeds) > maxSeeds {
		return Zero, ErrTooManySeeds
	}
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > maxSeedLen {
			return Zero, ErrSeedTooLong
		}
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write([]byte(pdaMarker))

	var addr PublicKey
	copy(addr[:], h.Sum(nil))
	if IsOnCurve(addr[:]) {
		return Zero, ErrAddressOnCurve
	}
	return addr, nil
}

// FindProgramAddress searches bump seeds from 255 downwards and returns the
// first off-curve address together with its bump.
func FindProgramAddress(seeds [][]byte, program PublicKey) (PublicKey, uint8, error) {
	if len(seeds) >= maxSeeds {
		return Zero, 0, ErrTooManySeeds
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, program)
		switch {
		case err == nil:
			return addr, uint8(bump), nil
		case errors.Is(err, ErrAddressOnCurve):
			continue
		default:
			return Zero, 0, err
		}
	}
	return Zero, 0, ErrNoViableBump
}
