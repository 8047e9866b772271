// Package githash provides the object-identifier type used throughout
// this module: a 160-bit SHA-1 digest, plus the helpers needed to hash,
// parse, and format it.
package githash

import (
	"crypto/sha1" //nolint:gosec // git's object identity is defined in terms of SHA-1
	"encoding/hex"
	"errors"
)

// ErrInvalidOid is returned when a given value isn't a valid Oid
var ErrInvalidOid = errors.New("invalid Oid")

// Size is the length of an Oid, in bytes
const Size = 20

// NullOid is the zero-value Oid, used to represent "no object"
// (e.g. the parent of the first commit, or an unborn branch)
var NullOid = Oid{}

// Oid is a git object ID: the SHA-1 digest of an object's canonical form
type Oid [Size]byte

// Sum returns the Oid of the given content.
// The oid is the SHA-1 digest of content, it does not hash anything else.
func Sum(content []byte) Oid {
	return Oid(sha1.Sum(content)) //nolint:gosec // see import comment
}

// FromHex parses a 40-character hex string into an Oid.
// For the string "9b91da06e69613397b38e0808e0ba5ee6983251b" the resulting
// Oid's bytes are {0x9b, 0x91, 0xda, ...}.
func FromHex(id string) (Oid, error) {
	b, err := hex.DecodeString(id)
	if err != nil {
		if errors.Is(err, hex.ErrLength) || len(id)%2 != 0 {
			return NullOid, ErrInvalidOid
		}
		return NullOid, err
	}
	return FromBytes(b)
}

// FromChars parses a 40-byte hex-encoded char slice into an Oid.
// Equivalent to FromHex(string(id)), provided so callers holding raw bytes
// off the wire or out of a loose-object header don't need to allocate a string first.
func FromChars(id []byte) (Oid, error) {
	return FromHex(string(id))
}

// FromBytes builds an Oid from its raw 20-byte representation (not its hex
// encoding). This is the inverse of Oid.Bytes, not of Oid.String.
func FromBytes(id []byte) (Oid, error) {
	if len(id) != Size {
		return NullOid, ErrInvalidOid
	}
	var oid Oid
	copy(oid[:], id)
	return oid, nil
}

// Bytes returns the raw Oid as []byte.
// This is different than doing []byte(oid.String())
// For the oid 642480605b8b0fd464ab5762e044269cf29a60a3:
// oid.Bytes(): []byte{ 0x64, 0x24, 0x80, ... }
// []byte(oid.String()): []byte{ '6', '4', '2', '4', '8' '0', ... }
func (o Oid) Bytes() []byte {
	return o[:]
}

// String converts an oid to its 40-character hex representation
func (o Oid) String() string {
	return hex.EncodeToString(o[:])
}

// IsZero returns whether the oid has the zero value (NullOid)
func (o Oid) IsZero() bool {
	return o == NullOid
}
