package valueobjects

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// PasswordDigest is the one-way digest of a note password: lower-case hex
// SHA-256. The empty digest means "no password required".
type PasswordDigest struct {
	value string
}

// DigestPassword hashes a caller-supplied password. An empty password
// digests to the empty digest rather than to the hash of "".
func DigestPassword(password string) PasswordDigest {
	if password == "" {
		return PasswordDigest{}
	}
	sum := sha256.Sum256([]byte(password))
	return PasswordDigest{value: hex.EncodeToString(sum[:])}
}

// PasswordDigestFromStored rebuilds a digest read back from a store.
func PasswordDigestFromStored(stored string) PasswordDigest {
	return PasswordDigest{value: stored}
}

// String returns the hex digest, or "" when no password is set
func (d PasswordDigest) String() string {
	return d.value
}

// IsEmpty reports whether no password is required
func (d PasswordDigest) IsEmpty() bool {
	return d.value == ""
}

// Matches compares two digests byte for byte in constant time.
func (d PasswordDigest) Matches(other PasswordDigest) bool {
	return subtle.ConstantTimeCompare([]byte(d.value), []byte(other.value)) == 1
}
