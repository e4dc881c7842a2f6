// Package identity allocates the 16-character hex identifiers used for
// users and sessions: 64 bits of entropy, unique among live ids.
package identity

import (
	"crypto/rand"
	"encoding/hex"
)

// Length is the number of hex characters in an id.
const Length = 16

// Generate returns a fresh id that taken reports as unused. Collisions at
// 64 bits are negligible, so the retry loop is effectively bounded.
func Generate(taken func(string) bool) string {
	for {
		var b [Length / 2]byte
		if _, err := rand.Read(b[:]); err != nil {
			panic(err)
		}
		id := hex.EncodeToString(b[:])
		if taken == nil || !taken(id) {
			return id
		}
	}
}

// Valid reports whether id has the allocated shape: exactly 16 lowercase
// hex characters.
func Valid(id string) bool {
	if len(id) != Length {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
