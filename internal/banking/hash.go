// Package banking reconciles imported bank transactions with member
// accounts. A pseudonymized hash of the sender identity is the stable
// join key between statements and stored import rules, so raw IBANs
// never have to be kept long-term.
package banking

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	hashIterations = 1000
	hashLength     = 12 // hex characters
)

// HashIBAN derives the identity hash for a payer. The account name is
// the key and the IBAN the salt of a PBKDF2-HMAC-SHA256 derivation,
// truncated to 12 hex characters; deliberately slow, and stable for the
// same (name, IBAN) pair.
func HashIBAN(name, iban string) string {
	key := pbkdf2.Key(latin1(name), latin1(iban), hashIterations, sha256.Size, sha256.New)
	return hex.EncodeToString(key)[:hashLength]
}

// latin1 re-encodes a string as ISO 8859-1 bytes, matching the charset
// of the bank exports. Unmappable runes are substituted so the hash
// stays total.
func latin1(s string) []byte {
	enc := encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
	b, err := enc.Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return b
}
