// Package oid implements the canonical resource identifier: a 12-byte value
// rendered as 24 lower-hex characters, the document-id format of the store.
package oid

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

type ID string

const rawLen = 12

// New generates a fresh id: 4-byte unix timestamp followed by 8 random bytes.
func New() ID {
	var b [rawLen]byte
	binary.BigEndian.PutUint32(b[:4], uint32(time.Now().Unix()))
	_, _ = rand.Read(b[4:])
	return ID(hex.EncodeToString(b[:]))
}

// IsValid reports whether s is a syntactically well-formed id. Purely a
// format check; existence is a store concern.
func IsValid(s string) bool {
	if len(s) != rawLen*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Parse normalizes s to canonical lower-hex form.
func Parse(s string) (ID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !IsValid(s) {
		return "", fmt.Errorf("invalid resource id %q", s)
	}
	return ID(s), nil
}

// Normalize lower-cases a syntactically valid id string so ids that differ
// only in hex case compare equal.
func Normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (id ID) String() string { return string(id) }

func (id ID) Timestamp() time.Time {
	raw, err := hex.DecodeString(string(id))
	if err != nil || len(raw) != rawLen {
		return time.Time{}
	}
	return time.Unix(int64(binary.BigEndian.Uint32(raw[:4])), 0).UTC()
}
