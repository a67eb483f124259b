// Package auth verifies client credentials for AUTH and HELLO.
//
// Credentials are compared without leaking timing information about
// either input: both candidate and expected values are MACed under a
// fresh random key and the digests are compared in constant time.
// The configured password may also be an Argon2id hash in PHC form
// ($argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>).
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"
)

const argon2Prefix = "$argon2id$"

// Verifier checks a username/password pair.
type Verifier interface {
	Verify(username, password string) bool
}

// Static verifies against a single configured user.
type Static struct {
	username string
	password string
	hash     *argon2Hash
}

// NewStatic creates a verifier for one user. An empty username means the
// default user.
func NewStatic(username, password string) (*Static, error) {
	if username == "" {
		username = "default"
	}
	s := &Static{username: username, password: password}
	if strings.HasPrefix(password, argon2Prefix) {
		h, err := parseArgon2(password)
		if err != nil {
			return nil, err
		}
		s.hash = h
	}
	return s, nil
}

// Verify implements Verifier.
func (s *Static) Verify(username, password string) bool {
	userOK := Equal(username, s.username)
	var passOK bool
	if s.hash != nil {
		passOK = s.hash.verify(password)
	} else {
		passOK = Equal(password, s.password)
	}
	return userOK && passOK
}

// Equal compares two secrets in constant time regardless of their
// lengths.
func Equal(candidate, expected string) bool {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return false
	}
	a := mac(key, candidate)
	b := mac(key, expected)
	return subtle.ConstantTimeCompare(a, b) == 1
}

func mac(key []byte, s string) []byte {
	h, err := blake2b.New256(key)
	if err != nil {
		// Only possible for keys longer than 64 bytes.
		panic(err)
	}
	h.Write([]byte(s))
	return h.Sum(nil)
}

// ============================================================================
// Argon2id
// ============================================================================

type argon2Hash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parseArgon2(encoded string) (*argon2Hash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, fmt.Errorf("auth: malformed argon2id hash")
	}
	if parts[2] != "v=19" {
		return nil, fmt.Errorf("auth: unsupported argon2 version %q", parts[2])
	}

	h := &argon2Hash{}
	for _, kv := range strings.Split(parts[3], ",") {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("auth: malformed argon2id parameter %q", kv)
		}
		n, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("auth: argon2id parameter %s: %w", name, err)
		}
		switch name {
		case "m":
			h.memory = uint32(n)
		case "t":
			h.time = uint32(n)
		case "p":
			h.threads = uint8(n)
		}
	}
	if h.memory == 0 || h.time == 0 || h.threads == 0 {
		return nil, fmt.Errorf("auth: argon2id hash missing parameters")
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("auth: argon2id salt: %w", err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("auth: argon2id key: %w", err)
	}
	return h, nil
}

func (h *argon2Hash) verify(password string) bool {
	computed := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(computed, h.key) == 1
}

// HashPassword encodes password as an Argon2id PHC string suitable for
// the server password setting.
func HashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	const (
		memory  = 16384
		time    = 2
		threads = 2
	)
	key := argon2.IDKey([]byte(password), salt, time, memory, threads, 32)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		memory, time, threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}
