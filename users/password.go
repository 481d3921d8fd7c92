package users

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sync"

	"golang.org/x/crypto/argon2"
)

// HashParams tunes argon2id.
type HashParams struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

var DefaultHashParams = HashParams{Memory: 64 * 1024, Time: 3, Parallelism: 1, KeyLen: 32}

// dummyHash is verified against when the user does not exist, so both paths cost the same.
var dummyHash = sync.OnceValue(func() string {
	h, _ := HashPassword("not-a-real-password")
	return h
})

// HashPassword returns a PHC string: $argon2id$v=19$m=...,t=...,p=...$<salt>$<key>
func HashPassword(password string) (string, error) {
	return HashPasswordWithParams(DefaultHashParams, password)
}

func HashPasswordWithParams(p HashParams, password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("empty password")
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	dk := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(dk),
	), nil
}

// CheckPasswordHash verifies password against a PHC string in constant time.
func CheckPasswordHash(password, hash string) bool {
	var v, m, t, p int
	var saltB64, dkB64 string
	// %s stops at whitespace, so the salt and key are split on '$' first.
	n, _ := fmt.Sscanf(hash, "$argon2id$v=%d$m=%d,t=%d,p=%d$", &v, &m, &t, &p)
	if n != 4 || v != argon2.Version {
		return false
	}
	parts := splitPHC(hash)
	if len(parts) != 5 {
		return false
	}
	saltB64, dkB64 = parts[3], parts[4]

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}
	dkStored, err := base64.RawStdEncoding.DecodeString(dkB64)
	if err != nil || len(dkStored) == 0 {
		return false
	}
	key := argon2.IDKey([]byte(password), salt, uint32(t), uint32(m), uint8(p), uint32(len(dkStored)))
	return subtle.ConstantTimeCompare(key, dkStored) == 1
}

// CheckPasswordAgainstNothing burns the same work as a real verification.
func CheckPasswordAgainstNothing(password string) {
	_ = CheckPasswordHash(password, dummyHash())
}

func splitPHC(hash string) []string {
	var parts []string
	start := 1
	for i := 1; i < len(hash); i++ {
		if hash[i] == '$' {
			parts = append(parts, hash[start:i])
			start = i + 1
		}
	}
	return append(parts, hash[start:])
}
