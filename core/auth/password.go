package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var hashCost = bcrypt.DefaultCost

// prehash keys the password with the server pepper. The result is a fixed
// 44 bytes, which keeps long passphrases inside bcrypt's 72 byte limit.
func prehash(password, pepper string) []byte {
	m := hmac.New(sha256.New, []byte(pepper))
	_, _ = m.Write([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(m.Sum(nil)))
}

func HashPassword(password, pepper string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hash, err := bcrypt.GenerateFromPassword(prehash(password, pepper), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func MustHashPassword(password, pepper string) string {
	hash, err := HashPassword(password, pepper)
	if err != nil {
		panic(err)
	}
	return hash
}

// VerifyPassword reports whether password matches hash. A mismatch is not an
// error; err is only set for malformed hashes.
func VerifyPassword(password, pepper, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), prehash(password, pepper))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// burnCompare spends the same bcrypt work as a real comparison so an unknown
// username takes as long to reject as a wrong password.
func burnCompare(password, pepper string) {
	dummyOnce.Do(func() {
		dummyHash, _ = HashPassword("incident-desk-dummy", "")
	})
	_, _ = VerifyPassword(password, pepper, dummyHash)
}
