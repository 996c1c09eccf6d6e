// Package crypto derives the keys protecting the session cookie.
package crypto

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

// SessionKeys derives the cookie hash key and encryption key from secret.
// The same secret always yields the same pair.
func SessionKeys(secret string) (hashKey, blockKey []byte, err error) {
	if secret == "" {
		return nil, nil, errors.New("empty session secret")
	}
	hashKey, err = derive(secret, "authpanel cookie hash")
	if err != nil {
		return nil, nil, err
	}
	blockKey, err = derive(secret, "authpanel cookie block")
	if err != nil {
		return nil, nil, err
	}
	return hashKey, blockKey, nil
}

func derive(secret, info string) ([]byte, error) {
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
