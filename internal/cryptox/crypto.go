// Package cryptox seals small secrets (stored tokens) at rest.
//
// Keys are derived from a passphrase with argon2id; values are sealed with
// AES-256-GCM and stored as nonce||ciphertext.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

// KeySize is the derived key length (AES-256).
const KeySize = 32

// SaltSize is the recommended salt length for DeriveKey.
const SaltSize = 16

var ErrSealedTooShort = errors.New("sealed value too short")

// DeriveKey stretches passphrase into a KeySize key bound to salt.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// Seal encrypts plaintext with key. A fresh random nonce is prepended to the
// ciphertext.
func Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aead.NonceSize())
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal. It fails if the value was tampered with or sealed under
// a different key.
func Open(key, sealed []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	n := aead.NonceSize()
	if len(sealed) < n+aead.Overhead() {
		return nil, ErrSealedTooShort
	}

	return aead.Open(nil, sealed[:n], sealed[n:], nil)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
