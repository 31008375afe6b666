// Package vault protects the remote-sync access token at rest: a key derived
// from a user passphrase encrypts the token with authenticated encryption.
// Losing the passphrase makes the token unrecoverable; there is no backdoor.
//
// The package is pure crypto — persisting the credential record is the
// caller's job, keeping this provider independent of the store.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2 work factor. Slow on purpose.
	Iterations = 100_000
	keyLen     = 32 // AES-256
	saltLen    = 16
)

// ErrCannotDecrypt is returned when decryption fails authentication: wrong
// passphrase or tampered ciphertext. No partial plaintext is ever returned.
var ErrCannotDecrypt = errors.New("vault: cannot decrypt")

// Credential is the at-rest form of an encrypted token. The three parts are
// persisted together under a single fixed key.
type Credential struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// deriveKey stretches a passphrase into an AES-256 key.
func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, Iterations, keyLen, sha256.New)
}

// EncryptToken seals a token under a passphrase-derived key with a fresh
// random salt and nonce.
func EncryptToken(token, passphrase string) (Credential, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return Credential{}, fmt.Errorf("vault: generate salt: %w", err)
	}

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return Credential{}, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Credential{}, fmt.Errorf("vault: generate nonce: %w", err)
	}

	return Credential{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, []byte(token), nil),
	}, nil
}

// DecryptToken opens a credential. Any authentication failure, including a
// wrong passphrase, surfaces as ErrCannotDecrypt.
func DecryptToken(cred Credential, passphrase string) (string, error) {
	aead, err := newAEAD(passphrase, cred.Salt)
	if err != nil {
		return "", err
	}
	if len(cred.Nonce) != aead.NonceSize() {
		return "", ErrCannotDecrypt
	}
	plaintext, err := aead.Open(nil, cred.Nonce, cred.Ciphertext, nil)
	if err != nil {
		return "", ErrCannotDecrypt
	}
	return string(plaintext), nil
}

func newAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("vault: cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: gcm: %w", err)
	}
	return aead, nil
}
