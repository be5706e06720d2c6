// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize  = 16
	nonceSize = 12
)

// sealer is the private implementation of [Sealer].
type sealer struct {
	// Argon2id tuning parameters. Stored in the struct so they can be
	// lowered in tests.
	argonTime    uint32
	argonMemory  uint32
	argonThreads uint8
	argonKeyLen  uint32

	random io.Reader
}

// NewSealer constructs a [Sealer] with the Argon2id parameters recommended
// by OWASP (2024):
//   - time cost:   1 iteration
//   - memory cost: 64 MiB
//   - parallelism: 4 threads
//   - key length:  32 bytes (256 bits)
func NewSealer() Sealer {
	return &sealer{
		argonTime:    1,
		argonMemory:  64 * 1024, // 64 MiB
		argonThreads: 4,
		argonKeyLen:  32, // 256 bits
		random:       rand.Reader,
	}
}

// deriveKey derives the AES-256 key from passphrase and salt.
func (s *sealer) deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(passphrase),
		salt,
		s.argonTime,
		s.argonMemory,
		s.argonThreads,
		s.argonKeyLen,
	)
}

func (s *sealer) gcm(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// Seal implements [Sealer].
func (s *sealer) Seal(plaintext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(s.random, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := s.gcm(s.deriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err = io.ReadFull(s.random, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	blob := make([]byte, 0, saltSize+nonceSize+len(plaintext)+gcm.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = gcm.Seal(blob, nonce, plaintext, nil)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(blob)))
	base64.StdEncoding.Encode(out, blob)
	return out, nil
}

// Open implements [Sealer].
func (s *sealer) Open(envelope []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}

	envelope = bytes.TrimSpace(envelope)
	blob := make([]byte, base64.StdEncoding.DecodedLen(len(envelope)))
	n, err := base64.StdEncoding.Decode(blob, envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %w", ErrOpen, err)
	}
	blob = blob[:n]

	if len(blob) < saltSize+nonceSize {
		return nil, fmt.Errorf("%w: envelope too short", ErrOpen)
	}
	salt, nonce, ciphertext := blob[:saltSize], blob[saltSize:saltSize+nonceSize], blob[saltSize+nonceSize:]

	gcm, err := s.gcm(s.deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	// A tag mismatch almost always means a wrong passphrase.
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	return plaintext, nil
}
