package oidc

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// entryCipher seals session entries with AES-256-GCM.
// The nonce is prepended to the ciphertext.
type entryCipher struct {
	aead cipher.AEAD
}

func newEntryCipher(key []byte) (*entryCipher, error) {
	if len(key) < 32 {
		return nil, errors.New("session encryption key must be at least 32 bytes")
	}
	// first 32 bytes of the key for AES-256
	block, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &entryCipher{aead: aead}, nil
}

func (c *entryCipher) seal(entry *sessionEntry) ([]byte, error) {
	plaintext, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session entry: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *entryCipher) open(ciphertext []byte) (*sessionEntry, error) {
	nonceSize := c.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session entry: %w", err)
	}

	var entry sessionEntry
	if err := json.Unmarshal(plaintext, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session entry: %w", err)
	}
	return &entry, nil
}
