package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	kdfIterations = 100_000
	keyLen        = 32 // 256 bits
	nonceLen      = 12
)

// Fixed salt for key derivation. Not secret, just needs to be stable so the
// same operator secret always derives the same key.
var kdfSalt = []byte{
	0xbe, 0x11, 0xef, 0xaa, 0x72, 0x6b, 0x65, 0x74,
	0x73, 0x61, 0x6c, 0x74, 0x32, 0x30, 0x32, 0x36,
}

// Store wraps a Backend with authenticated encryption. Values are JSON
// serialized, AES-GCM encrypted, and stored as nonce||ciphertext. The derived
// key is computed once per Store and held in memory only.
type Store struct {
	backend Backend
	aead    cipher.AEAD

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// New derives the encryption key from secret and returns a ready Store.
func New(backend Backend, secret string) (*Store, error) {
	key := pbkdf2.Key([]byte(secret), kdfSalt, kdfIterations, keyLen, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	return &Store{
		backend:  backend,
		aead:     aead,
		keyLocks: make(map[string]*sync.Mutex),
	}, nil
}

// keyLock returns the per-key mutex, creating it on first use. Writers to the
// same key are serialized; writers to different keys are independent.
func (s *Store) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		s.keyLocks[key] = l
	}
	return l
}

// SetItem serializes, encrypts, and stores value under key.
func (s *Store) SetItem(key string, value any) error {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}
	blob := s.aead.Seal(nonce, nonce, plaintext, nil)

	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()
	return s.backend.Set(key, blob)
}

// GetItem decrypts and deserializes the value under key into out. Returns
// false when the key is absent or the blob fails to decrypt or parse;
// failures are logged, never propagated (fail closed).
func (s *Store) GetItem(key string, out any) bool {
	blob, ok, err := s.backend.Get(key)
	if err != nil {
		log.Printf("[ERROR] store get %q: %v", key, err)
		return false
	}
	if !ok {
		return false
	}
	if len(blob) < nonceLen {
		log.Printf("[ERROR] store get %q: blob too short", key)
		return false
	}

	plaintext, err := s.aead.Open(nil, blob[:nonceLen], blob[nonceLen:], nil)
	if err != nil {
		log.Printf("[ERROR] store decrypt %q: %v", key, err)
		return false
	}
	if err := json.Unmarshal(plaintext, out); err != nil {
		log.Printf("[ERROR] store parse %q: %v", key, err)
		return false
	}
	return true
}

// RemoveItem deletes the value under key.
func (s *Store) RemoveItem(key string) error {
	l := s.keyLock(key)
	l.Lock()
	defer l.Unlock()
	return s.backend.Remove(key)
}

// ListKeys returns all stored keys.
func (s *Store) ListKeys() ([]string, error) {
	return s.backend.ListKeys()
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
