package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/jusdesk/portal-sync/internal/persistence"
)

// Persister is the slice of the local cache the credential store needs.
type Persister interface {
	SaveJSON(ctx context.Context, key string, value any) error
	LoadJSON(ctx context.Context, key string, out any) error
	Delete(ctx context.Context, key string) error
}

// CredentialStore is the process-wide holder of the session token.
// Exactly one credential exists per active user; it is created on
// login, read on every outgoing request, and destroyed on logout or
// on an authorization failure. The persisted copy is sealed so a
// dumped cache does not leak the raw token.
type CredentialStore struct {
	mu    sync.RWMutex
	token string
	seal  []byte
	cache Persister
}

type sealedCredential struct {
	Nonce  string `json:"nonce"`
	Sealed string `json:"sealed"`
}

// NewCredentialStore builds the store and rehydrates any previously
// persisted credential. A credential that fails to unseal (changed
// secret, corrupted snapshot) is discarded silently.
func NewCredentialStore(ctx context.Context, secret string, cache Persister) *CredentialStore {
	key := sha256.Sum256([]byte(secret))
	s := &CredentialStore{seal: key[:], cache: cache}

	if cache != nil {
		var record sealedCredential
		if err := cache.LoadJSON(ctx, persistence.KeyCredential, &record); err == nil {
			if token, err := s.unseal(record); err == nil {
				s.token = token
			}
		}
	}
	return s
}

// Get returns the current token and whether one is present.
func (s *CredentialStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Set stores the token and persists a sealed copy.
func (s *CredentialStore) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if s.cache == nil || token == "" {
		return nil
	}
	record, err := s.sealToken(token)
	if err != nil {
		return err
	}
	return s.cache.SaveJSON(ctx, persistence.KeyCredential, record)
}

// Clear drops the token and removes the persisted copy. Idempotent.
func (s *CredentialStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	if s.cache != nil {
		_ = s.cache.Delete(ctx, persistence.KeyCredential)
	}
}

func (s *CredentialStore) sealToken(token string) (sealedCredential, error) {
	aead, err := chacha20poly1305.NewX(s.seal)
	if err != nil {
		return sealedCredential{}, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return sealedCredential{}, err
	}
	sealed := aead.Seal(nil, nonce, []byte(token), nil)
	return sealedCredential{
		Nonce:  base64.StdEncoding.EncodeToString(nonce),
		Sealed: base64.StdEncoding.EncodeToString(sealed),
	}, nil
}

func (s *CredentialStore) unseal(record sealedCredential) (string, error) {
	nonce, err := base64.StdEncoding.DecodeString(record.Nonce)
	if err != nil {
		return "", err
	}
	sealed, err := base64.StdEncoding.DecodeString(record.Sealed)
	if err != nil {
		return "", err
	}
	if len(nonce) != chacha20poly1305.NonceSizeX {
		return "", errors.New("invalid nonce length")
	}
	aead, err := chacha20poly1305.NewX(s.seal)
	if err != nil {
		return "", err
	}
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
