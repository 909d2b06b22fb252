package wrap

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

var (
	encryptionMagic = []byte("WEN1")

	ErrEncryptionKey = errors.New("wrap: encryption key must be 16, 24, or 32 bytes")
	ErrDecryptFailed = errors.New("wrap: decrypt failed")
)

type encryptingStore struct {
	inner SlotStore
	aead  cipher.AEAD
}

func newEncryptingStore(inner SlotStore, key []byte) (SlotStore, error) {
	if len(key) == 0 {
		return inner, nil
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrEncryptionKey
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &encryptingStore{inner: inner, aead: aead}, nil
}

func (s *encryptingStore) Driver() Driver { return s.inner.Driver() }

func (s *encryptingStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	body, ok, err := s.inner.Load(ctx, key)
	if err != nil || !ok {
		return body, ok, err
	}
	plain, err := s.decrypt(body)
	if err != nil {
		return nil, false, err
	}
	return plain, true, nil
}

func (s *encryptingStore) Store(ctx context.Context, key string, value []byte) (bool, error) {
	enc, err := s.encrypt(value)
	if err != nil {
		return false, err
	}
	return s.inner.Store(ctx, key, enc)
}

func (s *encryptingStore) Forget(ctx context.Context, key string) error {
	return s.inner.Forget(ctx, key)
}

func (s *encryptingStore) Flush(ctx context.Context) error {
	return s.inner.Flush(ctx)
}

func (s *encryptingStore) encrypt(value []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	sealed := s.aead.Seal(nil, nonce, value, nil)
	out := make([]byte, 0, len(encryptionMagic)+len(nonce)+len(sealed))
	out = append(out, encryptionMagic...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

func (s *encryptingStore) decrypt(body []byte) ([]byte, error) {
	if len(body) < len(encryptionMagic)+s.aead.NonceSize() {
		return nil, ErrDecryptFailed
	}
	if !bytes.Equal(body[:len(encryptionMagic)], encryptionMagic) {
		return nil, ErrDecryptFailed
	}
	rest := body[len(encryptionMagic):]
	nonce := rest[:s.aead.NonceSize()]
	sealed := rest[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}
