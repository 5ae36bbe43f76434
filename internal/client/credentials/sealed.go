package credentials

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/cryptox"
)

// saltKey holds the per-store argon2 salt next to the sealed values.
const saltKey = "seal_salt"

// SealedStore encrypts every value before handing it to the inner store.
// The salt is stored in the clear under a reserved key.
type SealedStore struct {
	inner Store
	key   []byte
}

// NewSealedStore derives the sealing key from passphrase and the salt kept in
// inner, creating the salt on first use.
func NewSealedStore(ctx context.Context, inner Store, passphrase []byte) (*SealedStore, error) {
	salt, err := inner.Get(ctx, saltKey)
	if err != nil {
		return nil, fmt.Errorf("read seal salt: %w", err)
	}
	if salt == nil {
		salt = common.GenerateRandByteArray(cryptox.SaltSize)
		if err := inner.Put(ctx, saltKey, salt); err != nil {
			return nil, fmt.Errorf("write seal salt: %w", err)
		}
	}
	return &SealedStore{inner: inner, key: cryptox.DeriveKey(passphrase, salt)}, nil
}

func (s *SealedStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.inner.Get(ctx, key)
	if err != nil || v == nil {
		return v, err
	}
	return s.open(key, v)
}

func (s *SealedStore) Put(ctx context.Context, key string, value []byte) error {
	sealed, err := cryptox.Seal(s.key, value)
	if err != nil {
		return fmt.Errorf("seal credential[%s]: %w", key, err)
	}
	return s.inner.Put(ctx, key, sealed)
}

func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *SealedStore) GetMany(ctx context.Context, keys ...string) (map[string][]byte, error) {
	values, err := getMany(ctx, s.inner, keys...)
	if err != nil {
		return nil, err
	}
	for k, v := range values {
		plain, err := s.open(k, v)
		if err != nil {
			return nil, err
		}
		values[k] = plain
	}
	return values, nil
}

func (s *SealedStore) PutMany(ctx context.Context, values map[string][]byte) error {
	sealed := make(map[string][]byte, len(values))
	for k, v := range values {
		b, err := cryptox.Seal(s.key, v)
		if err != nil {
			return fmt.Errorf("seal credential[%s]: %w", k, err)
		}
		sealed[k] = b
	}
	return putMany(ctx, s.inner, sealed)
}

func (s *SealedStore) DeleteMany(ctx context.Context, keys ...string) error {
	if b, ok := s.inner.(Batch); ok {
		return b.DeleteMany(ctx, keys...)
	}
	for _, k := range keys {
		if err := s.inner.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (s *SealedStore) open(key string, sealed []byte) ([]byte, error) {
	plain, err := cryptox.Open(s.key, sealed)
	if err != nil {
		return nil, fmt.Errorf("open credential[%s]: %w", key, err)
	}
	return plain, nil
}
