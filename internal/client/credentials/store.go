package credentials

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// Store is a key/value persistence for credentials. Get returns (nil, nil)
// when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Batch is implemented by stores that can read or write several keys as a
// single unit. GetMany omits absent keys from the result.
type Batch interface {
	GetMany(ctx context.Context, keys ...string) (map[string][]byte, error)
	PutMany(ctx context.Context, values map[string][]byte) error
	DeleteMany(ctx context.Context, keys ...string) error
}

// Pair is the stored credential: both tokens set, or both empty.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Present reports whether the pair represents an authenticated session.
func (p Pair) Present() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

var pairKeys = []string{common.AccessTokenKey, common.RefreshTokenKey}

// Load reads both tokens. A store holding only one of them yields an empty
// Pair; Load never writes.
func Load(ctx context.Context, s Store) (Pair, error) {
	values, err := getMany(ctx, s, pairKeys...)
	if err != nil {
		return Pair{}, err
	}

	p := Pair{
		AccessToken:  string(values[common.AccessTokenKey]),
		RefreshToken: string(values[common.RefreshTokenKey]),
	}
	if !p.Present() {
		return Pair{}, nil
	}
	return p, nil
}

// Save writes both tokens of p.
func Save(ctx context.Context, s Store, p Pair) error {
	return putMany(ctx, s, map[string][]byte{
		common.AccessTokenKey:  []byte(p.AccessToken),
		common.RefreshTokenKey: []byte(p.RefreshToken),
	})
}

// Clear removes both tokens. Clearing an empty store is a no-op.
func Clear(ctx context.Context, s Store) error {
	if b, ok := s.(Batch); ok {
		return b.DeleteMany(ctx, pairKeys...)
	}
	// every key is attempted so one failure cannot strand the other half
	var errs []error
	for _, k := range pairKeys {
		if err := s.Delete(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func getMany(ctx context.Context, s Store, keys ...string) (map[string][]byte, error) {
	if b, ok := s.(Batch); ok {
		return b.GetMany(ctx, keys...)
	}
	result := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, err := s.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if v != nil {
			result[k] = v
		}
	}
	return result, nil
}

func putMany(ctx context.Context, s Store, values map[string][]byte) error {
	if b, ok := s.(Batch); ok {
		return b.PutMany(ctx, values)
	}
	for k, v := range values {
		if err := s.Put(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
