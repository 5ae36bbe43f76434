package credentials

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainStore hides MemoryStore's Batch methods so the per-key fallbacks run.
type plainStore struct {
	m      *MemoryStore
	putErr error
	delErr map[string]error
}

func (p *plainStore) Get(ctx context.Context, key string) ([]byte, error) { return p.m.Get(ctx, key) }
func (p *plainStore) Put(ctx context.Context, key string, value []byte) error {
	if p.putErr != nil {
		return p.putErr
	}
	return p.m.Put(ctx, key, value)
}
func (p *plainStore) Delete(ctx context.Context, key string) error {
	if err := p.delErr[key]; err != nil {
		return err
	}
	return p.m.Delete(ctx, key)
}

func TestLoad_EmptyStoreIsAnonymous(t *testing.T) {
	p, err := Load(context.Background(), NewMemoryStore())
	require.NoError(t, err)
	assert.False(t, p.Present())
	assert.Equal(t, Pair{}, p)
}

func TestSaveLoadClear(t *testing.T) {
	stores := map[string]Store{
		"batch":   NewMemoryStore(),
		"per-key": &plainStore{m: NewMemoryStore()},
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := Pair{AccessToken: "a1", RefreshToken: "r1"}

			require.NoError(t, Save(ctx, s, want))
			got, err := Load(ctx, s)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			next := Pair{AccessToken: "a2", RefreshToken: "r1"}
			require.NoError(t, Save(ctx, s, next))
			got, err = Load(ctx, s)
			require.NoError(t, err)
			assert.Equal(t, next, got)

			require.NoError(t, Clear(ctx, s))
			got, err = Load(ctx, s)
			require.NoError(t, err)
			assert.False(t, got.Present())

			// clearing again is a no-op
			require.NoError(t, Clear(ctx, s))
		})
	}
}

func TestLoad_HalfPairIsAnonymousAndNotMutated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, common.RefreshTokenKey, []byte("r-only")))

	p, err := Load(ctx, s)
	require.NoError(t, err)
	assert.False(t, p.Present())

	v, err := s.Get(ctx, common.RefreshTokenKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("r-only"), v, "readers never mutate the store")
}

func TestSave_PropagatesStoreError(t *testing.T) {
	boom := errors.New("disk full")
	s := &plainStore{m: NewMemoryStore(), putErr: boom}

	err := Save(context.Background(), s, Pair{AccessToken: "a", RefreshToken: "r"})
	require.ErrorIs(t, err, boom)
}

func TestClear_PerKeyAttemptsEveryKey(t *testing.T) {
	ctx := context.Background()
	locked := errors.New("access key locked")
	mem := NewMemoryStore()
	s := &plainStore{m: mem, delErr: map[string]error{common.AccessTokenKey: locked}}
	require.NoError(t, Save(ctx, s, Pair{AccessToken: "a", RefreshToken: "r"}))

	err := Clear(ctx, s)
	require.ErrorIs(t, err, locked)

	// the refresh half is gone even though the access delete failed first
	v, err := mem.Get(ctx, common.RefreshTokenKey)
	require.NoError(t, err)
	assert.Nil(t, v)

	p, err := Load(ctx, s)
	require.NoError(t, err)
	assert.False(t, p.Present())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	in := []byte("token")
	require.NoError(t, s.Put(ctx, "k", in))
	in[0] = 'X'

	out, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "token", string(out))

	out[0] = 'Y'
	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "token", string(again))
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, s.Put(ctx, "k", []byte("v")), context.Canceled)
	require.ErrorIs(t, s.Delete(ctx, "k"), context.Canceled)
}

func TestMemoryStore_ConcurrentReadersSeeWholePairs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, Save(ctx, s, Pair{AccessToken: "a0", RefreshToken: "r0"}))

	pairs := []Pair{
		{AccessToken: "a0", RefreshToken: "r0"},
		{AccessToken: "a1", RefreshToken: "r1"},
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = Save(ctx, s, pairs[i%2])
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				p, err := Load(ctx, s)
				if err != nil {
					t.Error(err)
					return
				}
				if p != pairs[0] && p != pairs[1] {
					t.Errorf("torn pair observed: %+v", p)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, Options{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	require.NoError(t, closeFn())

	s, closeFn, err = Open(ctx, Options{Driver: DriverSQLite, SQLiteDSN: ":memory:", Passphrase: "pw"})
	require.NoError(t, err)
	assert.IsType(t, &SealedStore{}, s)
	require.NoError(t, closeFn())

	_, closeFn, err = Open(ctx, Options{Driver: "etcd"})
	require.Error(t, err)
	require.NotNil(t, closeFn)
}
