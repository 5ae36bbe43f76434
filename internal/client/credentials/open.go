package credentials

import (
	"context"
	"fmt"
)

// Store drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a Store backend.
type Options struct {
	Driver        string
	SQLiteDSN     string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	// Passphrase, when set, wraps the backend in a SealedStore.
	Passphrase string
}

// Open builds the Store described by opts. The returned close function
// releases the backend and is never nil.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	var (
		store   Store
		closeFn = func() error { return nil }
	)

	switch opts.Driver {
	case DriverMemory, "":
		store = NewMemoryStore()
	case DriverSQLite:
		s, db, err := OpenSQLite(ctx, opts.SQLiteDSN)
		if err != nil {
			return nil, closeFn, err
		}
		store, closeFn = s, db.Close
	case DriverRedis:
		s, err := DialRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.RedisPrefix)
		if err != nil {
			return nil, closeFn, err
		}
		store, closeFn = s, s.Close
	default:
		return nil, closeFn, fmt.Errorf("unknown credential store driver %q", opts.Driver)
	}

	if opts.Passphrase == "" {
		return store, closeFn, nil
	}

	sealed, err := NewSealedStore(ctx, store, []byte(opts.Passphrase))
	if err != nil {
		_ = closeFn()
		return nil, func() error { return nil }, err
	}
	return sealed, closeFn, nil
}
