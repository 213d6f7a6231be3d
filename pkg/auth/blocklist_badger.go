package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const revokedKeyPrefix = "revoked:"

// BadgerBlocklist keeps revoked ids in BadgerDB, letting entry TTLs expire
// them.
type BadgerBlocklist struct {
	db *badger.DB
}

// OpenBadgerBlocklist opens a blocklist in dir. An empty dir keeps it in
// memory.
func OpenBadgerBlocklist(dir string) (*BadgerBlocklist, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts = opts.WithSyncWrites(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger blocklist: %w", err)
	}
	return &BadgerBlocklist{db: db}, nil
}

func (b *BadgerBlocklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(revokedKeyPrefix+jti), nil).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

func (b *BadgerBlocklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	revoked := false
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(revokedKeyPrefix + jti))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		revoked = true
		return nil
	})
	return revoked, err
}

func (b *BadgerBlocklist) Close() error {
	return b.db.Close()
}
