package sequence

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"pantry-intake/internal/shared/telemetry"
)

const badgerMaxAttempts = 8

// Badger keeps the counter in an embedded badger store for single-node deployments.
type Badger struct {
	mu    sync.Mutex
	db    *badger.DB
	key   []byte
	seed  int64
	width int
}

// OpenBadger opens (or creates) the store in dir. An empty dir keeps data in memory.
func OpenBadger(dir string, seed int64, width int) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db, key: []byte("seq/" + DefaultName), seed: seed, width: width}, nil
}

// Close releases the store.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Next increments the counter in a transaction, retrying on write conflicts.
func (b *Badger) Next(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for attempt := 1; attempt <= badgerMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var next int64
		err := b.db.Update(func(txn *badger.Txn) error {
			last := b.seed
			item, err := txn.Get(b.key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				if err := item.Value(func(val []byte) error {
					if len(val) != 8 {
						return fmt.Errorf("corrupt counter value (%d bytes)", len(val))
					}
					last = int64(binary.BigEndian.Uint64(val))
					return nil
				}); err != nil {
					return err
				}
			}
			next = last + 1
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, uint64(next))
			return txn.Set(b.key, buf)
		})
		if errors.Is(err, badger.ErrConflict) {
			telemetry.Debug("sequence.badger.conflict", map[string]any{"attempt": attempt})
			continue
		}
		if err != nil {
			return "", fmt.Errorf("sequence next: %w", err)
		}
		return Format(next, b.width), nil
	}
	return "", fmt.Errorf("sequence next: %w after %d attempts", badger.ErrConflict, badgerMaxAttempts)
}

var _ Sequence = (*Badger)(nil)
