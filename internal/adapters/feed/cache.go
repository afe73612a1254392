package feed

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	cacheBucket  = []byte("feed")
	payloadKey   = []byte("payload")
	fetchedAtKey = []byte("fetched_at")
)

// Cache stores the last feed payload that decoded successfully.
type Cache struct {
	db *bbolt.DB
}

// OpenCache opens or creates the cache database at path.
func OpenCache(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open feed cache: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create feed cache bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

// Put replaces the cached payload.
func (c *Cache) Put(payload []byte, fetchedAt time.Time) error {
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(fetchedAt.Unix()))
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(cacheBucket)
		if err := b.Put(payloadKey, payload); err != nil {
			return err
		}
		return b.Put(fetchedAtKey, ts)
	})
}

// Get returns a copy of the cached payload. ok is false when nothing has
// been cached yet.
func (c *Cache) Get() (payload []byte, fetchedAt time.Time, ok bool, err error) {
	err = c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(cacheBucket)
		v := b.Get(payloadKey)
		if v == nil {
			return nil
		}
		// bbolt values are only valid inside the transaction.
		payload = append([]byte(nil), v...)
		if ts := b.Get(fetchedAtKey); len(ts) == 8 {
			fetchedAt = time.Unix(int64(binary.BigEndian.Uint64(ts)), 0)
		}
		ok = true
		return nil
	})
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("read feed cache: %w", err)
	}
	return payload, fetchedAt, ok, nil
}

// Close releases the cache file.
func (c *Cache) Close() error {
	return c.db.Close()
}
