package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/recipefinder/backend/internal/domain"
	"github.com/recipefinder/backend/internal/logging"
)

// entry is the stored envelope around a cached value. Writes replace the
// whole envelope; an entry is valid iff now < ExpiresAt.
type entry struct {
	Value     []byte    `json:"value"`
	StoredAt  time.Time `json:"storedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// BoltStore is a durable cache backed by a bbolt database. Each cache
// namespace maps to a bucket, so entries survive process restarts and
// concurrent readers never observe a partially written value.
type BoltStore struct {
	db   *bolt.DB
	done chan struct{}

	// now is replaceable for expiry tests
	now func() time.Time
}

// NamespaceStats describes one cache tier for the stats endpoint.
type NamespaceStats struct {
	Entries     int       `json:"entries"`
	OldestEntry time.Time `json:"oldestEntry"`
	NewestEntry time.Time `json:"newestEntry"`
}

// NewBoltStore opens (creating if necessary) the database at path and
// starts the expiry sweeper. A sweepInterval of zero disables sweeping;
// Get filters expired entries either way.
func NewBoltStore(path string, sweepInterval time.Duration) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, ns := range []string{
			domain.NamespaceIngredientSearch,
			domain.NamespaceRecipeSearch,
			domain.NamespaceRecipeDetail,
		} {
			if _, err := tx.CreateBucketIfNotExists([]byte(ns)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache buckets: %w", err)
	}

	store := &BoltStore{
		db:   db,
		done: make(chan struct{}),
		now:  time.Now,
	}

	if sweepInterval > 0 {
		go store.sweep(sweepInterval)
	}

	return store, nil
}

// Get returns the cached value for (namespace, key), or ErrCacheMiss if
// the entry is absent or expired. Expired entries are left for the
// sweeper rather than deleted inside the read transaction.
func (s *BoltStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return domain.ErrCacheMiss
		}

		raw := bucket.Get([]byte(key))
		if raw == nil {
			return domain.ErrCacheMiss
		}

		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			// Undecodable entries are treated as absent
			return domain.ErrCacheMiss
		}

		if !s.now().Before(e.ExpiresAt) {
			return domain.ErrCacheMiss
		}

		// Copy out: bbolt memory is only valid inside the transaction
		value = make([]byte, len(e.Value))
		copy(value, e.Value)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Put overwrites any existing entry for (namespace, key) with the given
// value and TTL.
func (s *BoltStore) Put(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := s.now()
	raw, err := json.Marshal(entry{
		Value:     value,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), raw)
	})
}

// Delete removes the entry for (namespace, key). Deleting an absent key
// is not an error.
func (s *BoltStore) Delete(ctx context.Context, namespace, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(namespace))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// EvictExpired removes all entries past expiry and returns how many were
// deleted. Not required for correctness (Get filters expired entries) but
// bounds storage growth.
func (s *BoltStore) EvictExpired() (int, error) {
	now := s.now()
	removed := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.ForEach(func(_ []byte, bucket *bolt.Bucket) error {
			cursor := bucket.Cursor()
			for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
				var e entry
				if err := json.Unmarshal(v, &e); err != nil {
					// Drop entries we can no longer decode
					if err := cursor.Delete(); err != nil {
						return err
					}
					removed++
					continue
				}
				if !now.Before(e.ExpiresAt) {
					if err := cursor.Delete(); err != nil {
						return err
					}
					removed++
				}
			}
			return nil
		})
	})
	if err != nil {
		return removed, err
	}

	return removed, nil
}

// Stats returns per-namespace entry counts and storage timestamps.
func (s *BoltStore) Stats() (map[string]NamespaceStats, error) {
	stats := make(map[string]NamespaceStats)

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, bucket *bolt.Bucket) error {
			ns := NamespaceStats{}
			err := bucket.ForEach(func(_, v []byte) error {
				var e entry
				if err := json.Unmarshal(v, &e); err != nil {
					return nil
				}
				ns.Entries++
				if ns.OldestEntry.IsZero() || e.StoredAt.Before(ns.OldestEntry) {
					ns.OldestEntry = e.StoredAt
				}
				if e.StoredAt.After(ns.NewestEntry) {
					ns.NewestEntry = e.StoredAt
				}
				return nil
			})
			if err != nil {
				return err
			}
			stats[string(name)] = ns
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Close stops the sweeper and closes the database.
func (s *BoltStore) Close() error {
	close(s.done)
	return s.db.Close()
}

// sweep runs EvictExpired on a ticker until Close.
func (s *BoltStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			removed, err := s.EvictExpired()
			if err != nil {
				logging.L().Warn("cache sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logging.L().Debug("cache sweep removed expired entries", "removed", removed)
			}
		}
	}
}
