package invoice

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const progressBucketName = "progress"

// Progress defines the interface for the durable checkpoint store
type Progress interface {
	// Load returns the persisted state, or an empty map on first run
	Load() (map[string]Entry, error)

	// Record durably persists the outcome for one invoice file before the
	// batch moves to the next item
	Record(file string, entry Entry) error

	// ClearFailed removes all failed entries so those files are picked up
	// again on the next run
	ClearFailed() error

	// Close closes the store
	Close() error
}

// BoltProgress implements the Progress interface using BoltDB. Every Record
// is a synced transaction, so a crash between items loses at most the
// in-flight item's result.
type BoltProgress struct {
	db *bbolt.DB
}

// NewBoltProgress opens (or creates) the checkpoint store at path
func NewBoltProgress(path string) (*BoltProgress, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening progress store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(progressBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating progress bucket: %w", err)
	}

	return &BoltProgress{db: db}, nil
}

// Load returns all persisted entries keyed by invoice filename
func (p *BoltProgress) Load() (map[string]Entry, error) {
	state := make(map[string]Entry)
	err := p.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(progressBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling progress entry %q: %w", k, err)
			}
			state[string(k)] = entry
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Record persists the outcome for one file. A file already marked done is
// never overwritten, so idempotent re-runs cannot demote completed work.
func (p *BoltProgress) Record(file string, entry Entry) error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(progressBucketName))
		if existing := bucket.Get([]byte(file)); existing != nil {
			var prev Entry
			if err := json.Unmarshal(existing, &prev); err == nil && prev.Status == StatusDone {
				return nil
			}
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshaling progress entry: %w", err)
		}
		return bucket.Put([]byte(file), data)
	})
}

// ClearFailed deletes every failed entry, returning those files to the
// pending set
func (p *BoltProgress) ClearFailed() error {
	return p.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(progressBucketName))
		var failed [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling progress entry %q: %w", k, err)
			}
			if entry.Status == StatusFailed {
				failed = append(failed, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range failed {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the underlying database
func (p *BoltProgress) Close() error {
	return p.db.Close()
}
