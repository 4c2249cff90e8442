package vfscache

import (
	"encoding/json"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var dirtyBucket = []byte("dirty")

// DirtyIndex persists, per mount point, the set of entry names with
// an unflushed write-back buffer, so a restart after a crash between
// "stream closed" and "sync flushed" can report what was lost instead
// of silently forgetting it — the durability rclone's
// storage_persistent.go gives chunk metadata via a local DB,
// generalized here from "which chunks are cached" to "which entries
// are dirty".
type DirtyIndex struct {
	db *bolt.DB
}

// OpenDirtyIndex opens (creating if absent) a bbolt database at path.
func OpenDirtyIndex(path string) (*DirtyIndex, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "vfscache: open dirty index %q", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(dirtyBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "vfscache: init dirty index bucket")
	}
	return &DirtyIndex{db: db}, nil
}

// Close closes the underlying database.
func (x *DirtyIndex) Close() error { return x.db.Close() }

// Record persists mountPoint's current dirty-name set, replacing any
// prior record.
func (x *DirtyIndex) Record(mountPoint string, names []string) error {
	payload, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return x.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(dirtyBucket)
		if len(names) == 0 {
			return b.Delete([]byte(mountPoint))
		}
		return b.Put([]byte(mountPoint), payload)
	})
}

// Lookup returns the dirty-name set last recorded for mountPoint.
func (x *DirtyIndex) Lookup(mountPoint string) ([]string, error) {
	var names []string
	err := x.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(dirtyBucket)
		v := b.Get([]byte(mountPoint))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &names)
	})
	return names, err
}
