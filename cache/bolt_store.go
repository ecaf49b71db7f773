package cache

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

const (
	pageBucket = "pages"

	// Stored value layout: 8 bytes big-endian unix stamp, then the body.
	stampBytes = 8
)

// BoltStore is a Store backed by a bbolt database file.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBolt initializes a bbolt-backed Store at path, creating parent
// directories as needed.
func OpenBolt(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "creating cache directory")
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening bbolt db")
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(pageBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "initializing bucket")
	}

	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *BoltStore) Lookup(url string) (time.Time, bool) {
	var modified time.Time
	var ok bool

	b.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket([]byte(pageBucket)).Get([]byte(url))
		if len(value) < stampBytes {
			return nil
		}
		unix := int64(binary.BigEndian.Uint64(value[:stampBytes]))
		if unix <= 0 {
			return nil
		}
		modified = time.Unix(unix, 0).UTC()
		ok = true
		return nil
	})

	return modified, ok
}

func (b *BoltStore) Load(url string) ([]byte, bool) {
	var body []byte
	var ok bool

	b.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket([]byte(pageBucket)).Get([]byte(url))
		if len(value) < stampBytes {
			return nil
		}
		body = make([]byte, len(value)-stampBytes)
		copy(body, value[stampBytes:])
		ok = true
		return nil
	})

	return body, ok
}

func (b *BoltStore) Put(url string, body []byte, modified time.Time) error {
	value := make([]byte, stampBytes+len(body))
	binary.BigEndian.PutUint64(value, uint64(modified.Unix()))
	copy(value[stampBytes:], body)

	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(pageBucket)).Put([]byte(url), value)
	})
	return errors.Wrap(err, "storing page")
}
