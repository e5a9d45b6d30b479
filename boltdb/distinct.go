// Package boltdb provides a lake.DistinctSet which keeps seen rows in a
// temporary boltdb file, so that distinct can run over more rows than fit in
// memory.
package boltdb

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sparkify/lake"
	bolt "go.etcd.io/bbolt"
)

var seenBucket = []byte("seen")

// DistinctSet is a lake.DistinctSet backed by boltdb.
type DistinctSet struct {
	Db       *bolt.DB
	filename string
}

// NewDistinctSet creates a new set in a uniquely named file under dir. The
// file is removed on Close.
func NewDistinctSet(dir string) (*DistinctSet, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "making spill dir '%s'", dir)
	}
	ds := &DistinctSet{
		filename: filepath.Join(dir, "distinct-"+uuid.New().String()+".bolt"),
	}
	var err error
	ds.Db, err = bolt.Open(ds.filename, 0600, &bolt.Options{Timeout: 1 * time.Second, NoGrowSync: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", ds.filename)
	}
	ds.Db.NoSync = true
	err = ds.Db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(seenBucket)
		return err
	})
	if err != nil {
		ds.Close()
		return nil, errors.Wrap(err, "creating seen bucket")
	}
	return ds, nil
}

// Factory returns a lake.DistinctSetFactory which opens sets under dir.
func Factory(dir string) lake.DistinctSetFactory {
	return func() (lake.DistinctSet, error) {
		return NewDistinctSet(dir)
	}
}

// Add implements lake.DistinctSet.
func (ds *DistinctSet) Add(key []byte) (fresh bool, err error) {
	err = ds.Db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(seenBucket)
		if b.Get(key) != nil {
			return nil
		}
		fresh = true
		return b.Put(key, []byte{1})
	})
	return fresh, errors.Wrap(err, "adding key")
}

// Close closes and removes the underlying boltdb file.
func (ds *DistinctSet) Close() error {
	err := ds.Db.Close()
	if rerr := os.Remove(ds.filename); err == nil && rerr != nil {
		err = rerr
	}
	return errors.Wrap(err, "closing distinct set")
}
