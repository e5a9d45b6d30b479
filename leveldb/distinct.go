// Package leveldb provides a lake.DistinctSet which keeps seen rows in a
// temporary leveldb database.
package leveldb

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sparkify/lake"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// DistinctSet is a lake.DistinctSet backed by leveldb.
type DistinctSet struct {
	db      *leveldb.DB
	dirname string
}

// NewDistinctSet opens a new set in a uniquely named directory under dir.
// The directory is removed on Close.
func NewDistinctSet(dir string) (*DistinctSet, error) {
	ds := &DistinctSet{
		dirname: filepath.Join(dir, "distinct-"+uuid.New().String()),
	}
	var err error
	ds.db, err = leveldb.OpenFile(ds.dirname, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at '%s'", ds.dirname)
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
func (ds *DistinctSet) Add(key []byte) (bool, error) {
	seen, err := ds.db.Has(key, &opt.ReadOptions{})
	if err != nil {
		return false, errors.Wrap(err, "checking key")
	}
	if seen {
		return false, nil
	}
	if err := ds.db.Put(key, nil, &opt.WriteOptions{}); err != nil {
		return false, errors.Wrap(err, "putting key")
	}
	return true, nil
}

// Close closes the database and removes its directory.
func (ds *DistinctSet) Close() error {
	err := ds.db.Close()
	if rerr := os.RemoveAll(ds.dirname); err == nil && rerr != nil {
		err = rerr
	}
	return errors.Wrap(err, "closing distinct set")
}
