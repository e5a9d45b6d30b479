package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sparkify/lake"
)

// Storage is a lake.Storage rooted at a local directory.
type Storage struct {
	root string
}

// NewStorage returns Storage rooted at root. The directory need not exist
// yet.
func NewStorage(root string) *Storage {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Storage{root: filepath.Clean(root)}
}

// Root returns the root directory.
func (s *Storage) Root() string { return s.root }

func (s *Storage) path(key string) (string, error) {
	key = strings.Trim(key, "/")
	if key == "" {
		return "", errors.New("empty key")
	}
	p := filepath.Join(s.root, filepath.FromSlash(key))
	if rel, err := filepath.Rel(s.root, p); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("key '%s' escapes %s", key, s.root)
	}
	return p, nil
}

// Open implements lake.Storage. A pattern without glob metacharacters names
// a directory which is read recursively.
func (s *Storage) Open(ctx context.Context, pattern string) (lake.RawSource, error) {
	var (
		rs  *RawSource
		err error
	)
	if lake.HasGlob(pattern) {
		rs, err = NewGlobSource(s.root, strings.Trim(pattern, "/"))
	} else {
		var p string
		if p, err = s.path(pattern); err == nil {
			rs, err = NewRawSource(p)
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s in %s", pattern, s.root)
	}
	if rs.Len() == 0 {
		return nil, errors.Errorf("no input files match %s in %s", pattern, s.root)
	}
	return rs, nil
}

// Clear implements lake.Sink by removing the file or directory at prefix.
func (s *Storage) Clear(ctx context.Context, prefix string) error {
	p, err := s.path(prefix)
	if err != nil {
		return errors.Wrap(err, "clearing")
	}
	return errors.Wrapf(os.RemoveAll(p), "removing %s", p)
}

// Put implements lake.Sink, creating parent directories as needed.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return errors.Wrap(err, "putting")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return errors.Wrapf(err, "making directory for %s", p)
	}
	f, err := os.Create(p)
	if err != nil {
		return errors.Wrapf(err, "creating %s", p)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", p)
	}
	return errors.Wrapf(f.Close(), "closing %s", p)
}
