// Package file reads input from, and writes tables to, the local
// filesystem.
package file

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sparkify/lake"
)

// RawSource is a lake.RawSource over a fixed list of local files.
type RawSource struct {
	files   []string
	fileIdx *uint64
}

// NewRawSource gets a RawSource over the file at pathname, or over every
// non-hidden file beneath it if it is a directory.
func NewRawSource(pathname string) (*RawSource, error) {
	info, err := os.Stat(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "statting path")
	}
	if !info.IsDir() {
		return newRawSource([]string{pathname}), nil
	}
	var files []string
	err = filepath.WalkDir(pathname, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == pathname {
			return nil
		}
		if lake.IsHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", pathname)
	}
	return newRawSource(files), nil
}

// NewGlobSource gets a RawSource over the non-hidden regular files matching
// the glob pattern, which is relative to root.
func NewGlobSource(root, pattern string) (*RawSource, error) {
	matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
	if err != nil {
		return nil, errors.Wrapf(err, "globbing %s", pattern)
	}
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(root, m)
		if err != nil {
			return nil, errors.Wrapf(err, "relativizing %s", m)
		}
		if lake.IsHidden(filepath.ToSlash(rel)) {
			continue
		}
		info, err := os.Stat(m)
		if err != nil {
			return nil, errors.Wrapf(err, "statting %s", m)
		}
		if info.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	return newRawSource(files), nil
}

func newRawSource(files []string) *RawSource {
	sort.Strings(files)
	fileIdx := uint64(0)
	return &RawSource{
		files:   files,
		fileIdx: &fileIdx,
	}
}

// Len returns the number of files in the source.
func (s *RawSource) Len() int { return len(s.files) }

type namedFile struct {
	*os.File
}

// Name returns the full path of the file.
func (m *namedFile) Name() string {
	return m.File.Name()
}

// NextReader implements lake.RawSource.
func (s *RawSource) NextReader(ctx context.Context) (lake.NamedReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if int(idx) >= len(s.files) {
		return nil, io.EOF
	}
	file, err := os.Open(s.files[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.files[idx])
	}
	return &namedFile{file}, nil
}
