package lake

import (
	"context"
	"io"
)

// Source is the interface for getting decoded data one record at a time from
// a single input. Record returns io.EOF once the input is exhausted.
type Source interface {
	Record() (interface{}, error)
}

// Decoder turns the contents of one input file into a Source.
type Decoder func(r io.Reader) Source

// NamedReadCloser is an io.ReadCloser over one input file which knows the
// file's name.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
}

// RawSource yields the files of an input one at a time. NextReader returns
// io.EOF once every file has been handed out. Implementations must be safe
// for concurrent calls to NextReader.
type RawSource interface {
	NextReader(ctx context.Context) (NamedReadCloser, error)
}

// Sink stores output files under keys relative to its root.
type Sink interface {
	// Clear removes everything stored under prefix.
	Clear(ctx context.Context, prefix string) error
	// Put stores the contents of r at key, replacing anything there.
	Put(ctx context.Context, key string, r io.Reader) error
}

// Storage is one root location, such as a local directory or an S3 bucket
// prefix, which can be both read from and written to.
type Storage interface {
	Sink
	// Open returns a RawSource over the files matched by pattern, which is
	// either a directory (read recursively) or a glob relative to the root.
	Open(ctx context.Context, pattern string) (RawSource, error)
}
