package mock

import (
	"context"
	"io"
	"io/ioutil"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Sink is an in-memory lake.Sink.
type Sink struct {
	mu      sync.Mutex
	objects map[string][]byte
	cleared []string
}

// NewSink returns an empty Sink.
func NewSink() *Sink {
	return &Sink{objects: make(map[string][]byte)}
}

// Clear implements lake.Sink.
func (s *Sink) Clear(ctx context.Context, prefix string) error {
	prefix = strings.Trim(prefix, "/")
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.objects {
		if k == prefix || strings.HasPrefix(k, prefix+"/") {
			delete(s.objects, k)
		}
	}
	s.cleared = append(s.cleared, prefix)
	return nil
}

// Put implements lake.Sink.
func (s *Sink) Put(ctx context.Context, key string, r io.Reader) error {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "reading %s", key)
	}
	s.mu.Lock()
	s.objects[strings.Trim(key, "/")] = data
	s.mu.Unlock()
	return nil
}

// Keys returns the stored keys in order.
func (s *Sink) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the contents stored at key.
func (s *Sink) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// Cleared returns the prefixes passed to Clear, in call order.
func (s *Sink) Cleared() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cleared...)
}
