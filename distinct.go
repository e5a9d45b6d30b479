package lake

// DistinctSet remembers which row keys have been seen. Implementations backed
// by an embedded store let distinct run over more rows than fit in memory.
type DistinctSet interface {
	// Add records key and reports whether it was not already present. The
	// set must not retain key after Add returns.
	Add(key []byte) (bool, error)
	Close() error
}

// DistinctSetFactory opens a new, empty DistinctSet.
type DistinctSetFactory func() (DistinctSet, error)

// MapSet is an in-memory DistinctSet.
type MapSet map[string]struct{}

// NewMapSet is a DistinctSetFactory for MapSet.
func NewMapSet() (DistinctSet, error) {
	return make(MapSet), nil
}

// Add implements DistinctSet.
func (m MapSet) Add(key []byte) (bool, error) {
	if _, ok := m[string(key)]; ok {
		return false, nil
	}
	m[string(key)] = struct{}{}
	return true, nil
}

// Close implements DistinctSet.
func (m MapSet) Close() error { return nil }
