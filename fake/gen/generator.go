// Package gen produces repeatable pseudorandom values in the distributions
// the fake data needs.
package gen

import (
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"hash"
	"math/rand"
	"time"
)

// Generator holds state for generating random data in certain
// distributions. It is not safe for concurrent use.
type Generator struct {
	r     *rand.Rand
	zs    map[int]*rand.Zipf
	times map[time.Time]time.Duration
	hsh   hash.Hash
}

// NewGenerator gets a new Generator.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		r:     rand.New(rand.NewSource(seed)),
		zs:    make(map[int]*rand.Zipf),
		times: make(map[time.Time]time.Duration),
		hsh:   sha1.New(),
	}
}

// Uint64 gets a zipfian random uint64 in [0, cardinality).
func (g *Generator) Uint64(cardinality int) uint64 {
	if cardinality <= 1 {
		return 0
	}
	z, ok := g.zs[cardinality]
	if !ok {
		// rand.Zipf generates values in [0, imax]
		imax := uint64(cardinality) - 1
		v := 0.05 * float64(imax)
		if v < 1.0 {
			v = 1.0
		}
		z = rand.NewZipf(g.r, 1.1, v, imax)
		g.zs[cardinality] = z
	}
	return z.Uint64()
}

// Intn gets a uniform random int in [0, n).
func (g *Generator) Intn(n int) int {
	return g.r.Intn(n)
}

// Float64 gets a uniform random float64 in [0, 1).
func (g *Generator) Float64() float64 {
	return g.r.Float64()
}

// Chance returns true with probability p.
func (g *Generator) Chance(p float64) bool {
	return g.r.Float64() < p
}

// Pick returns a uniformly chosen element of choices.
func (g *Generator) Pick(choices []string) string {
	return choices[g.r.Intn(len(choices))]
}

// ID returns an identifier of prefix followed by 16 upper case letters and
// digits which is a pure function of prefix and n.
func (g *Generator) ID(prefix string, n uint64) string {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	_, _ = g.hsh.Write([]byte(prefix))
	_, _ = g.hsh.Write(b)
	hashed := g.hsh.Sum(nil)
	g.hsh.Reset()
	return prefix + base32.StdEncoding.EncodeToString(hashed)[:16]
}

// Time returns a time increasing from the "from" time with a random delta.
func (g *Generator) Time(from time.Time, maxDelta time.Duration) time.Time {
	delta := g.times[from] + time.Duration(g.r.Uint64()%uint64(maxDelta))
	g.times[from] = delta
	return from.Add(delta)
}
