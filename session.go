package lake

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// TableWriter persists a Frame as a table at path within sink, with one
// output directory level per partitionBy column.
type TableWriter interface {
	WriteTable(ctx context.Context, sink Sink, path string, f *Frame, partitionBy []string) error
}

// WriteSpec says where and how a table is written.
type WriteSpec struct {
	Path        string
	PartitionBy []string
}

// Session carries what the pipelines share: logging, stats, the time zone
// used to render datetimes, read concurrency, the distinct-set backend and
// the table writer. A Session holds no per-run state and may be shared.
type Session struct {
	log         Logger
	stats       Statter
	loc         *time.Location
	concurrency int
	distinct    DistinctSetFactory
	preview     int
	writer      TableWriter
}

// SessionOption is a functional option for NewSession.
type SessionOption func(s *Session)

// OptSessionLogger sets the Logger.
func OptSessionLogger(l Logger) SessionOption {
	return func(s *Session) {
		s.log = l
	}
}

// OptSessionStatter sets the Statter.
func OptSessionStatter(st Statter) SessionOption {
	return func(s *Session) {
		s.stats = st
	}
}

// OptSessionLocation sets the time zone in which epoch times are rendered.
func OptSessionLocation(loc *time.Location) SessionOption {
	return func(s *Session) {
		s.loc = loc
	}
}

// OptSessionConcurrency sets how many input files are read at once.
func OptSessionConcurrency(n int) SessionOption {
	return func(s *Session) {
		s.concurrency = n
	}
}

// OptSessionDistinct sets the factory of the sets used by Distinct.
func OptSessionDistinct(f DistinctSetFactory) SessionOption {
	return func(s *Session) {
		s.distinct = f
	}
}

// OptSessionPreview makes Write log the first n rows of every table at debug
// level.
func OptSessionPreview(n int) SessionOption {
	return func(s *Session) {
		s.preview = n
	}
}

// OptSessionWriter sets the TableWriter used by Write.
func OptSessionWriter(w TableWriter) SessionOption {
	return func(s *Session) {
		s.writer = w
	}
}

// NewSession returns a Session with the options applied. By default it logs
// nothing, reads one file at a time in the local time zone and keeps
// distinct sets in memory.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		log:         NopLogger{},
		stats:       NopStatter{},
		loc:         time.Local,
		concurrency: 1,
		distinct:    NewMapSet,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}
	return s
}

// Logger returns the session's logger.
func (s *Session) Logger() Logger { return s.log }

// Stats returns the session's statter.
func (s *Session) Stats() Statter { return s.stats }

// Location returns the session's time zone.
func (s *Session) Location() *time.Location { return s.loc }

type fileRecords struct {
	name string
	recs []map[string]interface{}
}

// Read drains rs, decoding each file with decode, and returns a frame with
// one partition per file, in file name order. Every record must be an
// object. The schema is the sorted union of all keys seen, each typed to
// hold every value seen under it; keys only ever seen with null values are
// strings. Any read or decode failure aborts the whole read.
func (s *Session) Read(ctx context.Context, rs RawSource, decode Decoder) (*Frame, error) {
	var (
		mu    sync.Mutex
		files []fileRecords
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				r, err := rs.NextReader(gctx)
				if err == io.EOF {
					return nil
				} else if err != nil {
					return errors.Wrap(err, "getting next reader")
				}
				recs, err := decodeAll(r, decode)
				if cerr := r.Close(); err == nil && cerr != nil {
					err = errors.Wrapf(cerr, "closing %s", r.Name())
				}
				if err != nil {
					return err
				}
				s.log.Debugf("read %d records from %s", len(recs), r.Name())
				s.stats.Count("records.read", int64(len(recs)), 1)
				s.stats.Count("files.read", 1, 1)
				mu.Lock()
				files = append(files, fileRecords{name: r.Name(), recs: recs})
				mu.Unlock()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })

	types := make(map[string]Type)
	for _, file := range files {
		for _, rec := range file.recs {
			for k, v := range rec {
				types[k] = mergeTypes(types[k], typeOf(v))
			}
		}
	}
	schema := make(Schema, 0, len(types))
	for name, typ := range types {
		if typ == Unknown {
			typ = String
		}
		schema = append(schema, Column{Name: name, Type: typ})
	}
	sort.Slice(schema, func(i, j int) bool { return schema[i].Name < schema[j].Name })

	parts := make([][]Row, len(files))
	for p, file := range files {
		rows := make([]Row, len(file.recs))
		for j, rec := range file.recs {
			row := make(Row, len(schema))
			for k, col := range schema {
				val, err := Coerce(rec[col.Name], col.Type)
				if err != nil {
					return nil, errors.Wrapf(err, "record %d of %s, field %s", j, file.name, col.Name)
				}
				row[k] = val
			}
			rows[j] = row
		}
		parts[p] = rows
	}
	f := NewFrame(schema, parts...)
	s.log.Printf("read %d records from %d files", f.Count(), len(files))
	return f, nil
}

func decodeAll(r NamedReadCloser, decode Decoder) ([]map[string]interface{}, error) {
	src := decode(r)
	var recs []map[string]interface{}
	for i := 0; ; i++ {
		rec, err := src.Record()
		if err == io.EOF {
			return recs, nil
		} else if err != nil {
			return nil, errors.Wrapf(err, "decoding record %d of %s", i, r.Name())
		}
		m, ok := rec.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("record %d of %s is %T, not an object", i, r.Name(), rec)
		}
		recs = append(recs, m)
	}
}

// Distinct removes duplicate rows from f using a fresh set from the
// session's distinct-set factory.
func (s *Session) Distinct(f *Frame) (_ *Frame, err error) {
	set, err := s.distinct()
	if err != nil {
		return nil, errors.Wrap(err, "opening distinct set")
	}
	defer func() {
		if cerr := set.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing distinct set")
		}
	}()
	d, err := f.Distinct(set)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Write persists f as the named table, replacing anything at spec.Path.
func (s *Session) Write(ctx context.Context, sink Sink, table string, f *Frame, spec WriteSpec) error {
	if s.writer == nil {
		return errors.New("session has no table writer")
	}
	s.logPreview(table, f)
	start := time.Now()
	if err := s.writer.WriteTable(ctx, sink, spec.Path, f, spec.PartitionBy); err != nil {
		return errors.Wrapf(err, "writing %s table", table)
	}
	s.stats.Count("rows."+table, int64(f.Count()), 1)
	s.stats.Timing("write."+table, time.Since(start), 1)
	s.log.Printf("wrote %d rows of %s to %s in %v", f.Count(), table, spec.Path, time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *Session) logPreview(table string, f *Frame) {
	if s.preview <= 0 {
		return
	}
	cols := make([]string, len(f.Schema()))
	for i, c := range f.Schema() {
		cols[i] = c.Name + " " + c.Type.String()
	}
	s.log.Debugf("%s (%s)", table, strings.Join(cols, ", "))
	for _, row := range f.Head(s.preview) {
		s.log.Debugf("%s %s", table, formatRow(row))
	}
}

func formatRow(row Row) string {
	vals := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			vals[i] = "null"
			continue
		}
		vals[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(vals, ", ") + "]"
}
