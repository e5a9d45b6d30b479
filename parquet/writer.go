// Package parquet writes lake frames as Hive-style partitioned Parquet
// tables.
package parquet

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sparkify/lake"
	"github.com/xitongsys/parquet-go-source/local"
	pq "github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"golang.org/x/sync/errgroup"
)

// DefaultPartition is the directory value used for null and empty partition
// values.
const DefaultPartition = "__HIVE_DEFAULT_PARTITION__"

// SuccessFile is written at the root of a table once all of its files are in
// place.
const SuccessFile = "_SUCCESS"

// Compression is a Parquet compression codec.
type Compression string

// Supported codecs.
const (
	Snappy Compression = "snappy"
	Gzip   Compression = "gzip"
	None   Compression = "none"
)

// ParseCompression parses a codec name. "uncompressed" is accepted for None.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(s)); c {
	case Snappy, Gzip, None:
		return c, nil
	case "uncompressed", "":
		return None, nil
	default:
		return "", errors.Errorf("unknown compression '%s'", s)
	}
}

func (c Compression) codec() pq.CompressionCodec {
	switch c {
	case Gzip:
		return pq.CompressionCodec_GZIP
	case None:
		return pq.CompressionCodec_UNCOMPRESSED
	default:
		return pq.CompressionCodec_SNAPPY
	}
}

func (c Compression) ext() string {
	switch c {
	case Gzip:
		return ".gz"
	case None:
		return ""
	default:
		return ".snappy"
	}
}

// Writer is a lake.TableWriter which writes Parquet. Each engine partition
// is written as one file per output partition directory it has rows for.
type Writer struct {
	compression Compression
	tempDir     string
	concurrency int
	np          int64
	log         lake.Logger
}

// WriterOption is a functional option for NewWriter.
type WriterOption func(w *Writer)

// OptWriterCompression sets the compression codec.
func OptWriterCompression(c Compression) WriterOption {
	return func(w *Writer) {
		w.compression = c
	}
}

// OptWriterTempDir sets where files are staged before they are put into the
// sink.
func OptWriterTempDir(dir string) WriterOption {
	return func(w *Writer) {
		w.tempDir = dir
	}
}

// OptWriterConcurrency sets how many files of a table are written at once.
func OptWriterConcurrency(n int) WriterOption {
	return func(w *Writer) {
		w.concurrency = n
	}
}

// OptWriterLogger sets the logger.
func OptWriterLogger(l lake.Logger) WriterOption {
	return func(w *Writer) {
		w.log = l
	}
}

// NewWriter returns a Writer with the options applied.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{
		compression: Snappy,
		concurrency: 1,
		np:          4,
		log:         lake.NopLogger{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.concurrency < 1 {
		w.concurrency = 1
	}
	return w
}

type fileJob struct {
	dir  string
	part int
	rows []lake.Row
}

// WriteTable implements lake.TableWriter. Everything under table is removed
// first. Partition columns become directories and are not stored in the
// files. A table without partition columns always gets at least one file so
// that its schema can be read back.
func (w *Writer) WriteTable(ctx context.Context, sink lake.Sink, table string, f *lake.Frame, partitionBy []string) error {
	table = strings.Trim(table, "/")
	schema := f.Schema()
	partIdx := make([]int, len(partitionBy))
	isPart := make(map[int]bool, len(partitionBy))
	for i, name := range partitionBy {
		idx, err := schema.Lookup(name)
		if err != nil {
			return errors.Wrap(err, "binding partition column")
		}
		partIdx[i] = idx
		isPart[idx] = true
	}
	var dataIdx []int
	var dataCols lake.Schema
	for i, col := range schema {
		if !isPart[i] {
			dataIdx = append(dataIdx, i)
			dataCols = append(dataCols, col)
		}
	}
	if len(dataCols) == 0 {
		return errors.New("every column is a partition column")
	}
	md, err := Metadata(dataCols)
	if err != nil {
		return errors.Wrap(err, "building parquet schema")
	}

	var jobs []fileJob
	for p, rows := range f.Partitions() {
		byDir := make(map[string]int)
		for _, row := range rows {
			dir := partitionDir(schema, partIdx, row)
			j, ok := byDir[dir]
			if !ok {
				j = len(jobs)
				byDir[dir] = j
				jobs = append(jobs, fileJob{dir: dir, part: p})
			}
			jobs[j].rows = append(jobs[j].rows, row)
		}
	}
	if len(jobs) == 0 && len(partitionBy) == 0 {
		jobs = append(jobs, fileJob{})
	}

	if err := sink.Clear(ctx, table); err != nil {
		return errors.Wrapf(err, "clearing %s", table)
	}
	writeID := uuid.New().String()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			name := fmt.Sprintf("part-%05d-%s%s.parquet", job.part, writeID, w.compression.ext())
			key := path.Join(table, job.dir, name)
			return errors.Wrapf(w.writeFile(gctx, sink, key, md, dataIdx, job.rows), "writing %s", key)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	w.log.Debugf("wrote %d files under %s", len(jobs), table)
	return errors.Wrap(sink.Put(ctx, path.Join(table, SuccessFile), strings.NewReader("")), "writing success marker")
}

func (w *Writer) writeFile(ctx context.Context, sink lake.Sink, key string, md []string, dataIdx []int, rows []lake.Row) error {
	tmp, err := ioutil.TempFile(w.tempDir, "lake-*.parquet")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpName)

	fw, err := local.NewLocalFileWriter(tmpName)
	if err != nil {
		return errors.Wrap(err, "opening local file writer")
	}
	pw, err := writer.NewCSVWriter(md, fw, w.np)
	if err != nil {
		fw.Close()
		return errors.Wrap(err, "creating parquet writer")
	}
	pw.CompressionType = w.compression.codec()
	for _, row := range rows {
		// the writer buffers rec until its row group is flushed
		rec := make([]interface{}, len(dataIdx))
		for i, idx := range dataIdx {
			rec[i] = row[idx]
		}
		if err := pw.Write(rec); err != nil {
			fw.Close()
			return errors.Wrap(err, "writing row")
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return errors.Wrap(err, "finishing parquet file")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, "closing local file")
	}

	staged, err := os.Open(tmpName)
	if err != nil {
		return errors.Wrap(err, "reopening staged file")
	}
	defer staged.Close()
	if info, err := staged.Stat(); err == nil {
		w.log.Debugf("putting %s (%d rows, %v)", key, len(rows), lake.Bytes(info.Size()))
	}
	return sink.Put(ctx, key, staged)
}

// Metadata returns the parquet-go schema tags for cols. Every column is
// OPTIONAL.
func Metadata(cols lake.Schema) ([]string, error) {
	md := make([]string, len(cols))
	for i, col := range cols {
		var typ string
		switch col.Type {
		case lake.String:
			typ = "type=BYTE_ARRAY, convertedtype=UTF8"
		case lake.Int64:
			typ = "type=INT64"
		case lake.Int32:
			typ = "type=INT32"
		case lake.Double:
			typ = "type=DOUBLE"
		case lake.Bool:
			typ = "type=BOOLEAN"
		default:
			return nil, errors.Errorf("column %s has unsupported type %v", col.Name, col.Type)
		}
		md[i] = fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", col.Name, typ)
	}
	return md, nil
}

// partitionDir renders the Hive partition directory of row, such as
// "year=2018/month=11".
func partitionDir(schema lake.Schema, partIdx []int, row lake.Row) string {
	if len(partIdx) == 0 {
		return ""
	}
	elems := make([]string, len(partIdx))
	for i, idx := range partIdx {
		elems[i] = EscapePathName(schema[idx].Name) + "=" + PartitionValue(row[idx])
	}
	return strings.Join(elems, "/")
}

// PartitionValue renders a value as an escaped partition directory value.
func PartitionValue(val interface{}) string {
	var s string
	switch vt := val.(type) {
	case nil:
		return DefaultPartition
	case string:
		s = vt
	case int64:
		s = strconv.FormatInt(vt, 10)
	case int32:
		s = strconv.FormatInt(int64(vt), 10)
	case float64:
		s = strconv.FormatFloat(vt, 'f', -1, 64)
		if !strings.ContainsAny(s, ".NI") {
			s += ".0"
		}
	default:
		s = fmt.Sprint(vt)
	}
	if s == "" {
		return DefaultPartition
	}
	return EscapePathName(s)
}

// EscapePathName percent-encodes the characters Hive does not allow in
// partition path elements.
func EscapePathName(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			fmt.Fprintf(&sb, "%%%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7F {
		return true
	}
	switch c {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}
