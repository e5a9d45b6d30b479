package lake_test

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/sparkify/lake"
	"github.com/sparkify/lake/file"
	"github.com/sparkify/lake/json"
	"github.com/sparkify/lake/mock"
	"github.com/sparkify/lake/test"
)

func mustFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := test.MustTempDir(t, "lakesession")
	for name, contents := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		test.ErrNil(t, os.MkdirAll(filepath.Dir(p), 0755), "making dirs")
		test.ErrNil(t, ioutil.WriteFile(p, []byte(contents), 0644), "writing "+name)
	}
	return dir
}

func TestSessionRead(t *testing.T) {
	dir := mustFiles(t, map[string]string{
		"b.json":         "{\"a\": 1, \"b\": \"x\"}\n{\"a\": 2.5, \"c\": null}\n",
		"sub/a.json":     `{"a": 3, "d": true}`,
		"_SUCCESS":       "",
		".hidden/x.json": `{"z": 1}`,
	})
	rs, err := file.NewRawSource(dir)
	test.ErrNil(t, err, "getting raw source")
	stats := &mock.RecordingStatter{}
	sess := lake.NewSession(lake.OptSessionConcurrency(3), lake.OptSessionStatter(stats))

	f, err := sess.Read(context.Background(), rs, json.Decoder)
	test.ErrNil(t, err, "reading")
	test.MustBe(t, lake.Schema{
		{Name: "a", Type: lake.Double},
		{Name: "b", Type: lake.String},
		{Name: "c", Type: lake.String},
		{Name: "d", Type: lake.Bool},
	}, f.Schema())
	test.MustBe(t, [][]lake.Row{
		{{1.0, "x", nil, nil}, {2.5, nil, nil, nil}},
		{{3.0, nil, nil, true}},
	}, f.Partitions(), "one partition per file in name order")
	test.MustBe(t, map[string]int64{"records.read": 3, "files.read": 2}, stats.Counts())
}

func TestSessionReadErrors(t *testing.T) {
	for name, contents := range map[string]string{
		"bad json":   `{"a": 1`,
		"not object": `[1, 2]`,
		"mixed":      "{\"a\": 1}\n\"a\"\n",
	} {
		dir := mustFiles(t, map[string]string{"in.json": contents, "ok.json": `{"a": 2}`})
		rs, err := file.NewRawSource(dir)
		test.ErrNil(t, err, "getting raw source")
		if _, err := lake.NewSession(lake.OptSessionConcurrency(2)).Read(context.Background(), rs, json.Decoder); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

type recordingWriter struct {
	mu     sync.Mutex
	tables map[string][]string
	fail   bool
}

func (w *recordingWriter) WriteTable(ctx context.Context, sink lake.Sink, path string, f *lake.Frame, partitionBy []string) error {
	if w.fail {
		return errors.New("disk full")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tables == nil {
		w.tables = make(map[string][]string)
	}
	w.tables[path] = partitionBy
	return nil
}

type bufLogger struct {
	mu    sync.Mutex
	lines []string
}

func (b *bufLogger) Printf(format string, v ...interface{}) { b.log("INFO "+format, v...) }
func (b *bufLogger) Debugf(format string, v ...interface{}) { b.log("DEBUG "+format, v...) }
func (b *bufLogger) log(format string, v ...interface{}) {
	b.mu.Lock()
	b.lines = append(b.lines, fmt.Sprintf(format, v...))
	b.mu.Unlock()
}

func TestSessionWrite(t *testing.T) {
	w := &recordingWriter{}
	stats := &mock.RecordingStatter{}
	logs := &bufLogger{}
	sess := lake.NewSession(
		lake.OptSessionWriter(w),
		lake.OptSessionStatter(stats),
		lake.OptSessionLogger(logs),
		lake.OptSessionPreview(1),
	)
	spec := lake.WriteSpec{Path: "songs/songs.parquet", PartitionBy: []string{"artist"}}
	err := sess.Write(context.Background(), mock.NewSink(), "songs", playsFrame(), spec)
	test.ErrNil(t, err, "writing")
	test.MustBe(t, map[string][]string{"songs/songs.parquet": {"artist"}}, w.tables)
	test.MustBe(t, int64(4), stats.Counts()["rows.songs"])
	test.MustBe(t, 1, stats.Timings("write.songs"))

	joined := strings.Join(logs.lines, "\n")
	for _, want := range []string{
		"DEBUG songs (user string, artist string, length double)",
		"DEBUG songs [8, The Beatles, 125.17]",
		"INFO wrote 4 rows of songs to songs/songs.parquet",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("log missing %q:\n%s", want, joined)
		}
	}

	w.fail = true
	if err := sess.Write(context.Background(), mock.NewSink(), "songs", playsFrame(), spec); err == nil {
		t.Fatal("expected writer error")
	}
	if err := lake.NewSession().Write(context.Background(), mock.NewSink(), "songs", playsFrame(), spec); err == nil {
		t.Fatal("expected error without a writer")
	}
}

type countingSet struct {
	lake.MapSet
	closed *int
}

func (c countingSet) Close() error {
	*c.closed++
	return nil
}

func TestSessionDistinct(t *testing.T) {
	closed := 0
	sess := lake.NewSession(lake.OptSessionDistinct(func() (lake.DistinctSet, error) {
		return countingSet{MapSet: make(lake.MapSet), closed: &closed}, nil
	}))
	d, err := sess.Distinct(playsFrame())
	test.ErrNil(t, err, "distinct")
	test.MustBe(t, 3, d.Count())
	d, err = sess.Distinct(d)
	test.ErrNil(t, err, "distinct again")
	test.MustBe(t, 3, d.Count())
	test.MustBe(t, 2, closed, "sets are closed")

	failing := lake.NewSession(lake.OptSessionDistinct(func() (lake.DistinctSet, error) {
		return nil, errors.New("no space")
	}))
	if _, err := failing.Distinct(playsFrame()); err == nil {
		t.Fatal("expected error opening set")
	}

	leaky := lake.NewSession(lake.OptSessionDistinct(func() (lake.DistinctSet, error) {
		return leakySet{make(lake.MapSet)}, nil
	}))
	if _, err := leaky.Distinct(playsFrame()); err == nil || !strings.Contains(err.Error(), "spill file busy") {
		t.Fatalf("expected close error, got %v", err)
	}
}

type leakySet struct {
	lake.MapSet
}

func (leakySet) Close() error { return errors.New("spill file busy") }
