package parquet

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/sparkify/lake"
	"github.com/sparkify/lake/file"
	"github.com/sparkify/lake/mock"
	"github.com/sparkify/lake/test"
)

var songsSchema = lake.Schema{
	{Name: "song_id", Type: lake.String},
	{Name: "title", Type: lake.String},
	{Name: "artist_id", Type: lake.String},
	{Name: "year", Type: lake.Int64},
	{Name: "duration", Type: lake.Double},
}

func songsFrame() *lake.Frame {
	return lake.NewFrame(songsSchema,
		[]lake.Row{
			{"SOUPIRU12A6D4FA1E1", "Der Kleine Dompfaff", "ARJIE2Y1187B994AB7", int64(0), 152.92036},
			{"SOGDBUF12A8C140FAA", "Intro", "AR558FS1187FB45658", int64(2003), 75.67628},
			{"SOZCTXZ12AB0182364", "Setanta matins", "AR5KOSW1187FB35FF4", int64(0), 269.58322},
		},
		[]lake.Row{
			{"SOBAYLL12A8C138AF9", "Sono andati? Fingevo di dormire", "ARDR4AC1187FB371A1", int64(0), 511.16363},
			{"SONHOTT12A8C13493C", "Something Girls", "AR7G5I41187FB4CE6C", int64(1982), nil},
			{"SOMZWCG12A8C13C480", "I Didn't Mean To", "ARD7TVE1187B99BFB1", nil, 218.93179},
		},
	)
}

func TestWriteTablePartitioned(t *testing.T) {
	dir, err := ioutil.TempDir("", "parquetwriter")
	test.ErrNil(t, err, "getting temp dir")
	defer os.RemoveAll(dir)
	ctx := context.Background()
	storage := file.NewStorage(dir)

	// stale output must be replaced
	test.ErrNil(t, storage.Put(ctx, "songs/songs.parquet/year=1999/stale.parquet", strings.NewReader("x")), "putting stale file")

	w := NewWriter(OptWriterConcurrency(3), OptWriterTempDir(dir))
	err = w.WriteTable(ctx, storage, "songs/songs.parquet", songsFrame(), []string{"year", "artist_id"})
	test.ErrNil(t, err, "writing table")

	table := filepath.Join(dir, "songs", "songs.parquet")
	if _, err := os.Stat(filepath.Join(table, SuccessFile)); err != nil {
		t.Fatalf("missing success marker: %v", err)
	}
	if _, err := os.Stat(filepath.Join(table, "year=1999")); !os.IsNotExist(err) {
		t.Fatalf("stale partition survived: %v", err)
	}

	files, err := ReadTable(table)
	test.ErrNil(t, err, "reading table")
	if len(files) != 6 {
		t.Fatalf("expected one file per row here, got %d", len(files))
	}
	name := regexp.MustCompile(`^part-0000[01]-[0-9a-f-]{36}\.snappy\.parquet$`)
	dirs := make(map[string]bool)
	for _, f := range files {
		rel, err := filepath.Rel(table, f.Path)
		test.ErrNil(t, err, "relativizing")
		rel = filepath.ToSlash(rel)
		dirs[filepath.ToSlash(filepath.Dir(rel))] = true
		if !name.MatchString(filepath.Base(rel)) {
			t.Fatalf("unexpected file name %s", rel)
		}
		test.MustBe(t, int64(1), f.Rows, rel)
		n, err := ReadRowCount(f.Path)
		test.ErrNil(t, err, "reading row count")
		test.MustBe(t, int64(1), n, rel)
		test.MustBe(t, []string{"song_id", "title", "duration"}, f.Columns, rel)
	}
	for _, want := range []string{
		"year=0/artist_id=ARJIE2Y1187B994AB7",
		"year=2003/artist_id=AR558FS1187FB45658",
		"year=1982/artist_id=AR7G5I41187FB4CE6C",
		"year=__HIVE_DEFAULT_PARTITION__/artist_id=ARD7TVE1187B99BFB1",
	} {
		if !dirs[want] {
			t.Fatalf("missing partition dir %s in %v", want, dirs)
		}
	}
	n, err := CountTableRows(table)
	test.ErrNil(t, err, "counting rows")
	test.MustBe(t, int64(6), n)
}

func TestWriteTableGroupsPartitionRows(t *testing.T) {
	dir, err := ioutil.TempDir("", "parquetgroups")
	test.ErrNil(t, err, "getting temp dir")
	defer os.RemoveAll(dir)

	schema := lake.Schema{{Name: "start_time", Type: lake.String}, {Name: "user_id", Type: lake.String}, {Name: "songplay_id", Type: lake.Int64}}
	f := lake.NewFrame(schema,
		[]lake.Row{{"2018-11-01 21:01:46", "8", int64(0)}, {"2018-11-01 21:05:52", "8", int64(1)}, {"2018-11-01 21:08:16", "", int64(2)}},
		[]lake.Row{{"2018-11-02 01:25:34", "8", int64(1 << 33)}},
	)
	storage := file.NewStorage(dir)
	w := NewWriter(OptWriterCompression(None), OptWriterTempDir(dir))
	test.ErrNil(t, w.WriteTable(context.Background(), storage, "songplays/songplays.parquet", f, []string{"user_id"}), "writing")

	files, err := ReadTable(filepath.Join(dir, "songplays", "songplays.parquet"))
	test.ErrNil(t, err, "reading table")
	counts := make(map[string]int64)
	for _, fi := range files {
		if !strings.HasSuffix(fi.Path, ".parquet") || strings.Contains(filepath.Base(fi.Path), ".snappy.") {
			t.Fatalf("unexpected file name for uncompressed output: %s", fi.Path)
		}
		counts[filepath.Base(filepath.Dir(fi.Path))+"/"+filepath.Base(fi.Path)[:10]] += fi.Rows
	}
	test.MustBe(t, map[string]int64{
		"user_id=8/part-00000":                        2,
		"user_id=8/part-00001":                        1,
		"user_id=" + DefaultPartition + "/part-00000": 1,
	}, counts)
}

func TestWriteTableEmpty(t *testing.T) {
	dir, err := ioutil.TempDir("", "parquetempty")
	test.ErrNil(t, err, "getting temp dir")
	defer os.RemoveAll(dir)
	storage := file.NewStorage(dir)
	empty := lake.NewFrame(songsSchema, []lake.Row{})
	w := NewWriter(OptWriterTempDir(dir))

	test.ErrNil(t, w.WriteTable(context.Background(), storage, "artists/artists.parquet", empty, nil), "writing unpartitioned")
	files, err := ReadTable(filepath.Join(dir, "artists", "artists.parquet"))
	test.ErrNil(t, err, "reading unpartitioned")
	if len(files) != 1 || files[0].Rows != 0 || len(files[0].Columns) != 5 {
		t.Fatalf("expected one empty file with the full schema, got %+v", files)
	}

	test.ErrNil(t, w.WriteTable(context.Background(), storage, "songs/songs.parquet", empty, []string{"year"}), "writing partitioned")
	files, err = ReadTable(filepath.Join(dir, "songs", "songs.parquet"))
	test.ErrNil(t, err, "reading partitioned")
	test.MustBe(t, 0, len(files))
	if _, err := os.Stat(filepath.Join(dir, "songs", "songs.parquet", SuccessFile)); err != nil {
		t.Fatalf("missing success marker: %v", err)
	}
}

func TestWriteTableErrors(t *testing.T) {
	sink := mock.NewSink()
	w := NewWriter()
	if err := w.WriteTable(context.Background(), sink, "songs", songsFrame(), []string{"genre"}); err == nil {
		t.Fatalf("expected error for unknown partition column")
	}
	one := lake.NewFrame(lake.Schema{{Name: "year", Type: lake.Int64}}, []lake.Row{{int64(1)}})
	if err := w.WriteTable(context.Background(), sink, "years", one, []string{"year"}); err == nil {
		t.Fatalf("expected error when every column is a partition column")
	}
	if len(sink.Cleared()) != 0 {
		t.Fatalf("nothing should be cleared for a table that can't be written: %v", sink.Cleared())
	}
}

func TestWriteTableToSink(t *testing.T) {
	sink := mock.NewSink()
	w := NewWriter(OptWriterCompression(Gzip))
	test.ErrNil(t, w.WriteTable(context.Background(), sink, "/users/users.parquet/", songsFrame(), nil), "writing")
	test.MustBe(t, []string{"users/users.parquet"}, sink.Cleared())
	keys := sink.Keys()
	if len(keys) != 3 {
		t.Fatalf("expected two part files and a marker, got %v", keys)
	}
	test.MustBe(t, "users/users.parquet/_SUCCESS", keys[0])
	for _, k := range keys[1:] {
		if !strings.HasPrefix(k, "users/users.parquet/part-0000") || !strings.HasSuffix(k, ".gz.parquet") {
			t.Fatalf("unexpected key %s", k)
		}
		data, _ := sink.Get(k)
		if !strings.HasPrefix(string(data), "PAR1") {
			t.Fatalf("%s is not a parquet file", k)
		}
	}
}

func TestPartitionValue(t *testing.T) {
	tests := []struct {
		val  interface{}
		want string
	}{
		{val: nil, want: DefaultPartition},
		{val: "", want: DefaultPartition},
		{val: int64(2018), want: "2018"},
		{val: int32(11), want: "11"},
		{val: 2.5, want: "2.5"},
		{val: float64(3), want: "3.0"},
		{val: "AC/DC", want: "AC%2FDC"},
		{val: "a=b:c?", want: "a%3Db%3Ac%3F"},
		{val: "100%", want: "100%25"},
		{val: "Guns N' Roses", want: "Guns N%27 Roses"},
		{val: "tab\there", want: "tab%09here"},
		{val: "Beyoncé", want: "Beyoncé"},
	}
	for _, tst := range tests {
		test.MustBe(t, tst.want, PartitionValue(tst.val))
	}
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]Compression{"snappy": Snappy, "GZIP": Gzip, "none": None, "uncompressed": None} {
		c, err := ParseCompression(in)
		test.ErrNil(t, err, in)
		test.MustBe(t, want, c, in)
	}
	if _, err := ParseCompression("lz4"); err == nil {
		t.Fatalf("expected error for unsupported codec")
	}
}
