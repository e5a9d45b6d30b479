package sparkify

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sparkify/lake"
	"github.com/sparkify/lake/parquet"
	"github.com/sparkify/lake/test"
)

const beatlesSong = `{"num_songs": 1, "artist_id": "ARBEAT1187B9A2F1", "artist_latitude": 51.50632, "artist_longitude": -0.12714, "artist_location": "London, England", "artist_name": "The Beatles", "song_id": "SOBEAT12A8C13C001", "title": "Yesterday", "duration": 125.17, "year": 1965}`

var lakeFiles = map[string]string{
	"song_data/A/A/A/TRAAAAW128F429D538.json": `{"num_songs": 1, "artist_id": "ARD7TVE1187B99BFB1", "artist_latitude": null, "artist_longitude": null, "artist_location": "California - LA", "artist_name": "Casual", "song_id": "SOMZWCG12A8C13C480", "title": "I Didn't Mean To", "duration": 218.93179, "year": 0}`,
	"song_data/A/A/B/TRAABJL12903CDCF1A.json": beatlesSong,
	// same record twice
	"song_data/A/B/C/TRABCAJ12903CDFCC2.json": beatlesSong,
	// too shallow for the song glob
	"song_data/A/A/TRAAZZZ128F429D538.json": `{"artist_id": "ARNOPE", "song_id": "SONOPE", "year": 1999}`,
	"log_data/2018/11/2018-11-02-events.json": strings.Join([]string{
		`{"artist":"The Beatles","auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":0,"lastName":"Summers","length":125.17,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"PUT","page":"NextSong","registration":1540344794796.0,"sessionId":139,"song":"Yesterday","status":200,"ts":1541121934796,"userAgent":"Mozilla/5.0","userId":"8"}`,
		`{"artist":null,"auth":"Logged In","firstName":"Kaylee","gender":"F","itemInSession":1,"lastName":"Summers","length":null,"level":"free","location":"Phoenix-Mesa-Scottsdale, AZ","method":"GET","page":"Home","registration":1540344794796.0,"sessionId":139,"song":null,"status":200,"ts":1541121960000,"userAgent":"Mozilla/5.0","userId":"8"}`,
		`{"artist":"Beatles, The","auth":"Logged In","firstName":"Sylvie","gender":"F","itemInSession":0,"lastName":"Cruz","length":200.0,"level":"paid","location":"Washington-Arlington-Alexandria, DC-VA-MD-WV","method":"PUT","page":"NextSong","registration":1540266185796.0,"sessionId":9,"song":"Yesterday","status":200,"ts":1541122000000,"userAgent":"Mozilla/5.0","userId":"10"}`,
		`{"artist":"Casual","auth":"Logged In","firstName":"Sylvie","gender":"F","itemInSession":1,"lastName":"Cruz","length":218.93179,"level":"paid","location":"Washington-Arlington-Alexandria, DC-VA-MD-WV","method":"PUT","page":"NextSong","registration":1540266185796.0,"sessionId":9,"song":"I Didn't Mean To","status":200,"ts":1541123000000,"userAgent":"Mozilla/5.0","userId":"10"}`,
	}, "\n"),
}

func mustLake(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "sparkifylake")
	test.ErrNil(t, err, "getting temp dir")
	for name, contents := range lakeFiles {
		p := filepath.Join(dir, filepath.FromSlash(name))
		test.ErrNil(t, os.MkdirAll(filepath.Dir(p), 0755), "making dirs")
		test.ErrNil(t, ioutil.WriteFile(p, []byte(contents), 0644), "writing "+name)
	}
	return dir
}

// partitionRows maps each partition directory of a table to the rows
// stored in it.
func partitionRows(t *testing.T, dir string) map[string]int64 {
	t.Helper()
	files, err := parquet.ReadTable(dir)
	test.ErrNil(t, err, "reading table")
	ret := make(map[string]int64)
	for _, f := range files {
		rel, err := filepath.Rel(dir, filepath.Dir(f.Path))
		test.ErrNil(t, err, "relativizing")
		ret[filepath.ToSlash(rel)] += f.Rows
	}
	return ret
}

func newTestMain(in, out string) *Main {
	m := NewMain()
	m.Input = in
	m.Output = out
	m.TimeZone = "UTC"
	m.Concurrency = 2
	m.Verify = true
	m.Stderr = ioutil.Discard
	m.Logger = lake.NopLogger{}
	return m
}

func TestMainLocal(t *testing.T) {
	in := mustLake(t)
	defer os.RemoveAll(in)
	out, err := ioutil.TempDir("", "sparkifyout")
	test.ErrNil(t, err, "getting temp dir")
	defer os.RemoveAll(out)

	m := newTestMain(in, out)
	m.DistinctStore = "bolt"
	m.SpillDir = out + "-spill"
	test.ErrNil(t, os.MkdirAll(m.SpillDir, 0755), "making spill dir")
	defer os.RemoveAll(m.SpillDir)
	test.ErrNil(t, m.Run(context.Background()), "running")

	table := func(name string) string {
		return filepath.Join(out, filepath.FromSlash(Tables[name].Path))
	}
	songs := partitionRows(t, table("songs"))
	test.MustBe(t, map[string]int64{
		"year=0/artist_id=ARD7TVE1187B99BFB1":  1,
		"year=1965/artist_id=ARBEAT1187B9A2F1": 1,
	}, songs, "songs")
	test.MustBe(t, map[string]int64{".": 2}, partitionRows(t, table("artists")), "artists")
	test.MustBe(t, map[string]int64{".": 2}, partitionRows(t, table("users")), "users")
	test.MustBe(t, map[string]int64{"year=2018/month=11": 3}, partitionRows(t, table("time")), "time")
	// the Beatles play matches both copies of the song record
	songplays := partitionRows(t, table("songplays"))
	test.MustBe(t, map[string]int64{"user_id=8": 2, "user_id=10": 1}, songplays, "songplays")

	files, err := parquet.ReadTable(table("songplays"))
	test.ErrNil(t, err, "reading songplays")
	test.MustBe(t, []string{"start_time", "level", "song_id", "artist_id", "session_id", "location", "user_agent", "year", "month", "songplay_id"}, files[0].Columns)

	spill, err := ioutil.ReadDir(m.SpillDir)
	test.ErrNil(t, err, "reading spill dir")
	test.MustBe(t, 0, len(spill), "distinct sets are removed")

	// a second run over the same input replaces the first
	m = newTestMain(in, out)
	test.ErrNil(t, m.Run(context.Background()), "running again")
	test.MustBe(t, songs, partitionRows(t, table("songs")), "songs rerun")
	test.MustBe(t, songplays, partitionRows(t, table("songplays")), "songplays rerun")
}

func TestMainMissingInput(t *testing.T) {
	in, err := ioutil.TempDir("", "sparkifyempty")
	test.ErrNil(t, err, "getting temp dir")
	defer os.RemoveAll(in)

	m := newTestMain(in, filepath.Join(in, "out"))
	if err := m.Run(context.Background()); err == nil {
		t.Fatal("expected error for a lake without song data")
	}
}

func TestMainValidation(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	for name, change := range map[string]func(m *Main){
		"no credentials":   func(m *Main) { m.Input = "s3a://udacity-sparkify-dl/" },
		"bad scheme":       func(m *Main) { m.Output = "ftp://example.com/out" },
		"bad compression":  func(m *Main) { m.Compression = "zstd" },
		"bad store":        func(m *Main) { m.DistinctStore = "redis" },
		"bad zone":         func(m *Main) { m.TimeZone = "Mars/Olympus_Mons" },
		"no concurrency":   func(m *Main) { m.Concurrency = 0 },
		"missing ini file": func(m *Main) { m.Input = "s3://bucket/"; m.AWSConfig = "/nonexistent/dl.cfg" },
	} {
		m := newTestMain("/nonexistent/in", "/nonexistent/out")
		change(m)
		if err := m.Run(context.Background()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestResolveCredentialsFromINI(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	dir, err := ioutil.TempDir("", "sparkifycfg")
	test.ErrNil(t, err, "getting temp dir")
	defer os.RemoveAll(dir)
	cfg := filepath.Join(dir, "dl.cfg")
	test.ErrNil(t, ioutil.WriteFile(cfg, []byte("[AWS]\nAWS_ACCESS_KEY_ID=AKIAEXAMPLE\nAWS_SECRET_ACCESS_KEY=secret\n"), 0600), "writing config")

	m := NewMain()
	m.AWSConfig = cfg
	test.ErrNil(t, m.resolveCredentials(), "resolving")
	test.MustBe(t, "AKIAEXAMPLE", m.AccessKeyID)
	test.MustBe(t, "secret", m.SecretAccessKey)

	m = NewMain()
	m.AWSConfig = cfg
	m.AccessKeyID = "fromflag"
	test.ErrNil(t, m.resolveCredentials(), "resolving")
	test.MustBe(t, "fromflag", m.AccessKeyID)
	test.MustBe(t, "secret", m.SecretAccessKey)
}
