package gen

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sparkify/lake/mock"
	"github.com/sparkify/lake/test"
)

func TestLogPath(t *testing.T) {
	test.MustBe(t, "log_data/2018/11/2018-11-05-events.json", LogPath(time.Date(2018, 11, 5, 0, 0, 0, 0, time.UTC)))
}

func TestWrite(t *testing.T) {
	m := NewMain()
	m.Artists, m.Songs, m.Users, m.Days, m.SessionsPerDay = 3, 10, 4, 2, 5
	sink := mock.NewSink()
	test.ErrNil(t, m.Write(context.Background(), sink), "writing")

	var songs, logs []string
	for _, k := range sink.Keys() {
		switch {
		case strings.HasPrefix(k, "song_data/"):
			songs = append(songs, k)
		case strings.HasPrefix(k, "log_data/"):
			logs = append(logs, k)
		default:
			t.Fatalf("unexpected key %s", k)
		}
	}
	test.MustBe(t, 10, len(songs), "song files")
	test.MustBe(t, []string{"log_data/2018/11/2018-11-01-events.json", "log_data/2018/11/2018-11-02-events.json"}, logs)

	for _, k := range songs {
		if strings.Count(k, "/") != 4 {
			t.Fatalf("song file %s is not three directories below song_data", k)
		}
		data, _ := sink.Get(k)
		var rec map[string]interface{}
		test.ErrNil(t, json.Unmarshal(data, &rec), "decoding "+k)
		if _, ok := rec["song_id"]; !ok {
			t.Fatalf("%s has no song_id: %s", k, data)
		}
	}

	data, _ := sink.Get(logs[0])
	sc := bufio.NewScanner(bytes.NewReader(data))
	n := 0
	for sc.Scan() {
		var rec map[string]interface{}
		test.ErrNil(t, json.Unmarshal(sc.Bytes(), &rec), "decoding event")
		if _, ok := rec["ts"]; !ok {
			t.Fatalf("event has no ts: %s", sc.Text())
		}
		n++
	}
	if n == 0 {
		t.Fatal("no events written")
	}

	// the same seed writes the same lake
	again := mock.NewSink()
	test.ErrNil(t, m.Write(context.Background(), again), "writing again")
	test.MustBe(t, sink.Keys(), again.Keys())
	for _, k := range sink.Keys() {
		a, _ := sink.Get(k)
		b, _ := again.Get(k)
		test.MustBe(t, string(a), string(b), k)
	}
}

func TestWriteErrors(t *testing.T) {
	for name, change := range map[string]func(m *Main){
		"no songs":  func(m *Main) { m.Songs = 0 },
		"bad start": func(m *Main) { m.Start = "November" },
		"neg days":  func(m *Main) { m.Days = -1 },
	} {
		m := NewMain()
		change(m)
		if err := m.Write(context.Background(), mock.NewSink()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
