package fake_test

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sparkify/lake/fake"
)

func TestCatalog(t *testing.T) {
	c := fake.NewCatalog(42, 20, 200)
	if len(c.Artists) != 20 || len(c.Songs) != 200 {
		t.Fatalf("wrong catalog size: %d artists, %d songs", len(c.Artists), len(c.Songs))
	}
	ids := make(map[string]bool)
	for _, s := range c.Songs {
		if ids[s.SongID] {
			t.Fatalf("duplicate song id %s", s.SongID)
		}
		ids[s.SongID] = true
		if !strings.HasPrefix(s.Path(), "song_data/"+s.TrackID[2:3]+"/") || strings.Count(s.Path(), "/") != 4 {
			t.Fatalf("bad path %s", s.Path())
		}
		if s.Duration < 60 || s.Duration > 540 {
			t.Fatalf("duration out of range: %v", s.Duration)
		}
		if (s.ArtistLatitude == nil) != (s.ArtistLongitude == nil) {
			t.Fatalf("coordinates must both be set or both be null: %+v", s)
		}
	}
	if !reflect.DeepEqual(c, fake.NewCatalog(42, 20, 200)) {
		t.Fatalf("catalog generation is not repeatable")
	}
}

func TestEventGenerator(t *testing.T) {
	c := fake.NewCatalog(1, 5, 30)
	day := time.Date(2018, 11, 1, 0, 0, 0, 0, time.UTC)
	eg := fake.NewEventGenerator(2, c, 10, day)
	events := eg.Day(day, 50)
	if len(events) < 50 {
		t.Fatalf("expected at least one event per session, got %d", len(events))
	}
	var plays, loggedOut int
	lastStart := int64(0)
	sessions := make(map[uint64]bool)
	for _, e := range events {
		sessions[e.SessionID] = true
		if e.TS < day.UnixNano()/1e6 || e.TS >= day.Add(48*time.Hour).UnixNano()/1e6 {
			t.Fatalf("timestamp %d outside the day", e.TS)
		}
		if e.ItemInSession == 0 {
			if e.TS < lastStart {
				t.Fatalf("sessions out of order")
			}
			lastStart = e.TS
		}
		switch {
		case e.Page == fake.NextSong:
			plays++
			if e.Artist == nil || e.Song == nil || e.Length == nil || e.UserID == "" {
				t.Fatalf("incomplete play %+v", e)
			}
		case e.Auth == "Logged Out":
			loggedOut++
			if e.UserID != "" || e.FirstName != nil {
				t.Fatalf("logged out event has a user: %+v", e)
			}
		default:
			if e.Artist != nil || e.Song != nil {
				t.Fatalf("non-play event has a song: %+v", e)
			}
		}
	}
	if len(sessions) != 50 {
		t.Fatalf("expected 50 sessions, got %d", len(sessions))
	}
	if plays == 0 || plays == len(events) {
		t.Fatalf("expected a mix of events: %d plays, %d logged out, %d total", plays, loggedOut, len(events))
	}
}
