package fake

import (
	"time"

	"github.com/sparkify/lake"
	"github.com/sparkify/lake/fake/gen"
)

// Event is one client event as stored under log_data. Fields which the
// service logs as null are pointers.
type Event struct {
	Artist        *string  `json:"artist"`
	Auth          string   `json:"auth"`
	FirstName     *string  `json:"firstName"`
	Gender        *string  `json:"gender"`
	ItemInSession int      `json:"itemInSession"`
	LastName      *string  `json:"lastName"`
	Length        *float64 `json:"length"`
	Level         string   `json:"level"`
	Location      *string  `json:"location"`
	Method        string   `json:"method"`
	Page          string   `json:"page"`
	Registration  *float64 `json:"registration"`
	SessionID     uint64   `json:"sessionId"`
	Song          *string  `json:"song"`
	Status        int      `json:"status"`
	TS            int64    `json:"ts"`
	UserAgent     *string  `json:"userAgent"`
	UserID        string   `json:"userId"`
}

// NextSong is the page of an event which is a song play.
const NextSong = "NextSong"

var otherPages = []string{"Home", "Settings", "Help", "About", "Add to Playlist", "Thumbs Up", "Thumbs Down", "Downgrade", "Upgrade"}

var unknownArtists = []string{"Des'ree", "Mr Oizo", "Tamba Trio", "The Mars Volta", "Infected Mushroom", "Blue October / Imogen Heap"}

// EventGenerator generates sessions of events for a fixed population of
// users listening to songs of a Catalog.
type EventGenerator struct {
	g        *gen.Generator
	catalog  *Catalog
	users    []User
	sessions *lake.Nexter

	// MissRate is the share of plays of songs missing from the catalog.
	MissRate float64
}

// NewEventGenerator gets a new EventGenerator for users users registered
// before since.
func NewEventGenerator(seed int64, catalog *Catalog, users int, since time.Time) *EventGenerator {
	ug := NewUserGenerator(seed + 1)
	eg := &EventGenerator{
		g:        gen.NewGenerator(seed),
		catalog:  catalog,
		sessions: lake.NewNexter(lake.NexterStartFrom(1)),
		MissRate: 0.2,
	}
	for i := 1; i <= users; i++ {
		eg.users = append(eg.users, ug.User(i, since))
	}
	return eg
}

func str(s string) *string { return &s }

// Session generates one session starting at start. Logged out sessions have
// an empty user id and null user fields. A logged in user may upgrade during
// a session, which changes their level from then on.
func (eg *EventGenerator) Session(start time.Time) []Event {
	sessionID := eg.sessions.Next()
	ts := start
	n := 1 + eg.g.Intn(12)
	if len(eg.users) == 0 || eg.g.Chance(0.1) {
		events := make([]Event, 0, 2)
		for i, page := range []string{"Home", "Login"}[:1+eg.g.Intn(2)] {
			events = append(events, Event{
				Auth: "Logged Out", ItemInSession: i, Level: "free", Method: "GET",
				Page: page, SessionID: sessionID, Status: 200, TS: millis(ts),
			})
			ts = ts.Add(time.Duration(5+eg.g.Intn(60)) * time.Second)
		}
		return events
	}
	u := &eg.users[eg.g.Uint64(len(eg.users))]
	reg := float64(u.Registration)
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		e := Event{
			Auth: "Logged In", FirstName: str(u.FirstName), Gender: str(u.Gender),
			ItemInSession: i, LastName: str(u.LastName), Level: u.Level,
			Location: str(u.Location), Method: "PUT", Page: NextSong,
			Registration: &reg, SessionID: sessionID, Status: 200, TS: millis(ts),
			UserAgent: str(u.UserAgent), UserID: u.ID,
		}
		step := time.Duration(10+eg.g.Intn(50)) * time.Second
		if eg.g.Chance(0.2) {
			e.Page, e.Method = eg.g.Pick(otherPages), "GET"
			if e.Page == "Upgrade" && u.Level == "free" {
				u.Level = "paid"
			}
		} else {
			artist, song, length := eg.pickSong()
			e.Artist, e.Song, e.Length = &artist, &song, &length
			step = time.Duration(length * float64(time.Second))
		}
		events = append(events, e)
		ts = ts.Add(step)
	}
	return events
}

func (eg *EventGenerator) pickSong() (artist, song string, length float64) {
	if len(eg.catalog.Songs) == 0 || eg.g.Chance(eg.MissRate) {
		return eg.g.Pick(unknownArtists), title(eg.g), round5(120 + eg.g.Float64()*240)
	}
	s := eg.catalog.Songs[eg.g.Uint64(len(eg.catalog.Songs))]
	return s.ArtistName, s.Title, s.Duration
}

// Day generates sessions sessions spread over the day starting at day, in
// time order.
func (eg *EventGenerator) Day(day time.Time, sessions int) []Event {
	var events []Event
	for i := 0; i < sessions; i++ {
		events = append(events, eg.Session(eg.g.Time(day, 24*time.Hour/time.Duration(sessions+1)))...)
	}
	return events
}

func millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
