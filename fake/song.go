// Package fake generates song metadata and listening events shaped like the
// Sparkify data lake, for demos and tests.
package fake

import (
	"fmt"
	"math"
	"strings"

	"github.com/sparkify/lake/fake/gen"
)

// Song is one song metadata record as stored under song_data.
type Song struct {
	NumSongs        int      `json:"num_songs"`
	ArtistID        string   `json:"artist_id"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistName      string   `json:"artist_name"`
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	Duration        float64  `json:"duration"`
	Year            int      `json:"year"`

	TrackID string `json:"-"`
}

// Path returns where the song's file lives relative to the lake root,
// nested by the third to fifth characters of its track id.
func (s Song) Path() string {
	return fmt.Sprintf("song_data/%c/%c/%c/%s.json", s.TrackID[2], s.TrackID[3], s.TrackID[4], s.TrackID)
}

// Artist is a performer in a Catalog.
type Artist struct {
	ID        string
	Name      string
	Location  string
	Latitude  *float64
	Longitude *float64
}

// Catalog is a generated set of artists and their songs.
type Catalog struct {
	Artists []Artist
	Songs   []Song
}

var (
	words = []string{
		"Love", "Night", "Fire", "Rain", "Heart", "City", "Dream", "River", "Gold", "Ghost",
		"Summer", "Stone", "Light", "Shadow", "Train", "Ocean", "Midnight", "Honey", "Thunder", "Blue",
		"Paper", "Silver", "Wild", "Electric", "Broken", "Sweet", "Lonely", "Yesterday", "Moon", "Radio",
	}
	bandNouns = []string{"Kids", "Lions", "Brothers", "Machines", "Saints", "Wolves", "Horses", "Strangers"}
	firsts    = []string{"Line", "Elena", "Marcus", "Tom", "Sylvie", "Jack", "Nina", "Pedro", "Aiko", "Ray"}
	lasts     = []string{"Renaud", "Harmonia", "Moreno", "Waits", "Vartan", "Dupree", "Simone", "Iglesias", "Sato", "Charles"}
	places    = []struct {
		name     string
		lat, lon float64
	}{
		{"New York, NY", 40.71455, -74.00712},
		{"London, England", 51.50632, -0.12714},
		{"Los Angeles, CA", 34.05349, -118.24532},
		{"Paris, France", 48.85693, 2.3412},
		{"Chicago, IL", 41.88415, -87.63241},
		{"Nashville, TN", 36.16778, -86.77836},
		{"Berlin, Germany", 52.51607, 13.37698},
		{"Tokyo, Japan", 35.68955, 139.69168},
	}
)

// NewCatalog generates a repeatable catalog of songs spread over artists.
// Some artists share a name, and many songs have year 0 and no artist
// coordinates, as in the real data.
func NewCatalog(seed int64, artists, songs int) *Catalog {
	g := gen.NewGenerator(seed)
	c := &Catalog{}
	for i := 0; i < artists; i++ {
		a := Artist{ID: g.ID("AR", uint64(i)), Name: artistName(g)}
		if g.Chance(0.6) {
			p := places[g.Intn(len(places))]
			a.Location = p.name
			if g.Chance(0.7) {
				lat, lon := round5(p.lat), round5(p.lon)
				a.Latitude, a.Longitude = &lat, &lon
			}
		}
		c.Artists = append(c.Artists, a)
	}
	for i := 0; i < songs; i++ {
		a := c.Artists[g.Uint64(len(c.Artists))]
		year := 0
		if g.Chance(0.5) {
			year = 1960 + g.Intn(50)
		}
		c.Songs = append(c.Songs, Song{
			NumSongs:        1,
			ArtistID:        a.ID,
			ArtistLatitude:  a.Latitude,
			ArtistLongitude: a.Longitude,
			ArtistLocation:  a.Location,
			ArtistName:      a.Name,
			SongID:          g.ID("SO", uint64(i)),
			Title:           title(g),
			Duration:        round5(60 + g.Float64()*480),
			Year:            year,
			TrackID:         g.ID("TR", uint64(i)),
		})
	}
	return c
}

func artistName(g *gen.Generator) string {
	switch g.Intn(3) {
	case 0:
		return g.Pick(firsts) + " " + g.Pick(lasts)
	case 1:
		return "The " + g.Pick(words) + " " + g.Pick(bandNouns)
	default:
		return g.Pick(words) + " " + g.Pick(words)
	}
}

func title(g *gen.Generator) string {
	n := 1 + g.Intn(3)
	ws := make([]string, n)
	for i := range ws {
		ws[i] = g.Pick(words)
	}
	return strings.Join(ws, " ")
}

func round5(f float64) float64 {
	return math.Round(f*1e5) / 1e5
}
