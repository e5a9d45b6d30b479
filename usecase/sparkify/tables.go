// Package sparkify builds the Sparkify song-play star schema from the raw
// song metadata and event logs of its data lake.
//
// Two pipelines share one lake.Session. The catalog pipeline reads song
// metadata and writes the songs and artists dimension tables. The activity
// pipeline reads the event logs and writes the users and time dimension
// tables and the songplays fact table, which joins plays to the song
// metadata by artist name.
package sparkify

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sparkify/lake"
	"github.com/sparkify/lake/json"
)

// Input locations relative to the input root.
const (
	// SongGlob selects files exactly three directories below song_data.
	SongGlob = "song_data/*/*/*/*"
	// LogDir is read recursively.
	LogDir = "log_data"
)

// NextSong is the page value of events which are song plays.
const NextSong = "NextSong"

// Output tables, relative to the output root.
var (
	SongsSpec     = lake.WriteSpec{Path: "songs/songs.parquet", PartitionBy: []string{"year", "artist_id"}}
	ArtistsSpec   = lake.WriteSpec{Path: "artists/artists.parquet"}
	UsersSpec     = lake.WriteSpec{Path: "users/users.parquet"}
	TimeSpec      = lake.WriteSpec{Path: "time/time.parquet", PartitionBy: []string{"year", "month"}}
	SongplaysSpec = lake.WriteSpec{Path: "songplays/songplays.parquet", PartitionBy: []string{"user_id"}}
)

// Tables maps each table name to where it is written.
var Tables = map[string]lake.WriteSpec{
	"songs":     SongsSpec,
	"artists":   ArtistsSpec,
	"users":     UsersSpec,
	"time":      TimeSpec,
	"songplays": SongplaysSpec,
}

// SongColumns are the fields of a song metadata record.
var SongColumns = lake.Schema{
	{Name: "artist_id", Type: lake.String},
	{Name: "artist_latitude", Type: lake.Double},
	{Name: "artist_location", Type: lake.String},
	{Name: "artist_longitude", Type: lake.Double},
	{Name: "artist_name", Type: lake.String},
	{Name: "duration", Type: lake.Double},
	{Name: "num_songs", Type: lake.Int64},
	{Name: "song_id", Type: lake.String},
	{Name: "title", Type: lake.String},
	{Name: "year", Type: lake.Int64},
}

// LogColumns are the fields of an event log record.
var LogColumns = lake.Schema{
	{Name: "artist", Type: lake.String},
	{Name: "auth", Type: lake.String},
	{Name: "firstName", Type: lake.String},
	{Name: "gender", Type: lake.String},
	{Name: "itemInSession", Type: lake.Int64},
	{Name: "lastName", Type: lake.String},
	{Name: "length", Type: lake.Double},
	{Name: "level", Type: lake.String},
	{Name: "location", Type: lake.String},
	{Name: "method", Type: lake.String},
	{Name: "page", Type: lake.String},
	{Name: "registration", Type: lake.Double},
	{Name: "sessionId", Type: lake.Int64},
	{Name: "song", Type: lake.String},
	{Name: "status", Type: lake.Int64},
	{Name: "ts", Type: lake.Int64},
	{Name: "userAgent", Type: lake.String},
	{Name: "userId", Type: lake.String},
}

// withMissing appends an all-null column for each of cols that no input
// record carried, so that a field absent from every file reads as null.
func withMissing(f *lake.Frame, cols lake.Schema) (*lake.Frame, error) {
	have := make(map[string]bool)
	for _, c := range f.Schema() {
		have[c.Name] = true
	}
	var err error
	for _, c := range cols {
		if have[c.Name] {
			continue
		}
		f, err = f.WithColumn(c.Name, lake.Lit(nil, c.Type))
		if err != nil {
			return nil, errors.Wrapf(err, "adding missing column %s", c.Name)
		}
	}
	return f, nil
}

func readJSON(ctx context.Context, sess *lake.Session, input lake.Storage, pattern string, cols lake.Schema) (*lake.Frame, error) {
	rs, err := input.Open(ctx, pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", pattern)
	}
	f, err := sess.Read(ctx, rs, json.Decoder)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", pattern)
	}
	return withMissing(f, cols)
}
