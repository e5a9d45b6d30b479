package sparkify

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sparkify/lake"
)

// ReadSongData reads every song metadata file of the input lake.
func ReadSongData(ctx context.Context, sess *lake.Session, input lake.Storage) (*lake.Frame, error) {
	f, err := readJSON(ctx, sess, input, SongGlob, SongColumns)
	return f, errors.Wrap(err, "reading song data")
}

// SongsTable projects songs onto the songs dimension and drops duplicate
// rows.
func SongsTable(sess *lake.Session, songs *lake.Frame) (*lake.Frame, error) {
	f, err := songs.Select(
		lake.Cast("song_id", lake.String),
		lake.Cast("title", lake.String),
		lake.Cast("artist_id", lake.String),
		lake.Cast("year", lake.Int64),
		lake.Cast("duration", lake.Double),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting songs columns")
	}
	return sess.Distinct(f)
}

// ArtistsTable projects songs onto the artists dimension and drops
// duplicate rows. An artist whose metadata differs between songs keeps one
// row per variant.
func ArtistsTable(sess *lake.Session, songs *lake.Frame) (*lake.Frame, error) {
	f, err := songs.Select(
		lake.Cast("artist_id", lake.String),
		lake.Cast("artist_name", lake.String).As("name"),
		lake.Cast("artist_location", lake.String).As("location"),
		lake.Cast("artist_latitude", lake.Double).As("latitude"),
		lake.Cast("artist_longitude", lake.Double).As("longitude"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting artists columns")
	}
	return sess.Distinct(f)
}

// ProcessSongData builds and writes the songs and artists tables.
func ProcessSongData(ctx context.Context, sess *lake.Session, input lake.Storage, output lake.Sink) error {
	songs, err := ReadSongData(ctx, sess, input)
	if err != nil {
		return err
	}
	sess.Logger().Printf("read %d song records", songs.Count())

	songsTable, err := SongsTable(sess, songs)
	if err != nil {
		return errors.Wrap(err, "building songs table")
	}
	if err := sess.Write(ctx, output, "songs", songsTable, SongsSpec); err != nil {
		return err
	}

	artistsTable, err := ArtistsTable(sess, songs)
	if err != nil {
		return errors.Wrap(err, "building artists table")
	}
	return sess.Write(ctx, output, "artists", artistsTable, ArtistsSpec)
}
