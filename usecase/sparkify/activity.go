package sparkify

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sparkify/lake"
)

// songplayIDRange is the width of the id range each engine partition of
// the songplays table draws from.
const songplayIDRange = 1 << 33

// ReadLogData reads every event log file of the input lake.
func ReadLogData(ctx context.Context, sess *lake.Session, input lake.Storage) (*lake.Frame, error) {
	f, err := readJSON(ctx, sess, input, LogDir, LogColumns)
	return f, errors.Wrap(err, "reading log data")
}

// NextSongs keeps only song plays and the columns the fact table needs.
func NextSongs(logs *lake.Frame) (*lake.Frame, error) {
	plays, err := logs.Where("page", NextSong)
	if err != nil {
		return nil, errors.Wrap(err, "filtering plays")
	}
	plays, err = plays.Select(lake.Cols("ts", "userId", "level", "song", "artist", "sessionId", "location", "userAgent")...)
	return plays, errors.Wrap(err, "selecting play columns")
}

// UsersTable projects every event, plays or not, onto the users dimension
// and drops duplicate rows. A user whose level changed keeps a row per
// level.
func UsersTable(sess *lake.Session, logs *lake.Frame) (*lake.Frame, error) {
	f, err := logs.Select(
		lake.Cast("userId", lake.String).As("user_id"),
		lake.Cast("firstName", lake.String).As("first_name"),
		lake.Cast("lastName", lake.String).As("last_name"),
		lake.Cast("gender", lake.String),
		lake.Cast("level", lake.String),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting users columns")
	}
	return sess.Distinct(f)
}

// WithEventTime derives timestamp, the event time in epoch seconds, and
// datetime, the event time as a wall clock string in loc, from ts.
func WithEventTime(plays *lake.Frame, loc *time.Location) (*lake.Frame, error) {
	f, err := plays.WithColumn("timestamp", timestampExpr("ts"))
	if err != nil {
		return nil, errors.Wrap(err, "deriving timestamp")
	}
	f, err = f.WithColumn("datetime", datetimeExpr("ts", loc))
	return f, errors.Wrap(err, "deriving datetime")
}

// TimeTable breaks each play's datetime into calendar units and drops
// duplicate rows.
func TimeTable(sess *lake.Session, plays *lake.Frame, loc *time.Location) (*lake.Frame, error) {
	f, err := plays.Select(
		lake.Col("datetime").As("start_time"),
		lake.Hour("datetime", loc).As("hour"),
		lake.DayOfMonth("datetime", loc).As("day"),
		lake.WeekOfYear("datetime", loc).As("week"),
		lake.Month("datetime", loc).As("month"),
		lake.Year("datetime", loc).As("year"),
		lake.DayOfWeek("datetime", loc).As("weekday"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting time columns")
	}
	return sess.Distinct(f)
}

// SongplaysTable joins plays to songs where the play's artist equals the
// song's artist name, and numbers the result. Plays with no match are
// dropped, and a play matching several songs yields one row per song.
func SongplaysTable(plays, songs *lake.Frame, loc *time.Location, ra lake.RangeAllocator) (*lake.Frame, error) {
	joined, err := plays.Alias("log").Join(songs.Alias("song"), "log.artist", "song.artist_name")
	if err != nil {
		return nil, errors.Wrap(err, "joining plays to songs")
	}
	f, err := joined.Select(
		lake.Col("log.datetime").As("start_time"),
		lake.Cast("log.userId", lake.String).As("user_id"),
		lake.Cast("log.level", lake.String),
		lake.Cast("song.song_id", lake.String),
		lake.Cast("song.artist_id", lake.String),
		lake.Cast("log.sessionId", lake.Int64).As("session_id"),
		lake.Cast("log.location", lake.String),
		lake.Cast("log.userAgent", lake.String).As("user_agent"),
		lake.Year("log.datetime", loc).As("year"),
		lake.Month("log.datetime", loc).As("month"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "selecting songplays columns")
	}
	return f.WithUniqueID("songplay_id", ra)
}

// ProcessLogData builds and writes the users, time and songplays tables.
// The song metadata is read again for the join.
func ProcessLogData(ctx context.Context, sess *lake.Session, input lake.Storage, output lake.Sink) error {
	logs, err := ReadLogData(ctx, sess, input)
	if err != nil {
		return err
	}
	plays, err := NextSongs(logs)
	if err != nil {
		return err
	}
	sess.Logger().Printf("read %d events, %d of them plays", logs.Count(), plays.Count())

	users, err := UsersTable(sess, logs)
	if err != nil {
		return errors.Wrap(err, "building users table")
	}
	if err := sess.Write(ctx, output, "users", users, UsersSpec); err != nil {
		return err
	}

	loc := sess.Location()
	plays, err = WithEventTime(plays, loc)
	if err != nil {
		return err
	}
	timeTable, err := TimeTable(sess, plays, loc)
	if err != nil {
		return errors.Wrap(err, "building time table")
	}
	if err := sess.Write(ctx, output, "time", timeTable, TimeSpec); err != nil {
		return err
	}

	songs, err := ReadSongData(ctx, sess, input)
	if err != nil {
		return err
	}
	songplays, err := SongplaysTable(plays, songs, loc, lake.NewLocalRangeAllocator(songplayIDRange))
	if err != nil {
		return errors.Wrap(err, "building songplays table")
	}
	return sess.Write(ctx, output, "songplays", songplays, SongplaysSpec)
}
