// Package gen writes a small fake Sparkify data lake of song metadata and
// event logs to a local directory.
package gen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sparkify/lake"
	"github.com/sparkify/lake/fake"
	"github.com/sparkify/lake/file"
)

// Main holds the options for generating a fake data lake.
type Main struct {
	Output         string `help:"Directory to write song_data and log_data under."`
	Seed           int64  `help:"Random seed for generating data. -1 will use current nanosecond."`
	Artists        int    `help:"Number of artists in the catalog."`
	Songs          int    `help:"Number of songs in the catalog."`
	Users          int    `help:"Number of registered users."`
	Days           int    `help:"Number of days of event logs."`
	SessionsPerDay int    `help:"Number of listening sessions per day."`
	Start          string `help:"First day of event logs, as YYYY-MM-DD."`
	Verbose        bool   `help:"Log every file written."`

	Logger lake.Logger `flag:"-"`
}

// NewMain returns a new Main.
func NewMain() *Main {
	return &Main{
		Output:         "sparkify-lake",
		Seed:           1,
		Artists:        50,
		Songs:          200,
		Users:          20,
		Days:           30,
		SessionsPerDay: 40,
		Start:          "2018-11-01",
	}
}

// Run generates the lake into Output.
func (m *Main) Run() error {
	if m.Output == "" {
		return errors.New("need an output directory")
	}
	if m.Logger == nil {
		l := log.New(os.Stderr, "", log.LstdFlags)
		if m.Verbose {
			m.Logger = lake.VerboseLogger{Logger: l}
		} else {
			m.Logger = lake.StdLogger{Logger: l}
		}
	}
	return errors.Wrap(m.Write(context.Background(), file.NewStorage(m.Output)), "writing lake")
}

// Write generates the lake into sink.
func (m *Main) Write(ctx context.Context, sink lake.Sink) error {
	if m.Artists < 1 || m.Songs < 1 {
		return errors.Errorf("need at least one artist and song, got %d and %d", m.Artists, m.Songs)
	}
	if m.Days < 0 || m.SessionsPerDay < 0 || m.Users < 0 {
		return errors.New("days, sessions and users must not be negative")
	}
	start, err := time.ParseInLocation("2006-01-02", m.Start, time.UTC)
	if err != nil {
		return errors.Wrapf(err, "parsing start day '%s'", m.Start)
	}
	if m.Seed == -1 {
		m.Seed = time.Now().UnixNano()
	}
	logger := m.Logger
	if logger == nil {
		logger = lake.NopLogger{}
	}

	catalog := fake.NewCatalog(m.Seed, m.Artists, m.Songs)
	for _, s := range catalog.Songs {
		data, err := json.Marshal(s)
		if err != nil {
			return errors.Wrapf(err, "marshaling song %s", s.SongID)
		}
		if err := m.put(ctx, sink, logger, s.Path(), data); err != nil {
			return err
		}
	}

	events := fake.NewEventGenerator(m.Seed, catalog, m.Users, start)
	total := 0
	for d := 0; d < m.Days; d++ {
		day := start.AddDate(0, 0, d)
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		evs := events.Day(day, m.SessionsPerDay)
		for _, ev := range evs {
			if err := enc.Encode(ev); err != nil {
				return errors.Wrapf(err, "encoding event of %s", day.Format("2006-01-02"))
			}
		}
		if err := m.put(ctx, sink, logger, LogPath(day), buf.Bytes()); err != nil {
			return err
		}
		total += len(evs)
	}
	logger.Printf("wrote %d songs by %d artists and %d events over %d days", len(catalog.Songs), len(catalog.Artists), total, m.Days)
	return nil
}

func (m *Main) put(ctx context.Context, sink lake.Sink, logger lake.Logger, key string, data []byte) error {
	if err := sink.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return errors.Wrapf(err, "putting %s", key)
	}
	logger.Debugf("wrote %s (%v)", key, lake.Bytes(len(data)))
	return nil
}

// LogPath is where the events of day are written, such as
// "log_data/2018/11/2018-11-01-events.json".
func LogPath(day time.Time) string {
	return fmt.Sprintf("log_data/%04d/%02d/%s-events.json", day.Year(), day.Month(), day.Format("2006-01-02"))
}
