package sparkify

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sparkify/lake"
	"github.com/sparkify/lake/aws/s3"
	"github.com/sparkify/lake/boltdb"
	"github.com/sparkify/lake/file"
	"github.com/sparkify/lake/leveldb"
	"github.com/sparkify/lake/parquet"
	"github.com/sparkify/lake/termstat"
	"github.com/spf13/viper"
)

// Main holds the options for building the star schema from a data lake.
type Main struct {
	Input           string `help:"Root of the raw data lake: an s3://, s3a:// or s3n:// URL, or a local directory."`
	Output          string `help:"Root the tables are written under: an S3 URL or a local directory."`
	AccessKeyID     string `help:"AWS access key id. Required when either location is in S3."`
	SecretAccessKey string `help:"AWS secret access key."`
	AWSConfig       string `help:"INI file with an [AWS] section holding AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY."`
	Region          string `help:"AWS region of the buckets."`
	TimeZone        string `help:"Time zone datetimes are rendered in. Empty or Local uses the machine's zone."`
	Concurrency     int    `help:"Number of files read or written at once."`
	DistinctStore   string `help:"Where distinct sets are kept: memory, bolt or leveldb."`
	SpillDir        string `help:"Directory for on-disk distinct sets and staged parquet files. Empty uses the system temp dir."`
	Compression     string `help:"Parquet compression: snappy, gzip or none."`
	Preview         int    `help:"Log the first N rows of each table at debug level."`
	Verify          bool   `help:"After a local run, read every table back and log its row count."`
	Verbose         bool   `help:"Enable debug logging."`
	LogPath         string `help:"Log to this file instead of stderr."`
	Stats           bool   `help:"Print running counters to stderr."`

	Stderr io.Writer   `flag:"-"`
	Logger lake.Logger `flag:"-"`
}

// NewMain returns a new Main pointed at the original Sparkify bucket.
func NewMain() *Main {
	return &Main{
		Input:         "s3a://udacity-sparkify-dl/",
		Output:        "s3a://udacity-sparkify-dl/output_data/",
		Region:        "us-west-2",
		Concurrency:   4,
		DistinctStore: "memory",
		Compression:   "snappy",
		Stderr:        os.Stderr,
	}
}

// Run builds all five tables, songs and artists first, stopping at the
// first failure.
func (m *Main) Run(ctx context.Context) error {
	in, err := lake.ParseLocation(m.Input)
	if err != nil {
		return errors.Wrap(err, "parsing input")
	}
	out, err := lake.ParseLocation(m.Output)
	if err != nil {
		return errors.Wrap(err, "parsing output")
	}
	compression, err := parquet.ParseCompression(m.Compression)
	if err != nil {
		return err
	}
	loc, err := lake.LoadLocation(m.TimeZone)
	if err != nil {
		return err
	}
	if m.Concurrency < 1 {
		return errors.Errorf("concurrency must be positive, got %d", m.Concurrency)
	}
	distinct, err := m.distinctFactory()
	if err != nil {
		return err
	}
	if in.IsS3() || out.IsS3() {
		if err := m.resolveCredentials(); err != nil {
			return err
		}
	}

	log := m.Logger
	if log == nil {
		zl, err := lake.NewZapLogger(m.LogPath, m.Verbose)
		if err != nil {
			return errors.Wrap(err, "setting up logger")
		}
		defer zl.Close()
		log = zl
	}
	var stats lake.Statter = lake.NopStatter{}
	if m.Stats {
		ts := termstat.NewCollector(m.Stderr, time.Second)
		defer ts.Close()
		stats = ts
	}

	input, err := m.storage(in)
	if err != nil {
		return errors.Wrap(err, "opening input")
	}
	output, err := m.storage(out)
	if err != nil {
		return errors.Wrap(err, "opening output")
	}

	writer := parquet.NewWriter(
		parquet.OptWriterCompression(compression),
		parquet.OptWriterTempDir(m.SpillDir),
		parquet.OptWriterConcurrency(m.Concurrency),
		parquet.OptWriterLogger(log),
	)
	sess := lake.NewSession(
		lake.OptSessionLogger(log),
		lake.OptSessionStatter(stats),
		lake.OptSessionLocation(loc),
		lake.OptSessionConcurrency(m.Concurrency),
		lake.OptSessionDistinct(distinct),
		lake.OptSessionPreview(m.Preview),
		lake.OptSessionWriter(writer),
	)

	log.Printf("building tables from %s into %s", in, out)
	if err := ProcessSongData(ctx, sess, input, output); err != nil {
		return errors.Wrap(err, "processing song data")
	}
	if err := ProcessLogData(ctx, sess, input, output); err != nil {
		return errors.Wrap(err, "processing log data")
	}
	if m.Verify {
		return verify(log, out)
	}
	return nil
}

func (m *Main) distinctFactory() (lake.DistinctSetFactory, error) {
	dir := m.SpillDir
	if dir == "" {
		dir = os.TempDir()
	}
	switch strings.ToLower(m.DistinctStore) {
	case "", "memory":
		return lake.NewMapSet, nil
	case "bolt":
		return boltdb.Factory(dir), nil
	case "leveldb":
		return leveldb.Factory(dir), nil
	default:
		return nil, errors.Errorf("unknown distinct store '%s'", m.DistinctStore)
	}
}

// resolveCredentials fills in the key pair from the INI file and then the
// environment, keeping whatever was already set.
func (m *Main) resolveCredentials() error {
	if m.AWSConfig != "" && (m.AccessKeyID == "" || m.SecretAccessKey == "") {
		v := viper.New()
		v.SetConfigFile(m.AWSConfig)
		v.SetConfigType("ini")
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading aws config '%s'", m.AWSConfig)
		}
		if m.AccessKeyID == "" {
			m.AccessKeyID = v.GetString("aws.aws_access_key_id")
		}
		if m.SecretAccessKey == "" {
			m.SecretAccessKey = v.GetString("aws.aws_secret_access_key")
		}
	}
	if m.AccessKeyID == "" {
		m.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	}
	if m.SecretAccessKey == "" {
		m.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	if m.AccessKeyID == "" || m.SecretAccessKey == "" {
		return errors.New("aws credentials are required for s3 locations")
	}
	return nil
}

func (m *Main) storage(loc lake.Location) (lake.Storage, error) {
	if !loc.IsS3() {
		return file.NewStorage(loc.Path), nil
	}
	sess, err := s3.NewSession(m.Region, m.AccessKeyID, m.SecretAccessKey)
	if err != nil {
		return nil, err
	}
	return s3.NewStorage(sess, loc.Bucket, loc.Path), nil
}

// verify reads every table of a local output back and logs its row count.
func verify(log lake.Logger, out lake.Location) error {
	if out.IsS3() {
		log.Printf("skipping verify for %s", out)
		return nil
	}
	for _, name := range []string{"songs", "artists", "users", "time", "songplays"} {
		dir := filepath.Join(out.Path, filepath.FromSlash(Tables[name].Path))
		if _, err := os.Stat(filepath.Join(dir, parquet.SuccessFile)); err != nil {
			return errors.Wrapf(err, "verifying %s", name)
		}
		n, err := parquet.CountTableRows(dir)
		if err != nil {
			return errors.Wrapf(err, "verifying %s", name)
		}
		log.Printf("verified %s: %d rows", name, n)
	}
	return nil
}
