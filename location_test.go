package lake_test

import (
	"testing"

	"github.com/sparkify/lake"
	"github.com/sparkify/lake/test"
)

func TestParseLocation(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want lake.Location
		str  string
	}{
		{"s3a://udacity-sparkify-dl/", lake.Location{Scheme: "s3a", Bucket: "udacity-sparkify-dl"}, "s3a://udacity-sparkify-dl/"},
		{"s3a://udacity-sparkify-dl/output_data/", lake.Location{Scheme: "s3a", Bucket: "udacity-sparkify-dl", Path: "output_data/"}, "s3a://udacity-sparkify-dl/output_data/"},
		{"S3://bucket/a/b", lake.Location{Scheme: "s3", Bucket: "bucket", Path: "a/b"}, "s3://bucket/a/b"},
		{"s3n://bucket", lake.Location{Scheme: "s3n", Bucket: "bucket"}, "s3n://bucket/"},
		{"file:///tmp/lake", lake.Location{Path: "/tmp/lake"}, "/tmp/lake"},
		{"data/lake", lake.Location{Path: "data/lake"}, "data/lake"},
	} {
		got, err := lake.ParseLocation(tc.in)
		test.ErrNil(t, err, tc.in)
		test.MustBe(t, tc.want, got, tc.in)
		test.MustBe(t, tc.str, got.String(), tc.in)
		test.MustBe(t, tc.want.Scheme != "", got.IsS3(), tc.in)
	}
	for _, bad := range []string{"", "s3a:///nobucket", "gs://bucket/x", "s3://bad host/%zz"} {
		if _, err := lake.ParseLocation(bad); err == nil {
			t.Fatalf("expected error parsing '%s'", bad)
		}
	}
}

func TestMatchKey(t *testing.T) {
	for _, tc := range []struct {
		pattern, key string
		want         bool
	}{
		{"song_data/*/*/*/*", "song_data/A/B/C/TRABCAJ12903CDFCC2.json", true},
		{"song_data/*/*/*/*", "song_data/A/B/TRABCAJ12903CDFCC2.json", false},
		{"song_data/*/*/*/*", "song_data/A/B/C/D/TRABCAJ12903CDFCC2.json", false},
		{"song_data/*/*/*/*", "song_data/A/B/C/.DS_Store", false},
		{"log_data", "log_data/2018/11/2018-11-01-events.json", true},
		{"log_data/", "log_data/2018/11/2018-11-01-events.json", true},
		{"log_data", "log_data_old/2018-11-01-events.json", false},
		{"log_data", "log_data/_SUCCESS", false},
		{"", "anything/at/all", true},
	} {
		got, err := lake.MatchKey(tc.pattern, tc.key)
		test.ErrNil(t, err, tc.pattern)
		if got != tc.want {
			t.Fatalf("MatchKey(%s, %s): want %v", tc.pattern, tc.key, tc.want)
		}
	}
	if _, err := lake.MatchKey("song_data/[", "song_data/x"); err == nil {
		t.Fatal("expected error for bad pattern")
	}
}

func TestStaticPrefix(t *testing.T) {
	test.MustBe(t, "song_data", lake.StaticPrefix("song_data/*/*/*/*"))
	test.MustBe(t, "log_data", lake.StaticPrefix("/log_data/"))
	test.MustBe(t, "a/b", lake.StaticPrefix("a/b/c?/d"))
	test.MustBe(t, "", lake.StaticPrefix("*.json"))
}

func TestIsHidden(t *testing.T) {
	test.MustBe(t, true, lake.IsHidden("songs/_SUCCESS"))
	test.MustBe(t, true, lake.IsHidden(".git/config"))
	test.MustBe(t, false, lake.IsHidden("song_data/A/B/C/x.json"))
}
