package lake

import (
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Location is a parsed storage URL. Local paths have an empty Scheme and
// Bucket.
type Location struct {
	Scheme string
	Bucket string
	Path   string
}

// ParseLocation parses a storage location, which is either an S3 URL
// (s3://, s3a:// or s3n://), a file:// URL, or a plain local path.
func ParseLocation(loc string) (Location, error) {
	if loc == "" {
		return Location{}, errors.New("empty location")
	}
	if !strings.Contains(loc, "://") {
		return Location{Path: loc}, nil
	}
	u, err := url.Parse(loc)
	if err != nil {
		return Location{}, errors.Wrapf(err, "parsing location '%s'", loc)
	}
	switch strings.ToLower(u.Scheme) {
	case "s3", "s3a", "s3n":
		if u.Host == "" {
			return Location{}, errors.Errorf("location '%s' has no bucket", loc)
		}
		return Location{
			Scheme: strings.ToLower(u.Scheme),
			Bucket: u.Host,
			Path:   strings.TrimPrefix(u.Path, "/"),
		}, nil
	case "file":
		return Location{Path: u.Path}, nil
	default:
		return Location{}, errors.Errorf("unsupported scheme '%s' in '%s'", u.Scheme, loc)
	}
}

// IsS3 reports whether l is in S3.
func (l Location) IsS3() bool {
	return l.Scheme != ""
}

func (l Location) String() string {
	if l.IsS3() {
		return l.Scheme + "://" + l.Bucket + "/" + l.Path
	}
	return l.Path
}

// HasGlob reports whether pattern contains glob metacharacters.
func HasGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// IsHidden reports whether any element of the slash separated relative path
// rel starts with "." or "_". Hidden files and directories are skipped when
// reading input, the same way Hadoop input listing skips them.
func IsHidden(rel string) bool {
	for _, elem := range strings.Split(rel, "/") {
		if strings.HasPrefix(elem, ".") || strings.HasPrefix(elem, "_") {
			return true
		}
	}
	return false
}

// MatchKey reports whether the slash separated relative key is selected by
// pattern. A pattern with glob metacharacters must match the whole key
// element by element. Any other pattern names a directory, and selects every
// key beneath it. Hidden keys never match.
func MatchKey(pattern, key string) (bool, error) {
	if IsHidden(key) {
		return false, nil
	}
	pattern = strings.Trim(pattern, "/")
	if HasGlob(pattern) {
		ok, err := path.Match(pattern, key)
		return ok, errors.Wrapf(err, "matching pattern '%s'", pattern)
	}
	if pattern == "" {
		return true, nil
	}
	return strings.HasPrefix(key, pattern+"/"), nil
}

// StaticPrefix returns the leading elements of pattern which contain no glob
// metacharacters, which is where a listing for pattern can start.
func StaticPrefix(pattern string) string {
	pattern = strings.Trim(pattern, "/")
	elems := strings.Split(pattern, "/")
	for i, elem := range elems {
		if HasGlob(elem) {
			return strings.Join(elems[:i], "/")
		}
	}
	return pattern
}
