package sparkify

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sparkify/lake"
)

// EpochMillisToSeconds converts epoch milliseconds to whole epoch seconds,
// truncating toward zero.
func EpochMillisToSeconds(ms int64) int64 {
	return ms / 1000
}

// EpochMillisToLocalDatetime returns the instant ms milliseconds after the
// epoch as a wall clock time in loc.
func EpochMillisToLocalDatetime(ms int64, loc *time.Location) time.Time {
	return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond)).In(loc)
}

func millis(val interface{}) (int64, error) {
	switch vt := val.(type) {
	case nil:
		return 0, errors.New("null timestamp")
	case int64:
		return vt, nil
	case int32:
		return int64(vt), nil
	case float64:
		return int64(vt), nil
	case string:
		ms, err := strconv.ParseInt(vt, 10, 64)
		return ms, errors.Wrapf(err, "parsing timestamp '%s'", vt)
	default:
		return 0, errors.Errorf("timestamp %v has unexpected type %[1]T", vt)
	}
}

// timestampExpr renders the epoch milliseconds in col as a string of epoch
// seconds.
func timestampExpr(col string) lake.Expr {
	return lake.Call(lake.String, func(args ...interface{}) (interface{}, error) {
		ms, err := millis(args[0])
		if err != nil {
			return nil, err
		}
		return strconv.FormatInt(EpochMillisToSeconds(ms), 10), nil
	}, col)
}

// datetimeExpr renders the epoch milliseconds in col as a datetime string
// in loc.
func datetimeExpr(col string, loc *time.Location) lake.Expr {
	return lake.Call(lake.String, func(args ...interface{}) (interface{}, error) {
		ms, err := millis(args[0])
		if err != nil {
			return nil, err
		}
		return lake.FormatDatetime(EpochMillisToLocalDatetime(ms, loc), loc), nil
	}, col)
}
