package lake

import (
	"time"

	"github.com/pkg/errors"
)

// DatetimeLayout is the layout of datetime strings produced and accepted by
// the calendar functions.
const DatetimeLayout = "2006-01-02 15:04:05"

// calendar returns an Int32 expression which extracts a field from the
// datetime in col. Values which can't be read as a datetime produce null.
func calendar(col string, loc *time.Location, field func(time.Time) int) Expr {
	if loc == nil {
		loc = time.Local
	}
	return Call(Int32, func(args ...interface{}) (interface{}, error) {
		t, ok := asTime(args[0], loc)
		if !ok {
			return nil, nil
		}
		return int32(field(t)), nil
	}, col)
}

func asTime(val interface{}, loc *time.Location) (time.Time, bool) {
	switch vt := val.(type) {
	case time.Time:
		return vt.In(loc), true
	case string:
		if len(vt) > len(DatetimeLayout) && vt[len(DatetimeLayout)] == '.' {
			vt = vt[:len(DatetimeLayout)]
		}
		t, err := time.ParseInLocation(DatetimeLayout, vt, loc)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// Hour extracts the hour of day, 0-23.
func Hour(col string, loc *time.Location) Expr {
	return calendar(col, loc, func(t time.Time) int { return t.Hour() })
}

// DayOfMonth extracts the day of the month, 1-31.
func DayOfMonth(col string, loc *time.Location) Expr {
	return calendar(col, loc, func(t time.Time) int { return t.Day() })
}

// WeekOfYear extracts the ISO 8601 week number, 1-53.
func WeekOfYear(col string, loc *time.Location) Expr {
	return calendar(col, loc, func(t time.Time) int {
		_, week := t.ISOWeek()
		return week
	})
}

// Month extracts the month, 1-12.
func Month(col string, loc *time.Location) Expr {
	return calendar(col, loc, func(t time.Time) int { return int(t.Month()) })
}

// Year extracts the year.
func Year(col string, loc *time.Location) Expr {
	return calendar(col, loc, func(t time.Time) int { return t.Year() })
}

// DayOfWeek extracts the day of the week, 1 for Sunday through 7 for
// Saturday.
func DayOfWeek(col string, loc *time.Location) Expr {
	return calendar(col, loc, func(t time.Time) int { return int(t.Weekday()) + 1 })
}

// FormatDatetime renders t in loc using DatetimeLayout, with a microsecond
// fraction only when t has one.
func FormatDatetime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	if t.Nanosecond()/1000 != 0 {
		return t.Format(DatetimeLayout + ".000000")
	}
	return t.Format(DatetimeLayout)
}

// LoadLocation resolves a time zone name. The empty string and "Local" mean
// the process's local zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	return loc, errors.Wrapf(err, "loading time zone '%s'", name)
}
