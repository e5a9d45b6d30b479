package lake

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Type is the type of a Frame column. Every value stored in a column of a
// given Type is either nil or the Go type listed next to it.
type Type int

const (
	Unknown Type = iota
	String       // string
	Int64        // int64
	Int32        // int32
	Double       // float64
	Bool         // bool
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Int64:
		return "bigint"
	case Int32:
		return "int"
	case Double:
		return "double"
	case Bool:
		return "boolean"
	default:
		return "unknown"
	}
}

// typeOf reports the column type a decoded JSON value would be stored as.
func typeOf(val interface{}) Type {
	switch vt := val.(type) {
	case nil:
		return Unknown
	case string:
		return String
	case bool:
		return Bool
	case json.Number:
		if _, err := vt.Int64(); err == nil {
			return Int64
		}
		return Double
	case float64, float32:
		return Double
	case int, int64, uint32, uint64:
		return Int64
	case int32, int16, int8, uint16, uint8:
		return Int32
	default:
		// objects and arrays are kept as their JSON text
		return String
	}
}

// mergeTypes widens two observed types of one column to a type which can
// hold both. Integers widen to doubles, and everything else which disagrees
// becomes a string.
func mergeTypes(a, b Type) Type {
	switch {
	case a == Unknown:
		return b
	case b == Unknown, a == b:
		return a
	case (a == Int64 || a == Int32) && (b == Int64 || b == Int32):
		return Int64
	case (a == Int64 || a == Int32 || a == Double) && (b == Int64 || b == Int32 || b == Double):
		return Double
	default:
		return String
	}
}

// Coerce converts val to the Go representation of t. Nil stays nil.
func Coerce(val interface{}, t Type) (interface{}, error) {
	if val == nil {
		return nil, nil
	}
	switch t {
	case String:
		return toString(val)
	case Int64:
		return toInt64(val)
	case Int32:
		v, err := toInt64(val)
		if err != nil {
			return nil, err
		}
		if v > math.MaxInt32 || v < math.MinInt32 {
			return nil, errors.Errorf("%d overflows int", v)
		}
		return int32(v), nil
	case Double:
		return toFloat64(val)
	case Bool:
		return toBool(val)
	default:
		return nil, errors.Errorf("can't coerce %v of %[1]T to %v", val, t)
	}
}

func toString(val interface{}) (string, error) {
	switch vt := val.(type) {
	case string:
		return vt, nil
	case []byte:
		return string(vt), nil
	case json.Number:
		return vt.String(), nil
	case bool:
		return strconv.FormatBool(vt), nil
	case int64:
		return strconv.FormatInt(vt, 10), nil
	case int32:
		return strconv.FormatInt(int64(vt), 10), nil
	case int:
		return strconv.Itoa(vt), nil
	case float64:
		return strconv.FormatFloat(vt, 'g', -1, 64), nil
	default:
		bs, err := json.Marshal(vt)
		if err != nil {
			return "", errors.Wrapf(err, "couldn't convert %v of %[1]T to string", vt)
		}
		return string(bs), nil
	}
}

func toInt64(val interface{}) (int64, error) {
	switch vt := val.(type) {
	case int64:
		return vt, nil
	case int32:
		return int64(vt), nil
	case int:
		return int64(vt), nil
	case uint32:
		return int64(vt), nil
	case uint64:
		return int64(vt), nil
	case json.Number:
		if i, err := vt.Int64(); err == nil {
			return i, nil
		}
		f, err := vt.Float64()
		if err != nil {
			return 0, errors.Wrapf(err, "couldn't convert %v to int64", vt)
		}
		return int64(f), nil
	case float64:
		return int64(vt), nil
	case string:
		i, err := strconv.ParseInt(vt, 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "couldn't convert '%s' to int64", vt)
		}
		return i, nil
	default:
		return 0, errors.Errorf("couldn't convert %v of %[1]T to int64", vt)
	}
}

func toFloat64(val interface{}) (float64, error) {
	switch vt := val.(type) {
	case float64:
		return vt, nil
	case float32:
		return float64(vt), nil
	case int64:
		return float64(vt), nil
	case int32:
		return float64(vt), nil
	case int:
		return float64(vt), nil
	case json.Number:
		f, err := vt.Float64()
		return f, errors.Wrapf(err, "couldn't convert %v to float64", vt)
	case string:
		f, err := strconv.ParseFloat(vt, 64)
		return f, errors.Wrapf(err, "couldn't convert '%s' to float64", vt)
	default:
		return 0, errors.Errorf("couldn't convert %v of %[1]T to float64", vt)
	}
}

func toBool(val interface{}) (bool, error) {
	switch vt := val.(type) {
	case bool:
		return vt, nil
	case string:
		b, err := strconv.ParseBool(vt)
		return b, errors.Wrapf(err, "couldn't convert '%s' to bool", vt)
	default:
		return false, errors.Errorf("couldn't convert %v of %[1]T to bool", vt)
	}
}
