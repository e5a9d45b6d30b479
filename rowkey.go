package lake

import (
	"encoding/binary"
	"fmt"
	"math"
)

// tags for AppendRowKey; a null is distinct from every typed value.
const (
	tagNull byte = iota
	tagString
	tagInt64
	tagInt32
	tagDouble
	tagTrue
	tagFalse
	tagOther
)

// AppendRowKey appends an encoding of row to buf such that two rows encode
// identically exactly when they have the same values column by column.
func AppendRowKey(buf []byte, row Row) []byte {
	var scratch [binary.MaxVarintLen64]byte
	for _, val := range row {
		switch vt := val.(type) {
		case nil:
			buf = append(buf, tagNull)
		case string:
			buf = append(buf, tagString)
			n := binary.PutUvarint(scratch[:], uint64(len(vt)))
			buf = append(buf, scratch[:n]...)
			buf = append(buf, vt...)
		case int64:
			buf = append(buf, tagInt64)
			n := binary.PutVarint(scratch[:], vt)
			buf = append(buf, scratch[:n]...)
		case int32:
			buf = append(buf, tagInt32)
			n := binary.PutVarint(scratch[:], int64(vt))
			buf = append(buf, scratch[:n]...)
		case float64:
			if vt == 0 {
				vt = 0
			} else if math.IsNaN(vt) {
				vt = math.NaN()
			}
			buf = append(buf, tagDouble)
			binary.BigEndian.PutUint64(scratch[:8], math.Float64bits(vt))
			buf = append(buf, scratch[:8]...)
		case bool:
			if vt {
				buf = append(buf, tagTrue)
			} else {
				buf = append(buf, tagFalse)
			}
		default:
			s := fmt.Sprintf("%T:%v", vt, vt)
			buf = append(buf, tagOther)
			n := binary.PutUvarint(scratch[:], uint64(len(s)))
			buf = append(buf, scratch[:n]...)
			buf = append(buf, s...)
		}
	}
	return buf
}
