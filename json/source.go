// Package json decodes streams of JSON objects into lake records.
package json

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/sparkify/lake"
)

// Source is a lake.Source for reading json data. Numbers are kept as
// json.Number so that integers are not rounded through float64.
type Source struct {
	dec *json.Decoder
}

// NewSource gets a new json source which will decode from the given reader.
func NewSource(r io.Reader) *Source {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Source{
		dec: dec,
	}
}

// Decoder is a lake.Decoder for files of newline separated, or simply
// concatenated, JSON objects.
func Decoder(r io.Reader) lake.Source {
	return NewSource(r)
}

// Record implements lake.Source. It returns the next json object that can be
// decoded from the reader. It is guaranteed to return a
// map[string]interface{} if there is no error; any other json value is an
// error.
func (s *Source) Record() (rec interface{}, err error) {
	var val interface{}
	err = s.dec.Decode(&val)
	if err == io.EOF {
		return nil, err
	} else if err != nil {
		return nil, errors.Wrap(err, "decoding json")
	}
	res, ok := val.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("expected a json object but got %T", val)
	}
	return res, nil
}
