package jsonvalue

import (
	"encoding/json"
	"errors"
	"io"
)

var (
	ErrEmpty        = errors.New("no JSON value in input")
	ErrTrailingData = errors.New("unexpected data after JSON value")
)

// Decode reads exactly one JSON value from r. Numbers are kept as json.Number
// so they round-trip without losing precision.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}
	return v, nil
}
