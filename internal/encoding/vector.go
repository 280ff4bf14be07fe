// Package encoding implements the on-disk byte<->struct codecs used by
// the store layer: a length-prefixed binary vector format and the
// vectors blob built from it. Metadata and manifests are JSON, written
// with encoding/json by their owners, not by this package.
package encoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidVector is returned for malformed vector bytes or values.
var ErrInvalidVector = errors.New("invalid vector")

// EncodeVector encodes a float32 vector as a length-prefixed little-endian byte string.
func EncodeVector(vector []float32) ([]byte, error) {
	if vector == nil {
		return nil, ErrInvalidVector
	}

	buf := new(bytes.Buffer)
	buf.Grow(4 + len(vector)*4)

	n := len(vector)
	if n > math.MaxInt32 {
		return nil, fmt.Errorf("vector too large: %d elements exceeds maximum", n)
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(n)); err != nil {
		return nil, fmt.Errorf("encode vector length: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, vector); err != nil {
		return nil, fmt.Errorf("encode vector values: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeVector decodes bytes produced by EncodeVector, along with the
// number of bytes consumed so callers can decode a stream of records.
func DecodeVector(data []byte) ([]float32, int, error) {
	if len(data) < 4 {
		return nil, 0, ErrInvalidVector
	}

	length := int32(binary.LittleEndian.Uint32(data[:4]))
	if length < 0 {
		return nil, 0, ErrInvalidVector
	}
	if length == 0 {
		return []float32{}, 4, nil
	}

	consumed := 4 + int(length)*4
	if len(data) < consumed {
		return nil, 0, ErrInvalidVector
	}

	vector := make([]float32, length)
	r := bytes.NewReader(data[4:consumed])
	if err := binary.Read(r, binary.LittleEndian, vector); err != nil {
		return nil, 0, fmt.Errorf("decode vector values: %w", err)
	}

	return vector, consumed, nil
}

// ValidateVector reports whether vector is non-empty and free of NaN/Inf values.
func ValidateVector(vector []float32) error {
	if len(vector) == 0 {
		return ErrInvalidVector
	}
	for _, v := range vector {
		f := float64(v)
		if f != f || math.IsInf(f, 0) {
			return ErrInvalidVector
		}
	}
	return nil
}
