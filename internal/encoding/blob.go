package encoding

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeVectorBlob serializes a full vector map to the BinaryStore's
// on-disk vectors blob: a little-endian header (dimension, record count)
// followed by one record per vector — a length-prefixed ID string and a
// length-prefixed float32 array, in the format produced by EncodeVector.
func EncodeVectorBlob(dimension int, vectors map[string][]float32) ([]byte, error) {
	buf := new(bytes.Buffer)

	if err := binary.Write(buf, binary.LittleEndian, int32(dimension)); err != nil {
		return nil, fmt.Errorf("encode dimension: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(len(vectors))); err != nil {
		return nil, fmt.Errorf("encode record count: %w", err)
	}

	for id, vec := range vectors {
		idBytes := []byte(id)
		if err := binary.Write(buf, binary.LittleEndian, int32(len(idBytes))); err != nil {
			return nil, fmt.Errorf("encode id length for %q: %w", id, err)
		}
		buf.Write(idBytes)

		vecBytes, err := EncodeVector(vec)
		if err != nil {
			return nil, fmt.Errorf("encode vector for %q: %w", id, err)
		}
		buf.Write(vecBytes)
	}

	return buf.Bytes(), nil
}

// DecodeVectorBlob parses a blob produced by EncodeVectorBlob. Callers on
// the load path should treat any error here as "corrupt store": reset to
// empty and warn, rather than propagating a hard failure.
func DecodeVectorBlob(data []byte) (dimension int, vectors map[string][]float32, err error) {
	if len(data) < 8 {
		return 0, nil, ErrInvalidVector
	}

	dim := int32(binary.LittleEndian.Uint32(data[:4]))
	count := int32(binary.LittleEndian.Uint32(data[4:8]))
	if dim < 0 || count < 0 {
		return 0, nil, ErrInvalidVector
	}

	vectors = make(map[string][]float32, count)
	offset := 8

	for i := int32(0); i < count; i++ {
		if len(data) < offset+4 {
			return 0, nil, ErrInvalidVector
		}
		idLen := int(int32(binary.LittleEndian.Uint32(data[offset : offset+4])))
		offset += 4
		if idLen < 0 || len(data) < offset+idLen {
			return 0, nil, ErrInvalidVector
		}
		id := string(data[offset : offset+idLen])
		offset += idLen

		vec, consumed, err := DecodeVector(data[offset:])
		if err != nil {
			return 0, nil, fmt.Errorf("decode vector for %q: %w", id, err)
		}
		offset += consumed

		vectors[id] = vec
	}

	return int(dim), vectors, nil
}
