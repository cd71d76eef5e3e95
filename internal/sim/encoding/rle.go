// Package encoding carries cube payloads over the wire: run-length pairs of
// (kind id, run) as uvarints, base64 encoded.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrTooLong = errors.New("rle: decoded payload exceeds expected length")

// EncodeRLE encodes ids in order. An empty input encodes to "".
func EncodeRLE(ids []uint16) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	put := func(v uint64) {
		n := binary.PutUvarint(tmp[:], v)
		buf.Write(tmp[:n])
	}
	for i := 0; i < len(ids); {
		j := i + 1
		for j < len(ids) && ids[j] == ids[i] {
			j++
		}
		put(uint64(ids[i]))
		put(uint64(j - i))
		i = j
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeRLE expands a payload. When want >= 0 the result must have exactly
// want entries; runs that would exceed it fail early with ErrTooLong.
func DecodeRLE(b64 string, want int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("rle: %w", err)
	}
	var out []uint16
	if want > 0 {
		out = make([]uint16, 0, want)
	}
	for i := 0; i < len(raw); {
		id, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("rle: bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("rle: bad varint at %d", i)
		}
		i += n
		if id > 0xFFFF {
			return nil, fmt.Errorf("rle: id too large: %d", id)
		}
		if run == 0 {
			return nil, fmt.Errorf("rle: zero run at %d", i)
		}
		if want >= 0 && uint64(len(out))+run > uint64(want) {
			return nil, ErrTooLong
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, uint16(id))
		}
	}
	if want >= 0 && len(out) != want {
		return nil, fmt.Errorf("rle: decoded %d entries, want %d", len(out), want)
	}
	return out, nil
}
