package encoding

import (
	"errors"
	"testing"
)

func TestRLE_RoundTrip(t *testing.T) {
	in := make([]uint16, 0, 200)
	in = append(in, 1, 1, 1, 2, 2, 3)
	for i := 0; i < 50; i++ {
		in = append(in, 6)
	}
	in = append(in, 0, 4, 4, 4)

	out, err := DecodeRLE(EncodeRLE(in), len(in))
	if err != nil {
		t.Fatalf("DecodeRLE: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestRLE_Empty(t *testing.T) {
	if s := EncodeRLE(nil); s != "" {
		t.Fatalf("empty encode=%q", s)
	}
	out, err := DecodeRLE("", 0)
	if err != nil || len(out) != 0 {
		t.Fatalf("empty decode: %v %v", out, err)
	}
}

func TestRLE_LengthChecks(t *testing.T) {
	enc := EncodeRLE([]uint16{2, 2, 2, 2})
	if _, err := DecodeRLE(enc, 3); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
	if _, err := DecodeRLE(enc, 5); err == nil {
		t.Fatalf("expected short payload error")
	}
	if out, err := DecodeRLE(enc, -1); err != nil || len(out) != 4 {
		t.Fatalf("unbounded decode: %v %v", out, err)
	}
	if _, err := DecodeRLE("!!", -1); err == nil {
		t.Fatalf("expected base64 error")
	}
}
