package dsmr

import (
	"errors"
	"testing"
)

func TestDecodeFixedUint(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  uint32
		fail  bool
	}{
		{"42", 2, 42, false},
		{"0001", 4, 1, false},
		{"00002", 5, 2, false},
		{"002", 3, 2, false},
		{"002*A", 3, 2, false},
		{"00002*s", 5, 2, false},
		{"4", 2, 0, true},
		{"", 2, 0, true},
		{"4x", 2, 0, true},
		{"x4", 2, 0, true},
		{"-42", 2, 0, true},
	}
	for _, c := range cases {
		got, err := decodeFixedUint([]byte(c.in), c.width)
		if c.fail {
			if err == nil {
				t.Errorf("decodeFixedUint(%q, %d): expected error", c.in, c.width)
			}
			continue
		}
		if err != nil {
			t.Errorf("decodeFixedUint(%q, %d): %v", c.in, c.width, err)
			continue
		}
		if got != c.want {
			t.Errorf("decodeFixedUint(%q, %d) = %d, want %d", c.in, c.width, got, c.want)
		}
	}
}

func TestDecodeFixedPoint(t *testing.T) {
	cases := []struct {
		in       string
		digits   int
		decimals int
		want     uint32
		fail     bool
	}{
		{"004436.791", 6, 3, 4436791, false},
		{"00.329", 2, 3, 329, false},
		{"000000.000", 6, 3, 0, false},
		{"00.329*kW", 2, 3, 329, false},
		{"12785.123*m3", 5, 3, 12785123, false},
		{"004436791", 6, 3, 0, true},
		{"00,329", 2, 3, 0, true},
		{"00.3", 2, 3, 0, true},
		{"0.329", 2, 3, 0, true},
		{"", 2, 3, 0, true},
	}
	for _, c := range cases {
		got, err := decodeFixedPoint([]byte(c.in), c.digits, c.decimals)
		if c.fail {
			if err == nil {
				t.Errorf("decodeFixedPoint(%q, %d, %d): expected error", c.in, c.digits, c.decimals)
			}
			continue
		}
		if err != nil {
			t.Errorf("decodeFixedPoint(%q, %d, %d): %v", c.in, c.digits, c.decimals, err)
			continue
		}
		if got != c.want {
			t.Errorf("decodeFixedPoint(%q, %d, %d) = %d, want %d", c.in, c.digits, c.decimals, got, c.want)
		}
	}
}

func TestDecodeTimestamp(t *testing.T) {
	ts, err := decodeTimestamp([]byte("200208153516W"))
	if err != nil {
		t.Fatalf("decodeTimestamp: %v", err)
	}
	want := Timestamp{Year: 2020, Month: 2, Day: 8, Hour: 15, Minute: 35, Second: 16, DST: false}
	if ts != want {
		t.Fatalf("got %+v, want %+v", ts, want)
	}

	ts, err = decodeTimestamp([]byte("180726223917S"))
	if err != nil {
		t.Fatalf("decodeTimestamp: %v", err)
	}
	if !ts.DST || ts.Year != 2018 || ts.Month != 7 {
		t.Fatalf("got %+v", ts)
	}
}

func TestDecodeTimestampMalformed(t *testing.T) {
	cases := []struct {
		in   string
		kind SyntaxKind
	}{
		{"2002081535", SyntaxDigit},     // truncated digits
		{"200208153516", SyntaxToken},   // missing marker
		{"200208153516X", SyntaxToken},  // unknown marker
		{"20020815351W", SyntaxDigit},   // digit run too short
		{"2002081535S16W", SyntaxDigit}, // marker in the digit run
	}
	for _, c := range cases {
		_, err := decodeTimestamp([]byte(c.in))
		var ve valueError
		if !errors.As(err, &ve) {
			t.Errorf("decodeTimestamp(%q): got %v, want valueError", c.in, err)
			continue
		}
		if ve.kind != c.kind {
			t.Errorf("decodeTimestamp(%q): kind %v, want %v", c.in, ve.kind, c.kind)
		}
	}
}

func TestTimestampString(t *testing.T) {
	winter := Timestamp{Year: 2020, Month: 2, Day: 8, Hour: 15, Minute: 35, Second: 16}
	if got := winter.String(); got != "2020-02-08T15:35:16+01:00" {
		t.Fatalf("winter timestamp %q", got)
	}
	summer := Timestamp{Year: 2018, Month: 7, Day: 26, Hour: 22, Minute: 39, Second: 17, DST: true}
	if got := summer.String(); got != "2018-07-26T22:39:17+02:00" {
		t.Fatalf("summer timestamp %q", got)
	}
}
