package dsmr

import (
	"errors"
	"testing"
)

func TestObisAddress(t *testing.T) {
	cases := []struct {
		in   string
		want OBIS
	}{
		{"0-0:96.7.21()", OBIS{0, 0, 96, 7, 21, 255}},
		{"255-255:0.1.0.18()", OBIS{255, 255, 0, 1, 0, 18}},
		{"1-3:0.2.8(", OBIS{1, 3, 0, 2, 8, 255}},
	}
	for _, c := range cases {
		p := parser{in: []byte(c.in)}
		got, err := p.obis()
		if err != nil {
			t.Errorf("obis(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("obis(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestObisAddressErrors(t *testing.T) {
	for _, in := range []string{"300-0:1.1.1(", "a-0:1.1.1(", "1-0:1.1(", "1:0-1.1.1("} {
		p := parser{in: []byte(in)}
		if _, err := p.obis(); err == nil {
			t.Errorf("obis(%q): expected error", in)
		}
	}

	// A digit run touching the end of the buffer may still grow.
	p := parser{in: []byte("1-0:96.7.2")}
	if _, err := p.obis(); !errors.Is(err, ErrIncomplete) {
		t.Errorf("got %v, want ErrIncomplete", err)
	}
}

func TestDataLineValues(t *testing.T) {
	p := parser{in: []byte("0-0:96.14.0(0002)\r\n")}
	r, err := p.dataLine()
	if err != nil {
		t.Fatalf("dataLine: %v", err)
	}
	if r.code != (OBIS{0, 0, 96, 14, 0, 255}) {
		t.Fatalf("code %v", r.code)
	}
	if r.n != 1 || string(r.vals[0].val) != "0002" {
		t.Fatalf("values %d %q", r.n, r.vals[0].val)
	}
	if p.rest() != 0 {
		t.Fatalf("%d bytes left", p.rest())
	}

	p = parser{in: []byte("0-1:24.2.1(101209110000W)(12785.123*m3)\r\n")}
	r, err = p.dataLine()
	if err != nil {
		t.Fatalf("dataLine: %v", err)
	}
	if r.code != (OBIS{0, 1, 24, 2, 1, 255}) {
		t.Fatalf("code %v", r.code)
	}
	if r.n != 2 || string(r.vals[0].val) != "101209110000W" || string(r.vals[1].val) != "12785.123*m3" {
		t.Fatalf("values %d %q %q", r.n, r.vals[0].val, r.vals[1].val)
	}
}

func TestCosemSpans(t *testing.T) {
	p := parser{in: []byte("(00.000*kW)")}
	s, err := p.cosem()
	if err != nil {
		t.Fatalf("cosem: %v", err)
	}
	if string(s.val) != "00.000*kW" {
		t.Fatalf("value %q", s.val)
	}

	p = parser{in: []byte("invalid string")}
	if _, err := p.cosem(); err == nil || errors.Is(err, ErrIncomplete) {
		t.Fatalf("got %v, want a syntax error", err)
	}

	// An open value waits for its closing parenthesis.
	p = parser{in: []byte("(00.0")}
	if _, err := p.cosem(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("got %v, want ErrIncomplete", err)
	}
}

func TestFrameSimpleTelegram(t *testing.T) {
	data := "/XMX1000\r\n\r\n" +
		"1-3:0.2.8(42)\r\n" +
		"0-0:1.0.0(200208153506W)\r\n" +
		"!FFFF\r\n"
	p := parser{in: []byte(data)}
	tel, err := p.telegram()
	if err != nil {
		t.Fatalf("telegram: %v", err)
	}
	if got := tel.DeviceID(); got != "XMX1000" {
		t.Fatalf("device id %q", got)
	}
	if len(tel.Lines()) != 2 {
		t.Fatalf("%d lines", len(tel.Lines()))
	}
	if tel.CRC() != 0xFFFF {
		t.Fatalf("crc 0x%04X", tel.CRC())
	}
	if p.pos != len(data) {
		t.Fatalf("stopped at %d of %d", p.pos, len(data))
	}
}

func TestTrailerValue(t *testing.T) {
	p := parser{in: []byte("!FE01\r\n")}
	crc, err := p.trailer()
	if err != nil {
		t.Fatalf("trailer: %v", err)
	}
	if crc != 65025 {
		t.Fatalf("crc %d, want 65025", crc)
	}

	p = parser{in: []byte("!6a3F\r\n")}
	crc, err = p.trailer()
	if err != nil {
		t.Fatalf("trailer: %v", err)
	}
	if crc != 0x6A3F {
		t.Fatalf("crc 0x%04X", crc)
	}
}
