package dsmr

import (
	"bytes"
	"errors"
)

const (
	startMarker = '/'
	// trailerLen is the byte length of the 4 hex digits + CRLF ending a
	// telegram. The "!" preceding them is part of the checksummed span.
	trailerLen = 6
	// minTelegramLen is the shortest complete telegram: the start marker
	// with an empty device id, the blank line and the trailer line.
	minTelegramLen = len("/\r\n\r\n!FFFF\r\n")
)

// span is a view into the parse buffer: the text of one COSEM value or of
// the device id, plus its absolute offset for error reporting. Spans never
// outlive the Parse call that produced them.
type span struct {
	off int
	val []byte
}

// rawLine is the undecoded form of a data line: the address plus the value
// spans, in wire order.
type rawLine struct {
	code OBIS
	vals [MaxCosemValues]span
	n    int
}

// first returns the leading COSEM value of the line.
func (r *rawLine) first() (span, error) {
	if r.n == 0 {
		return span{}, valueError{SyntaxEmpty}
	}
	return r.vals[0], nil
}

// parser scans a single telegram out of the front of a buffer. Sub-parsers
// advance pos and report failure through two channels: ErrIncomplete when
// the buffer ends before a decision can be made, *SyntaxError for
// structure that can never become valid with more input.
type parser struct {
	in  []byte
	pos int
}

func (p *parser) rest() int {
	return len(p.in) - p.pos
}

func (p *parser) fail(kind SyntaxKind) error {
	return &SyntaxError{Offset: p.pos, Kind: kind}
}

func (p *parser) failAt(off int, kind SyntaxKind) error {
	return &SyntaxError{Offset: off, Kind: kind}
}

// expect consumes the single byte b.
func (p *parser) expect(b byte) error {
	if p.rest() == 0 {
		return ErrIncomplete
	}
	if p.in[p.pos] != b {
		return p.fail(SyntaxToken)
	}
	p.pos++
	return nil
}

// crlf consumes one line ending.
func (p *parser) crlf() error {
	if err := p.expect('\r'); err != nil {
		return err
	}
	return p.expect('\n')
}

// group reads one decimal OBIS address group, stopping at the first
// non-digit. A run of digits touching the end of the buffer may continue in
// the next read, so it reports ErrIncomplete rather than a value.
func (p *parser) group() (uint8, error) {
	n := 0
	v := 0
	for {
		if p.pos+n == len(p.in) {
			return 0, ErrIncomplete
		}
		c := p.in[p.pos+n]
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + int(c-'0')
		if v > 255 {
			return 0, p.fail(SyntaxDigit)
		}
		n++
	}
	if n == 0 {
		return 0, p.fail(SyntaxDigit)
	}
	p.pos += n
	return uint8(v), nil
}

// obis reads a line address "A-B:C.D.E" with an optional ".F" tail. Group F
// defaults to 255 when absent.
func (p *parser) obis() (OBIS, error) {
	var code OBIS
	code[5] = 255
	var err error
	if code[0], err = p.group(); err != nil {
		return code, err
	}
	if err = p.expect('-'); err != nil {
		return code, err
	}
	if code[1], err = p.group(); err != nil {
		return code, err
	}
	if err = p.expect(':'); err != nil {
		return code, err
	}
	if code[2], err = p.group(); err != nil {
		return code, err
	}
	if err = p.expect('.'); err != nil {
		return code, err
	}
	if code[3], err = p.group(); err != nil {
		return code, err
	}
	if err = p.expect('.'); err != nil {
		return code, err
	}
	if code[4], err = p.group(); err != nil {
		return code, err
	}
	if p.rest() > 0 && p.in[p.pos] == '.' {
		p.pos++
		if code[5], err = p.group(); err != nil {
			return code, err
		}
	}
	return code, nil
}

// cosem reads one parenthesized value and returns its span. The value text
// is everything up to the next ')', whatever it contains.
func (p *parser) cosem() (span, error) {
	if err := p.expect('('); err != nil {
		return span{}, err
	}
	i := bytes.IndexByte(p.in[p.pos:], ')')
	if i < 0 {
		return span{}, ErrIncomplete
	}
	s := span{off: p.pos, val: p.in[p.pos : p.pos+i]}
	p.pos += i + 1
	return s, nil
}

// deviceID reads the identification after the start marker plus the blank
// line that follows it. An id longer than MaxDeviceID can never frame a
// valid telegram, so the overflow fires as soon as it is certain.
func (p *parser) deviceID() (span, error) {
	start := p.pos
	i := bytes.Index(p.in[p.pos:], []byte("\r\n"))
	if i < 0 {
		if p.rest() > MaxDeviceID+1 {
			return span{}, p.failAt(start, SyntaxTooLarge)
		}
		return span{}, ErrIncomplete
	}
	if i > MaxDeviceID {
		return span{}, p.failAt(start, SyntaxTooLarge)
	}
	s := span{off: start, val: p.in[start : start+i]}
	p.pos += i + 2
	if err := p.crlf(); err != nil {
		return span{}, err
	}
	return s, nil
}

// dataLine reads one "A-B:C.D.E[.F](v1)(v2)..." line with its terminator.
func (p *parser) dataLine() (rawLine, error) {
	var r rawLine
	var err error
	if r.code, err = p.obis(); err != nil {
		return r, err
	}
	for {
		if p.rest() == 0 {
			return r, ErrIncomplete
		}
		if p.in[p.pos] != '(' {
			break
		}
		s, err := p.cosem()
		if err != nil {
			return r, err
		}
		if r.n == len(r.vals) {
			return r, p.failAt(s.off-1, SyntaxTooLarge)
		}
		r.vals[r.n] = s
		r.n++
	}
	if err := p.crlf(); err != nil {
		return r, err
	}
	return r, nil
}

// trailer reads the "!XXXX" checksum line. The hex run is delimited first;
// it must then hold exactly four digits, decoded big-endian.
func (p *parser) trailer() (uint16, error) {
	if err := p.expect('!'); err != nil {
		return 0, err
	}
	start := p.pos
	for {
		if p.pos == len(p.in) {
			return 0, ErrIncomplete
		}
		if !isHex(p.in[p.pos]) {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return 0, p.fail(SyntaxHex)
	}
	digits := p.in[start:p.pos]
	if err := p.crlf(); err != nil {
		return 0, err
	}
	if len(digits) != 4 {
		return 0, p.failAt(start, SyntaxHex)
	}
	var crc uint16
	for _, c := range digits {
		crc = crc<<4 | uint16(hexVal(c))
	}
	return crc, nil
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func hexVal(c byte) byte {
	switch {
	case c <= '9':
		return c - '0'
	case c >= 'a':
		return c - 'a' + 10
	}
	return c - 'A' + 10
}

// telegram frames one telegram from the current position: start marker,
// device id, data lines, trailer. The trailer is always tried before a data
// line; a line that looks like neither is the line parser's error.
func (p *parser) telegram() (Telegram, error) {
	var t Telegram
	if err := p.expect(startMarker); err != nil {
		return t, err
	}
	id, err := p.deviceID()
	if err != nil {
		return t, err
	}
	t.deviceLen = uint8(copy(t.deviceID[:], id.val))
	for {
		mark := p.pos
		crc, err := p.trailer()
		if err == nil {
			t.crc = crc
			return t, nil
		}
		if errors.Is(err, ErrIncomplete) {
			return t, err
		}
		// A "!" commits to the trailer: no OBIS code starts with it, so a
		// malformed trailer is reported as such instead of as a line error.
		if p.in[mark] == '!' {
			return t, err
		}
		p.pos = mark
		r, err := p.dataLine()
		if err != nil {
			return t, err
		}
		line, err := decodeLine(&r)
		if err != nil {
			var ve valueError
			if errors.As(err, &ve) {
				return t, p.failAt(mark, ve.kind)
			}
			return t, err
		}
		if int(t.lineCount) == len(t.lines) {
			return t, p.failAt(mark, SyntaxTooLarge)
		}
		t.lines[t.lineCount] = line
		t.lineCount++
	}
}
