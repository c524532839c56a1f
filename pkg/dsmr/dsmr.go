// Package dsmr decodes DSMR 4 P1 telegrams incrementally.
//
// Parse works on whatever prefix of the byte stream the caller has and
// reports exactly how many bytes it consumed, so it composes with any
// buffering strategy. Scanner wraps that loop around an io.Reader for the
// common serial port case.
package dsmr

import "errors"

// Parse scans the front of input for one complete telegram.
//
// The consumed count tells the caller how many leading bytes to discard
// before the next attempt, whatever the outcome: 0 with ErrIncomplete
// (keep everything, read more), 1 with a *SyntaxError (resynchronize byte
// by byte), the length of the invalid sequence plus its valid prefix with
// ErrInvalidEncoding, and the full telegram length both with a
// *ChecksumError and with a decoded telegram.
//
// Parse never blocks, holds no reference to input after returning, and
// does not allocate when a telegram parses cleanly.
func Parse(input []byte) (int, Telegram, error) {
	valid, errLen := checkUTF8(input)
	if errLen < 0 {
		return 0, Telegram{}, ErrIncomplete
	}
	if errLen > 0 {
		return valid + errLen, Telegram{}, ErrInvalidEncoding
	}
	p := parser{in: input}
	t, err := p.telegram()
	if errors.Is(err, ErrIncomplete) {
		return 0, Telegram{}, ErrIncomplete
	}
	if err != nil {
		return 1, Telegram{}, err
	}
	if calc := telegramCRC(input[:p.pos]); calc != t.crc {
		return p.pos, Telegram{}, &ChecksumError{Calculated: calc, Read: t.crc}
	}
	return p.pos, t, nil
}

// checkUTF8 reports how much of input decodes as UTF-8. A zero errLen means
// all of it does. A positive errLen is the length of the invalid sequence
// found right after the valid prefix. An errLen of -1 means the buffer ends
// in the middle of what may still become a valid multi-byte sequence.
func checkUTF8(input []byte) (valid, errLen int) {
	i := 0
	n := len(input)
	for i < n {
		c := input[i]
		if c < 0x80 {
			i++
			continue
		}
		var size int
		var lo, hi byte = 0x80, 0xBF
		switch {
		case c >= 0xC2 && c <= 0xDF:
			size = 2
		case c == 0xE0:
			size, lo = 3, 0xA0
		case c == 0xED:
			size, hi = 3, 0x9F
		case c >= 0xE1 && c <= 0xEF:
			size = 3
		case c == 0xF0:
			size, lo = 4, 0x90
		case c >= 0xF1 && c <= 0xF3:
			size = 4
		case c == 0xF4:
			size, hi = 4, 0x8F
		default:
			return i, 1
		}
		if i+1 == n {
			return i, -1
		}
		if b := input[i+1]; b < lo || b > hi {
			return i, 1
		}
		for k := 2; k < size; k++ {
			if i+k == n {
				return i, -1
			}
			if b := input[i+k]; b < 0x80 || b > 0xBF {
				return i, k
			}
		}
		i += size
	}
	return n, 0
}
