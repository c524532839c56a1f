package dsmr

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Parse.
var (
	// ErrIncomplete means the buffer does not yet hold a complete telegram.
	// The caller keeps its bytes and reads more; nothing was consumed.
	ErrIncomplete = errors.New("dsmr: incomplete telegram")

	// ErrInvalidEncoding means the buffer holds a byte sequence that does
	// not decode as UTF-8. The offending bytes are consumed.
	ErrInvalidEncoding = errors.New("dsmr: invalid encoding")
)

// SyntaxKind classifies a structural parse failure.
type SyntaxKind uint8

const (
	// SyntaxToken marks a missing literal: start marker, separator, line
	// ending or timestamp DST marker.
	SyntaxToken SyntaxKind = iota
	// SyntaxDigit marks a missing, malformed or out-of-range decimal number.
	SyntaxDigit
	// SyntaxHex marks a checksum trailer without exactly four hex digits.
	SyntaxHex
	// SyntaxTooLarge marks a fixed capacity overflow: too many data lines,
	// too many COSEM values on one line, or an oversized device id.
	SyntaxTooLarge
	// SyntaxEmpty marks a data line missing a required COSEM value.
	SyntaxEmpty
)

func (k SyntaxKind) String() string {
	switch k {
	case SyntaxToken:
		return "token"
	case SyntaxDigit:
		return "digit"
	case SyntaxHex:
		return "hex"
	case SyntaxTooLarge:
		return "too large"
	case SyntaxEmpty:
		return "empty"
	}
	return fmt.Sprintf("SyntaxKind(%d)", uint8(k))
}

// SyntaxError reports malformed telegram structure at a byte offset into
// the buffer given to Parse. Parse consumes exactly one byte alongside it,
// so the caller resynchronizes on the next start marker byte by byte.
type SyntaxError struct {
	Offset int
	Kind   SyntaxKind
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("dsmr: syntax error (%s) at offset %d", e.Kind, e.Offset)
}

// ChecksumError reports a well-framed telegram whose CRC16 trailer does not
// match the checksum computed over the covered span. The telegram is
// consumed in full.
type ChecksumError struct {
	Calculated uint16
	Read       uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("dsmr: checksum mismatch: calculated 0x%04X, read 0x%04X", e.Calculated, e.Read)
}

// valueError carries a failure kind out of a COSEM value decoder. The
// framer attaches the buffer offset before the error escapes Parse.
type valueError struct {
	kind SyntaxKind
}

func (e valueError) Error() string {
	return "dsmr: malformed cosem value: " + e.kind.String()
}
