package dsmr

import (
	"errors"
	"io"
)

// DefaultBufferSize bounds the bytes a Scanner holds while waiting for a
// complete telegram. A DSMR 4 telegram fits in a fraction of this.
const DefaultBufferSize = 4096

// ErrBufferOverflow is reported to the skip hook when the buffer fills
// without containing a complete telegram. The buffered bytes are dropped
// and scanning resynchronizes on the next start marker.
var ErrBufferOverflow = errors.New("dsmr: scanner buffer overflow")

// maxEmptyReads bounds consecutive zero-byte reads from a misbehaving
// source before the scanner gives up with io.ErrNoProgress.
const maxEmptyReads = 100

// Scanner pulls telegrams out of a byte stream, typically a P1 serial
// port. It owns a fixed-size buffer, offers it to Parse after every read
// and discards exactly the consumed count, so garbage between telegrams is
// skipped byte by byte and a partial telegram stays buffered until its
// remainder arrives.
//
//	sc := dsmr.NewScanner(port)
//	for sc.Scan() {
//		t := sc.Telegram()
//		...
//	}
//	err := sc.Err()
type Scanner struct {
	src       io.Reader
	buf       []byte
	n         int
	tel       Telegram
	err       error
	skip      func(error)
	discarded uint64
}

// NewScanner wraps src with the default buffer size.
func NewScanner(src io.Reader) *Scanner {
	return NewScannerSize(src, DefaultBufferSize)
}

// NewScannerSize wraps src with a caller-chosen buffer capacity. Sizes too
// small to hold even a minimal telegram are rounded up to the default.
func NewScannerSize(src io.Reader, size int) *Scanner {
	if size < minTelegramLen {
		size = DefaultBufferSize
	}
	return &Scanner{src: src, buf: make([]byte, size)}
}

// OnSkip registers a hook invoked with every recoverable failure the
// scanner steps over: syntax errors, checksum mismatches, encoding errors
// and buffer overflows. The hook must not retain the error's input.
func (s *Scanner) OnSkip(fn func(error)) {
	s.skip = fn
}

// Scan advances to the next telegram with a valid checksum. It returns
// false when the stream ends or the reader fails; Err tells which of the
// two happened. A truncated telegram at the very end of the stream is
// discarded.
func (s *Scanner) Scan() bool {
	empty := 0
	for {
		for s.n > 0 {
			consumed, t, err := Parse(s.buf[:s.n])
			if err == nil {
				s.advance(consumed)
				s.tel = t
				return true
			}
			if errors.Is(err, ErrIncomplete) {
				break
			}
			s.report(err)
			s.discarded += uint64(consumed)
			s.advance(consumed)
		}
		if s.n == len(s.buf) {
			s.report(ErrBufferOverflow)
			s.discarded += uint64(s.n)
			s.n = 0
		}
		rd, err := s.src.Read(s.buf[s.n:])
		s.n += rd
		if rd > 0 {
			empty = 0
			continue
		}
		if err == nil {
			empty++
			if empty >= maxEmptyReads {
				s.err = io.ErrNoProgress
				return false
			}
			continue
		}
		if !errors.Is(err, io.EOF) {
			s.err = err
		}
		return false
	}
}

// Telegram returns a copy of the telegram found by the last Scan.
func (s *Scanner) Telegram() Telegram {
	return s.tel
}

// Err returns the first non-EOF error encountered by Scan.
func (s *Scanner) Err() error {
	return s.err
}

// Discarded returns the total bytes dropped over skipped failures.
func (s *Scanner) Discarded() uint64 {
	return s.discarded
}

// advance drops n leading bytes, sliding the remainder to the front.
func (s *Scanner) advance(n int) {
	if n <= 0 {
		return
	}
	if n >= s.n {
		s.n = 0
		return
	}
	copy(s.buf, s.buf[n:s.n])
	s.n -= n
}

func (s *Scanner) report(err error) {
	if s.skip != nil {
		s.skip(err)
	}
}
