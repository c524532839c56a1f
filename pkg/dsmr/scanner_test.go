package dsmr

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"

	"github.com/meterhuis/godsmr/internal/testutil"
)

func TestScannerBackToBack(t *testing.T) {
	first := sealTelegram("/AAA5\r\n\r\n1-3:0.2.8(42)\r\n")
	data := first + exampleTelegram

	sc := NewScanner(iotest.OneByteReader(strings.NewReader(data)))

	require.True(t, sc.Scan())
	require.Equal(t, "AAA5", sc.Telegram().DeviceID())

	require.True(t, sc.Scan())
	tel := sc.Telegram()
	require.Equal(t, "XMX5LGBBFFB231237741", tel.DeviceID())
	require.Equal(t, uint16(0x6130), tel.CRC())

	require.False(t, sc.Scan())
	require.NoError(t, sc.Err())
	require.Zero(t, sc.Discarded())
}

func TestScannerSkipsGarbage(t *testing.T) {
	data := "noise!!" + exampleTelegram
	sc := NewScanner(strings.NewReader(data))

	var skipped []error
	sc.OnSkip(func(err error) { skipped = append(skipped, err) })

	require.True(t, sc.Scan())
	require.Equal(t, "XMX5LGBBFFB231237741", sc.Telegram().DeviceID())
	require.Equal(t, uint64(7), sc.Discarded())
	require.Len(t, skipped, 7)
	var se *SyntaxError
	require.ErrorAs(t, skipped[0], &se)
	require.Equal(t, SyntaxToken, se.Kind)
}

func TestScannerSkipsChecksumMismatch(t *testing.T) {
	good := sealTelegram("/GOOD\r\n\r\n0-0:96.14.0(0002)\r\n")
	bad := strings.Replace(exampleTelegram, "!6130\r\n", "!6131\r\n", 1)
	sc := NewScanner(strings.NewReader(bad + good))

	var skipped []error
	sc.OnSkip(func(err error) { skipped = append(skipped, err) })

	require.True(t, sc.Scan())
	require.Equal(t, "GOOD", sc.Telegram().DeviceID())
	require.Equal(t, uint64(len(bad)), sc.Discarded())
	require.Len(t, skipped, 1)
	var ce *ChecksumError
	require.ErrorAs(t, skipped[0], &ce)
	require.Equal(t, uint16(0x6131), ce.Read)
}

func TestScannerBufferOverflow(t *testing.T) {
	sc := NewScannerSize(strings.NewReader(exampleTelegram), 64)

	var skipped []error
	sc.OnSkip(func(err error) { skipped = append(skipped, err) })

	require.False(t, sc.Scan())
	require.NoError(t, sc.Err())
	require.NotEmpty(t, skipped)
	require.ErrorIs(t, skipped[0], ErrBufferOverflow)
	require.Equal(t, uint64(len(exampleTelegram)), sc.Discarded())
}

func TestScannerReaderError(t *testing.T) {
	boom := errors.New("port unplugged")
	src := io.MultiReader(strings.NewReader("junk"), iotest.ErrReader(boom))
	sc := NewScanner(src)

	require.False(t, sc.Scan())
	require.ErrorIs(t, sc.Err(), boom)
	require.Equal(t, uint64(4), sc.Discarded())
}

func TestScannerTruncatedAtEOF(t *testing.T) {
	sc := NewScanner(strings.NewReader(exampleTelegram[:100]))

	require.False(t, sc.Scan())
	require.NoError(t, sc.Err())
	require.Zero(t, sc.Discarded())
}

func TestScannerSizeFloor(t *testing.T) {
	// Sizes that cannot hold even a minimal telegram fall back to the
	// default. 11 bytes is one short of the smallest telegram.
	for _, size := range []int{3, 11} {
		sc := NewScannerSize(strings.NewReader(exampleTelegram), size)
		require.True(t, sc.Scan(), "size %d", size)
		require.Equal(t, uint16(0x6130), sc.Telegram().CRC())
	}

	// The smallest accepted size frames the smallest telegram whole.
	empty := sealTelegram("/\r\n\r\n")
	require.Len(t, empty, minTelegramLen)
	sc := NewScannerSize(strings.NewReader(empty), len(empty))
	require.True(t, sc.Scan())
	require.Empty(t, sc.Telegram().DeviceID())
	require.Empty(t, sc.Telegram().Lines())
}

// TestScannerCaptureFile replays a recorded port session: boot noise, two
// telegrams from different meters with garbage in between, and a telegram
// cut off by the end of the capture.
func TestScannerCaptureFile(t *testing.T) {
	raw := testutil.LoadRaw(t, "capture.txt")
	sc := NewScanner(bytes.NewReader(raw))

	var skipped int
	sc.OnSkip(func(error) { skipped++ })

	require.True(t, sc.Scan())
	require.Equal(t, "XMX5LGBBFFB231237741", sc.Telegram().DeviceID())

	require.True(t, sc.Scan())
	second := sc.Telegram()
	require.Equal(t, "ISK5MT382-1000", second.DeviceID())
	require.Equal(t, uint16(0xCF94), second.CRC())
	require.Len(t, second.Lines(), 4)

	require.False(t, sc.Scan())
	require.NoError(t, sc.Err())
	require.Equal(t, 15, skipped)
	require.EqualValues(t, 15, sc.Discarded())
}
