package dsmr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meterhuis/godsmr/internal/testutil"
)

func TestSerializeExampleGolden(t *testing.T) {
	_, tel, err := Parse([]byte(exampleTelegram))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tel.Serialize(&buf))

	var actual map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &actual))

	var expected map[string]any
	testutil.LoadJSON(t, "example.json", &expected)
	require.Equal(t, "", diffFields(expected, actual))
}

func TestSerializeKeyOrder(t *testing.T) {
	_, tel, err := Parse([]byte(exampleTelegram))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tel.Serialize(&buf))
	out := buf.String()

	keys := []string{
		"dsmr_version", "timestamp",
		"tariff_1_consumed", "tariff_1_produced",
		"tariff_2_consumed", "tariff_2_produced",
		"active_tariff", "total_consuming", "total_producing",
		"power_failures", "long_power_failures",
		"voltage_sags", "voltage_swells",
		"l1_producing", "l1_consuming",
	}
	last := -1
	for _, k := range keys {
		idx := strings.Index(out, `"`+k+`"`)
		require.Greater(t, idx, last, "key %s missing or out of order in %s", k, out)
		last = idx
	}

	// The equipment id, the failure log and unrecognized lines stay out.
	require.NotContains(t, out, "equipment")
	require.NotContains(t, out, "96.13")
	require.NotContains(t, out, "l1_current")
}

func TestSerializeEmptyTelegram(t *testing.T) {
	var tel Telegram
	var buf bytes.Buffer
	require.NoError(t, tel.Serialize(&buf))
	require.Equal(t, "{}", buf.String())
}

func TestSerializePhaseKeys(t *testing.T) {
	var tel Telegram
	tel.lines[0] = Line{Kind: LineCurrent, Phase: L2, Value: 7}
	tel.lines[1] = Line{Kind: LineConsuming, Phase: L3, Value: 230}
	tel.lines[2] = Line{Kind: LineProducing, Phase: L1, Value: 11}
	tel.lineCount = 3

	var buf bytes.Buffer
	require.NoError(t, tel.Serialize(&buf))
	require.Equal(t, `{"l2_current":7,"l3_consuming":230,"l1_producing":11}`, buf.String())
}

func TestSerializeWriteError(t *testing.T) {
	_, tel, err := Parse([]byte(exampleTelegram))
	require.NoError(t, err)

	sinkErr := errors.New("sink full")
	require.ErrorIs(t, tel.Serialize(&failAfterWriter{limit: 3, err: sinkErr}), sinkErr)
}

// failAfterWriter accepts limit writes, then fails every call.
type failAfterWriter struct {
	limit int
	err   error
}

func (w *failAfterWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return 0, w.err
	}
	w.limit--
	return len(p), nil
}

func diffFields(expected, actual map[string]any) string {
	if len(expected) != len(actual) {
		return fmt.Sprintf("len mismatch expected %d actual %d", len(expected), len(actual))
	}
	for k, v := range expected {
		av, ok := actual[k]
		if !ok {
			return fmt.Sprintf("missing key %s", k)
		}
		switch ev := v.(type) {
		case float64:
			f, ok := av.(float64)
			if !ok || math.Abs(ev-f) > 1e-9 {
				return fmt.Sprintf("key %s mismatch expected %v got %v", k, v, av)
			}
		default:
			if fmt.Sprintf("%v", v) != fmt.Sprintf("%v", av) {
				return fmt.Sprintf("key %s mismatch expected %v got %v", k, v, av)
			}
		}
	}
	return ""
}
