package dsmr

import (
	"fmt"
	"io"
)

// Serialize writes the telegram as a single flat JSON object. Keys appear
// in telegram line order. The equipment id, the power failure log and
// unknown lines are not serialized. Numeric values are bare integers in
// their storage resolution: Wh, W, A.
func (t Telegram) Serialize(w io.Writer) error {
	ew := errWriter{w: w}
	ew.str("{")
	first := true
	sep := func() string {
		if first {
			first = false
			return ""
		}
		return ","
	}
	for _, l := range t.Lines() {
		switch l.Kind {
		case LineVersion:
			ew.printf(`%s"dsmr_version":%d`, sep(), l.Value)
		case LineTimestamp:
			ew.printf(`%s"timestamp":"%s"`, sep(), l.Time)
		case LineConsumed:
			ew.printf(`%s"tariff_%d_consumed":%d`, sep(), l.Tariff, l.Value)
		case LineProduced:
			ew.printf(`%s"tariff_%d_produced":%d`, sep(), l.Tariff, l.Value)
		case LineActiveTariff:
			ew.printf(`%s"active_tariff":%d`, sep(), l.Value)
		case LineTotalConsuming:
			ew.printf(`%s"total_consuming":%d`, sep(), l.Value)
		case LineTotalProducing:
			ew.printf(`%s"total_producing":%d`, sep(), l.Value)
		case LinePowerFailures:
			ew.printf(`%s"power_failures":%d`, sep(), l.Value)
		case LineLongPowerFailures:
			ew.printf(`%s"long_power_failures":%d`, sep(), l.Value)
		case LineVoltageSags:
			ew.printf(`%s"voltage_sags":%d`, sep(), l.Value)
		case LineVoltageSwells:
			ew.printf(`%s"voltage_swells":%d`, sep(), l.Value)
		case LineCurrent:
			ew.printf(`%s"%s_current":%d`, sep(), l.Phase.key(), l.Value)
		case LineConsuming:
			ew.printf(`%s"%s_consuming":%d`, sep(), l.Phase.key(), l.Value)
		case LineProducing:
			ew.printf(`%s"%s_producing":%d`, sep(), l.Phase.key(), l.Value)
		}
	}
	ew.str("}")
	return ew.err
}

// errWriter sticks on the first write error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) str(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
