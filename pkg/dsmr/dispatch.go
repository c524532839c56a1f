package dsmr

// wildcard matches any value in one group of a dispatch pattern.
const wildcard = -1

// pattern is an OBIS matcher; literal groups are 0..255.
type pattern [6]int16

func (pt pattern) match(code OBIS) bool {
	for i, g := range pt {
		if g != wildcard && uint8(g) != code[i] {
			return false
		}
	}
	return true
}

// lineTable drives data line decoding, scanned top to bottom with the first
// match winning. The consumed/produced energy registers carry the tariff
// number in group E, hence the wildcard. Per-phase entries cover L1; the
// deployed meters report a single phase. Addresses not listed decode as
// LineUnknownOBIS.
var lineTable = []struct {
	pat    pattern
	decode func(r *rawLine) (Line, error)
}{
	{pattern{1, 3, 0, 2, 8, 255}, decodeVersionLine},
	{pattern{0, 0, 1, 0, 0, 255}, decodeTimestampLine},
	{pattern{0, 0, 96, 1, 1, 255}, decodeEquipmentIDLine},
	{pattern{1, 0, 1, 8, wildcard, 255}, decodeConsumedLine},
	{pattern{1, 0, 2, 8, wildcard, 255}, decodeProducedLine},
	{pattern{0, 0, 96, 14, 0, 255}, decodeActiveTariffLine},
	{pattern{1, 0, 1, 7, 0, 255}, decodeTotalConsumingLine},
	{pattern{1, 0, 2, 7, 0, 255}, decodeTotalProducingLine},
	{pattern{0, 0, 96, 7, 21, 255}, counterLine(LinePowerFailures)},
	{pattern{0, 0, 96, 7, 9, 255}, counterLine(LineLongPowerFailures)},
	{pattern{1, 0, 99, 97, 0, 255}, decodePowerFailureLogLine},
	{pattern{1, 0, 32, 32, 0, 255}, counterLine(LineVoltageSags)},
	{pattern{1, 0, 32, 36, 0, 255}, counterLine(LineVoltageSwells)},
	{pattern{1, 0, 31, 7, 1, 255}, decodeCurrentLine},
	{pattern{1, 0, 21, 7, 0, 255}, powerLine(LineProducing)},
	{pattern{1, 0, 22, 7, 0, 255}, powerLine(LineConsuming)},
}

// decodeLine runs the dispatch table over one raw line.
func decodeLine(r *rawLine) (Line, error) {
	for _, e := range lineTable {
		if e.pat.match(r.code) {
			return e.decode(r)
		}
	}
	return Line{Kind: LineUnknownOBIS, Code: r.code}, nil
}

// Fixed digit widths per field. The P1 wire formats differ per register:
// two for the version octet, four for the tariff indicator, five for event
// counters, three for phase currents.
const (
	widthVersion = 2
	widthTariff  = 4
	widthCounter = 5
	widthCurrent = 3
)

func decodeVersionLine(r *rawLine) (Line, error) {
	s, err := r.first()
	if err != nil {
		return Line{}, err
	}
	v, err := decodeFixedUint(s.val, widthVersion)
	if err != nil {
		return Line{}, err
	}
	return Line{Kind: LineVersion, Code: r.code, Value: v}, nil
}

func decodeTimestampLine(r *rawLine) (Line, error) {
	s, err := r.first()
	if err != nil {
		return Line{}, err
	}
	ts, err := decodeTimestamp(s.val)
	if err != nil {
		return Line{}, err
	}
	return Line{Kind: LineTimestamp, Code: r.code, Time: ts}, nil
}

func decodeEquipmentIDLine(r *rawLine) (Line, error) {
	return Line{Kind: LineEquipmentID, Code: r.code}, nil
}

func decodePowerFailureLogLine(r *rawLine) (Line, error) {
	return Line{Kind: LinePowerFailureLog, Code: r.code}, nil
}

// decodeConsumedLine handles 1-0:1.8.E, the per-tariff consumed energy
// register in kWh at three decimals, stored as Wh.
func decodeConsumedLine(r *rawLine) (Line, error) {
	return energyLine(LineConsumed, r)
}

func decodeProducedLine(r *rawLine) (Line, error) {
	return energyLine(LineProduced, r)
}

func energyLine(kind LineKind, r *rawLine) (Line, error) {
	s, err := r.first()
	if err != nil {
		return Line{}, err
	}
	wh, err := decodeFixedPoint(s.val, 6, 3)
	if err != nil {
		return Line{}, err
	}
	return Line{Kind: kind, Code: r.code, Tariff: r.code[4], Value: wh}, nil
}

func decodeActiveTariffLine(r *rawLine) (Line, error) {
	s, err := r.first()
	if err != nil {
		return Line{}, err
	}
	v, err := decodeFixedUint(s.val, widthTariff)
	if err != nil {
		return Line{}, err
	}
	return Line{Kind: LineActiveTariff, Code: r.code, Value: v}, nil
}

func decodeTotalConsumingLine(r *rawLine) (Line, error) {
	return totalPowerLine(LineTotalConsuming, r)
}

func decodeTotalProducingLine(r *rawLine) (Line, error) {
	return totalPowerLine(LineTotalProducing, r)
}

// totalPowerLine handles the aggregate power registers in kW at three
// decimals, stored as W.
func totalPowerLine(kind LineKind, r *rawLine) (Line, error) {
	s, err := r.first()
	if err != nil {
		return Line{}, err
	}
	w, err := decodeFixedPoint(s.val, 2, 3)
	if err != nil {
		return Line{}, err
	}
	return Line{Kind: kind, Code: r.code, Value: w}, nil
}

// counterLine builds a decoder for the five-digit event counters.
func counterLine(kind LineKind) func(r *rawLine) (Line, error) {
	return func(r *rawLine) (Line, error) {
		s, err := r.first()
		if err != nil {
			return Line{}, err
		}
		v, err := decodeFixedUint(s.val, widthCounter)
		if err != nil {
			return Line{}, err
		}
		return Line{Kind: kind, Code: r.code, Value: v}, nil
	}
}

func decodeCurrentLine(r *rawLine) (Line, error) {
	s, err := r.first()
	if err != nil {
		return Line{}, err
	}
	v, err := decodeFixedUint(s.val, widthCurrent)
	if err != nil {
		return Line{}, err
	}
	return Line{Kind: LineCurrent, Code: r.code, Phase: L1, Value: v}, nil
}

// powerLine builds a decoder for the per-phase power lines in kW at three
// decimals, stored as W.
func powerLine(kind LineKind) func(r *rawLine) (Line, error) {
	return func(r *rawLine) (Line, error) {
		s, err := r.first()
		if err != nil {
			return Line{}, err
		}
		w, err := decodeFixedPoint(s.val, 2, 3)
		if err != nil {
			return Line{}, err
		}
		return Line{Kind: kind, Code: r.code, Phase: L1, Value: w}, nil
	}
}
