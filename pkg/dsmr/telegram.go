package dsmr

import "fmt"

// Capacity limits for a single telegram. Exceeding any of them is a
// recoverable SyntaxTooLarge error, never a panic.
const (
	// MaxLines is the number of data lines a telegram may carry.
	MaxLines = 32
	// MaxCosemValues is the number of parenthesized values one line may carry.
	MaxCosemValues = 16
	// MaxDeviceID is the longest accepted identification after the start marker.
	MaxDeviceID = 32
)

// Phase identifies an electrical phase on a three-phase connection.
type Phase uint8

const (
	L1 Phase = iota + 1
	L2
	L3
)

func (p Phase) String() string {
	switch p {
	case L1:
		return "L1"
	case L2:
		return "L2"
	case L3:
		return "L3"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// key returns the lowercase serialization prefix for the phase.
func (p Phase) key() string {
	switch p {
	case L2:
		return "l2"
	case L3:
		return "l3"
	}
	return "l1"
}

// Timestamp is a wall-clock reading from the meter. The wire carries a
// two-digit year, stored here 2000-based. DST holds the daylight saving
// marker that closes the wire form: true for S (summer), false for W
// (winter).
type Timestamp struct {
	Year   uint16
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
	DST    bool
}

// String renders the timestamp in RFC 3339 form with the fixed Dutch UTC
// offset selected by the DST marker: +02:00 in summer, +01:00 in winter.
func (ts Timestamp) String() string {
	offset := "+01:00"
	if ts.DST {
		offset = "+02:00"
	}
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d%s",
		ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Second, offset)
}

// LineKind discriminates the decoded payload of a Line.
type LineKind uint8

const (
	// LineUnknownOBIS retains a syntactically valid line whose address is
	// not in the dispatch table. Unknown lines never fail a telegram.
	LineUnknownOBIS LineKind = iota
	LineVersion
	LineTimestamp
	LineEquipmentID
	LineConsumed
	LineProduced
	LineActiveTariff
	LineTotalConsuming
	LineTotalProducing
	LinePowerFailures
	LineLongPowerFailures
	LinePowerFailureLog
	LineVoltageSags
	LineVoltageSwells
	LineCurrent
	LineConsuming
	LineProducing
)

func (k LineKind) String() string {
	switch k {
	case LineUnknownOBIS:
		return "unknown_obis"
	case LineVersion:
		return "version"
	case LineTimestamp:
		return "timestamp"
	case LineEquipmentID:
		return "equipment_id"
	case LineConsumed:
		return "consumed"
	case LineProduced:
		return "produced"
	case LineActiveTariff:
		return "active_tariff"
	case LineTotalConsuming:
		return "total_consuming"
	case LineTotalProducing:
		return "total_producing"
	case LinePowerFailures:
		return "power_failures"
	case LineLongPowerFailures:
		return "long_power_failures"
	case LinePowerFailureLog:
		return "power_failure_log"
	case LineVoltageSags:
		return "voltage_sags"
	case LineVoltageSwells:
		return "voltage_swells"
	case LineCurrent:
		return "current"
	case LineConsuming:
		return "consuming"
	case LineProducing:
		return "producing"
	}
	return fmt.Sprintf("LineKind(%d)", uint8(k))
}

// Line is one decoded data line. Kind selects which of the remaining fields
// carry the payload; the rest stay zero.
type Line struct {
	Kind LineKind
	// Code is the wire address, set for every kind.
	Code OBIS
	// Tariff accompanies LineConsumed and LineProduced.
	Tariff uint8
	// Phase accompanies LineCurrent, LineConsuming and LineProducing.
	Phase Phase
	// Value is the numeric payload: Wh for energy registers, W for power,
	// A for current, a bare count for counters and version fields.
	Value uint32
	// Time accompanies LineTimestamp.
	Time Timestamp
}

// Telegram is one decoded P1 telegram. Parse returns telegrams by value;
// no part of the input buffer is retained.
type Telegram struct {
	deviceID  [MaxDeviceID]byte
	deviceLen uint8
	lines     [MaxLines]Line
	lineCount uint8
	crc       uint16
}

// DeviceID returns the identification that follows the start marker.
func (t Telegram) DeviceID() string {
	return string(t.deviceID[:t.deviceLen])
}

// Lines returns the decoded data lines in wire order.
func (t Telegram) Lines() []Line {
	return t.lines[:t.lineCount]
}

// CRC returns the checksum read from the trailer.
func (t Telegram) CRC() uint16 {
	return t.crc
}
