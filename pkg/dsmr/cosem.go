package dsmr

// COSEM value decoders. They operate on the complete text between one pair
// of parentheses, so running out of bytes here is a syntax error, never
// ErrIncomplete. Unit suffixes after the fixed digit count ("*kWh", "*A")
// are ignored.

// decodeFixedUint reads exactly width ASCII digits from the front of v.
func decodeFixedUint(v []byte, width int) (uint32, error) {
	if len(v) < width {
		return 0, valueError{SyntaxDigit}
	}
	var n uint32
	for _, c := range v[:width] {
		if c < '0' || c > '9' {
			return 0, valueError{SyntaxDigit}
		}
		n = n*10 + uint32(c-'0')
	}
	return n, nil
}

// decodeFixedPoint reads digits integer digits, a decimal point and
// decimals fractional digits, returning the value scaled to an integer:
// "004436.791" at (6,3) becomes 4436791. No floats are involved.
func decodeFixedPoint(v []byte, digits, decimals int) (uint32, error) {
	ip, err := decodeFixedUint(v, digits)
	if err != nil {
		return 0, err
	}
	rest := v[digits:]
	if len(rest) == 0 || rest[0] != '.' {
		return 0, valueError{SyntaxToken}
	}
	fp, err := decodeFixedUint(rest[1:], decimals)
	if err != nil {
		return 0, err
	}
	scale := uint32(1)
	for i := 0; i < decimals; i++ {
		scale *= 10
	}
	return ip*scale + fp, nil
}

// decodeTimestamp reads the YYMMDDHHMMSS wall clock and the mandatory
// daylight saving marker that closes it.
func decodeTimestamp(v []byte) (Timestamp, error) {
	var parts [6]uint32
	for i := range parts {
		if len(v) < 2*i+2 {
			return Timestamp{}, valueError{SyntaxDigit}
		}
		p, err := decodeFixedUint(v[2*i:2*i+2], 2)
		if err != nil {
			return Timestamp{}, err
		}
		parts[i] = p
	}
	if len(v) < 13 {
		return Timestamp{}, valueError{SyntaxToken}
	}
	var dst bool
	switch v[12] {
	case 'S':
		dst = true
	case 'W':
		dst = false
	default:
		return Timestamp{}, valueError{SyntaxToken}
	}
	return Timestamp{
		Year:   2000 + uint16(parts[0]),
		Month:  uint8(parts[1]),
		Day:    uint8(parts[2]),
		Hour:   uint8(parts[3]),
		Minute: uint8(parts[4]),
		Second: uint8(parts[5]),
		DST:    dst,
	}, nil
}
