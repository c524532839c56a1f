package dsmr

import "github.com/sigurn/crc16"

// crcTable implements CRC-16/ARC: polynomial 0xA001 bit-reflected, zero
// init, no final xor. DSMR 4 specifies this checksum for the P1 port.
var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

func checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// telegramCRC computes the checksum over the covered span of a framed
// telegram: everything from the start marker through the "!" inclusive.
// Only the 4 hex digits and the final CRLF fall outside the span.
func telegramCRC(framed []byte) uint16 {
	return checksum(framed[:len(framed)-trailerLen])
}
