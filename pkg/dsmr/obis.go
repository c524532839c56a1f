package dsmr

import "fmt"

// OBIS identifies a data line by its six address groups A through F. Group
// F is 255 when the address omits it, which P1 telegrams always do.
type OBIS [6]uint8

// String renders the reduced address form used on the P1 port, with group F
// appended: "1-0:1.8.1.255".
func (o OBIS) String() string {
	return fmt.Sprintf("%d-%d:%d.%d.%d.%d", o[0], o[1], o[2], o[3], o[4], o[5])
}
