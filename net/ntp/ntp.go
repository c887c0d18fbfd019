// Package ntp implements the 48-byte SNTP wire format: packet encoding and
// decoding, the leap/version/mode bit field, timestamp conversion to
// microseconds, and plausibility validation of server responses.
package ntp

import (
	"encoding/binary"
	"errors"
)

const (
	ServerPort = 123

	PacketLen = 48

	LeapIndicatorNoWarning    = 0
	LeapIndicatorInsertSecond = 1
	LeapIndicatorDeleteSecond = 2
	LeapIndicatorUnknown      = 3

	VersionSNTP = 3

	ModeClient = 3
	ModeServer = 4

	StratumMin = 1
	StratumMax = 15
)

// Time64 is a 64-bit NTP timestamp: seconds since 1900 and a 2^-32 fraction.
type Time64 struct {
	Seconds  uint32
	Fraction uint32
}

// Micros converts the timestamp to whole microseconds since 1900. The
// fraction is scaled down from 2^-32 units, discarding sub-microsecond bits.
func (t Time64) Micros() int64 {
	return int64(t.Seconds)*1_000_000 + int64(t.Fraction)*1_000_000>>32
}

type Packet struct {
	LVM            uint8
	Stratum        uint8
	Poll           int8
	Precision      int8
	RootDelay      uint32
	RootDispersion uint32
	ReferenceID    uint32
	ReferenceTime  Time64
	OriginTime     Time64
	ReceiveTime    Time64
	TransmitTime   Time64
}

var (
	errPacketSize = errors.New("unexpected packet size")

	errResponseMode      = errors.New("response mode is not server")
	errResponseLeap      = errors.New("response leap indicator is unknown")
	errResponseStratum   = errors.New("response stratum out of range")
	errResponseTimestamp = errors.New("response carries a zero timestamp")
)

func (p *Packet) LeapIndicator() uint8 {
	return p.LVM >> 6 & 0b0000_0011
}

func (p *Packet) SetLeapIndicator(l uint8) {
	if l&0b0000_0011 != l {
		panic("unexpected NTP leap indicator value")
	}
	p.LVM = p.LVM&0b0011_1111 | l<<6
}

func (p *Packet) Version() uint8 {
	return p.LVM >> 3 & 0b0000_0111
}

func (p *Packet) SetVersion(v uint8) {
	if v&0b0000_0111 != v {
		panic("unexpected NTP version value")
	}
	p.LVM = p.LVM&0b1100_0111 | v<<3
}

func (p *Packet) Mode() uint8 {
	return p.LVM & 0b0000_0111
}

func (p *Packet) SetMode(m uint8) {
	if m&0b0000_0111 != m {
		panic("unexpected NTP mode value")
	}
	p.LVM = p.LVM&0b1111_1000 | m
}

func putTime64(b []byte, t Time64) {
	binary.BigEndian.PutUint32(b, t.Seconds)
	binary.BigEndian.PutUint32(b[4:], t.Fraction)
}

func getTime64(b []byte) Time64 {
	return Time64{
		Seconds:  binary.BigEndian.Uint32(b),
		Fraction: binary.BigEndian.Uint32(b[4:]),
	}
}

// EncodePacket serializes pkt into b, growing b to PacketLen if needed.
func EncodePacket(b *[]byte, pkt *Packet) {
	if cap(*b) < PacketLen {
		*b = make([]byte, PacketLen)
	} else {
		*b = (*b)[:PacketLen]
	}

	buf := *b
	buf[0] = pkt.LVM
	buf[1] = pkt.Stratum
	buf[2] = byte(pkt.Poll)
	buf[3] = byte(pkt.Precision)
	binary.BigEndian.PutUint32(buf[4:], pkt.RootDelay)
	binary.BigEndian.PutUint32(buf[8:], pkt.RootDispersion)
	binary.BigEndian.PutUint32(buf[12:], pkt.ReferenceID)
	putTime64(buf[16:], pkt.ReferenceTime)
	putTime64(buf[24:], pkt.OriginTime)
	putTime64(buf[32:], pkt.ReceiveTime)
	putTime64(buf[40:], pkt.TransmitTime)
}

func DecodePacket(pkt *Packet, b []byte) error {
	if len(b) < PacketLen {
		return errPacketSize
	}

	pkt.LVM = b[0]
	pkt.Stratum = b[1]
	pkt.Poll = int8(b[2])
	pkt.Precision = int8(b[3])
	pkt.RootDelay = binary.BigEndian.Uint32(b[4:])
	pkt.RootDispersion = binary.BigEndian.Uint32(b[8:])
	pkt.ReferenceID = binary.BigEndian.Uint32(b[12:])
	pkt.ReferenceTime = getTime64(b[16:])
	pkt.OriginTime = getTime64(b[24:])
	pkt.ReceiveTime = getTime64(b[32:])
	pkt.TransmitTime = getTime64(b[40:])

	return nil
}

// EncodeRequest fills b with a client request: leap 0, version 3, mode 3
// (first byte 0x1B), all other fields zero.
func EncodeRequest(b *[]byte) {
	pkt := Packet{}
	pkt.SetVersion(VersionSNTP)
	pkt.SetMode(ModeClient)
	EncodePacket(b, &pkt)
}

// ValidateResponse checks that a decoded packet is a plausible server
// response: server mode, a known leap indicator, a stratum in [1, 15], and
// non-zero receive and transmit timestamps.
func ValidateResponse(resp *Packet) error {
	if resp.Mode() != ModeServer {
		return errResponseMode
	}
	if resp.LeapIndicator() == LeapIndicatorUnknown {
		return errResponseLeap
	}
	if resp.Stratum < StratumMin || resp.Stratum > StratumMax {
		return errResponseStratum
	}
	if resp.ReceiveTime.Seconds == 0 || resp.TransmitTime.Seconds == 0 {
		return errResponseTimestamp
	}
	return nil
}
