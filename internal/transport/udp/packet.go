// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"math"
)

/*
Packet layout, big endian:

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<----- N * 4 Bytes ----->|
+-------------------+-----------------------+---------------+-------------------------+
|  Sequence Number  |       Timestamp       |     Count     |       Magnitudes        |
|      (uint32)     |   (int64, unix ns)    |    (uint16)   |      (N * float32)      |
+-------------------+-----------------------+---------------+-------------------------+
*/

// HeaderSize is the packet size without magnitudes.
const HeaderSize = 4 + 8 + 2

// MaxMagnitudes is the largest count the header can carry.
const MaxMagnitudes = math.MaxUint16

var ErrPacket = errors.New("udp: malformed packet")

// Packet is a decoded monitor packet.
type Packet struct {
	Seq        uint32
	Timestamp  int64
	Magnitudes []float32
}

// AppendPacket appends the encoded packet to dst. Magnitudes beyond
// MaxMagnitudes are truncated.
func AppendPacket(dst []byte, seq uint32, ts int64, mags []float64) []byte {
	if len(mags) > MaxMagnitudes {
		mags = mags[:MaxMagnitudes]
	}
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(ts))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(mags)))
	for _, m := range mags {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(m)))
	}
	return dst
}

// ParsePacket decodes b. The count field must match the payload length.
func ParsePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, ErrPacket
	}
	p := Packet{
		Seq:       binary.BigEndian.Uint32(b[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:12])),
	}
	n := int(binary.BigEndian.Uint16(b[12:14]))
	payload := b[HeaderSize:]
	if len(payload) != n*4 {
		return Packet{}, ErrPacket
	}
	p.Magnitudes = make([]float32, n)
	for i := range p.Magnitudes {
		p.Magnitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(payload[i*4:]))
	}
	return p, nil
}
