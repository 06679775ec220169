package http

import (
	"crypto/rand"
	"encoding/hex"
)

// ConnID identifies one accepted connection in logs and spans. It is a random
// version 4 UUID.
type ConnID [16]byte

func NewConnID() ConnID {
	var id ConnID

	if _, err := rand.Read(id[:]); err != nil {
		return id
	}

	id[6] = (id[6] & 0x0f) | 0x40 // Version 4
	id[8] = (id[8] & 0x3f) | 0x80 // Variant is 10

	return id
}

func (id ConnID) String() string {
	var buf [36]byte

	hex.Encode(buf[:], id[:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], id[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], id[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], id[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:], id[10:])

	return string(buf[:])
}
