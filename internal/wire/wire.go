package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	format byte = 1
	header      = 4 + 1 + 8 + 4
)

var (
	ErrCorrupt = errors.New("cassession: corrupt entry")
	magic4     = [...]byte{'C', 'S', 'E', 'S'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Entry: magic(4) | format(1) | version(u64 be) | vlen(u32 be) | payload(vlen)
func EncodeEntry(version uint64, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(header + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(format)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], version)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeEntry returns a payload slice aliasing b (no copy).
// Trailing bytes after the payload are rejected.
func DecodeEntry(b []byte) (version uint64, payload []byte, err error) {
	if len(b) < header || !hasMagic(b) || b[4] != format {
		return 0, nil, ErrCorrupt
	}

	off := 5

	version = binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen != len(b)-off { // overflow-safe, strict framing
		return 0, nil, ErrCorrupt
	}

	return version, b[off : off+vlen], nil
}
