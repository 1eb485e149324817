// Package packet defines the fixed-size binary records exchanged with the
// table and the envelope that carries them over a frame stream.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/lemon-mint/lemonkv/types"
)

const (
	// EntrySize is the wire size of a point record: int32 key, int32 data.
	EntrySize = 8

	// DumpSize is the wire size of a dump record: int32 n then DumpSlots
	// point records.
	DumpSize = 4 + types.DumpSlots*EntrySize
)

// ErrShortRecord is returned when a record is not exactly its fixed size.
var ErrShortRecord = errors.New("packet: record size mismatch")

var order = binary.LittleEndian

// AppendEntry appends the point record for e to b.
func AppendEntry(b []byte, e types.Entry) []byte {
	b = order.AppendUint32(b, uint32(e.Key))
	return order.AppendUint32(b, uint32(e.Data))
}

// DecodeEntry parses a point record.
func DecodeEntry(b []byte) (types.Entry, error) {
	if len(b) != EntrySize {
		return types.Entry{}, fmt.Errorf("%w: entry is %d bytes, want %d", ErrShortRecord, len(b), EntrySize)
	}
	return decodeEntry(b), nil
}

func decodeEntry(b []byte) types.Entry {
	return types.Entry{
		Key:  int32(order.Uint32(b[0:4])),
		Data: int32(order.Uint32(b[4:8])),
	}
}

// AppendDump appends the dump record for d to b.
func AppendDump(b []byte, d *types.DumpRecord) []byte {
	b = order.AppendUint32(b, uint32(d.N))
	for _, e := range d.Slots {
		b = AppendEntry(b, e)
	}
	return b
}

// DecodeDump parses a dump record.
func DecodeDump(b []byte) (types.DumpRecord, error) {
	var d types.DumpRecord
	if len(b) != DumpSize {
		return d, fmt.Errorf("%w: dump is %d bytes, want %d", ErrShortRecord, len(b), DumpSize)
	}
	d.N = int32(order.Uint32(b[0:4]))
	for i := range d.Slots {
		off := 4 + i*EntrySize
		d.Slots[i] = decodeEntry(b[off : off+EntrySize])
	}
	return d, nil
}
