package packet

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Op selects the operation a packet requests.
type Op uint8

const (
	OpUnknown Op = iota
	OpOpen
	OpClose
	OpRead
	OpWrite
	OpDump
	OpPing
)

func (o Op) String() string {
	switch o {
	case OpOpen:
		return "OPEN"
	case OpClose:
		return "CLOSE"
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	case OpDump:
		return "DUMP"
	case OpPing:
		return "PING"
	default:
		return fmt.Sprintf("OP(%d)", uint8(o))
	}
}

// ErrMalformed is returned when a frame is not a valid packet envelope.
var ErrMalformed = errors.New("packet: malformed envelope")

const (
	fieldOp     protowire.Number = 1
	fieldStatus protowire.Number = 2
	fieldRecord protowire.Number = 3
)

// Packet is one request or reply. Status is zero on requests. Record holds
// a point or dump record depending on Op.
type Packet struct {
	Op     Op
	Status uint8
	Record []byte
}

// Append encodes p in protobuf wire format and appends it to b. Zero fields
// are omitted.
func (p *Packet) Append(b []byte) []byte {
	if p.Op != OpUnknown {
		b = protowire.AppendTag(b, fieldOp, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.Op))
	}
	if p.Status != 0 {
		b = protowire.AppendTag(b, fieldStatus, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.Status))
	}
	if len(p.Record) > 0 {
		b = protowire.AppendTag(b, fieldRecord, protowire.BytesType)
		b = protowire.AppendBytes(b, p.Record)
	}
	return b
}

// Unmarshal decodes b into p, skipping unknown fields. Record aliases b.
func (p *Packet) Unmarshal(b []byte) error {
	*p = Packet{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldOp && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: op: %w", ErrMalformed, protowire.ParseError(n))
			}
			p.Op = Op(v)
			b = b[n:]
		case num == fieldStatus && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("%w: status: %w", ErrMalformed, protowire.ParseError(n))
			}
			p.Status = uint8(v)
			b = b[n:]
		case num == fieldRecord && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("%w: record: %w", ErrMalformed, protowire.ParseError(n))
			}
			p.Record = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("%w: field %d: %w", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}
