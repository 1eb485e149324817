package lemonkv

import (
	"errors"
	"io"
	"net"

	"github.com/lemon-mint/lemonkv/packet"
	"github.com/valyala/bytebufferpool"
)

func (s *Server) handleConn(c net.Conn) {
	defer c.Close()
	st := packet.NewStream(c)
	defer st.Release()

	buffer := bytebufferpool.Get()
	defer bytebufferpool.Put(buffer)

	var sess *Session
	defer func() {
		if sess != nil {
			sess.Close()
		}
	}()

	var p packet.Packet
	for {
		err := st.Recv(&p)
		if errors.Is(err, packet.ErrMalformed) {
			s.connError(c, "Unmarshal", err)
			if err := s.reply(st, &packet.Packet{Op: p.Op, Status: uint8(StatusProtocolError)}); err != nil {
				return
			}
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				s.logger.Debug("client disconnected", "remote", c.RemoteAddr().String())
			} else {
				s.connError(c, "Read", err)
			}
			return
		}

		reply := packet.Packet{Op: p.Op}
		buffer.Reset()

		switch p.Op {
		case packet.OpOpen:
			if sess != nil {
				reply.Status = uint8(StatusProtocolError)
				break
			}
			sess, err = s.Gate.Open(s.ctx)
			if err != nil {
				s.reply(st, &packet.Packet{Op: p.Op, Status: uint8(StatusUnavailable)})
				return
			}
			// Idle timeout only runs while the connection holds the gate.
			st.SetTimeout(s.ConnTimeout)
		case packet.OpClose:
			if sess != nil {
				sess.Close()
				sess = nil
				st.SetTimeout(0)
			}
		case packet.OpPing:
		case packet.OpRead, packet.OpWrite, packet.OpDump:
			if sess == nil {
				reply.Status = uint8(StatusOf(ErrNoSession))
				break
			}
			s.countOp()
			buffer.B = s.dispatch(sess, &p, &reply, buffer.B)
			reply.Record = buffer.B
		default:
			reply.Status = uint8(StatusOf(ErrUnknownOp))
		}

		if err := s.reply(st, &reply); err != nil {
			if p.Op == packet.OpDump {
				s.connError(c, "Write", "dump reply lost after bucket drained", err)
			} else {
				s.connError(c, "Write", err)
			}
			return
		}
	}
}

// dispatch runs one table operation and appends the reply record to b.
func (s *Server) dispatch(sess *Session, p *packet.Packet, reply *packet.Packet, b []byte) []byte {
	switch p.Op {
	case packet.OpRead:
		req, err := packet.DecodeEntry(p.Record)
		if err != nil {
			reply.Status = uint8(StatusIOFailure)
			return append(b, p.Record...)
		}
		ent, err := sess.Lookup(req.Key)
		reply.Status = uint8(StatusOf(err))
		return packet.AppendEntry(b, ent)

	case packet.OpWrite:
		req, err := packet.DecodeEntry(p.Record)
		if err != nil {
			reply.Status = uint8(StatusIOFailure)
			return append(b, p.Record...)
		}
		reply.Status = uint8(StatusOf(sess.Write(req.Key, req.Data)))
		return packet.AppendEntry(b, req)

	case packet.OpDump:
		req, err := packet.DecodeDump(p.Record)
		if err != nil {
			reply.Status = uint8(StatusIOFailure)
			return append(b, p.Record...)
		}
		rec, _, err := sess.Dump(req.N)
		if err != nil {
			reply.Status = uint8(StatusOf(err))
			return packet.AppendDump(b, &req)
		}
		return packet.AppendDump(b, &rec)
	}
	reply.Status = uint8(StatusOf(ErrUnknownOp))
	return b
}

func (s *Server) reply(st *packet.Stream, p *packet.Packet) error {
	return st.Send(p)
}

func (s *Server) connError(c net.Conn, data ...interface{}) {
	s.logger.Error("conn", "remote", c.RemoteAddr().String(), "detail", data)
}
