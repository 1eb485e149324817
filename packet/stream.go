package packet

import (
	"bufio"
	"net"
	"time"

	"github.com/lemon-mint/frameio"
	"github.com/valyala/bytebufferpool"
)

// Stream sends and receives packets as length-prefixed frames on a conn.
// It is not safe for concurrent use.
type Stream struct {
	conn net.Conn
	bufr *bufio.Reader
	bufw *bufio.Writer

	r frameio.FrameReader
	w frameio.FrameWriter

	timeout time.Duration
}

// NewStream wraps c with pooled buffers. Release returns them.
func NewStream(c net.Conn) *Stream {
	bufr := frameio.BufioPool.GetReader(c)
	bufw := frameio.BufioPool.GetWriter(c)
	return &Stream{
		conn: c,
		bufr: bufr,
		bufw: bufw,
		r:    frameio.NewFrameReader(bufr),
		w:    frameio.NewFrameWriter(bufw),
	}
}

// SetTimeout sets the per-frame read and write deadline. With zero the
// stream stops touching deadlines; dropping an active timeout to zero
// clears whatever deadline the last frame left on the conn.
func (s *Stream) SetTimeout(d time.Duration) {
	if d <= 0 && s.timeout > 0 {
		_ = s.conn.SetDeadline(time.Time{})
	}
	s.timeout = d
}

func (s *Stream) Conn() net.Conn {
	return s.conn
}

// Send encodes p and writes it as one frame.
func (s *Stream) Send(p *Packet) error {
	buffer := bytebufferpool.Get()
	defer bytebufferpool.Put(buffer)
	buffer.B = p.Append(buffer.B[:0])

	if err := s.deadline(s.conn.SetWriteDeadline); err != nil {
		return err
	}
	if err := s.w.Write(buffer.B); err != nil {
		return err
	}
	return s.bufw.Flush()
}

// Recv reads one frame into p. p.Record is only valid until the next Recv.
func (s *Stream) Recv(p *Packet) error {
	if err := s.deadline(s.conn.SetReadDeadline); err != nil {
		return err
	}
	data, err := s.r.Read()
	if err != nil {
		return err
	}
	return p.Unmarshal(data)
}

func (s *Stream) deadline(set func(time.Time) error) error {
	if s.timeout <= 0 {
		return nil
	}
	return set(time.Now().Add(s.timeout))
}

// Release returns the pooled buffers. The stream must not be used after.
func (s *Stream) Release() {
	frameio.BufioPool.PutReader(s.bufr)
	frameio.BufioPool.PutWriter(s.bufw)
	s.bufr, s.bufw = nil, nil
}
