package lemonkv

import (
	"errors"
	"fmt"
)

// Status is the outcome code carried back to a caller with every reply.
type Status uint8

const (
	StatusOK Status = iota
	StatusInvalidArgument
	StatusIOFailure
	StatusAllocationFailure
	StatusProtocolError
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusInvalidArgument:
		return "INVALID_ARGUMENT"
	case StatusIOFailure:
		return "IO_FAILURE"
	case StatusAllocationFailure:
		return "ALLOCATION_FAILURE"
	case StatusProtocolError:
		return "PROTOCOL_ERROR"
	case StatusUnavailable:
		return "UNAVAILABLE"
	default:
		return fmt.Sprintf("STATUS(%d)", uint8(s))
	}
}

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = fmt.Errorf("key not found: %w", ErrInvalidArgument)
	ErrBucketRange     = fmt.Errorf("bucket index out of range: %w", ErrInvalidArgument)
	ErrTransport       = errors.New("record not fully transferred")
	ErrAllocation      = errors.New("cannot allocate entry")
	ErrSessionClosed   = errors.New("session closed")
	ErrNoSession       = errors.New("no open session")
	ErrUnknownOp       = errors.New("unknown operation")
	ErrServerClosed    = errors.New("server closed")
)

// StatusOf classifies err. Errors outside the known taxonomy are treated as
// transport failures.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrInvalidArgument):
		return StatusInvalidArgument
	case errors.Is(err, ErrAllocation):
		return StatusAllocationFailure
	case errors.Is(err, ErrNoSession), errors.Is(err, ErrSessionClosed), errors.Is(err, ErrUnknownOp):
		return StatusProtocolError
	case errors.Is(err, ErrServerClosed):
		return StatusUnavailable
	default:
		return StatusIOFailure
	}
}

// Err returns the sentinel for s, or nil for StatusOK. InvalidArgument is
// ambiguous on its own; the caller picks ErrNotFound or ErrBucketRange from
// the op it sent.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusInvalidArgument:
		return ErrInvalidArgument
	case StatusIOFailure:
		return ErrTransport
	case StatusAllocationFailure:
		return ErrAllocation
	case StatusProtocolError:
		return ErrNoSession
	case StatusUnavailable:
		return ErrServerClosed
	default:
		return fmt.Errorf("%w: %s", ErrTransport, s)
	}
}
