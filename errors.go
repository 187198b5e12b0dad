package rainbird

import (
	"errors"
	"fmt"

	"github.com/jlinford/pyrainbird/sip"
)

var (
	// ErrNoResponse reports that the transport produced nothing usable for
	// a dispatched command. Retry happens below this layer or not at all.
	ErrNoResponse = errors.New("no response from controller")

	// ErrStateUnknown reports that cached device state could not be
	// refreshed. The next call outside the staleness window tries again.
	ErrStateUnknown = errors.New("device state unknown")

	// ErrStationOutOfRange reports a station index beyond the decoded mask.
	ErrStationOutOfRange = errors.New("station out of range")
)

// NoResponseError wraps a transport failure with the command that was being
// sent. It matches ErrNoResponse under errors.Is.
type NoResponseError struct {
	Command string
	Err     error
}

func (e *NoResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: no response from controller: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: no response from controller", e.Command)
}

func (e *NoResponseError) Unwrap() error { return e.Err }

func (e *NoResponseError) Is(target error) bool { return target == ErrNoResponse }

// ProtocolMismatchError reports a reply whose code is not the one the command
// table expects. It signals a desynchronized or confused device, is never
// retried, and carries the decoded reply for diagnosis.
type ProtocolMismatchError struct {
	Command  string
	Expected byte
	Actual   byte
	Response *sip.Response
}

var nakReasons = map[uint64]string{
	0x01: "command not supported",
	0x02: "bad parameter count",
}

func (e *ProtocolMismatchError) Error() string {
	if e.Response != nil && e.Response.Code == 0x00 {
		code := e.Response.Field("NAKCode")
		reason, ok := nakReasons[code]
		if !ok {
			reason = "unknown reason"
		}
		return fmt.Sprintf("%s: controller NAK %02X: %s", e.Command, code, reason)
	}
	return fmt.Sprintf("%s: expected reply %02X, got %02X", e.Command, e.Expected, e.Actual)
}
