package rainbird

import (
	"fmt"
	"time"

	"github.com/jlinford/pyrainbird/internal/telemetry"
	"github.com/jlinford/pyrainbird/sip"
)

// Transport delivers an encoded request to the device and returns the raw
// reply bytes. length is the request length in bytes as the command table
// declares it. Implementations own retries, timeouts and credentials.
type Transport interface {
	Request(data []byte, length int) ([]byte, error)
}

// Command encodes and sends a named table command and returns the decoded
// reply. A transport failure or empty reply comes back as a NoResponseError;
// a reply code other than the one the table expects comes back as a
// ProtocolMismatchError carrying the decoded reply.
func (c *Controller) Command(name string, args ...int) (*sip.Response, error) {
	spec, ok := sip.Command(name)
	if !ok {
		return nil, fmt.Errorf("unknown command %q", name)
	}
	data, err := sip.Encode(name, args...)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("command", name).Str("data", fmt.Sprintf("%X", data)).Msg("Dispatching command")

	start := time.Now()
	reply, err := c.transport.Request(data, spec.Length)
	telemetry.Timing("dispatch.duration", time.Since(start), "command:"+name)
	if err != nil || len(reply) == 0 {
		telemetry.Incr("dispatch.no_response", "command:"+name)
		c.log.Warn().Err(err).Str("command", name).Msg("No response from controller")
		return nil, &NoResponseError{Command: name, Err: err}
	}

	resp, err := sip.Decode(reply)
	if err != nil {
		return nil, fmt.Errorf("decode %s reply: %w", name, err)
	}
	if resp.Code != spec.Response {
		telemetry.Incr("dispatch.mismatch", "command:"+name)
		return nil, &ProtocolMismatchError{
			Command:  name,
			Expected: spec.Response,
			Actual:   resp.Code,
			Response: resp,
		}
	}
	c.log.Debug().Str("command", name).Str("type", resp.Type).Msg("Decoded reply")
	return resp, nil
}

// project applies a command's mapping function when the decoded variant
// matches the one its table entry expects, and otherwise hands the reply
// back raw. Callers that need the typed value check Matched.
func project[T any](name string, resp *sip.Response, mapFn func(*sip.Response) (T, error)) (Result[T], error) {
	spec, ok := sip.Command(name)
	if !ok {
		return Result[T]{}, fmt.Errorf("unknown command %q", name)
	}
	want, _ := sip.ResponseType(spec.Response)
	if resp.Type != want {
		return Result[T]{Raw: resp}, nil
	}
	v, err := mapFn(resp)
	if err != nil {
		return Result[T]{}, fmt.Errorf("project %s reply: %w", name, err)
	}
	return Result[T]{Value: v}, nil
}

// process is the read path every typed façade operation goes through.
func process[T any](c *Controller, name string, mapFn func(*sip.Response) (T, error), args ...int) (Result[T], error) {
	resp, err := c.Command(name, args...)
	if err != nil {
		return Result[T]{}, err
	}
	return project(name, resp, mapFn)
}

func ackFrom(*sip.Response) (bool, error) { return true, nil }

// acknowledged dispatches an action command and reports whether the
// controller acked it with the expected variant.
func (c *Controller) acknowledged(name string, args ...int) (bool, error) {
	res, err := process(c, name, ackFrom, args...)
	if err != nil {
		return false, err
	}
	return res.Matched(), nil
}
