package sip

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

// Response is one decoded controller reply. Type and Fields are populated for
// reply codes present in the table; unknown codes leave Type empty and carry
// only the raw payload.
type Response struct {
	Code   byte
	Type   string
	Fields map[string]uint64
	Data   []byte
}

// Field returns the named decoded field, or zero when absent.
func (r *Response) Field(name string) uint64 {
	return r.Fields[name]
}

// Encode builds the request payload for a named command. Arguments are packed
// big-endian at the widths the table declares for the command.
func Encode(name string, args ...int) ([]byte, error) {
	spec, ok := commands[name]
	if !ok {
		return nil, fmt.Errorf("sip: unknown command %q", name)
	}
	if len(args) != len(spec.Args) {
		return nil, fmt.Errorf("sip: %s takes %d arguments, got %d", name, len(spec.Args), len(args))
	}
	buf := make([]byte, 0, spec.Length)
	buf = append(buf, spec.Code)
	for i, arg := range args {
		width := spec.Args[i]
		if arg < 0 || arg >= 1<<(8*width) {
			return nil, fmt.Errorf("sip: %s argument %d out of range: %d does not fit %d bytes", name, i, arg, width)
		}
		for shift := 8 * (width - 1); shift >= 0; shift -= 8 {
			buf = append(buf, byte(arg>>shift))
		}
	}
	return buf, nil
}

// Decode parses a reply payload. The leading byte selects the layout; declared
// fields are read as big-endian hex-nibble slices. A payload too short for its
// declared fields is an error, while an unrecognized reply code is not.
func Decode(data []byte) (*Response, error) {
	if len(data) == 0 {
		return nil, errors.New("sip: empty reply")
	}
	resp := &Response{Code: data[0], Data: data}
	spec, ok := responses[data[0]]
	if !ok {
		return resp, nil
	}
	resp.Type = spec.Type
	nibbles := hex.EncodeToString(data)
	resp.Fields = make(map[string]uint64, len(spec.Fields))
	for _, f := range spec.Fields {
		end := f.Pos + f.Nibbles
		if end > len(nibbles) {
			return nil, fmt.Errorf("sip: %s reply too short: have %d nibbles, field %s ends at %d", spec.Type, len(nibbles), f.Name, end)
		}
		v, err := strconv.ParseUint(nibbles[f.Pos:end], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("sip: decode %s field %s: %w", spec.Type, f.Name, err)
		}
		resp.Fields[f.Name] = v
	}
	return resp, nil
}
