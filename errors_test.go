package rainbird

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlinford/pyrainbird/sip"
)

func TestNoResponseErrorWrapping(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := &NoResponseError{Command: "CurrentTime", Err: cause}

	assert.ErrorIs(t, err, ErrNoResponse)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "CurrentTime")

	bare := &NoResponseError{Command: "CurrentTime"}
	assert.ErrorIs(t, bare, ErrNoResponse)
	assert.Equal(t, "CurrentTime: no response from controller", bare.Error())
}

func TestNoResponseErrorSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("poll cycle: %w", &NoResponseError{Command: "CurrentDate"})
	assert.ErrorIs(t, err, ErrNoResponse)

	var noResp *NoResponseError
	require.ErrorAs(t, err, &noResp)
	assert.Equal(t, "CurrentDate", noResp.Command)
}

func TestProtocolMismatchErrorMessage(t *testing.T) {
	plain := &ProtocolMismatchError{Command: "CurrentTime", Expected: 0x90, Actual: 0xC8}
	assert.Equal(t, "CurrentTime: expected reply 90, got C8", plain.Error())
}

func TestProtocolMismatchErrorNAKMessage(t *testing.T) {
	resp, err := sip.Decode([]byte{0x00, 0x39, 0x01})
	require.NoError(t, err)

	e := &ProtocolMismatchError{Command: "ManuallyRunStation", Expected: 0x01, Actual: 0x00, Response: resp}
	assert.Contains(t, e.Error(), "NAK 01")
	assert.Contains(t, e.Error(), "command not supported")

	resp, err = sip.Decode([]byte{0x00, 0x39, 0x7F})
	require.NoError(t, err)
	e = &ProtocolMismatchError{Command: "ManuallyRunStation", Expected: 0x01, Actual: 0x00, Response: resp}
	assert.Contains(t, e.Error(), "unknown reason")
}
