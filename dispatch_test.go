package rainbird

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlinford/pyrainbird/sip"
)

// fakeTransport answers requests from a test-provided function and counts
// calls.
type fakeTransport struct {
	calls    int
	requests [][]byte
	lengths  []int
	respond  func(data []byte) ([]byte, error)
}

func (f *fakeTransport) Request(data []byte, length int) ([]byte, error) {
	f.calls++
	f.requests = append(f.requests, append([]byte(nil), data...))
	f.lengths = append(f.lengths, length)
	return f.respond(data)
}

// newTestController wires a controller to a fake transport with a frozen
// clock. The returned function advances the clock.
func newTestController(respond func(data []byte) ([]byte, error)) (*Controller, *fakeTransport, func(time.Duration)) {
	ft := &fakeTransport{respond: respond}
	c := NewWithTransport(ft)
	c.SetLogger(zerolog.Nop())
	clock := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	advance := func(d time.Duration) { clock = clock.Add(d) }
	return c, ft, advance
}

func replyTo(replies map[byte][]byte) func(data []byte) ([]byte, error) {
	return func(data []byte) ([]byte, error) {
		reply, ok := replies[data[0]]
		if !ok {
			return nil, errors.New("unscripted command")
		}
		return reply, nil
	}
}

func TestCommandDecodesReply(t *testing.T) {
	c, ft, _ := newTestController(replyTo(map[byte][]byte{
		0x02: {0x82, 0x00, 0x03, 0x02, 0x09},
	}))

	resp, err := c.Command("ModelAndVersion")
	require.NoError(t, err)
	assert.Equal(t, "ModelAndVersionResponse", resp.Type)
	assert.Equal(t, uint64(3), resp.Field("modelID"))

	require.Len(t, ft.requests, 1)
	assert.Equal(t, []byte{0x02}, ft.requests[0])
	assert.Equal(t, []int{1}, ft.lengths)
}

func TestCommandEncodesArguments(t *testing.T) {
	c, ft, _ := newTestController(replyTo(map[byte][]byte{
		0x39: {0x01, 0x39},
	}))

	_, err := c.Command("ManuallyRunStation", 3, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x39, 0x00, 0x03, 0x05}, ft.requests[0])
	assert.Equal(t, []int{4}, ft.lengths)
}

func TestCommandTransportErrorIsNoResponse(t *testing.T) {
	cause := errors.New("connection refused")
	c, _, _ := newTestController(func([]byte) ([]byte, error) {
		return nil, cause
	})

	_, err := c.Command("CurrentTime")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.ErrorIs(t, err, cause)

	var noResp *NoResponseError
	require.ErrorAs(t, err, &noResp)
	assert.Equal(t, "CurrentTime", noResp.Command)
}

func TestCommandEmptyReplyIsNoResponse(t *testing.T) {
	c, _, _ := newTestController(func([]byte) ([]byte, error) {
		return nil, nil
	})

	_, err := c.Command("CurrentTime")
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestCommandProtocolMismatch(t *testing.T) {
	c, _, _ := newTestController(replyTo(map[byte][]byte{
		0x3F: {0xC8, 0x01},
	}))

	_, err := c.Command("CurrentStationsActive", 0)
	require.Error(t, err)

	var mismatch *ProtocolMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "CurrentStationsActive", mismatch.Command)
	assert.Equal(t, byte(0xBF), mismatch.Expected)
	assert.Equal(t, byte(0xC8), mismatch.Actual)
	require.NotNil(t, mismatch.Response)
	assert.Equal(t, "CurrentIrrigationStateResponse", mismatch.Response.Type)
	assert.NotErrorIs(t, err, ErrNoResponse)
}

func TestCommandNAKCarriesReason(t *testing.T) {
	c, _, _ := newTestController(replyTo(map[byte][]byte{
		0x39: {0x00, 0x39, 0x02},
	}))

	_, err := c.Command("ManuallyRunStation", 3, 5)
	require.Error(t, err)

	var mismatch *ProtocolMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, byte(0x00), mismatch.Actual)
	assert.Equal(t, uint64(0x02), mismatch.Response.Field("NAKCode"))
	assert.Contains(t, err.Error(), "bad parameter count")
}

func TestCommandUnknownName(t *testing.T) {
	c, ft, _ := newTestController(func([]byte) ([]byte, error) {
		return nil, nil
	})

	_, err := c.Command("SelfDestruct")
	assert.Error(t, err)
	assert.Zero(t, ft.calls)
}

func TestCommandBadArgumentCount(t *testing.T) {
	c, ft, _ := newTestController(func([]byte) ([]byte, error) {
		return nil, nil
	})

	_, err := c.Command("TestStations")
	assert.Error(t, err)
	assert.Zero(t, ft.calls)
}

func TestProjectAppliesMappingOnMatch(t *testing.T) {
	resp, err := sip.Decode([]byte{0xBF, 0x00, 0x80, 0x00, 0x00, 0x00})
	require.NoError(t, err)

	res, err := project("CurrentStationsActive", resp, activeMaskFrom)
	require.NoError(t, err)
	require.True(t, res.Matched())
	assert.Equal(t, "80", res.Value.String())
}

// A reply with the right code but an unexpected variant tag is handed back
// raw rather than projected or rejected.
func TestProjectReturnsRawOnVariantMismatch(t *testing.T) {
	resp := &sip.Response{Code: 0xBF, Type: "SomethingElse", Data: []byte{0xBF}}

	res, err := project("CurrentStationsActive", resp, activeMaskFrom)
	require.NoError(t, err)
	assert.False(t, res.Matched())
	assert.Same(t, resp, res.Raw)
}

func TestAcknowledged(t *testing.T) {
	c, _, _ := newTestController(replyTo(map[byte][]byte{
		0x40: {0x01, 0x40},
	}))

	ok, err := c.acknowledged("StopIrrigation")
	require.NoError(t, err)
	assert.True(t, ok)
}
