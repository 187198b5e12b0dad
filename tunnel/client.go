// Package tunnel exchanges SIP payloads with Rain Bird LNK WiFi modules. A
// payload rides a JSON-RPC "tunnelSip" envelope, encrypted with AES-256-CBC
// under a key derived from the controller password, POSTed to the module's
// /stick endpoint. Retry policy for an unreachable or busy controller lives
// here and nowhere above.
package tunnel

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jlinford/pyrainbird/internal/telemetry"
)

const (
	DefaultRetries    = 3
	DefaultRetryDelay = 10 * time.Second
	DefaultTimeout    = 20 * time.Second

	userAgent = "RainBird/2.0 CFNetwork/811.5.4 Darwin/16.7.0"
)

// ErrAuthentication means the module rejected the request password. Retrying
// cannot help, so the retry loop treats it as terminal.
var ErrAuthentication = errors.New("controller rejected password")

type sipRequest struct {
	ID      int       `json:"id"`
	Method  string    `json:"method"`
	Params  sipParams `json:"params"`
	JSONRPC string    `json:"jsonrpc"`
}

type sipParams struct {
	Length int    `json:"length"`
	Data   string `json:"data"`
}

type sipReply struct {
	ID     int       `json:"id"`
	Result sipResult `json:"result"`
}

type sipResult struct {
	Length int    `json:"length"`
	Data   string `json:"data"`
}

// Client speaks to one LNK module. Not safe for concurrent use.
type Client struct {
	host    string
	key     []byte
	retries int
	delay   time.Duration
	http    *http.Client
	log     zerolog.Logger
	nextID  int
}

// New returns a client for the module at host (hostname or address,
// optionally with port) using the controller password.
func New(host, password string) *Client {
	return &Client{
		host:    host,
		key:     hashKey(password),
		retries: DefaultRetries,
		delay:   DefaultRetryDelay,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     log.Logger,
		nextID:  1,
	}
}

// SetRetries adjusts how many attempts an exchange makes and the pause
// between them.
func (c *Client) SetRetries(attempts int, delay time.Duration) {
	c.retries = attempts
	c.delay = delay
}

// SetTimeout adjusts the per-attempt HTTP timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

func (c *Client) SetLogger(l zerolog.Logger) {
	c.log = l
}

// Request tunnels one encoded SIP command and returns the raw reply bytes.
// length is the command's declared request length and travels in the
// envelope. Connection failures, busy replies and garbled exchanges are
// retried up to the configured attempt count; a password rejection is
// returned immediately.
func (c *Client) Request(data []byte, length int) ([]byte, error) {
	payload := strings.ToUpper(hex.EncodeToString(data))
	id := c.nextID
	c.nextID++

	envelope, err := json.Marshal(sipRequest{
		ID:      id,
		Method:  "tunnelSip",
		Params:  sipParams{Length: length, Data: payload},
		JSONRPC: "2.0",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	body, err := encrypt(string(envelope), c.key)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("data", payload).Int("length", length).Msg("Tunneling request")

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			time.Sleep(c.delay)
		}
		start := time.Now()
		reply, err := c.exchange(id, body)
		if err == nil {
			telemetry.Timing("tunnel.exchange", time.Since(start))
			c.log.Debug().Str("reply", strings.ToUpper(hex.EncodeToString(reply))).Msg("Controller replied")
			return reply, nil
		}
		if errors.Is(err, ErrAuthentication) {
			return nil, err
		}
		lastErr = err
		telemetry.Incr("tunnel.retry")
		c.log.Warn().Err(err).Int("attempt", attempt).Int("attempts", c.retries).Msg("Controller exchange failed")
	}
	return nil, fmt.Errorf("no response after %d attempts: %w", c.retries, lastErr)
}

func (c *Client) exchange(id int, body []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, "http://"+c.host+"/stick", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrAuthentication
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, errors.New("controller busy")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	plain, err := decrypt(raw, c.key)
	if err != nil {
		return nil, err
	}
	var reply sipReply
	if err := json.Unmarshal(plain, &reply); err != nil {
		return nil, fmt.Errorf("parse reply: %w", err)
	}
	if reply.ID != id {
		return nil, fmt.Errorf("reply id %d does not match request id %d", reply.ID, id)
	}
	out, err := hex.DecodeString(reply.Result.Data)
	if err != nil {
		return nil, fmt.Errorf("decode reply payload: %w", err)
	}
	return out, nil
}
