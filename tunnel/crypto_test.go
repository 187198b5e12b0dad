package tunnel

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := hashKey("secret")
	payload := `{"id": 1, "method": "tunnelSip", "params": {"length": 1, "data": "02"}, "jsonrpc": "2.0"}`

	body, err := encrypt(payload, key)
	require.NoError(t, err)

	plain, err := decrypt(body, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(payload), plain)
}

func TestEncryptLayout(t *testing.T) {
	key := hashKey("secret")
	payload := "hello controller"

	body, err := encrypt(payload, key)
	require.NoError(t, err)

	digest := sha256.Sum256([]byte(payload))
	assert.Equal(t, digest[:], body[:32])
	assert.GreaterOrEqual(t, len(body), 48+blockSize)
	assert.Zero(t, (len(body)-48)%blockSize)
}

func TestPad(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{"empty", "", 16},
		{"fills current block", "0123456789", 16},
		{"terminator spills over", "01234567890123", 32},
		{"full block", "0123456789012345", 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			padded := pad(tt.payload)
			assert.Len(t, padded, tt.want)
			assert.Zero(t, len(padded)%blockSize)
			assert.Equal(t, byte(0x00), padded[len(tt.payload)])
		})
	}
}

func TestDecryptRejectsShortBody(t *testing.T) {
	key := hashKey("secret")
	_, err := decrypt([]byte("way too short"), key)
	assert.Error(t, err)
}

func TestDecryptRejectsMisalignedCiphertext(t *testing.T) {
	key := hashKey("secret")
	_, err := decrypt(make([]byte, 48+10), key)
	assert.Error(t, err)
}
