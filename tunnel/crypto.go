package tunnel

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

const blockSize = 16

// hashKey derives the AES key from the controller password.
func hashKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return sum[:]
}

// pad terminates the payload and fills it out to a whole cipher block.
func pad(payload string) []byte {
	data := []byte(payload + "\x00\x10")
	fill := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{0x10}, fill)...)
}

// encrypt builds a request body: SHA-256 of the plaintext, then a random IV,
// then the padded payload under AES-256-CBC.
func encrypt(payload string, key []byte) ([]byte, error) {
	iv := make([]byte, blockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	padded := pad(payload)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	digest := sha256.Sum256([]byte(payload))
	body := make([]byte, 0, len(digest)+len(iv)+len(ciphertext))
	body = append(body, digest[:]...)
	body = append(body, iv...)
	body = append(body, ciphertext...)
	return body, nil
}

// decrypt unwraps a response body laid out as 32 digest bytes, 16 IV bytes,
// then ciphertext. Block filler and trailing terminators are trimmed off the
// plaintext.
func decrypt(body, key []byte) ([]byte, error) {
	if len(body) < 48+blockSize {
		return nil, fmt.Errorf("response body too short: %d bytes", len(body))
	}
	ciphertext := body[48:]
	if len(ciphertext)%blockSize != 0 {
		return nil, fmt.Errorf("ciphertext not block aligned: %d bytes", len(ciphertext))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, body[32:48]).CryptBlocks(plain, ciphertext)
	return bytes.Trim(plain, "\x10\x0A\x00"), nil
}
