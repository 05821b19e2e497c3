package cryptox

import (
	"bytes"
	"errors"
	"testing"

	"github.com/snipvault/snipvault/internal/common"
)

func encryptToBuf(t *testing.T, plaintext, key []byte) *bytes.Buffer {
	t.Helper()
	var sealed bytes.Buffer
	if err := EncryptStream(&sealed, bytes.NewReader(plaintext), key); err != nil {
		t.Fatalf("encrypt stream: %v", err)
	}
	return &sealed
}

func TestStream_RoundTrip(t *testing.T) {
	key := GenerateKey()

	sizes := []int{0, 1, DefaultChunkSize - 1, DefaultChunkSize, DefaultChunkSize + 1, 3*DefaultChunkSize + 17}
	for _, size := range sizes {
		plaintext := bytes.Repeat([]byte{0xAB}, size)
		sealed := encryptToBuf(t, plaintext, key)

		var out bytes.Buffer
		if err := DecryptStream(&out, sealed, key); err != nil {
			t.Fatalf("size %d: decrypt stream: %v", size, err)
		}
		if !bytes.Equal(out.Bytes(), plaintext) {
			t.Fatalf("size %d: round trip mismatch", size)
		}
	}
}

func TestStream_TamperFails(t *testing.T) {
	key := GenerateKey()
	plaintext := bytes.Repeat([]byte("chunky"), 40000) // spans multiple chunks

	sealed := encryptToBuf(t, plaintext, key).Bytes()

	// Flip one byte in the middle of the stream.
	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)/2] ^= 0x01

	var out bytes.Buffer
	err := DecryptStream(&out, bytes.NewReader(tampered), key)
	if !errors.Is(err, common.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestStream_TruncationAtChunkBoundaryFails(t *testing.T) {
	key := GenerateKey()
	plaintext := bytes.Repeat([]byte{0x42}, 2*DefaultChunkSize)

	sealed := encryptToBuf(t, plaintext, key).Bytes()

	// Drop the final frame: header prefix + first frame only.
	firstFrameEnd := (IVSize - 4) + 4 + DefaultChunkSize + TagSize
	truncated := sealed[:firstFrameEnd]

	var out bytes.Buffer
	err := DecryptStream(&out, bytes.NewReader(truncated), key)
	if !errors.Is(err, common.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed on truncation, got %v", err)
	}
}

func TestStream_ReorderedChunksFail(t *testing.T) {
	key := GenerateKey()
	plaintext := bytes.Repeat([]byte{0x42}, 3*DefaultChunkSize)

	sealed := encryptToBuf(t, plaintext, key).Bytes()

	prefixLen := IVSize - 4
	frameLen := 4 + DefaultChunkSize + TagSize

	// Swap the first two frames.
	reordered := append([]byte(nil), sealed[:prefixLen]...)
	reordered = append(reordered, sealed[prefixLen+frameLen:prefixLen+2*frameLen]...)
	reordered = append(reordered, sealed[prefixLen:prefixLen+frameLen]...)
	reordered = append(reordered, sealed[prefixLen+2*frameLen:]...)

	var out bytes.Buffer
	err := DecryptStream(&out, bytes.NewReader(reordered), key)
	if !errors.Is(err, common.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed on reorder, got %v", err)
	}
}

func TestStream_DistinctNoncePrefixPerStream(t *testing.T) {
	key := GenerateKey()
	a := encryptToBuf(t, []byte("same"), key).Bytes()
	b := encryptToBuf(t, []byte("same"), key).Bytes()

	if bytes.Equal(a[:IVSize-4], b[:IVSize-4]) {
		t.Fatalf("nonce prefix reused across streams")
	}
}

func TestStream_InvalidKey(t *testing.T) {
	var out bytes.Buffer
	err := EncryptStream(&out, bytes.NewReader([]byte("x")), make([]byte, 16))
	if !errors.Is(err, common.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
