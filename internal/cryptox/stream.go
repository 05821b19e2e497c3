package cryptox

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/snipvault/snipvault/internal/common"
)

const (
	// DefaultChunkSize is the plaintext chunk size for stream encryption.
	DefaultChunkSize = 64 * 1024

	// noncePrefixSize random bytes plus a 4-byte big-endian chunk counter
	// form the 12-byte GCM nonce. Every chunk gets a distinct nonce; the
	// counter never repeats within a stream and the prefix never repeats
	// across streams (random per call).
	noncePrefixSize = IVSize - 4
)

// ErrStreamTooLong is returned when a stream exceeds the chunk-counter
// space. At the default chunk size that is ~256 TiB per stream.
var ErrStreamTooLong = errors.New("stream exceeds maximum chunk count")

// AAD flags distinguishing the final chunk, so a stream truncated at a
// chunk boundary fails authentication instead of yielding a short file.
var (
	aadMore  = []byte{0}
	aadFinal = []byte{1}
)

func streamNonce(prefix []byte, counter uint32) []byte {
	nonce := make([]byte, IVSize)
	copy(nonce, prefix)
	binary.BigEndian.PutUint32(nonce[noncePrefixSize:], counter)
	return nonce
}

// EncryptStream reads plaintext from src and writes the sealed stream to
// dst: an 8-byte random nonce prefix followed by length-framed AES-256-GCM
// chunks. Each chunk is sealed under a unique nonce (prefix + counter).
func EncryptStream(dst io.Writer, src io.Reader, key []byte) error {
	aead, err := newGCM(key)
	if err != nil {
		return err
	}

	prefix := make([]byte, noncePrefixSize)
	if _, err := rand.Read(prefix); err != nil {
		return err
	}
	if _, err := dst.Write(prefix); err != nil {
		return fmt.Errorf("write stream header: %w", err)
	}

	var counter uint32
	buf := make([]byte, DefaultChunkSize)
	next := make([]byte, DefaultChunkSize)

	// One chunk of lookahead so the final chunk can be flagged in its AAD.
	n, err := io.ReadFull(src, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	chunk := buf[:n]

	for {
		m, rerr := io.ReadFull(src, next)
		if rerr != nil && !errors.Is(rerr, io.EOF) && !errors.Is(rerr, io.ErrUnexpectedEOF) {
			return rerr
		}
		final := m == 0

		aad := aadMore
		if final {
			aad = aadFinal
		}
		sealed := aead.Seal(nil, streamNonce(prefix, counter), chunk, aad)

		var frame [4]byte
		binary.BigEndian.PutUint32(frame[:], uint32(len(sealed)))
		if _, err := dst.Write(frame[:]); err != nil {
			return fmt.Errorf("write frame header: %w", err)
		}
		if _, err := dst.Write(sealed); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}

		if final {
			return nil
		}
		if counter == ^uint32(0) {
			return ErrStreamTooLong
		}
		counter++
		chunk, buf, next = next[:m], next, buf
	}
}

// DecryptStream reverses EncryptStream. Any tampering, reordering, or
// truncation fails with common.ErrAuthenticationFailed; unauthenticated
// plaintext is never written to dst.
func DecryptStream(dst io.Writer, src io.Reader, key []byte) error {
	aead, err := newGCM(key)
	if err != nil {
		return err
	}

	prefix := make([]byte, noncePrefixSize)
	if _, err := io.ReadFull(src, prefix); err != nil {
		return fmt.Errorf("read stream header: %w", common.ErrAuthenticationFailed)
	}

	readFrame := func() ([]byte, bool, error) {
		var frame [4]byte
		if _, err := io.ReadFull(src, frame[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, true, nil
			}
			return nil, false, fmt.Errorf("read frame header: %w", common.ErrAuthenticationFailed)
		}
		size := binary.BigEndian.Uint32(frame[:])
		if size > DefaultChunkSize+TagSize {
			return nil, false, fmt.Errorf("oversized frame: %w", common.ErrAuthenticationFailed)
		}
		sealed := make([]byte, size)
		if _, err := io.ReadFull(src, sealed); err != nil {
			return nil, false, fmt.Errorf("read frame: %w", common.ErrAuthenticationFailed)
		}
		return sealed, false, nil
	}

	var counter uint32
	sealed, eof, err := readFrame()
	if err != nil {
		return err
	}
	if eof {
		return fmt.Errorf("empty stream: %w", common.ErrAuthenticationFailed)
	}

	for {
		next, eof, err := readFrame()
		if err != nil {
			return err
		}

		aad := aadMore
		if eof {
			aad = aadFinal
		}
		plaintext, err := aead.Open(nil, streamNonce(prefix, counter), sealed, aad)
		if err != nil {
			return common.ErrAuthenticationFailed
		}
		if _, err := dst.Write(plaintext); err != nil {
			return err
		}

		if eof {
			return nil
		}
		if counter == ^uint32(0) {
			return ErrStreamTooLong
		}
		counter++
		sealed = next
	}
}
