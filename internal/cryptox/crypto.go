// Package cryptox implements the authenticated-encryption primitives used
// to seal snippet content: AES-256-GCM blobs, PBKDF2 key derivation,
// chunked stream encryption, and hashing/HMAC helpers with constant-time
// verification.
//
// All operations are pure aside from randomness consumption; none perform
// I/O. Callers own persistence of salts, iteration counts, and blobs.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/snipvault/snipvault/internal/common"
)

const (
	// KeySize is the only accepted key length, in bytes (AES-256).
	KeySize = 32

	// IVSize is the GCM nonce length in bytes.
	IVSize = 12

	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16

	// CipherAES256GCM identifies the only cipher this engine produces.
	// Stored with every blob so a future cipher change stays decryptable.
	CipherAES256GCM = "aes-256-gcm"
)

// GenerateKey returns a fresh random 256-bit key.
func GenerateKey() []byte {
	return common.GenerateRandByteArray(KeySize)
}

// DeriveKey derives a 256-bit key from a password using PBKDF2-SHA256.
// Salt and iteration count are caller-supplied and must be stored alongside
// any derived-key use so the key can be re-derived later.
func DeriveKey(password, salt []byte, iterations int) []byte {
	return pbkdf2.Key(password, salt, iterations, KeySize, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d: %w", KeySize, len(key), common.ErrInvalidKey)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random 96-bit IV.
// IV reuse under the same key is forbidden, so the IV is never caller-supplied.
func Encrypt(plaintext, key []byte) (*Blob, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	// Seal appends the tag to the ciphertext; the blob stores them apart.
	sealed := aead.Seal(nil, iv, plaintext, nil)
	n := len(sealed) - TagSize

	return &Blob{
		Ciphertext: sealed[:n],
		IV:         iv,
		Tag:        sealed[n:],
		CipherID:   CipherAES256GCM,
	}, nil
}

// Decrypt opens a blob. It fails with common.ErrAuthenticationFailed if the
// tag does not verify or the blob shape is inconsistent; no plaintext bytes
// are ever returned on failure.
func Decrypt(blob *Blob, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if blob.CipherID != CipherAES256GCM {
		return nil, fmt.Errorf("unsupported cipher %q: %w", blob.CipherID, common.ErrAuthenticationFailed)
	}
	if len(blob.IV) != IVSize || len(blob.Tag) != TagSize {
		return nil, fmt.Errorf("malformed blob: %w", common.ErrAuthenticationFailed)
	}

	sealed := make([]byte, 0, len(blob.Ciphertext)+TagSize)
	sealed = append(sealed, blob.Ciphertext...)
	sealed = append(sealed, blob.Tag...)

	plaintext, err := aead.Open(nil, blob.IV, sealed, nil)
	if err != nil {
		return nil, common.ErrAuthenticationFailed
	}
	return plaintext, nil
}

// Hash returns the hex-encoded SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyHash reports whether data matches the hex digest, in constant time.
func VerifyHash(data []byte, hexDigest string) bool {
	want, err := hex.DecodeString(hexDigest)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(data)
	return hmac.Equal(sum[:], want)
}

// HMAC computes a SHA-256 HMAC of data under key.
func HMAC(data, key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// VerifyHMAC reports whether mac is a valid SHA-256 HMAC of data under key,
// in constant time.
func VerifyHMAC(data, key, mac []byte) bool {
	return hmac.Equal(HMAC(data, key), mac)
}

// Wipe overwrites a sensitive buffer with zeros before release. Best effort
// only: a managed runtime may already have copied the bytes elsewhere.
func Wipe(b []byte) {
	common.WipeByteArray(b)
}
