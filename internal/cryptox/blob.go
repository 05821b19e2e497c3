package cryptox

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Blob is an authenticated-encryption envelope. The (IV, Tag, Ciphertext)
// triple is only meaningful as a unit and must be persisted and retrieved
// atomically; a blob is never usable with a foreign key or a mismatched
// CipherID.
type Blob struct {
	Ciphertext []byte
	IV         []byte
	Tag        []byte
	CipherID   string
}

// wireBlob is the JSON wire shape: base64 fields plus the cipher id.
type wireBlob struct {
	Data   string `json:"data"`
	IV     string `json:"iv"`
	Tag    string `json:"tag"`
	Cipher string `json:"cipher"`
}

func (b *Blob) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireBlob{
		Data:   base64.StdEncoding.EncodeToString(b.Ciphertext),
		IV:     base64.StdEncoding.EncodeToString(b.IV),
		Tag:    base64.StdEncoding.EncodeToString(b.Tag),
		Cipher: b.CipherID,
	})
}

func (b *Blob) UnmarshalJSON(data []byte) error {
	var w wireBlob
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var err error
	if b.Ciphertext, err = base64.StdEncoding.DecodeString(w.Data); err != nil {
		return fmt.Errorf("decode ciphertext: %w", err)
	}
	if b.IV, err = base64.StdEncoding.DecodeString(w.IV); err != nil {
		return fmt.Errorf("decode iv: %w", err)
	}
	if b.Tag, err = base64.StdEncoding.DecodeString(w.Tag); err != nil {
		return fmt.Errorf("decode tag: %w", err)
	}
	b.CipherID = w.Cipher
	return nil
}

// EncodeString serializes a blob to base64-wrapped JSON, suitable for
// storage in text columns.
func EncodeString(b *Blob) (string, error) {
	j, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(j), nil
}

// DecodeString reverses EncodeString.
func DecodeString(s string) (*Blob, error) {
	j, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	b := &Blob{}
	if err := json.Unmarshal(j, b); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return b, nil
}
