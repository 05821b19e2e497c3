package cryptox

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlob_WireFormat(t *testing.T) {
	key := GenerateKey()
	blob, err := Encrypt([]byte("hello"), key)
	require.NoError(t, err)

	j, err := json.Marshal(blob)
	require.NoError(t, err)

	// The wire shape is {data, iv, tag, cipher} with base64 fields.
	var wire map[string]string
	require.NoError(t, json.Unmarshal(j, &wire))
	assert.Equal(t, CipherAES256GCM, wire["cipher"])
	for _, field := range []string{"data", "iv", "tag"} {
		_, err := base64.StdEncoding.DecodeString(wire[field])
		assert.NoError(t, err, "field %s must be base64", field)
	}

	var back Blob
	require.NoError(t, json.Unmarshal(j, &back))
	plaintext, err := Decrypt(&back, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), plaintext)
}

func TestBlob_EncodeDecodeString(t *testing.T) {
	key := GenerateKey()
	blob, err := Encrypt([]byte("text column payload"), key)
	require.NoError(t, err)

	s, err := EncodeString(blob)
	require.NoError(t, err)

	back, err := DecodeString(s)
	require.NoError(t, err)

	plaintext, err := Decrypt(back, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("text column payload"), plaintext)
}

func TestBlob_DecodeStringRejectsGarbage(t *testing.T) {
	_, err := DecodeString("not base64 at all!!!")
	assert.Error(t, err)

	// Valid base64, invalid JSON inside.
	_, err = DecodeString(base64.StdEncoding.EncodeToString([]byte("nope")))
	assert.Error(t, err)
}
