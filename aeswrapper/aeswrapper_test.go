package aeswrapper

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	h := New()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	assert.Nil(t, err)

	data := []byte("very secret wallet material")
	sealed, err := h.Encrypt(key, data)
	assert.Nil(t, err)
	assert.NotEqual(t, data, sealed)

	opened, err := h.Decrypt(key, sealed)
	assert.Nil(t, err)
	assert.Equal(t, data, opened)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	h := New()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	assert.Nil(t, err)

	sealed, err := h.Encrypt(key, []byte("data"))
	assert.Nil(t, err)

	wrong := make([]byte, 32)
	_, err = rand.Read(wrong)
	assert.Nil(t, err)

	_, err = h.Decrypt(wrong, sealed)
	assert.ErrorIs(t, err, ErrOpenDataFailure)
}

func TestInvalidKeyLengthRejected(t *testing.T) {
	h := New()
	_, err := h.Encrypt([]byte("short"), []byte("data"))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
	_, err = h.Decrypt([]byte("short"), []byte("data"))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestDecryptTruncatedDataRejected(t *testing.T) {
	h := New()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	assert.Nil(t, err)

	_, err = h.Decrypt(key, []byte("tiny"))
	assert.ErrorIs(t, err, ErrDataTooShort)
}

func TestDeriveKeyIsDeterministicPerSalt(t *testing.T) {
	salt := make([]byte, SaltSize)
	_, err := rand.Read(salt)
	assert.Nil(t, err)

	a := DeriveKey([]byte("passwd"), salt)
	b := DeriveKey([]byte("passwd"), salt)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)

	other := make([]byte, SaltSize)
	_, err = rand.Read(other)
	assert.Nil(t, err)
	c := DeriveKey([]byte("passwd"), other)
	assert.NotEqual(t, a, c)
}
