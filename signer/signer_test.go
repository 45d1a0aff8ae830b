package signer

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bartossh/Pecunia/serializer"
)

type emptyReader struct{}

func (emptyReader) Read(p []byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestNewRequiresEntropySource(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoEntropySource)
}

func TestGenerateKeyPairFailsLoudlyWithoutEntropy(t *testing.T) {
	s, err := New(emptyReader{})
	assert.Nil(t, err)

	_, err = s.GenerateKeyPair()
	assert.ErrorIs(t, err, ErrNoEntropySource)
}

func TestSignVerify(t *testing.T) {
	s, err := New(rand.Reader)
	assert.Nil(t, err)

	pair, err := s.GenerateKeyPair()
	assert.Nil(t, err)

	fields := []string{"tx-1", "alice", "200", "1692000000000"}
	sig, err := s.Sign(fields, pair.Secret)
	assert.Nil(t, err)

	pub := encodeKey(pair)
	assert.Nil(t, Verify(fields, sig, pub))
}

func TestVerifyRejectsTamperedFields(t *testing.T) {
	s, _ := New(rand.Reader)
	pair, err := s.GenerateKeyPair()
	assert.Nil(t, err)

	fields := []string{"tx-1", "alice", "200", "1692000000000"}
	sig, err := s.Sign(fields, pair.Secret)
	assert.Nil(t, err)

	pub := encodeKey(pair)

	for i := range fields {
		tampered := make([]string, len(fields))
		copy(tampered, fields)
		tampered[i] = tampered[i] + "x"
		assert.ErrorIs(t, Verify(tampered, sig, pub), ErrVerificationFailed)
	}
}

func TestVerifyDistinguishesMalformedInput(t *testing.T) {
	s, _ := New(rand.Reader)
	pair, err := s.GenerateKeyPair()
	assert.Nil(t, err)

	fields := []string{"tx-1"}
	sig, err := s.Sign(fields, pair.Secret)
	assert.Nil(t, err)

	err = Verify(fields, sig, "not base64 !!!")
	assert.ErrorIs(t, err, ErrCrypto)
	assert.NotErrorIs(t, err, ErrVerificationFailed)

	err = Verify(fields, "@@@", encodeKey(pair))
	assert.ErrorIs(t, err, ErrCrypto)

	err = Verify(fields, sig, "c2hvcnQ=")
	assert.ErrorIs(t, err, ErrCrypto)
}

func TestCanonicalIsUnambiguous(t *testing.T) {
	a := Canonical([]string{"ab", "c"})
	b := Canonical([]string{"a", "bc"})
	assert.NotEqual(t, a, b)
}

func TestHashIsDeterministic(t *testing.T) {
	fields := []string{"tx-1", "alice", "bob", "50"}
	assert.Equal(t, Hash(fields), Hash(fields))
	assert.NotEqual(t, Hash(fields), Hash([]string{"tx-1", "alice", "bob", "51"}))
}

func encodeKey(p KeyPair) string {
	return serializer.Base64Encode(p.Public)
}
