package wallet

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bartossh/Pecunia/signer"
)

func newSigner(t *testing.T) signer.Signer {
	t.Helper()
	s, err := signer.New(rand.Reader)
	assert.Nil(t, err)
	return s
}

func TestCreateWallet(t *testing.T) {
	w, err := New(newSigner(t))
	assert.Nil(t, err)
	assert.NotNil(t, w.Private)
	assert.NotNil(t, w.Public)
	assert.True(t, w.HasKeys())
}

func TestGobEncodingDecoding(t *testing.T) {
	w, err := New(newSigner(t))
	assert.Nil(t, err)

	b, err := w.EncodeGOB()
	assert.Nil(t, err)
	assert.NotNil(t, b)

	nw, err := DecodeGOBWallet(b)
	assert.Nil(t, err)
	assert.Equal(t, nw.Private, w.Private)
	assert.Equal(t, nw.Public, w.Public)
}

func TestPemSaveRead(t *testing.T) {
	w, err := New(newSigner(t))
	assert.Nil(t, err)

	path := filepath.Join(t.TempDir(), "wallet")
	assert.Nil(t, w.SaveToPem(path))

	nw, err := ReadFromPem(path)
	assert.Nil(t, err)
	assert.Equal(t, w.Public, nw.Public)
	assert.Equal(t, w.Private, nw.Private)

	_ = os.Remove(path)
}

func TestSignVerifySuccess(t *testing.T) {
	s := newSigner(t)
	w, err := New(s)
	assert.Nil(t, err)

	fields := []string{"tx-9", "alice", "bob", "120"}
	sig, err := w.Sign(s, fields)
	assert.Nil(t, err)

	assert.Nil(t, signer.Verify(fields, sig, w.PublicKey()))
}

func TestSignVerifyFailForeignKey(t *testing.T) {
	s := newSigner(t)
	w, err := New(s)
	assert.Nil(t, err)
	other, err := New(s)
	assert.Nil(t, err)

	fields := []string{"tx-9", "alice", "bob", "120"}
	sig, err := other.Sign(s, fields)
	assert.Nil(t, err)

	assert.ErrorIs(t, signer.Verify(fields, sig, w.PublicKey()), signer.ErrVerificationFailed)
}

func TestAddressRoundTrip(t *testing.T) {
	w, err := New(newSigner(t))
	assert.Nil(t, err)
	assert.NotEmpty(t, w.Address())
	assert.NotEmpty(t, w.PublicKey())
	assert.NotEqual(t, w.Address(), w.PublicKey())
}
