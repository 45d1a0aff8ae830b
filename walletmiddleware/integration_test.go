//go:build integration

package walletmiddleware

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bartossh/Pecunia/aeswrapper"
	"github.com/bartossh/Pecunia/fileoperations"
	"github.com/bartossh/Pecunia/signer"
	"github.com/bartossh/Pecunia/wallet"
)

func TestAlive(t *testing.T) {
	t.Parallel()
	s, err := signer.New(rand.Reader)
	assert.Nil(t, err)
	c := NewClient(
		"http://localhost:8080",
		"",
		"alice",
		5*time.Second,
		fileoperations.New(fileoperations.Config{
			WalletPath:   "../test_wallet",
			WalletPasswd: "test passphrase",
		}, aeswrapper.New()),
		func() (wallet.Wallet, error) { return wallet.New(s) })
	err = c.ValidateApiVersion()
	assert.Nil(t, err)
}
