// Package walletmiddleware builds device side client applications on top of
// the central node REST API. It owns the wallet, the pending transfer queue
// and the offline exchange strategy, and applies server verdicts to local
// state after each sync.
package walletmiddleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bartossh/Pecunia/httpclient"
	"github.com/bartossh/Pecunia/queue"
	"github.com/bartossh/Pecunia/reconciliation"
	"github.com/bartossh/Pecunia/syncserver"
	"github.com/bartossh/Pecunia/transfer"
	"github.com/bartossh/Pecunia/wallet"
)

// WalletReadSaver allows to read and save the wallet.
type WalletReadSaver interface {
	ReadWallet() (wallet.Wallet, error)
	SaveWallet(w wallet.Wallet) error
}

// NewWalletCreator is a function that creates a new wallet.
type NewWalletCreator func() (wallet.Wallet, error)

// Client is a rest client for the API.
// It provides methods to communicate with the API server
// and is designed to serve as an easy way of building client applications
// that use the REST API of the central node.
type Client struct {
	apiRoot       string
	token         string
	accountID     string
	timeout       time.Duration
	wrs           WalletReadSaver
	walletCreator NewWalletCreator
	w             wallet.Wallet
	q             *queue.Queue
	proto         transfer.Protocol
	ready         bool
}

// NewClient creates a new rest client.
func NewClient(
	apiRoot, token, accountID string, timeout time.Duration,
	wrs WalletReadSaver, walletCreator NewWalletCreator,
) *Client {
	return &Client{
		apiRoot: apiRoot, token: token, accountID: accountID,
		timeout: timeout, wrs: wrs, walletCreator: walletCreator,
	}
}

// UseQueue attaches the pending transfer queue the client syncs for.
func (c *Client) UseQueue(q *queue.Queue) {
	c.q = q
}

// UseProtocol attaches the offline exchange strategy.
func (c *Client) UseProtocol(p transfer.Protocol) {
	c.proto = p
}

// Wallet returns a copy of the client wallet once one is read or created.
func (c *Client) Wallet() (wallet.Wallet, error) {
	if !c.ready {
		return wallet.Wallet{}, httpclient.ErrWalletNotReady
	}
	return c.w, nil
}

// AccountID returns the opaque identity the client acts as.
func (c *Client) AccountID() string {
	return c.accountID
}

// ValidateApiVersion makes a call to the API server and validates client and server API versions and header correctness.
// If API version does not match it is returning an error as accessing the API server with different API version
// may lead to unexpected results.
func (c *Client) ValidateApiVersion() error {
	var alive syncserver.AliveResponse
	url := fmt.Sprintf("%s%s", c.apiRoot, syncserver.AliveURL)
	if err := httpclient.MakeGet(c.timeout, url, &alive); err != nil {
		return err
	}

	if alive.APIVersion != syncserver.ApiVersion {
		return errors.Join(httpclient.ErrApiVersionMismatch, fmt.Errorf("expected %s but got %s", syncserver.ApiVersion, alive.APIVersion))
	}

	if alive.APIHeader != syncserver.Header {
		return errors.Join(httpclient.ErrApiHeaderMismatch, fmt.Errorf("expected %s but got %s", syncserver.Header, alive.APIHeader))
	}

	return nil
}

// NewWallet creates a new wallet and saves it via the wallet read saver.
func (c *Client) NewWallet() error {
	w, err := c.walletCreator()
	if err != nil {
		return err
	}
	if err := c.wrs.SaveWallet(w); err != nil {
		return err
	}
	c.w = w
	c.ready = true
	return nil
}

// ReadWalletFromFile reads the wallet from the file.
func (c *Client) ReadWalletFromFile() error {
	w, err := c.wrs.ReadWallet()
	if err != nil {
		return err
	}
	c.w = w
	c.ready = true
	return nil
}

// SaveWalletToFile saves the wallet to the file.
func (c *Client) SaveWalletToFile() error {
	if !c.ready {
		return httpclient.ErrWalletNotReady
	}
	return c.wrs.SaveWallet(c.w)
}

// RegisterAccount registers this client's account on the central node.
func (c *Client) RegisterAccount() error {
	req := syncserver.CreateAccountRequest{AccountID: c.accountID}
	var res syncserver.CreateAccountResponse
	url := fmt.Sprintf("%s%s", c.apiRoot, syncserver.CreateAccountURL)
	if err := httpclient.MakePost(c.timeout, url, c.token, req, &res); err != nil {
		return err
	}
	if !res.Success {
		return httpclient.ErrRejectedByServer
	}
	return nil
}

// ReadServerBalance reads the settled balance from the central node.
func (c *Client) ReadServerBalance() (decimal.Decimal, error) {
	req := syncserver.BalanceRequest{AccountID: c.accountID}
	var res syncserver.BalanceResponse
	url := fmt.Sprintf("%s%s", c.apiRoot, syncserver.ReadBalanceURL)
	if err := httpclient.MakePost(c.timeout, url, c.token, req, &res); err != nil {
		return decimal.Zero, err
	}
	return res.Balance, nil
}

// FundAccount tops up the account on the central node and adopts the new
// settled balance locally.
func (c *Client) FundAccount(amount decimal.Decimal) (decimal.Decimal, error) {
	req := syncserver.FundAccountRequest{AccountID: c.accountID, Amount: amount}
	var res syncserver.BalanceResponse
	url := fmt.Sprintf("%s%s", c.apiRoot, syncserver.FundAccountURL)
	if err := httpclient.MakePost(c.timeout, url, c.token, req, &res); err != nil {
		return decimal.Zero, err
	}
	if c.q != nil {
		if err := c.q.SetBalance(res.Balance); err != nil {
			return res.Balance, err
		}
	}
	return res.Balance, nil
}

// ReadTransferHistory reads this account's audit records from the central node.
func (c *Client) ReadTransferHistory(limit int) ([]transfer.Record, error) {
	req := syncserver.HistoryRequest{AccountID: c.accountID, Limit: limit}
	var res syncserver.HistoryResponse
	url := fmt.Sprintf("%s%s", c.apiRoot, syncserver.ReadHistoryURL)
	if err := httpclient.MakePost(c.timeout, url, c.token, req, &res); err != nil {
		return nil, err
	}
	return res.Transfers, nil
}

// CreateTransfer starts the outgoing exchange and returns the payload to
// present to the peer.
func (c *Client) CreateTransfer(amount decimal.Decimal, peer string) (string, error) {
	if c.proto == nil || c.q == nil {
		return "", httpclient.ErrWalletNotReady
	}
	payload, rec, err := c.proto.CreateOutgoing(amount, peer)
	if err != nil {
		return "", err
	}
	if rec.Recorded() {
		if err := c.q.Enqueue(rec); err != nil {
			return "", err
		}
	}
	return payload, nil
}

// AcceptTransfer processes an incoming payload, queues the resulting credit
// and returns the reply payload when the strategy produces one.
func (c *Client) AcceptTransfer(payload string) (string, error) {
	if c.proto == nil || c.q == nil {
		return "", httpclient.ErrWalletNotReady
	}
	reply, rec, err := c.proto.AcceptIncoming(payload)
	if err != nil {
		return "", err
	}
	if rec.Recorded() {
		if err := c.q.Enqueue(rec); err != nil {
			return "", err
		}
	}
	return reply, nil
}

// FinalizeTransfer validates the peer's reply and queues the debit.
func (c *Client) FinalizeTransfer(payload string) (transfer.Record, error) {
	if c.proto == nil || c.q == nil {
		return transfer.Record{}, httpclient.ErrWalletNotReady
	}
	rec, err := c.proto.FinalizeIncoming(payload)
	if err != nil {
		return transfer.Record{}, err
	}
	if err := c.q.Enqueue(rec); err != nil {
		return transfer.Record{}, err
	}
	return rec, nil
}

// Sync submits all pending transfers to the central node and applies the
// verdict to the local queue. Local state stays untouched until the server
// response is known, a timed out submission is safe to retry.
func (c *Client) Sync() (reconciliation.Result, error) {
	if c.q == nil {
		return reconciliation.Result{}, httpclient.ErrWalletNotReady
	}
	pending := c.q.ListPending()
	if len(pending) == 0 {
		balance, err := c.ReadServerBalance()
		if err != nil {
			return reconciliation.Result{}, err
		}
		if err := c.q.SetBalance(balance); err != nil {
			return reconciliation.Result{}, err
		}
		return reconciliation.Result{Balance: balance}, nil
	}

	req := syncserver.SyncRequest{AccountID: c.accountID, Transfers: pending}
	var res reconciliation.Result
	url := fmt.Sprintf("%s%s", c.apiRoot, syncserver.SyncOfflineURL)
	if err := httpclient.MakePost(c.timeout, url, c.token, req, &res); err != nil {
		return reconciliation.Result{}, err
	}

	return res, c.applyVerdict(res)
}

func (c *Client) applyVerdict(res reconciliation.Result) error {
	var errSum error
	for _, txID := range res.Confirmed {
		if err := c.q.MarkStatus(txID, transfer.StatusConfirmed, ""); err != nil {
			errSum = errors.Join(errSum, err)
		}
	}
	for _, failure := range res.Failed {
		if err := c.q.MarkStatus(failure.TxID, transfer.StatusFailed, failure.Reason); err != nil {
			errSum = errors.Join(errSum, err)
		}
	}
	if err := c.q.SetBalance(res.Balance); err != nil {
		errSum = errors.Join(errSum, err)
	}
	return errSum
}
