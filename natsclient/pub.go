package natsclient

import (
	"encoding/json"

	"github.com/bartossh/Pecunia/reconciliation"
)

// ReconciledBatch is the message published after a sync batch settles.
type ReconciledBatch struct {
	AccountID string                `json:"account_id"`
	Result    reconciliation.Result `json:"result"`
}

// Publisher provides functionality to push messages to the pub/sub queue.
type Publisher struct {
	*socket
}

// PublisherConnect connects publisher to the pub/sub queue using provided config.
func PublisherConnect(cfg Config) (*Publisher, error) {
	var p Publisher
	var err error
	p.socket, err = connect(cfg)
	return &p, err
}

// PublishReconciledTransfers publishes the settled outcome of one account's
// sync batch for downstream listeners.
func (p *Publisher) PublishReconciledTransfers(accountID string, res reconciliation.Result) error {
	msg, err := json.Marshal(ReconciledBatch{AccountID: accountID, Result: res})
	if err != nil {
		return err
	}
	return p.conn.Publish(PubSubReconciledTransfers, msg)
}
