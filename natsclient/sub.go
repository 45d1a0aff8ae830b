package natsclient

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
)

// Subscriber provides functionality to pull messages from the pub/sub queue.
type Subscriber struct {
	*socket
	sub *nats.Subscription
}

// SubscriberConnect connects subscriber to the pub/sub queue using provided config.
func SubscriberConnect(cfg Config) (*Subscriber, error) {
	var s Subscriber
	var err error
	s.socket, err = connect(cfg)
	return &s, err
}

// SubscribeReconciledTransfers calls call for every settled batch message.
// Malformed messages are passed to callOnErr and skipped.
func (s *Subscriber) SubscribeReconciledTransfers(call func(ReconciledBatch), callOnErr func(error)) error {
	var err error
	s.sub, err = s.conn.Subscribe(PubSubReconciledTransfers, func(msg *nats.Msg) {
		var batch ReconciledBatch
		if err := json.Unmarshal(msg.Data, &batch); err != nil {
			callOnErr(err)
			return
		}
		call(batch)
	})
	return err
}
