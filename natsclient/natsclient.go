package natsclient

import (
	"net/url"

	"github.com/nats-io/nats.go"
)

// PubSubReconciledTransfers is the subject settled batch verdicts are
// published on after every reconciliation.
const (
	PubSubReconciledTransfers string = "reconciled_transfers"
)

// Config contains all arguments required to connect to the nats service.
type Config struct {
	Address string `yaml:"server_address"`
	Name    string `yaml:"client_name"`
	Token   string `yaml:"token"`
}

type socket struct {
	conn *nats.Conn
}

func connect(cfg Config) (*socket, error) {
	var err error
	_, err = url.Parse(cfg.Address)
	if err != nil {
		return nil, err
	}
	var s socket
	s.conn, err = nats.Connect(cfg.Address, nats.Name(cfg.Name), nats.Token(cfg.Token))
	return &s, err
}

// Disconnect drains the connection and disconnects from the pub/sub.
// Pending subscriptions and publishes finish first, new ones are rejected.
func (s *socket) Disconnect() error {
	return s.conn.Drain()
}
