package walletmiddleware

// Config contains configuration of the device side client.
type Config struct {
	CentralNodeURL string `yaml:"central_node_url"` // REST API root of the central node.
	WebsocketURL   string `yaml:"websocket_url"`    // Websocket address of the central node.
	Token          string `yaml:"token"`            // Access token for the central node.
	AccountID      string `yaml:"account_id"`       // Identity this device acts as.
	TimeoutSec     int64  `yaml:"timeout_sec"`      // Timeout of one API call in seconds.
}
