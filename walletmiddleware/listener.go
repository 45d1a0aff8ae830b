package walletmiddleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/bartossh/Pecunia/logger"
	"github.com/bartossh/Pecunia/syncserver"
)

const wsConnectionTimeout = 5 * time.Second

// Listener keeps a websocket connection to the central node and applies
// settled batch outcomes to the local queue as they arrive. It lets a
// receiving device learn about confirmed credits without polling.
type Listener struct {
	client *Client
	log    logger.Logger
	conn   *websocket.Conn
}

// Listen dials the central node websocket and blocks until ctx is canceled,
// applying every settled outcome for this account to the local queue.
func Listen(ctx context.Context, client *Client, wsAddress string, log logger.Logger) error {
	header := make(http.Header)
	header.Add("Token", client.token)
	header.Add("Account", client.accountID)

	ctxTimeout, cancel := context.WithTimeout(ctx, wsConnectionTimeout)
	conn, _, err := websocket.DefaultDialer.DialContext(ctxTimeout, wsAddress, header)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()

	l := &Listener{client: client, log: log, conn: conn}

	ctxx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.pullPump(ctxx, cancel)

	<-ctxx.Done()
	return nil
}

func (l *Listener) pullPump(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(time.Millisecond * 100)
	defer ticker.Stop()
	defer cancel()
listener:
	for {
		select {
		case <-ctx.Done():
			break listener
		case <-ticker.C:
		}
		msgType, raw, err := l.conn.ReadMessage()
		if err != nil {
			if strings.Contains(err.Error(), "use of closed network connection") {
				break listener
			}
			l.log.Error(fmt.Sprintf("listener read msg error, %s", err.Error()))
			continue
		}
		switch msgType {
		case websocket.PingMessage, websocket.PongMessage:
			continue
		default:
			var msg syncserver.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				l.log.Error(fmt.Sprintf("listener unmarshal msg error, %s", err.Error()))
				continue
			}
			if msg.Error != "" {
				l.log.Error(fmt.Sprintf("listener msg error, %s", msg.Error))
				continue
			}
			l.processMessage(&msg)
		}
	}
}

func (l *Listener) processMessage(msg *syncserver.Message) {
	switch msg.Command {
	case syncserver.CommandReconciled:
		if msg.AccountID != l.client.accountID {
			return
		}
		if err := l.client.applyVerdict(msg.Result); err != nil {
			// Outcomes for transfers this device never queued are expected,
			// the queue rejects them and the balance still settles.
			l.log.Debug(fmt.Sprintf("listener applying verdict, %s", err.Error()))
		}
		l.log.Info(fmt.Sprintf("settled batch applied for account %s", l.client.accountID))
	default:
		l.log.Info(fmt.Sprintf("listener received unknown command %s", msg.Command))
	}
}
