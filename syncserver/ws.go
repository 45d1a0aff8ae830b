package syncserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/bartossh/Pecunia/logger"
	"github.com/bartossh/Pecunia/reconciliation"
)

const (
	hubInnerChannelsBufferSize      = 100
	socketWriteWait                 = 10 * time.Second
	socketPongWait                  = 20 * time.Second
	socketPingPeriod                = (socketPongWait * 4) / 5
	socketMaxMessageSize            = 1 << 16
	clientMessageChannelsBufferSize = 512
	clientsCountLimit               = 100
)

const (
	CommandEcho       = "echo"
	CommandReconciled = "command_reconciled"
)

// Message is the message that is used to exchange information between
// the server and the client.
type Message struct {
	Command   string                `json:"command"`              // Command is the command that refers to the action handler in websocket protocol.
	Error     string                `json:"error,omitempty"`      // Error is the error message that is sent to the client.
	AccountID string                `json:"account_id,omitempty"` // AccountID is the account the settled batch belongs to.
	Result    reconciliation.Result `json:"result,omitempty"`     // Result is the settled outcome pushed to the account owner.
}

type socket struct {
	accountID string
	hub       *hub
	conn      *websocket.Conn
	send      chan []byte
	log       logger.Logger
}

func (s *server) wsWrapper(ctx context.Context, c *fiber.Ctx) error {
	h := c.GetReqHeaders()

	token, ok := h["Token"]
	if !ok || token == "" {
		s.log.Error(
			fmt.Sprintf("websocket server, no token provided from address: %s", c.IP()))
		return fiber.ErrForbidden
	}

	if ok, err := s.repo.CheckToken(c.Context(), token); !ok || err != nil {
		if err != nil {
			s.log.Error(fmt.Sprintf("failed to check token: %s", err.Error()))
			return fiber.ErrForbidden
		}
		s.log.Error(fmt.Sprintf("token provided in request by %s does not exist", c.IP()))
		return fiber.ErrForbidden
	}

	accountID, ok := h["Account"]
	if !ok || accountID == "" {
		s.log.Error(
			fmt.Sprintf("websocket server, no account provided from address: %s", c.IP()))
		return fiber.ErrForbidden
	}

	if _, err := s.repo.ReadBalance(c.Context(), accountID); err != nil {
		s.log.Error(fmt.Sprintf("account [ %s ] does not exist in the repository", accountID))
		return fiber.ErrForbidden
	}

	client := &socket{
		accountID: accountID,
		hub:       s.hub,
		conn:      nil,
		send:      make(chan []byte, clientMessageChannelsBufferSize),
		log:       s.log,
	}

	ctxx, cancel := context.WithCancel(ctx)
	serveWs := func(conn *websocket.Conn) {
		client.conn = conn
		client.hub.register <- client
		go client.writePump(ctxx, cancel)
		client.readPump(ctxx, cancel)
	}
	s.log.Info(fmt.Sprintf("websocket server, new connection from address: %s accepted", c.IP()))

	return websocket.New(serveWs)(c)
}

func (c *socket) readPump(ctx context.Context, cancel context.CancelFunc) {
	c.conn.SetReadLimit(socketMaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(socketPongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(socketPongWait)); return nil })

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg Message
			err := c.conn.ReadJSON(&msg)
			if err != nil {
				switch {
				case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
					c.log.Info(fmt.Sprintf("socket closing connection to the client %s due to unexpected error %s\n", c.accountID, err))
				default:
					c.log.Info(fmt.Sprintf("socket closing connection to the client %s due to error %s\n", c.accountID, err))
				}
				cancel()
				return
			}
			c.process(&msg)
		}
	}
}

func (c *socket) writePump(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(socketPingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.unregister <- c
		err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "central node stopped"))
		if err != nil {
			c.log.Error(fmt.Sprintf("central node write closing msg error, %s", err.Error()))
		}
		c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if !ok {
				c.log.Info(fmt.Sprintf("socket closing connection to the client %s due to channel close", c.accountID))
				cancel()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.log.Error(fmt.Sprintf("socket closing connection to the client %s due to %s", c.accountID, err))
				cancel()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte(c.accountID)); err != nil {
				c.log.Error(fmt.Sprintf("socket closing connection to the client %s due to %s", c.accountID, err))
				cancel()
				return
			}
		}
	}
}

type hub struct {
	clients    map[string]*socket
	broadcast  chan *Message
	register   chan *socket
	unregister chan *socket
	log        logger.Logger
}

func newHub(log logger.Logger) *hub {
	return &hub{
		broadcast:  make(chan *Message, hubInnerChannelsBufferSize),
		register:   make(chan *socket, hubInnerChannelsBufferSize),
		unregister: make(chan *socket, hubInnerChannelsBufferSize),
		clients:    make(map[string]*socket, hubInnerChannelsBufferSize),
		log:        log,
	}
}

func (h *hub) run(ctx context.Context) {
outer:
	for {
		select {
		case client := <-h.register:
			if len(h.clients) >= clientsCountLimit {
				client.conn.WriteMessage(websocket.CloseMessage, []byte("Max number of clients reached."))
				continue
			}
			h.clients[client.accountID] = client
		case client := <-h.unregister:
			delete(h.clients, client.accountID)
		case message := <-h.broadcast:
			raw, err := json.Marshal(&message)
			if err != nil {
				h.log.Error(fmt.Sprintf("hub failed to marshal message: %s", err.Error()))
				continue outer
			}
			// Settled outcomes go to the owner's socket only, anything
			// else fans out to all connected clients.
			if message.Command == CommandReconciled {
				if client, ok := h.clients[message.AccountID]; ok {
					client.send <- raw
				}
				continue outer
			}
			for _, client := range h.clients {
				client.send <- raw
			}
		case <-ctx.Done():
			for accountID := range h.clients {
				delete(h.clients, accountID)
			}
			break outer
		}
	}
}

func (c *socket) process(msg *Message) {
	switch msg.Command {
	case CommandEcho:
		c.sendCommand(msg)
	default:
		c.log.Info(fmt.Sprintf("socket received unknown command %s", msg.Command))
		c.sendCommand(setCommandError(msg, fmt.Errorf("unknown command %s", msg.Command)))
	}
}

func setCommandError(msg *Message, err error) *Message {
	msg.Error = err.Error()
	return msg
}

func (c socket) sendCommand(msg *Message) {
	raw, err := json.Marshal(&msg)
	if err != nil {
		c.log.Error(fmt.Sprintf("socket failed to marshal message: %s", err.Error()))
		return
	}
	c.send <- raw
}
