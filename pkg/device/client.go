package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-alan/internal/log"
	"github.com/teslashibe/go-alan/pkg/protocol"
)

// Client is the device side of the connection.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex
}

// Dial connects to a hub at url, for example ws://localhost:8080/ws/device/kitchen.
func Dial(ctx context.Context, url string) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("device: dial %s: %w", url, err)
	}
	return &Client{conn: conn, logger: log.Component("device.client")}, nil
}

// Send writes a message to the hub.
func (c *Client) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) sendNew(msg *protocol.Message, err error) error {
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// SendPhrase reports a continuous recognition result.
func (c *Client) SendPhrase(text string) error {
	return c.sendNew(protocol.NewPhraseMessage(text))
}

// SendRecognized answers the recognize request id.
func (c *Client) SendRecognized(id, text string) error {
	return c.sendNew(protocol.NewRecognizedMessage(id, text))
}

// SendRecognizerState reports the continuous recognizer state.
func (c *Client) SendRecognizerState(state string) error {
	return c.sendNew(protocol.NewRecognizerStateMessage(state))
}

// SendMediaState reports the player state and volume.
func (c *Client) SendMediaState(state string, volume int) error {
	return c.sendNew(protocol.NewMediaStateMessage(state, volume))
}

// SendMediaEnded reports the end of the current track.
func (c *Client) SendMediaEnded() error {
	return c.sendNew(protocol.NewMediaEndedMessage())
}

// Run reads hub messages and passes them to handle one at a time, in
// order, so a speak command finishes before the following recognize
// starts. It returns when ctx is done or the connection fails.
func (c *Client) Run(ctx context.Context, handle func(*protocol.Message)) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("device: read: %w", err)
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			c.logger.Warn("invalid hub message", "error", err)
			continue
		}
		handle(msg)
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}
