// Package stream is the websocket boundary: it reads combined-stream
// frames from the exchange and hands the raw payload to a callback.
package stream

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/proxy"
)

const (
	baseURL          = "wss://fstream.binance.com/stream"
	handshakeTimeout = 10 * time.Second
	reconnectDelay   = 3 * time.Second
)

// Client maintains one combined-stream connection. The initial dial
// failure is surfaced to the caller (fatal at startup); after that the
// client reconnects on its own until Stop.
type Client struct {
	url       string
	proxyAddr string
	onMessage func([]byte)
	log       zerolog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	running bool

	stopChan chan struct{}
	done     chan struct{}
}

// New builds a client subscribed to the given stream names. proxyAddr,
// when non-empty, is a SOCKS5 address the websocket dials through.
func New(streams []string, proxyAddr string, onMessage func([]byte)) *Client {
	return &Client{
		url:       baseURL + "?streams=" + strings.Join(streams, "/"),
		proxyAddr: proxyAddr,
		onMessage: onMessage,
		log:       log.With().Str("component", "stream").Logger(),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (c *Client) dialer() (*websocket.Dialer, error) {
	if c.proxyAddr == "" {
		return &websocket.Dialer{HandshakeTimeout: handshakeTimeout}, nil
	}

	socks, err := proxy.SOCKS5("tcp", c.proxyAddr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy %s: %w", c.proxyAddr, err)
	}
	return &websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := socks.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return socks.Dial(network, addr)
		},
	}, nil
}

// Start dials the stream and launches the read loop. The returned error
// covers only the initial connection.
func (c *Client) Start(ctx context.Context) error {
	dialer, err := c.dialer()
	if err != nil {
		return err
	}

	c.log.Info().Str("url", c.url).Msg("connecting to market stream")
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	c.log.Info().Msg("connected")

	c.mu.Lock()
	c.conn = conn
	c.running = true
	c.mu.Unlock()

	go c.run(dialer, conn)
	return nil
}

// run keeps the connection alive until Stop, redialing after drops.
func (c *Client) run(dialer *websocket.Dialer, conn *websocket.Conn) {
	defer close(c.done)

	for {
		c.readLoop(conn)

		select {
		case <-c.stopChan:
			return
		default:
		}

		c.log.Warn().Dur("delay", reconnectDelay).Msg("connection lost, reconnecting")
		for {
			select {
			case <-c.stopChan:
				return
			case <-time.After(reconnectDelay):
			}

			next, _, err := dialer.Dial(c.url, nil)
			if err != nil {
				c.log.Error().Err(err).Msg("reconnect failed")
				continue
			}
			c.log.Info().Msg("reconnected")
			conn = next
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			break
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Info().Msg("connection closed")
			} else {
				c.log.Warn().Err(err).Msg("read error")
			}
			return
		}
		c.onMessage(message)
	}
}

// Stop closes the connection and waits for the read loop to exit, so no
// callback fires after it returns.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopChan)
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()

	<-c.done
	c.log.Info().Msg("stream stopped")
}
