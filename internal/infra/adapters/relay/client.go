package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/qrave1/InterviewRoom/internal/application/constant"
	"github.com/qrave1/InterviewRoom/internal/domain/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	handshakeTimeout = 10 * time.Second
	queueSize        = 64
)

var ErrClosed = errors.New("relay connection closed")

// Client - websocket соединение терминального клиента с релеем.
// Пишет в сокет только writePump, читает только readPump.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger

	handle   string
	identity string

	incoming chan events.Message
	outgoing chan []byte
	done     chan struct{}

	closeOnce sync.Once
	group     errgroup.Group
}

// Dial подключается к релею и ждёт кадр welcome с выданным хендлом сессии.
func Dial(ctx context.Context, url, token string, log *slog.Logger) (*Client, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connect to relay: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("connect to relay: %w", err)
	}

	welcome, err := readWelcome(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	c := &Client{
		conn:     conn,
		log:      log.With(slog.String(constant.SessionHandle, welcome.SessionHandle)),
		handle:   welcome.SessionHandle,
		identity: welcome.Identity,
		incoming: make(chan events.Message, queueSize),
		outgoing: make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.group.Go(c.readPump)
	c.group.Go(c.writePump)

	return c, nil
}

func readWelcome(conn *websocket.Conn) (events.WelcomeEvent, error) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return events.WelcomeEvent{}, fmt.Errorf("read welcome: %w", err)
	}

	msg, err := events.Decode(raw)
	if err != nil {
		return events.WelcomeEvent{}, fmt.Errorf("read welcome: %w", err)
	}
	if msg.Type != events.TypeWelcome {
		return events.WelcomeEvent{}, fmt.Errorf("read welcome: unexpected %q frame", msg.Type)
	}

	return events.DecodeData[events.WelcomeEvent](msg)
}

// Handle - хендл сессии, выданный релеем
func (c *Client) Handle() string { return c.handle }

// Identity - субъект токена, под которым релей принял соединение
func (c *Client) Identity() string { return c.identity }

// Incoming закрывается, когда соединение с релеем потеряно
func (c *Client) Incoming() <-chan events.Message { return c.incoming }

// Send кодирует кадр и ставит его в очередь на отправку
func (c *Client) Send(kind string, data any) error {
	frame, err := events.Encode(kind, data)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.outgoing <- frame:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Close отправляет close-кадр и ждёт завершения обоих насосов
func (c *Client) Close() error {
	c.stop()
	return c.group.Wait()
}

func (c *Client) stop() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Client) readPump() error {
	defer func() {
		c.stop()
		close(c.incoming)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.expectedClose(err) {
				return nil
			}
			return fmt.Errorf("read from relay: %w", err)
		}

		msg, err := events.Decode(raw)
		if err != nil {
			c.log.Warn("skip relay frame", slog.Any(constant.Error, err))
			continue
		}

		select {
		case c.incoming <- msg:
		case <-c.done:
			return nil
		}
	}
}

func (c *Client) writePump() error {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.outgoing:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.stop()
				return fmt.Errorf("write to relay: %w", err)
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.stop()
				return fmt.Errorf("ping relay: %w", err)
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			)
			return nil
		}
	}
}

// Ошибки чтения после нашего Close или штатного закрытия со стороны релея не считаются сбоем
func (c *Client) expectedClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}

	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
