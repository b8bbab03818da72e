package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/qrave1/InterviewRoom/internal/application/config"
	"github.com/qrave1/InterviewRoom/internal/application/constant"
	"github.com/qrave1/InterviewRoom/internal/application/metric"
	"github.com/qrave1/InterviewRoom/internal/domain/events"
	"github.com/qrave1/InterviewRoom/internal/domain/runtime"
	"github.com/qrave1/InterviewRoom/internal/infra/adapters/memory"
	"github.com/qrave1/InterviewRoom/internal/infra/appctx"
	"github.com/qrave1/InterviewRoom/internal/usecase"
)

var errUnexpectedType = errors.New("unexpected message type")

type WebSocketHandler struct {
	upgrader *websocket.Upgrader
	cfg      config.SignalingConfig

	presenceUsecase    usecase.PresenceUsecase
	relayUsecase       usecase.RelayUsecase
	sideChannelUsecase usecase.SideChannelUsecase

	conns memory.ConnectionRepository
}

func NewWebSocketHandler(
	cfg *config.Config,
	presenceUsecase usecase.PresenceUsecase,
	relayUsecase usecase.RelayUsecase,
	sideChannelUsecase usecase.SideChannelUsecase,
	conns memory.ConnectionRepository,
) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.Debug {
					return true
				}

				// не браузерные клиенты Origin не шлют
				origin := r.Header.Get("Origin")
				return origin == "" || origin == cfg.Domain
			},
		},
		cfg:                cfg.Signaling,
		presenceUsecase:    presenceUsecase,
		relayUsecase:       relayUsecase,
		sideChannelUsecase: sideChannelUsecase,
		conns:              conns,
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	identity, ok := appctx.Identity(c.Request().Context())
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing identity"})
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"WebSocket upgrade error",
			slog.Any(constant.Error, err),
		)
		return nil
	}
	defer ws.Close()

	// очистка после обрыва должна пройти даже при отмене контекста запроса
	ctx := context.WithoutCancel(c.Request().Context())

	conn := runtime.NewConn(uuid.NewString(), identity, h.cfg.SendQueueSize)

	h.conns.Add(conn)

	slog.Info(
		"websocket connected",
		slog.String(constant.Identity, identity),
		slog.String(constant.SessionHandle, conn.Handle),
	)

	conn.Enqueue(mustEncode(events.TypeWelcome, events.WelcomeEvent{
		SessionHandle: conn.Handle,
		Identity:      identity,
	}))

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		h.writePump(ws, conn)
	}()

	h.readPump(ctx, ws, conn)

	// Обрыв равносилен leave из всех комнат
	h.conns.Remove(conn.Handle)
	h.presenceUsecase.HandleDisconnect(ctx, conn)
	conn.Close()

	<-writeDone

	slog.Info(
		"websocket disconnected",
		slog.String(constant.Identity, identity),
		slog.String(constant.SessionHandle, conn.Handle),
	)

	return nil
}

func (h *WebSocketHandler) readPump(ctx context.Context, ws *websocket.Conn, conn *runtime.Conn) {
	ws.SetReadLimit(h.cfg.MaxMessageBytes)

	_ = ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(h.cfg.MessagesPerSecond), h.cfg.MessagesBurst)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			h.handleWebsocketError(conn, err)
			return
		}

		if !limiter.Allow() {
			metric.RecordDropped(metric.DropReasonRateLimited)
			slog.Debug("frame rate limited", slog.String(constant.SessionHandle, conn.Handle))
			continue
		}

		msg, err := events.Decode(raw)
		if err != nil {
			metric.RecordDropped(metric.DropReasonInvalidFrame)
			slog.Warn(
				"invalid frame",
				slog.Any(constant.Error, err),
				slog.String(constant.SessionHandle, conn.Handle),
			)
			usecase.SendError(conn, "", err)
			continue
		}

		metric.RecordSignalingMessage(msg.Type)

		if err = h.handleMessage(ctx, conn, msg); err != nil {
			slog.Warn(
				"handle message",
				slog.Any(constant.Error, err),
				slog.String(constant.EventType, msg.Type),
				slog.String(constant.SessionHandle, conn.Handle),
			)
			usecase.SendError(conn, msg.Type, err)
		}
	}
}

// writePump единственный пишет в ws: кадры из очереди и ping
func (h *WebSocketHandler) writePump(ws *websocket.Conn, conn *runtime.Conn) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	// при выходе разрываем соединение, чтобы readPump тоже завершился
	defer ws.Close()

	for {
		select {
		case frame, ok := <-conn.Outbound():
			_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))

			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Debug(
					"write to websocket",
					slog.Any(constant.Error, err),
					slog.String(constant.SessionHandle, conn.Handle),
				)
				conn.Close()
				return
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))

			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("ping failed", slog.Any(constant.Error, err))
				conn.Close()
				return
			}
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *runtime.Conn, msg events.Message) error {
	switch msg.Type {
	case events.TypeJoinRoom:
		ev, err := events.DecodeData[events.JoinRoomEvent](msg)
		if err != nil {
			return err
		}

		if err = h.presenceUsecase.HandleJoin(ctx, conn, ev); err != nil {
			return fmt.Errorf("handle join: %w", err)
		}

	case events.TypeLeaveRoom:
		ev, err := events.DecodeData[events.LeaveRoomEvent](msg)
		if err != nil {
			return err
		}

		if err = h.presenceUsecase.HandleLeave(ctx, conn, ev); err != nil {
			return fmt.Errorf("handle leave: %w", err)
		}

	case events.TypeOffer, events.TypeAnswer, events.TypeICECandidate:
		ev, err := events.DecodeData[events.NegotiationEvent](msg)
		if err != nil {
			return err
		}

		if ev.To == "" {
			return fmt.Errorf("%s: to is required", msg.Type)
		}

		h.relayUsecase.Forward(ctx, conn, msg.Type, ev)

	case events.TypeChatMessage:
		ev, err := events.DecodeData[events.ChatEvent](msg)
		if err != nil {
			return err
		}

		if err = h.relayUsecase.Chat(ctx, conn, ev); err != nil {
			return fmt.Errorf("handle chat: %w", err)
		}

	case events.TypeTabSwitch:
		ev, err := events.DecodeData[events.SideChannelEvent](msg)
		if err != nil {
			return err
		}

		if err = h.sideChannelUsecase.Notify(ctx, conn, ev.RoomID, msg.Type); err != nil {
			return fmt.Errorf("handle side-channel: %w", err)
		}

	case events.TypePing:
		conn.Enqueue(mustEncode(events.TypePong, events.PingEvent{}))

	default:
		return fmt.Errorf("%w: %s", errUnexpectedType, msg.Type)
	}

	return nil
}

func (h *WebSocketHandler) handleWebsocketError(conn *runtime.Conn, err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
			slog.Info("user disconnected from websocket", slog.String(constant.SessionHandle, conn.Handle))
		default:
			slog.Warn(
				"websocket close error",
				slog.Int("code", closeErr.Code),
				slog.String(constant.SessionHandle, conn.Handle),
			)
		}
		return
	}

	// наш writePump закрыл сокет, это не ошибка чтения
	if conn.Closed() {
		return
	}

	slog.Warn(
		"websocket read",
		slog.Any(constant.Error, err),
		slog.String(constant.SessionHandle, conn.Handle),
	)
}

func mustEncode(kind string, data any) []byte {
	frame, err := events.Encode(kind, data)
	if err != nil {
		panic(fmt.Sprintf("encode %s: %v", kind, err))
	}

	return frame
}
