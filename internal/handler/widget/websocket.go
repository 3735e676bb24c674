package widget

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/botura-widget/internal/model/chat"
	"github.com/zhouzirui/botura-widget/internal/service/mount"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsWriteTimeout = 10 * time.Second
)

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// handleWebSocket pushes state snapshots and accepts {"type":"send"} frames.
// All data frames are written by one goroutine; pings go through
// WriteControl, which may run concurrently with it.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	mounted, ok := h.widget(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	logger := h.logger.With().Str("chatbot_id", mounted.Config.ChatbotID).Logger()
	logger.Debug().Msg("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := mounted.Session.Subscribe()
	defer unsubscribe()

	errs := make(chan string, 4)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// Closing the connection unblocks the reader.
		defer conn.Close()
		defer cancel()
		h.writeLoop(ctx, conn, mounted, updates, errs, logger)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	h.readLoop(ctx, conn, mounted, errs, logger)
	cancel()
	<-writerDone
	logger.Debug().Msg("websocket closed")
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, mounted *mount.Widget, errs chan<- string, logger zerolog.Logger) {
	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var reply string
		switch msg.Type {
		case "send":
			if err := mounted.Session.Send(ctx, msg.Text); err != nil {
				reply = err.Error()
			}
		default:
			reply = "unsupported message type"
		}
		if reply == "" {
			continue
		}

		select {
		case errs <- reply:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, mounted *mount.Widget, updates <-chan chat.State, errs <-chan string, logger zerolog.Logger) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	write := func(msg outgoingMessage) bool {
		msg.Timestamp = time.Now().Unix()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			logger.Debug().Err(err).Msg("websocket write failed")
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case state, open := <-updates:
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "widget unmounted"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			if !write(outgoingMessage{Type: "state", Data: newStateView(mounted.Config, state)}) {
				return
			}
		case message := <-errs:
			if !write(outgoingMessage{Type: "error", Data: map[string]string{"message": message}}) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
