// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/danielhkuo/livepoll/apperrors"
	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/broadcast"
	"github.com/danielhkuo/livepoll/lifecycle"
)

// Client frame types
const (
	frameSubscribe   = "poll.subscribe"
	frameUnsubscribe = "poll.unsubscribe"
	frameRefresh     = "poll.refresh"
)

// Server frame types besides event names
const (
	frameAck   = "ack"
	frameError = "error"
)

const (
	maxFramePayloadBytes   = 4 * 1024
	maxMessageBytes        = 16 * 1024
	maxDecodeErrorsPerConn = 3
	maxFramesPerSecond     = 20
)

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Topic     string          `json:"topic,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type pollRefPayload struct {
	PollID string `json:"pollId"`
}

type ackPayload struct {
	Status string `json:"status"`
	PollID string `json:"pollId,omitempty"`
}

type wsErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// wsPeer serializes writes to one connection.
type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newWSPeer(encoder *json.Encoder) *wsPeer {
	return &wsPeer{encoder: encoder}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(frame)
}

// EventsHandler streams poll events over a websocket. Every connection
// receives the global topic; clients opt into individual polls with
// poll.subscribe frames.
type EventsHandler struct {
	engine        *lifecycle.Engine
	allowedOrigin string
}

func NewEventsHandler(engine *lifecycle.Engine, allowedOrigin string) *EventsHandler {
	return &EventsHandler{engine: engine, allowedOrigin: allowedOrigin}
}

// ServeHTTP handles GET /ws
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	server := websocket.Server{
		Handshake: h.handshake,
		Handler:   h.serve,
	}
	server.ServeHTTP(w, r)
}

func (h *EventsHandler) handshake(config *websocket.Config, r *http.Request) error {
	if h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return nil
	}
	origin, err := websocket.Origin(config, r)
	if err != nil || origin == nil {
		return errors.New("missing origin")
	}
	if !strings.EqualFold(origin.Scheme+"://"+origin.Host, h.allowedOrigin) {
		return fmt.Errorf("origin %s not allowed", origin)
	}
	return nil
}

func (h *EventsHandler) serve(conn *websocket.Conn) {
	conn.MaxPayloadBytes = maxMessageBytes

	connID, err := auth.GenerateID(8)
	if err != nil {
		slog.Error("failed to generate connection id", "error", err)
	}
	slog.Info("websocket connected", "conn_id", connID, "remote", conn.Request().RemoteAddr)

	events := h.engine.Broadcaster()
	sub := events.NewSubscription()
	events.Subscribe(sub, broadcast.GlobalTopic)

	peer := newWSPeer(json.NewEncoder(conn))

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		pump(conn, peer, sub)
	}()

	defer func() {
		events.Remove(sub)
		_ = conn.Close()
		<-pumpDone
		slog.Info("websocket disconnected", "conn_id", connID, "evicted", sub.Evicted())
	}()

	ctx := conn.Request().Context()
	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame wsFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				_ = writeWSError(peer, "", apperrors.CodeInvalidInput, "frame too large")
				continue
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
				if !errors.Is(err, io.EOF) {
					slog.Debug("websocket read ended", "conn_id", connID, "error", err)
				}
				return
			}
			decodeErrors++
			_ = writeWSError(peer, "", apperrors.CodeInvalidInput, "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(peer, frame.RequestID, apperrors.CodeInvalidInput, "payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = writeWSError(peer, frame.RequestID, apperrors.CodeInvalidInput, "rate limit exceeded")
			return
		}

		var ref pollRefPayload
		if err := json.Unmarshal(frame.Payload, &ref); err != nil || strings.TrimSpace(ref.PollID) == "" {
			_ = writeWSError(peer, frame.RequestID, apperrors.CodeInvalidInput, "pollId is required")
			continue
		}

		var err error
		switch frame.Type {
		case frameSubscribe:
			_, err = h.engine.Subscribe(ctx, sub, ref.PollID)
		case frameRefresh:
			_, err = h.engine.Refresh(ctx, sub, ref.PollID)
		case frameUnsubscribe:
			h.engine.Unsubscribe(sub, ref.PollID)
		default:
			_ = writeWSError(peer, frame.RequestID, apperrors.CodeInvalidInput, "unsupported frame type")
			continue
		}
		if err != nil {
			_ = writeWSError(peer, frame.RequestID, apperrors.CodeOf(err), err.Error())
			continue
		}
		_ = peer.writeFrame(wsFrame{
			Type:      frameAck,
			RequestID: frame.RequestID,
			Payload:   mustJSON(ackPayload{Status: "ok", PollID: ref.PollID}),
		})
	}
}

// pump writes queued events until the subscription closes. An evicted
// subscriber is told why and disconnected.
func pump(conn *websocket.Conn, peer *wsPeer, sub *broadcast.Subscription) {
	for ev := range sub.Events() {
		err := peer.writeFrame(wsFrame{
			Type:    ev.Name,
			Topic:   ev.Topic,
			Payload: mustJSON(ev.Payload),
		})
		if err != nil {
			_ = conn.Close()
			return
		}
	}
	if sub.Evicted() {
		_ = writeWSError(peer, "", apperrors.CodeInternal, "connection fell behind; reconnect and refetch state")
		_ = conn.Close()
	}
}

func writeWSError(peer *wsPeer, requestID string, code apperrors.Code, message string) error {
	return peer.writeFrame(wsFrame{
		Type:      frameError,
		RequestID: requestID,
		Payload:   mustJSON(wsErrorPayload{Code: string(code), Message: message}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal websocket frame payload", "error", err)
		return nil
	}
	return b
}
