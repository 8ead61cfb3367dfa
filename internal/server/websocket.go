package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kode4food/weave/internal/stream"
	"github.com/kode4food/weave/pkg/api"
	"github.com/kode4food/weave/pkg/log"
)

type runOutcome struct {
	res *api.RunResponse
	err error
}

const (
	writeWait      = 10 * time.Second
	requestWait    = 30 * time.Second
	maxMessageSize = 1 << 20
	wsBufferSize   = 1024
)

var ErrRunPanicked = errors.New("block run panicked")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket reads one run request from the socket, streams the
// block's events while it executes, then sends a final or error event
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			log.Error(err))
		return
	}
	s.registerWebSocket(conn)
	defer func() {
		s.unregisterWebSocket(conn)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(requestWait))

	var req api.RunRequest
	if err := conn.ReadJSON(&req); err != nil {
		writeEvent(conn, errorEvent(http.StatusBadRequest,
			fmt.Errorf("invalid run request: %w", err)))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sink := stream.NewSink()
	done := make(chan runOutcome, 1)
	go func() {
		defer sink.Close()
		done <- s.runRecovered(ctx, &req, sink)
	}()

	err = sink.Drain(ctx, func(ev api.Event) error {
		return writeEvent(conn, ev)
	})
	if err != nil {
		cancel()
		<-done
		slog.Warn("WebSocket stream aborted",
			log.Error(err))
		return
	}

	out := <-done
	if out.err != nil {
		_ = writeEvent(conn, errorEvent(statusFor(out.err), out.err))
	} else {
		_ = writeEvent(conn, api.Event{
			Type:    api.EventTypeFinal,
			Content: out.res,
		})
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) runRecovered(
	ctx context.Context, req *api.RunRequest, sink api.EventSink,
) (out runOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = runOutcome{err: fmt.Errorf("%w: %v", ErrRunPanicked, r)}
		}
	}()
	res, err := s.run(ctx, req, sink)
	return runOutcome{res: res, err: err}
}

func writeEvent(conn *websocket.Conn, ev api.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(ev); err != nil {
		slog.Error("WebSocket write failed",
			log.Error(err))
		return err
	}
	return nil
}

func errorEvent(status int, err error) api.Event {
	return api.Event{
		Type:    api.EventTypeError,
		Content: errorResponse(status, err),
	}
}
