package server

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kode4food/weave/internal/block"
	"github.com/kode4food/weave/pkg/api"
	"github.com/kode4food/weave/pkg/util"
)

// Server implements the HTTP API of the block engine
type Server struct {
	runtime *block.Runtime
	store   api.Store
	sockets util.Set[*websocket.Conn]
	mu      sync.Mutex
}

// NewServer creates a server executing blocks with rt. Cached dispatches
// go through store, which may be nil
func NewServer(rt *block.Runtime, store api.Store) *Server {
	return &Server{
		runtime: rt,
		store:   store,
		sockets: util.Set[*websocket.Conn]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	router.GET("/health", s.handleHealth)
	router.POST("/hash", s.handleHash)
	router.POST("/run", s.handleRun)
	router.GET("/run/ws", s.handleWebSocket)

	return router
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *Server) registerWebSocket(c *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// statusFor maps a block error to the HTTP status reported for it
func statusFor(err error) int {
	switch {
	case errors.Is(err, block.ErrConstruction),
		errors.Is(err, block.ErrConfiguration),
		errors.Is(err, block.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, block.ErrGuestExecution):
		return http.StatusUnprocessableEntity
	case errors.Is(err, block.ErrDispatch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(status int, err error) api.ErrorResponse {
	return api.ErrorResponse{
		Error:  err.Error(),
		Status: status,
	}
}
