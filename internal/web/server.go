// Package web provides the HTTP surface of the controller: a status page,
// JSON read-back, a command endpoint, cycle history and a websocket feed.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sweeney/hvac-controller/internal/history"
	"github.com/sweeney/hvac-controller/internal/logger"
	"github.com/sweeney/hvac-controller/internal/status"
)

const (
	maxHeaderBytes    = 1 << 20
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
)

// Commander applies a named parameter change on the controller's goroutine.
// It returns logic.ErrUnknownParameter for names the controller does not
// accept.
type Commander interface {
	Submit(ctx context.Context, name string, value int) error
}

// HistoryLister reads stored cycle events.
type HistoryLister interface {
	List(ctx context.Context, from, to time.Time, limit int) ([]history.Record, error)
}

// Options wires the optional collaborators. A nil Commander disables
// POST /set; a nil History disables GET /history.
type Options struct {
	Commander Commander
	History   HistoryLister
	Logger    *logger.Logger
}

// Server serves the status page and API over HTTP.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	tracker    *status.Tracker
	cmd        Commander
	history    HistoryLister
	log        *logger.Logger
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker, opts Options) *Server {
	s := &Server{
		tracker: tracker,
		cmd:     opts.Commander,
		history: opts.History,
		log:     opts.Logger,
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.handleIndex)
	r.GET("/index.html", s.handleIndex)
	r.GET("/index.json", s.handleJSON)
	r.GET("/settings.json", s.handleSettings)
	r.GET("/state.json", s.handlePushData)
	r.POST("/set", s.handleSet)
	r.GET("/history", s.handleHistory)
	r.GET("/ws", s.handleWS)
	return r
}

// Handler exposes the router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
