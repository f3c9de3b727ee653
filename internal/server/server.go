// Package server streams a running arena to websocket spectators and takes
// steering input back from them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"neontrail/internal/core"
	"neontrail/pkg/neontrail"
)

const (
	// DefaultTickInterval plays 60 ticks per second
	DefaultTickInterval = time.Second / 60
	DefaultPingInterval = 5 * time.Second
	// DefaultRestartDelay is the pause between game over and the next round
	DefaultRestartDelay = 3 * time.Second

	sendBuffer   = 64
	writeTimeout = 2 * time.Second
)

// Message types sent to spectators
const (
	MessageSnapshot = "snapshot"
	MessageTick     = "tick"
	MessageError    = "error"
	// MessageTeardown carries the evictions of the previous round's trails
	MessageTeardown = "teardown"
)

// Envelope wraps every outgoing message
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Command is an incoming spectator message. Turn is "left" or "right";
// Action is "start", "pause" or "restart".
type Command struct {
	Turn   string `json:"turn,omitempty"`
	Action string `json:"action,omitempty"`
}

// Options tunes the server loop
type Options struct {
	Addr         string
	TickInterval time.Duration
	PingInterval time.Duration
	RestartDelay time.Duration
	// Autopilot steers the player every tick. Spectator turns still apply.
	Autopilot bool
	Logger    *log.Logger
}

// Server runs one engine and fans its tick reports out to every connection
type Server struct {
	engine   *neontrail.Engine
	opts     Options
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[*client]struct{}

	restart chan struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// New creates a server for engine
func New(engine *neontrail.Engine, opts Options) *Server {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.RestartDelay < 0 {
		opts.RestartDelay = DefaultRestartDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		engine: engine,
		opts:   opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
		restart: make(chan struct{}, 1),
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/config", s.handleConfig)
	return mux
}

// ListenAndServe serves HTTP on opts.Addr and runs rounds until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.opts.Addr, Handler: s.Handler()}

	errc := make(chan error, 1)
	go func() {
		s.logger.Printf("Spectator server listening on %s", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	loopErr := s.Loop(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if err := <-errc; err != nil {
		return fmt.Errorf("serving HTTP: %w", err)
	}
	if errors.Is(loopErr, context.Canceled) || errors.Is(loopErr, context.DeadlineExceeded) {
		return nil
	}
	return loopErr
}

// Loop plays rounds back to back until ctx is done. Every round opens with
// a snapshot broadcast followed by one message per tick.
func (s *Server) Loop(ctx context.Context) error {
	for {
		evicted, err := s.engine.NewRound()
		if err != nil {
			return fmt.Errorf("starting round: %w", err)
		}
		if len(evicted) > 0 {
			s.broadcast(Envelope{Type: MessageTeardown, Data: evicted})
		}
		if err := s.engine.Start(); err != nil {
			return fmt.Errorf("starting round: %w", err)
		}
		s.broadcast(Envelope{Type: MessageSnapshot, Data: s.engine.Snapshot()})

		roundCtx, cancel := context.WithCancel(ctx)
		go func() {
			select {
			case <-s.restart:
				cancel()
			case <-roundCtx.Done():
			}
		}()

		err = s.engine.Run(roundCtx, s.opts.TickInterval, func(rep neontrail.TickReport) {
			s.broadcast(Envelope{Type: MessageTick, Data: rep})
			if s.opts.Autopilot && !rep.GameOver {
				s.drive()
			}
		})
		cancel()

		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil && !errors.Is(err, context.Canceled):
			return err
		case err == nil:
			s.logger.Printf("Round %s over: %+v", s.engine.Round(), s.engine.Stats())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.restart:
			case <-time.After(s.opts.RestartDelay):
			}
		}
	}
}

func (s *Server) drive() {
	if err := s.engine.Drive(); err != nil {
		s.logger.Printf("Autopilot failed: %v", err)
	}
}

// Clients returns the number of connected spectators
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) broadcast(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Printf("Failed to encode %s message: %v", env.Type, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			// Too slow to keep up
			delete(s.clients, c)
			c.close()
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("Websocket upgrade error: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if data, err := json.Marshal(Envelope{Type: MessageSnapshot, Data: s.engine.Snapshot()}); err == nil {
		c.send <- data
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Printf("Spectator connected from %s", conn.RemoteAddr())

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.close()
}

func (s *Server) readPump(c *client) {
	defer s.drop(c)
	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("Spectator read error: %v", err)
			}
			return
		}
		if err := s.apply(cmd); err != nil {
			s.reply(c, Envelope{Type: MessageError, Data: err.Error()})
		}
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) reply(c *client, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (s *Server) apply(cmd Command) error {
	if cmd.Turn != "" {
		return s.engine.Turn(core.ParseTurn(cmd.Turn))
	}

	switch cmd.Action {
	case "":
		return nil
	case "start":
		return s.engine.Start()
	case "pause":
		return s.engine.Pause()
	case "restart":
		select {
		case s.restart <- struct{}{}:
		default:
		}
		return nil
	}
	return fmt.Errorf("unknown action %q", cmd.Action)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.engine.Snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.engine.Stats())
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	data, err := s.engine.GetConfig().Marshal()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
