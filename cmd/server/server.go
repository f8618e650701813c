package main

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nickyhof/TupleDB"
	"github.com/nickyhof/TupleDB/core"
	"github.com/nickyhof/TupleDB/db"
)

// Server is a TCP server that exposes the TupleDB engine.
type Server struct {
	listener   net.Listener
	instance   *TupleDB.Instance
	identity   core.Identity
	authConfig *AuthConfig
	tlsEnabled bool
	logger     *slog.Logger
	now        func() time.Time

	// mu serialises queries: the engine and its tables are not safe for
	// concurrent use.
	mu       sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error
	wg       sync.WaitGroup
}

type Option func(*Server)

// WithAuth requires every connection to authenticate before running queries.
func WithAuth(authConfig *AuthConfig) Option {
	return func(s *Server) {
		if authConfig != nil && authConfig.Enabled {
			s.authConfig = authConfig
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a server for instance. Unauthenticated connections
// commit as identity.
func NewServer(instance *TupleDB.Instance, identity core.Identity, opts ...Option) *Server {
	s := &Server{
		instance: instance,
		identity: identity,
		logger:   slog.Default(),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.serve(listener)
	return nil
}

// StartTLS is Start with TLS using the given certificate and key files.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	listener, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.tlsEnabled = true
	s.serve(listener)
	return nil
}

func (s *Server) serve(listener net.Listener) {
	s.listener = listener
	s.logger.Info("server listening", "addr", listener.Addr().String(),
		"tls", s.tlsEnabled, "auth", s.authConfig != nil)

	go s.acceptLoop()
}

// Stop closes the listener and waits for open connections to finish. Later
// calls return the first call's result.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.stopErr = s.listener.Close()
		}
	})
	s.wg.Wait()
	return s.stopErr
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) TLSEnabled() bool {
	return s.tlsEnabled
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Error("accept failed", "error", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	state := &ConnectionState{id: uuid.NewString()}
	logger := s.logger.With("connection", state.id, "remote", conn.RemoteAddr().String())
	logger.Info("client connected")

	// unblock the read below on shutdown
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-s.done:
			conn.Close()
		case <-closed:
		}
	}()

	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Warn("read failed", "error", err)
			}
			return
		}

		response, keepOpen := s.handleLine(line, state)
		if !keepOpen {
			logger.Info("client disconnected")
			return
		}
		if response == nil {
			continue
		}

		data, err := EncodeResponse(*response)
		if err != nil {
			logger.Error("failed to encode response", "error", err)
			continue
		}

		if _, err := conn.Write(data); err != nil {
			logger.Warn("write failed", "error", err)
			return
		}
	}
}

// handleLine answers one line of input. A nil response means nothing is sent
// back; keepOpen false closes the connection.
func (s *Server) handleLine(line string, state *ConnectionState) (response *Response, keepOpen bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, true
	}
	if strings.EqualFold(trimmed, "quit") || strings.EqualFold(trimmed, "exit") {
		return nil, false
	}
	if isAuthCommand(trimmed) {
		resp := s.handleAuth(trimmed, state)
		return &resp, true
	}

	query, err := readQuery(trimmed)
	if err != nil {
		resp := errorResponse("", fmt.Errorf("invalid request: %w", err))
		return &resp, true
	}
	if query == "" {
		return nil, true
	}

	identity := s.identity
	if s.authConfig != nil {
		if !state.IsAuthenticated() {
			resp := errorResponse("", ErrAuthRequired)
			return &resp, true
		}
		if state.expired(s.now()) {
			state.authenticated = false
			state.identity = nil
			resp := errorResponse("", ErrTokenExpired)
			return &resp, true
		}
		identity = *state.Identity()
	}

	resp := s.executeQuery(query, identity)
	return &resp, true
}

func (s *Server) executeQuery(query string, identity core.Identity) Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.instance.Engine(identity).Execute(query)
	if err != nil {
		s.logger.Debug("query failed", "query", query, "error", err)
		return errorResponse("", err)
	}

	switch r := result.(type) {
	case db.QueryResult:
		return resultResponse("query", QueryResponse{
			Columns:     r.Columns(),
			Data:        r.Data(),
			RecordsRead: r.RecordsRead,
			TimeMs:      r.ExecutionTimeSec * 1000,
		})

	case db.CommitResult:
		return resultResponse("commit", CommitResponse{
			Transaction:    r.Transaction.Id,
			Table:          r.Change.Table,
			RecordsWritten: r.RecordsWritten,
			RecordsDeleted: r.RecordsDeleted,
			TimeMs:         r.ExecutionTimeSec * 1000,
		})

	default:
		return Response{
			Success: true,
			Type:    "unknown",
		}
	}
}
