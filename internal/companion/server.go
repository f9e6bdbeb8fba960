package companion

import (
	"bufio"
	"context"
	"encoding/json"
	"net"

	"go.uber.org/zap"
)

// Server listens on a loopback TCP port and turns newline-delimited JSON
// events from connected processes into a stream on Events. Connections are
// served one at a time; the protocol is best-effort, malformed lines are
// skipped and a failed connection never stops the accept loop.
type Server struct {
	listener net.Listener
	events   chan Event
	log      *zap.SugaredLogger
}

// NewServer binds the address. Use port 0 to pick an ephemeral port; the
// bound address is available via Addr.
func NewServer(address string) (*Server, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		events:   make(chan Event, 64),
		log:      zap.S().Named("companion"),
	}, nil
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

func (s *Server) Events() <-chan Event {
	return s.events
}

// Run accepts connections until the context is cancelled. It always returns
// nil after a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				close(s.events)
				return nil
			}
			s.log.Warnw("accept failed", "error", err)
			continue
		}
		s.serve(ctx, conn)
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	s.log.Debugw("connection accepted", "remote", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			s.log.Debugw("skipping malformed event line", "error", err)
			continue
		}

		select {
		case s.events <- event:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.log.Warnw("connection read failed", "error", err)
	}
}
