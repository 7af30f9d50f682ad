// Package secopserver implements the SECoP TCP listener (spec.md §4.G,
// §5 "one goroutine per connection"): it frames the line protocol over
// net.Conn, feeding parsed messages into a dispatcher.Dispatcher and
// writing its replies and async updates back out.
package secopserver

import (
	"bufio"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/frappy-project/frappy-core/dispatcher"
	"github.com/frappy-project/frappy-core/logging"
	"github.com/frappy-project/frappy-core/observability"
	"github.com/frappy-project/frappy-core/wire"
)

// Server accepts SECoP client connections on one TCP address and hands
// each to the dispatcher, one goroutine per connection.
type Server struct {
	disp     *dispatcher.Dispatcher
	logger   logging.Logger
	listener net.Listener

	omitUnchangedWithin int64 // nanoseconds, see dispatcher.NewConnection

	stopOnce sync.Once
	stopped  chan struct{}
}

// Listen opens addr and returns a Server ready to Serve.
func Listen(addr string, disp *dispatcher.Dispatcher, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("secopserver: listen %s: %w", addr, err)
	}
	return &Server{
		disp:     disp,
		logger:   logger,
		listener: lis,
		stopped:  make(chan struct{}),
	}, nil
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve accepts connections until Stop is called, blocking the
// caller — run it in its own goroutine (spec.md §5 "accept loop is a
// single goroutine; each connection gets its own").
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopped:
				return nil
			default:
				return fmt.Errorf("secopserver: accept: %w", err)
			}
		}
		go s.handleConn(conn)
	}
}

// Stop closes the listener, ending Serve's accept loop.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		_ = s.listener.Close()
	})
}

// connSender frames lines with the SECoP '\n' end-of-line and
// serialises writes from the dispatcher's announce goroutine against
// the connection's own reply writes.
type connSender struct {
	mu   sync.Mutex
	conn net.Conn
}

func (c *connSender) Send(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.conn.Write([]byte(line + "\n"))
}

func (s *Server) handleConn(netConn net.Conn) {
	id := uuid.New().String()
	logger := s.logger.Bind("conn", id, "remote", netConn.RemoteAddr().String())
	logger.Info("connection accepted")
	observability.ConnectionOpened()

	sender := &connSender{conn: netConn}
	conn := dispatcher.NewConnection(id, sender, 0)
	s.disp.Connect(conn)

	defer func() {
		s.disp.Disconnect(id)
		_ = netConn.Close()
		observability.ConnectionClosed()
		logger.Info("connection closed")
	}()

	scanner := bufio.NewScanner(netConn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		msg, err := wire.Parse(line)
		if err != nil {
			logger.Warn("malformed request line", "line", line, "err", err)
			continue
		}
		reply := s.disp.Handle(conn, msg)
		if reply == "" {
			continue
		}
		sender.Send(reply)
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("connection read error", "err", err)
	}
}
