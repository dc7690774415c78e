package nfs4xattr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/kuleuven/nfs4xattr/logger"
	"github.com/kuleuven/nfs4xattr/vfs"
	"github.com/sirupsen/logrus"
)

// A Server represents the NFS server. It should be created using Listen or New.
type Server struct {
	listener net.Listener
	vfs      *vfs.VFS

	// RequireUnixAuth rejects calls that carry AUTH_NULL credentials.
	RequireUnixAuth bool

	wg sync.WaitGroup
}

// Listen creates a new Server listening on the specified address.
func Listen(address string, v *vfs.VFS) (*Server, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("net.Listen: %w", err)
	}

	return New(ln, v), nil
}

// New returns a new server with the given listener (e.g. net.Listen, tls.Listen, etc.)
func New(l net.Listener, v *vfs.VFS) *Server {
	registerMetrics()

	return &Server{
		listener: l,
		vfs:      v,
	}
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled and waits for
// the open connections to finish.
func (s *Server) Serve(ctx context.Context) error {
	defer s.wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Close listener on context cancel
	go func() {
		<-ctx.Done()

		s.listener.Close()
	}()

	logger.Logger.Infof("Serving NFS at %s ...", s.listener.Addr())

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logger.Logger.Errorf("accept error: %s", err)
				time.Sleep(10 * time.Millisecond)

				continue
			}
		}

		s.wg.Add(1)

		go s.HandleConn(ctx, conn)
	}
}

// HandleConn handles the connection with the given context and network connection.
func (s *Server) HandleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()

	defer conn.Close()

	// Unblock the reader when the server shuts down.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})

	defer stop()

	sess := &Conn{
		Conn:            conn,
		VFS:             s.vfs,
		RequireUnixAuth: s.RequireUnixAuth,
		Request:         make(chan Request, 50),
		Response:        make(chan Response, 50),
	}

	if err := sess.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		logger.Logger.WithFields(logrus.Fields{
			"remote": conn.RemoteAddr().String(),
		}).Errorf("session failed: %v", err)
	}
}

func (s *Server) Close() error {
	return s.listener.Close()
}
