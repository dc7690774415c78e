package nfs4xattr

import (
	"bufio"
	"context"
	"net"
	"sync"

	"github.com/kuleuven/nfs4xattr/logger"
	"github.com/kuleuven/nfs4xattr/msg"
	"github.com/kuleuven/nfs4xattr/vfs"
	"go.uber.org/multierr"
)

// Conn represents an NFS connection. Calls are executed on a single
// vfs.Thread owned by the connection.
type Conn struct {
	Conn            net.Conn
	VFS             *vfs.VFS
	RequireUnixAuth bool

	Request  chan Request
	Response chan Response

	thread *vfs.Thread
	wg     sync.WaitGroup
	err    error
	sync.Mutex
}

func (c *Conn) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.thread = c.VFS.NewThread()

	threadCtx, stopThread := context.WithCancel(context.Background())

	c.wg.Add(4)

	go c.ReceiveRequests(ctx)
	go c.RunMux(stopThread)
	go c.RunThread(threadCtx)
	go c.SendReplies(cancel)

	c.wg.Wait()

	return c.err
}

// RunThread runs the connection thread until it is stopped, then
// waits for requests that are still with the modules.
func (c *Conn) RunThread(ctx context.Context) {
	defer c.wg.Done()

	c.thread.Run(ctx) //nolint:errcheck
	c.thread.Drain()
}

// RunMux hands received calls to the thread and closes the response
// channel once every call has been answered.
func (c *Conn) RunMux(stopThread context.CancelFunc) {
	defer c.wg.Done()

	defer close(c.Response)

	defer stopThread()

	mux4 := &Muxv4{
		VFS:             c.VFS,
		Thread:          c.thread,
		Logger:          logger.Logger.WithField("remote", c.Conn.RemoteAddr().String()),
		RequireUnixAuth: c.RequireUnixAuth,
	}
	muxOther := &MuxMismatch{}

	var muxwg sync.WaitGroup

	respond := func(resp Response) {
		c.Response <- resp

		muxwg.Done()
	}

	for request := range c.Request {
		var mux Mux = muxOther

		if request.Header.Prog == msg.NFS_PROGRAM && request.Header.Vers == 4 {
			mux = mux4
		}

		muxwg.Add(1)

		c.thread.Post(func() {
			mux.Handle(request, respond)
		})
	}

	muxwg.Wait()
}

func (c *Conn) ReceiveRequests(ctx context.Context) {
	defer c.wg.Done()

	defer close(c.Request)

	r := bufio.NewReaderSize(c.Conn, 10*65536)

	intermediate := make(chan Request, 1)

	// Spawn a possibly blocking reader.
	// It will block when no message is received.
	go func() {
		defer close(intermediate)

		for ctx.Err() == nil {
			header, data, err := ReceiveCall(r)
			if err != nil {
				c.appendError(err)

				return
			}

			intermediate <- Request{
				Header: header,
				Data:   data,
			}
		}
	}()

	// Proxy the requests and don't block if the context is cancelled
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-intermediate:
			if !ok {
				return
			}

			c.Request <- req
		}
	}
}

func (c *Conn) SendReplies(cancel context.CancelFunc) {
	defer c.wg.Done()

	w := bufio.NewWriterSize(c.Conn, 10*65536)

	for {
		if len(c.Response) == 0 {
			if err := w.Flush(); err != nil {
				cancel()

				c.appendError(err)
			}
		}

		resp, ok := <-c.Response
		if !ok {
			return
		}

		if resp.Error != nil {
			cancel()

			c.appendError(resp.Error)

			continue
		}

		if err := SendReply(w, resp.Reply, resp.Data); err != nil {
			cancel()

			c.appendError(err)
		}
	}
}

func (c *Conn) appendError(err error) {
	c.Lock()
	defer c.Unlock()

	c.err = multierr.Append(c.err, err)
}
