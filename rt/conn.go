package rt

import (
	"bufio"
	"net"
)

// NetConn adapts a net.Conn into a Transport, buffering writes the way the
// teacher's conn type pairs netConIface with a *bufio.Writer
// (types_server.go). Reads are unbuffered here; h1.Connection and h2.Connection
// own their own read buffering (buffer.Ring) so the decoder can see a
// contiguous slice without a second layer of bufio underneath it.
type NetConn struct {
	net.Conn
	bw *bufio.Writer
}

// NewNetConn wraps c with a write buffer of the given size (0 uses a
// reasonable default, mirroring bufferBeforeChunkingSize in the teacher).
func NewNetConn(c net.Conn, writeBufSize int) *NetConn {
	if writeBufSize <= 0 {
		writeBufSize = 4096
	}
	return &NetConn{Conn: c, bw: bufio.NewWriterSize(c, writeBufSize)}
}

func (n *NetConn) Write(p []byte) (int, error) { return n.bw.Write(p) }

func (n *NetConn) Flush() error { return n.bw.Flush() }

func (n *NetConn) CloseWrite() error {
	type writeCloser interface {
		CloseWrite() error
	}
	if wc, ok := n.Conn.(writeCloser); ok {
		if err := n.bw.Flush(); err != nil {
			return err
		}
		return wc.CloseWrite()
	}
	return nil
}

var _ Transport = (*NetConn)(nil)
