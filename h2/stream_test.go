package h2

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperium/hyper-sub003/headers"
	"github.com/hyperium/hyper-sub003/message"
	"github.com/hyperium/hyper-sub003/rt"
)

// handshakePair runs NewConnection's preface/SETTINGS handshake on both
// ends of a net.Pipe concurrently, since each side blocks on the other's
// SETTINGS frame.
func handshakePair(t *testing.T) (*Connection, *Connection) {
	t.Helper()
	clientPipe, serverPipe := net.Pipe()

	type result struct {
		conn *Connection
		err  error
	}
	clientCh := make(chan result, 1)
	serverCh := make(chan result, 1)

	go func() {
		c, err := NewConnection(rt.NewNetConn(clientPipe, 0), RoleClient, 100, nil, nil)
		clientCh <- result{c, err}
	}()
	go func() {
		c, err := NewConnection(rt.NewNetConn(serverPipe, 0), RoleServer, 100, nil, nil)
		serverCh <- result{c, err}
	}()

	cr := <-clientCh
	require.NoError(t, cr.err)
	sr := <-serverCh
	require.NoError(t, sr.err)
	return cr.conn, sr.conn
}

// TestStreamWaitHeadCancelSendsRstStreamCancel exercises spec's
// drop-before-delivery contract: canceling a client's wait for a response
// head resets the stream with RST_STREAM(CANCEL), not just abandoning it
// locally.
func TestStreamWaitHeadCancelSendsRstStreamCancel(t *testing.T) {
	clientConn, serverConn := handshakePair(t)
	defer clientConn.Close()
	defer serverConn.Close()

	req := &message.Head{
		Proto:   message.VersionH2,
		Headers: headers.New(),
		Subject: message.RequestSubject{Method: message.MethodGet, Target: "/"},
	}
	stream, err := clientConn.OpenStream(req, "example.com", "https", true)
	require.NoError(t, err)

	serverStream, err := serverConn.Accept(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stream.ID(), serverStream.ID())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = stream.WaitHead(ctx)
	assert.Error(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if serverStream.State() == StreamClosed {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, StreamClosed, serverStream.State())
}
