package h1

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperium/hyper-sub003/headers"
	"github.com/hyperium/hyper-sub003/message"
	"github.com/hyperium/hyper-sub003/rt"
)

func TestConnectionServerReadsRequestAndWritesResponse(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	conn := NewConnection(rt.NewNetConn(serverConn, 0), RoleServer, DefaultConnOptions(true))

	raw := "GET /ping HTTP/1.1\r\nHost: example.com\r\n\r\n"
	writeDone := make(chan error, 1)
	go func() {
		_, err := clientConn.Write([]byte(raw))
		writeDone <- err
	}()
	require.NoError(t, <-writeDone)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	exch, err := conn.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "GET", exch.Head.Request().Method)
	assert.Equal(t, "/ping", exch.Head.Request().Target)

	readResult := make(chan string, 1)
	go func() {
		readBuf := make([]byte, 512)
		clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _ := clientConn.Read(readBuf)
		readResult <- string(readBuf[:n])
	}()

	resp := &message.Head{
		Proto:   message.Version11,
		Headers: headers.New(),
		Subject: message.StatusSubject{Code: 200, Reason: "OK"},
	}
	_, _, err = conn.WriteHead(ctx, resp, BodyLengthHint{Known: true, Exact: 2}, true)
	require.NoError(t, err)
	require.NoError(t, conn.WriteBodyChunk(EncodeLength, []byte("ok")))
	require.NoError(t, conn.EndWrite(EncodeLength, nil, true))

	out := <-readResult
	assert.Contains(t, out, "HTTP/1.1 200")
	assert.Contains(t, out, "ok")
}

// TestConnectionKeepAliveServesTwoExchanges drives two request/response
// exchanges over one net.Pipe and asserts the second lands on the same
// Connection, exercising keep-alive reuse rather than a fresh connection
// per exchange.
func TestConnectionKeepAliveServesTwoExchanges(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	conn := NewConnection(rt.NewNetConn(serverConn, 0), RoleServer, DefaultConnOptions(true))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	serveOne := func(target string) {
		raw := "GET " + target + " HTTP/1.1\r\nHost: example.com\r\n\r\n"
		go clientConn.Write([]byte(raw))

		exch, err := conn.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, target, exch.Head.Request().Target)

		readResult := make(chan string, 1)
		go func() {
			buf := make([]byte, 512)
			clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
			n, _ := clientConn.Read(buf)
			readResult <- string(buf[:n])
		}()

		resp := &message.Head{
			Proto:   message.Version11,
			Headers: headers.New(),
			Subject: message.StatusSubject{Code: 200, Reason: "OK"},
		}
		_, _, err = conn.WriteHead(ctx, resp, BodyLengthHint{Known: true, Exact: 2}, true)
		require.NoError(t, err)
		require.NoError(t, conn.WriteBodyChunk(EncodeLength, []byte("ok")))
		require.NoError(t, conn.EndWrite(EncodeLength, nil, true))

		out := <-readResult
		assert.Contains(t, out, "HTTP/1.1 200")
	}

	serveOne("/one")
	serveOne("/two")
}

func TestConnectionClosesOnTransportEOF(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	conn := NewConnection(rt.NewNetConn(serverConn, 0), RoleServer, DefaultConnOptions(true))
	clientConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := conn.Next(ctx)
	assert.Equal(t, io.EOF, err)
}
