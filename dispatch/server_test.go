package dispatch

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperium/hyper-sub003/body"
	"github.com/hyperium/hyper-sub003/h1"
	"github.com/hyperium/hyper-sub003/headers"
	"github.com/hyperium/hyper-sub003/message"
	"github.com/hyperium/hyper-sub003/rt"
)

func TestServeH1EchoesRequestBody(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	conn := h1.NewConnection(rt.NewNetConn(serverConn, 0), h1.RoleServer, h1.DefaultConnOptions(true))

	echo := ServiceFunc(func(ctx context.Context, req *Message) (*Message, error) {
		var buf []byte
		for {
			chunk, err := req.Body.Next(ctx)
			if err != nil || chunk == nil {
				break
			}
			buf = append(buf, chunk...)
		}
		p := body.NewPipe(1, int64(len(buf)))
		require.NoError(t, p.SendData(ctx, buf))
		p.End(nil)
		return &Message{
			Head: &message.Head{
				Proto:   message.Version11,
				Headers: headers.New(),
				Subject: message.StatusSubject{Code: 200, Reason: "OK"},
			},
			Body: &body.PipeBody{P: p, Hint: body.SizeHint{Known: true, Lower: uint64(len(buf)), Upper: uint64(len(buf))}},
		}, nil
	})

	serveDone := make(chan error, 1)
	go func() { serveDone <- ServeH1(context.Background(), conn, echo, ServerOptions{}) }()

	raw := "POST /echo HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\nConnection: close\r\n\r\nhello"
	go clientConn.Write([]byte(raw))

	readResult := make(chan string, 1)
	go func() {
		buf := make([]byte, 512)
		clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _ := clientConn.Read(buf)
		readResult <- string(buf[:n])
	}()

	out := <-readResult
	assert.Contains(t, out, "HTTP/1.1 200")
	assert.Contains(t, out, "hello")
}
