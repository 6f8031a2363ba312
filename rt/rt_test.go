package rt

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoExecutorRunsFunction(t *testing.T) {
	done := make(chan struct{})
	GoExecutor{}.Execute(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Execute did not run the function")
	}
}

func TestSystemTimerFiresAfterDuration(t *testing.T) {
	start := time.Now()
	ch := SystemTimer{}.Sleep(context.Background(), 10*time.Millisecond)
	<-ch
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSystemTimerCancelStopsWithoutSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := SystemTimer{}.Sleep(ctx, time.Hour)
	cancel()

	select {
	case v, ok := <-ch:
		assert.False(t, ok)
		assert.Zero(t, v)
	case <-time.After(time.Second):
		t.Fatal("Sleep channel did not close after cancel")
	}
}

func TestNetConnBuffersWritesUntilFlush(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	nc := NewNetConn(client, 4096)
	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 5)
		n, _ := server.Read(buf)
		readDone <- buf[:n]
	}()

	n, err := nc.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	require.NoError(t, nc.Flush())
	got := <-readDone
	assert.Equal(t, "hello", string(got))
}
