package h2

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveMinCapsToSmallerWindow(t *testing.T) {
	stream := newWindow(1000)
	conn := newWindow(10)

	got := reserveMin(stream, conn, 500)
	assert.EqualValues(t, 10, got)
	assert.EqualValues(t, 990, stream.available())
	assert.EqualValues(t, 0, conn.available())
}

func TestReserveMinBlocksUntilCredited(t *testing.T) {
	stream := newWindow(0)
	conn := newWindow(100)

	done := make(chan int32, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		done <- reserveMin(stream, conn, 50)
	}()

	select {
	case <-done:
		t.Fatal("reserveMin returned before stream window had credit")
	case <-time.After(20 * time.Millisecond):
	}

	stream.credit(50)
	wg.Wait()
	got := <-done
	assert.EqualValues(t, 50, got)
}

func TestReserveMinReturnsZeroOnClose(t *testing.T) {
	stream := newWindow(0)
	conn := newWindow(100)

	done := make(chan int32, 1)
	go func() { done <- reserveMin(stream, conn, 50) }()

	time.Sleep(10 * time.Millisecond)
	stream.close()

	got := <-done
	assert.EqualValues(t, 0, got)
}

func TestWindowAdjustInitialCanGoNegative(t *testing.T) {
	w := newWindow(100)
	w.consume(100)
	w.adjustInitial(-50)
	assert.EqualValues(t, -50, w.available())
}

func TestRecvCreditBatchesBelowThreshold(t *testing.T) {
	rc := newRecvCredit(100) // threshold 50
	require.EqualValues(t, 0, rc.consume(10))
	require.EqualValues(t, 0, rc.consume(10))
	got := rc.consume(40)
	assert.EqualValues(t, 60, got)
}

func TestRecvCreditFlushReleasesRemainder(t *testing.T) {
	rc := newRecvCredit(100)
	rc.consume(5)
	assert.EqualValues(t, 5, rc.flush())
	assert.EqualValues(t, 0, rc.flush())
}
