package h2

import (
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/hyperium/hyper-sub003/body"
	"github.com/hyperium/hyper-sub003/buffer"
	"github.com/hyperium/hyper-sub003/errs"
	"github.com/hyperium/hyper-sub003/headers"
	"github.com/hyperium/hyper-sub003/message"
	"github.com/hyperium/hyper-sub003/rt"
)

// Role mirrors h1.Role: which side of the connection this engine plays.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// Connection is one HTTP/2 connection: frame I/O, HPACK state, settings
// negotiation, flow control, and the stream table (spec §4.F). Grounded on
// packetd-packetd's protocol/phttp2 connection loop for the overall read-loop
// shape, translated to Go's blocking-transport-plus-goroutine style the same
// way h1.Connection translates the Rust poll-based original.
type Connection struct {
	transport rt.Transport
	role      Role
	exec      rt.Executor
	timer     rt.Timer

	ring    *buffer.Ring
	writeMu sync.Mutex

	hpack *hpackCodec

	settingsMu     sync.Mutex
	localSettings  Settings
	remoteSettings Settings
	localAcked     bool

	connSendWindow *window
	connRecvWindow *window
	connRecvCredit *recvCredit

	streamsMu    sync.Mutex
	streams      map[uint32]*Stream
	nextStreamID uint32
	maxLocal     uint32
	active       atomic.Int32

	incoming chan *Stream

	goAwaySent     atomic.Bool
	goAwayReceived atomic.Bool

	pingMu      sync.Mutex
	pendingPing map[uint64]chan struct{}

	done      chan struct{}
	closeOnce sync.Once
	lastErr   atomic.Value
}

// NewConnection performs the connection preface/SETTINGS handshake and
// starts the read loop, returning a ready-to-use Connection (spec §4.F
// "connection preface", §6.1).
func NewConnection(transport rt.Transport, role Role, maxConcurrentStreams uint32, exec rt.Executor, timer rt.Timer) (*Connection, error) {
	if exec == nil {
		exec = rt.GoExecutor{}
	}
	if timer == nil {
		timer = rt.SystemTimer{}
	}
	local := clientDefaults()
	if role == RoleServer {
		local = serverDefaults(maxConcurrentStreams)
	}
	c := &Connection{
		transport:      transport,
		role:           role,
		exec:           exec,
		timer:          timer,
		ring:           buffer.NewRing(4096, 0),
		hpack:          newHPACKCodec(local.HeaderTableSize),
		localSettings:  local,
		remoteSettings: DefaultSettings(),
		connSendWindow: newWindow(defaultInitialWindow),
		connRecvWindow: newWindow(defaultInitialWindow),
		connRecvCredit: newRecvCredit(defaultInitialWindow),
		streams:        make(map[uint32]*Stream),
		incoming:       make(chan *Stream, 16),
		pendingPing:    make(map[uint64]chan struct{}),
		done:           make(chan struct{}),
	}
	if role == RoleClient {
		c.nextStreamID = 1
		if _, err := transport.Write([]byte(ClientPreface)); err != nil {
			return nil, errs.New(errs.Io, err)
		}
	} else {
		c.nextStreamID = 2
		if err := c.expectClientPreface(); err != nil {
			return nil, err
		}
	}
	if err := c.writeFrame(FrameHeader{Type: FrameSettings, StreamID: 0}, encodeSettingsPayload(local)); err != nil {
		return nil, errs.New(errs.Io, err)
	}
	exec.Execute(c.readLoop)
	return c, nil
}

func (c *Connection) expectClientPreface() error {
	want := []byte(ClientPreface)
	got, err := c.readFull(len(want))
	if err != nil {
		return errs.New(errs.Parse, err)
	}
	for i := range want {
		if got[i] != want[i] {
			return errs.Newf(errs.Parse, "h2: bad connection preface")
		}
	}
	c.ring.Advance(len(want))
	return nil
}

// Accept returns the next server-role stream whose request head has been
// fully decoded, or (nil, err) once the connection ends.
func (c *Connection) Accept(ctx context.Context) (*Stream, error) {
	select {
	case s, ok := <-c.incoming:
		if !ok {
			return nil, c.Err()
		}
		return s, nil
	case <-c.done:
		return nil, c.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OpenStream starts a new client-initiated stream by sending a HEADERS block
// for req (spec §4.F client role). endStream indicates the request carries no
// body.
func (c *Connection) OpenStream(req *message.Head, authority, scheme string, endStream bool) (*Stream, error) {
	if c.role != RoleClient {
		return nil, errs.Newf(errs.Protocol, "h2: OpenStream is client-only")
	}
	if c.goAwaySent.Load() || c.goAwayReceived.Load() {
		return nil, errs.New(errs.Shutdown, nil)
	}
	c.streamsMu.Lock()
	if uint32(len(c.streams)) >= c.remoteSettings.MaxConcurrentStreams {
		c.streamsMu.Unlock()
		return nil, errs.Newf(errs.Protocol, "h2: MAX_CONCURRENT_STREAMS reached")
	}
	id := c.nextStreamID
	c.nextStreamID += 2
	s := newStream(id, c, c.remoteSettings.InitialWindowSize, c.localSettings.InitialWindowSize)
	s.headReady = make(chan struct{})
	// s.head stays nil until the response HEADERS block decodes (handled by
	// finishHeaderBlock's firstBlock branch); WaitHead waits for that, not
	// for this stream's own outgoing request head.
	s.setState(StreamOpen)
	c.streams[id] = s
	c.streamsMu.Unlock()
	c.active.Add(1)

	c.writeMu.Lock()
	block, err := c.hpack.encodeRequest(req, authority, scheme)
	if err != nil {
		c.writeMu.Unlock()
		return nil, errs.New(errs.Parse, err)
	}
	err = c.sendHeaderBlockLocked(id, block, endStream)
	c.writeMu.Unlock()
	if err != nil {
		return nil, errs.New(errs.Io, err)
	}
	if endStream {
		advanceOnEndStreamSent(s)
	} else {
		c.exec.Execute(func() { c.pumpOutbound(s) })
	}
	return s, nil
}

// WriteResponseHead sends resp as the HEADERS block answering s (server
// role). endStream indicates the response carries no body.
func (c *Connection) WriteResponseHead(s *Stream, resp *message.Head, endStream bool) error {
	c.writeMu.Lock()
	block, err := c.hpack.encodeResponse(resp)
	if err != nil {
		c.writeMu.Unlock()
		return errs.New(errs.Parse, err)
	}
	err = c.sendHeaderBlockLocked(s.id, block, endStream)
	c.writeMu.Unlock()
	if err != nil {
		return errs.New(errs.Io, err)
	}
	if endStream {
		advanceOnEndStreamSent(s)
	} else {
		c.exec.Execute(func() { c.pumpOutbound(s) })
	}
	return nil
}

// sendHeaderBlockLocked writes block as one HEADERS frame followed by as
// many CONTINUATION frames as needed, splitting on remoteSettings.MaxFrameSize
// (spec §4.F "CONTINUATION reassembly", the send-side mirror). Caller must
// already hold writeMu so the sequence stays contiguous on the wire per RFC
// 7540 §6.2.
func (c *Connection) sendHeaderBlockLocked(streamID uint32, block []byte, endStream bool) error {
	maxFrame := int(c.remoteSettings.MaxFrameSize)
	if maxFrame <= 0 {
		maxFrame = defaultMaxFrameSize
	}
	first := true
	for first || len(block) > 0 {
		n := len(block)
		if n > maxFrame {
			n = maxFrame
		}
		chunk := block[:n]
		block = block[n:]
		var flags uint8
		if len(block) == 0 {
			flags |= FlagEndHeaders
		}
		ft := FrameContinuation
		if first {
			ft = FrameHeaders
			if endStream {
				flags |= FlagEndStream
			}
		}
		if err := c.writeFrameLocked(FrameHeader{Type: ft, Flags: flags, StreamID: streamID}, chunk); err != nil {
			return err
		}
		first = false
	}
	return nil
}

func (c *Connection) writeFrame(fh FrameHeader, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writeFrameLocked(fh, payload)
}

func (c *Connection) writeFrameLocked(fh FrameHeader, payload []byte) error {
	fh.Length = uint32(len(payload))
	buf := make([]byte, 0, frameHeaderLen+len(payload))
	buf = WriteFrameHeader(buf, fh)
	buf = append(buf, payload...)
	if _, err := c.transport.Write(buf); err != nil {
		return err
	}
	return c.transport.Flush()
}

// pumpOutbound drains s.Outbound() into DATA frames (and a final trailers
// HEADERS block, if any), applying flow control via reserveMin against both
// the stream and connection send windows (spec §4.F per-stream + connection
// flow control).
func (c *Connection) pumpOutbound(s *Stream) {
	ctx := context.Background()
	for {
		chunk, err := s.outbound.Next(ctx)
		if err != nil {
			c.resetStream(s, ErrInternal)
			return
		}
		if chunk == nil {
			trailers := s.outbound.Trailers(ctx)
			if trailers != nil && trailers.Len() > 0 {
				c.writeMu.Lock()
				block, encErr := c.hpack.writeTrailers(trailers)
				if encErr == nil {
					encErr = c.sendHeaderBlockLocked(s.id, block, true)
				}
				c.writeMu.Unlock()
				if encErr != nil {
					c.resetStream(s, ErrInternal)
					return
				}
			} else if err := c.sendData(s, nil, true); err != nil {
				c.resetStream(s, ErrInternal)
				return
			}
			advanceOnEndStreamSent(s)
			return
		}
		if err := c.sendData(s, chunk, false); err != nil {
			c.resetStream(s, ErrInternal)
			return
		}
		// The chunk is now on the wire (or queued behind wire-level flow
		// control in sendData); release its credit so the application's
		// SendData calls don't stall behind the pipe's internal buffer
		// once the initial grant is exhausted.
		s.outbound.Grant(int64(len(chunk)))
	}
}

func (c *Connection) sendData(s *Stream, data []byte, end bool) error {
	if len(data) == 0 {
		flags := uint8(0)
		if end {
			flags |= FlagEndStream
		}
		return c.writeFrame(FrameHeader{Type: FrameData, Flags: flags, StreamID: s.id}, nil)
	}
	for len(data) > 0 {
		want := int32(len(data))
		if mf := int32(c.remoteSettings.MaxFrameSize); want > mf {
			want = mf
		}
		n := reserveMin(s.sendWindow, c.connSendWindow, want)
		if n == 0 {
			return errs.Newf(errs.Canceled, "h2: stream %d closed during send", s.id)
		}
		flags := uint8(0)
		if end && int(n) == len(data) {
			flags |= FlagEndStream
		}
		if err := c.writeFrame(FrameHeader{Type: FrameData, Flags: flags, StreamID: s.id}, data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (c *Connection) resetStream(s *Stream, code ErrorCode) {
	if !s.rstSent.CompareAndSwap(false, true) {
		return
	}
	_ = c.sendRstStream(s.id, code)
	s.closeBoth(errs.New(errs.Canceled, nil))
	c.forgetStream(s.id)
}

// sendRstStream writes a bare RST_STREAM(code) for id, independent of any
// *Stream bookkeeping: used both by resetStream and for refusing admission
// to streams the engine never hands to the application (spec §4.F, §8
// scenario 5).
func (c *Connection) sendRstStream(id uint32, code ErrorCode) error {
	var payload [4]byte
	binary.BigEndian.PutUint32(payload[:], uint32(code))
	return c.writeFrame(FrameHeader{Type: FrameRSTStream, StreamID: id}, payload[:])
}

func (c *Connection) forgetStream(id uint32) {
	c.streamsMu.Lock()
	if _, ok := c.streams[id]; ok {
		delete(c.streams, id)
		c.active.Add(-1)
	}
	c.streamsMu.Unlock()
}

// Ping sends a PING frame and blocks until the matching ACK arrives or ctx
// is done. Nothing in this module calls it periodically; a PING is sent
// only when a caller invokes it.
func (c *Connection) Ping(ctx context.Context, payload uint64) error {
	ackCh := make(chan struct{})
	c.pingMu.Lock()
	c.pendingPing[payload] = ackCh
	c.pingMu.Unlock()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], payload)
	if err := c.writeFrame(FrameHeader{Type: FramePing}, buf[:]); err != nil {
		return err
	}
	select {
	case <-ackCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.Err()
	}
}

// GoAway sends a GOAWAY advertising lastStreamID processed, then marks no
// further streams may be opened locally (spec §4.F graceful shutdown).
func (c *Connection) GoAway(lastStreamID uint32, code ErrorCode) error {
	if !c.goAwaySent.CompareAndSwap(false, true) {
		return nil
	}
	payload := make([]byte, 8)
	binary.BigEndian.PutUint32(payload[0:4], lastStreamID&0x7fffffff)
	binary.BigEndian.PutUint32(payload[4:8], uint32(code))
	return c.writeFrame(FrameHeader{Type: FrameGoAway}, payload)
}

func (c *Connection) readFull(n int) ([]byte, error) {
	for c.ring.Len() < n {
		buf, err := c.ring.Reserve(4096)
		if err != nil {
			return nil, err
		}
		nr, err := c.transport.Read(buf)
		if nr > 0 {
			c.ring.Commit(nr)
		}
		if err != nil {
			return nil, err
		}
	}
	return c.ring.Peek()[:n], nil
}

func (c *Connection) readFrame() (FrameHeader, []byte, error) {
	hdr, err := c.readFull(frameHeaderLen)
	if err != nil {
		return FrameHeader{}, nil, err
	}
	fh := ParseFrameHeader(hdr)
	c.ring.Advance(frameHeaderLen)
	if fh.Length > c.localSettings.MaxFrameSize {
		return fh, nil, errFrameSize("h2: frame exceeds SETTINGS_MAX_FRAME_SIZE")
	}
	if fh.Length == 0 {
		return fh, nil, nil
	}
	payloadBytes, err := c.readFull(int(fh.Length))
	if err != nil {
		return fh, nil, err
	}
	out := make([]byte, fh.Length)
	copy(out, payloadBytes)
	c.ring.Advance(int(fh.Length))
	return fh, out, nil
}

// readLoop is the connection's single reader goroutine, owning the ring
// buffer and every stream's receive-side transitions, the same one-reader
// architecture h1.Connection.readPump uses for the same reason: only one
// goroutine may ever read the transport.
func (c *Connection) readLoop() {
	for {
		fh, payload, err := c.readFrame()
		if err != nil {
			c.teardown(errs.New(errs.Io, err))
			return
		}
		if err := c.dispatchFrame(fh, payload); err != nil {
			code := CodeOf(err)
			_ = c.GoAway(c.highestStreamID(), code)
			c.teardown(err)
			return
		}
		if c.goAwayReceived.Load() && c.active.Load() == 0 {
			c.teardown(nil)
			return
		}
	}
}

func (c *Connection) highestStreamID() uint32 {
	c.streamsMu.Lock()
	defer c.streamsMu.Unlock()
	var max uint32
	for id := range c.streams {
		if id > max {
			max = id
		}
	}
	return max
}

func (c *Connection) dispatchFrame(fh FrameHeader, payload []byte) error {
	switch fh.Type {
	case FrameSettings:
		return c.handleSettings(fh, payload)
	case FrameWindowUpdate:
		return c.handleWindowUpdate(fh, payload)
	case FrameData:
		return c.handleData(fh, payload)
	case FrameHeaders:
		return c.handleHeaders(fh, payload)
	case FrameContinuation:
		return c.handleContinuation(fh, payload)
	case FrameRSTStream:
		return c.handleRstStream(fh, payload)
	case FrameGoAway:
		return c.handleGoAway(payload)
	case FramePing:
		return c.handlePing(fh, payload)
	case FramePriority:
		return nil // priority hints are accepted and ignored, spec §4.F non-goal
	case FramePushPromise:
		return c.handlePushPromise(fh, payload)
	default:
		return nil // unknown frame types are ignored, RFC 7540 §4.1
	}
}

func (c *Connection) handleSettings(fh FrameHeader, payload []byte) error {
	if fh.hasFlag(FlagAck) {
		c.settingsMu.Lock()
		c.localAcked = true
		c.settingsMu.Unlock()
		return nil
	}
	c.settingsMu.Lock()
	delta, err := decodeSettingsPayload(&c.remoteSettings, payload)
	c.hpack.setEncoderTableSize(c.remoteSettings.HeaderTableSize)
	c.settingsMu.Unlock()
	if err != nil {
		return err
	}
	if delta != 0 {
		c.streamsMu.Lock()
		for _, s := range c.streams {
			s.sendWindow.adjustInitial(delta)
		}
		c.streamsMu.Unlock()
	}
	// The ACK is written from its own goroutine so this read loop keeps
	// reading meanwhile: over a transport with no buffering (net.Pipe), two
	// peers acknowledging each other's SETTINGS from their read loops at the
	// same time would otherwise block each other's writes forever.
	c.exec.Execute(func() {
		_ = c.writeFrame(FrameHeader{Type: FrameSettings, Flags: FlagAck}, nil)
	})
	return nil
}

func (c *Connection) handleWindowUpdate(fh FrameHeader, payload []byte) error {
	if len(payload) != 4 {
		return errFrameSize("h2: WINDOW_UPDATE payload must be 4 bytes")
	}
	inc := int32(binary.BigEndian.Uint32(payload) & 0x7fffffff)
	if inc == 0 {
		return errProtocol("h2: zero WINDOW_UPDATE increment")
	}
	if fh.StreamID == 0 {
		c.connSendWindow.credit(inc)
		return nil
	}
	s := c.lookupStream(fh.StreamID)
	if s != nil {
		s.sendWindow.credit(inc)
	}
	return nil
}

func (c *Connection) handleData(fh FrameHeader, payload []byte) error {
	s := c.lookupStream(fh.StreamID)
	if s == nil {
		return nil // stream already closed/reset; ignore trailing frames
	}
	if len(payload) > 0 {
		n := int64(len(payload))
		if s.recvWindow.available() < n || c.connRecvWindow.available() < n {
			return errFlowControl("h2: peer exceeded advertised receive window")
		}
		s.recvWindow.consume(n)
		c.connRecvWindow.consume(n)
		if err := s.inbound.SendData(context.Background(), buffer.Chunk(payload)); err != nil {
			return nil
		}
		if release := s.recvCredit.consume(n); release > 0 {
			s.recvWindow.credit(int32(release))
			_ = c.sendWindowUpdate(s.id, int32(release))
		}
		if release := c.connRecvCredit.consume(n); release > 0 {
			c.connRecvWindow.credit(int32(release))
			_ = c.sendWindowUpdate(0, int32(release))
		}
	}
	if fh.hasFlag(FlagEndStream) {
		advanceOnEndStreamRecv(s)
		s.inbound.End(nil)
		if s.isClosed() {
			c.forgetStream(s.id)
		}
	}
	return nil
}

func (c *Connection) sendWindowUpdate(streamID uint32, inc int32) error {
	var payload [4]byte
	binary.BigEndian.PutUint32(payload[:], uint32(inc)&0x7fffffff)
	return c.writeFrame(FrameHeader{Type: FrameWindowUpdate, StreamID: streamID}, payload[:])
}

// headerBlockFragment strips PADDED/PRIORITY framing from a HEADERS frame
// payload and returns the bare header block fragment (RFC 7540 §6.2).
func headerBlockFragment(fh FrameHeader, payload []byte) ([]byte, error) {
	b := payload
	if fh.hasFlag(FlagPadded) {
		if len(b) < 1 {
			return nil, errFrameSize("h2: HEADERS padding length missing")
		}
		padLen := int(b[0])
		b = b[1:]
		if padLen > len(b) {
			return nil, errFrameSize("h2: HEADERS padding exceeds frame")
		}
		b = b[:len(b)-padLen]
	}
	if fh.hasFlag(FlagPriority) {
		if len(b) < 5 {
			return nil, errFrameSize("h2: HEADERS priority fields missing")
		}
		b = b[5:]
	}
	return b, nil
}

// handlePushPromise refuses any PUSH_PROMISE with a per-stream
// RST_STREAM(REFUSED_STREAM) rather than a connection error: this engine
// always advertises SETTINGS_ENABLE_PUSH=0, and RFC 7540 §8.2 requires a
// client that still receives one to refuse the promised stream, not tear
// down the connection. The header block fragment is still decoded (when it
// arrives whole in this frame) to keep the shared HPACK decoder state in
// sync with the peer's encoder.
func (c *Connection) handlePushPromise(fh FrameHeader, payload []byte) error {
	b := payload
	if fh.hasFlag(FlagPadded) {
		if len(b) < 1 {
			return errFrameSize("h2: PUSH_PROMISE padding length missing")
		}
		padLen := int(b[0])
		b = b[1:]
		if padLen > len(b) {
			return errFrameSize("h2: PUSH_PROMISE padding exceeds frame")
		}
		b = b[:len(b)-padLen]
	}
	if len(b) < 4 {
		return errFrameSize("h2: PUSH_PROMISE promised stream id missing")
	}
	promisedID := binary.BigEndian.Uint32(b) & 0x7fffffff
	if fh.hasFlag(FlagEndHeaders) {
		if _, err := c.hpack.decodeBlock(b[4:]); err != nil {
			return errCompression(err.Error())
		}
	}
	return c.sendRstStream(promisedID, ErrRefusedStream)
}

func (c *Connection) handleHeaders(fh FrameHeader, payload []byte) error {
	frag, err := headerBlockFragment(fh, payload)
	if err != nil {
		return err
	}
	s := c.lookupStream(fh.StreamID)
	if s == nil {
		if c.role != RoleServer {
			return errProtocol("h2: unexpected new stream on client connection")
		}
		// Admission is refused per-stream, not connection-wide, whether the
		// refusal comes from an exhausted MAX_CONCURRENT_STREAMS budget or
		// from GOAWAY already having been sent (spec §8 scenario 5): the
		// stream is still tracked long enough to decode its HEADERS block
		// and keep HPACK state synchronized, then answered with
		// RST_STREAM(REFUSED_STREAM) in finishHeaderBlock instead of being
		// delivered to Accept.
		refused := c.goAwaySent.Load()
		c.streamsMu.Lock()
		if !refused && uint32(len(c.streams)) >= c.localSettings.MaxConcurrentStreams {
			refused = true
		}
		s = newStream(fh.StreamID, c, c.remoteSettings.InitialWindowSize, c.localSettings.InitialWindowSize)
		s.headReady = make(chan struct{})
		s.refused = refused
		s.setState(StreamOpen)
		c.streams[fh.StreamID] = s
		c.streamsMu.Unlock()
		c.active.Add(1)
	}
	s.headerBlock = append(s.headerBlock[:0:0], frag...)
	if fh.hasFlag(FlagEndHeaders) {
		return c.finishHeaderBlock(s, fh.hasFlag(FlagEndStream))
	}
	return nil
}

func (c *Connection) handleContinuation(fh FrameHeader, payload []byte) error {
	s := c.lookupStream(fh.StreamID)
	if s == nil {
		return nil
	}
	s.headerBlock = append(s.headerBlock, payload...)
	if fh.hasFlag(FlagEndHeaders) {
		return c.finishHeaderBlock(s, false)
	}
	return nil
}

func (c *Connection) finishHeaderBlock(s *Stream, endStream bool) error {
	block := s.headerBlock
	s.headerBlock = nil
	fields, err := c.hpack.decodeBlock(block)
	if err != nil {
		return errCompression(err.Error())
	}

	if s.refused {
		err := c.sendRstStream(s.id, ErrRefusedStream)
		c.forgetStream(s.id)
		return err
	}

	s.mu.Lock()
	firstBlock := s.head == nil
	s.mu.Unlock()

	if firstBlock {
		head, err := fieldsToHead(fields, c.role == RoleServer)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.head = head
		s.mu.Unlock()
		closeHeadReady(s)
		if c.role == RoleServer {
			select {
			case c.incoming <- s:
			case <-c.done:
			}
		}
	} else {
		tr := headers.New()
		for _, f := range fields {
			tr.Add(f.Name, f.Value)
		}
		_ = s.inbound.SendTrailers(tr)
	}

	if endStream {
		advanceOnEndStreamRecv(s)
		s.inbound.End(nil)
		if s.isClosed() {
			c.forgetStream(s.id)
		}
	}
	return nil
}

func closeHeadReady(s *Stream) {
	select {
	case <-s.headReady:
	default:
		close(s.headReady)
	}
}

func (c *Connection) handleRstStream(fh FrameHeader, payload []byte) error {
	if len(payload) != 4 {
		return errFrameSize("h2: RST_STREAM payload must be 4 bytes")
	}
	s := c.lookupStream(fh.StreamID)
	if s == nil {
		return nil
	}
	s.rstReceived.Store(true)
	code := ErrorCode(binary.BigEndian.Uint32(payload))
	s.closeBoth(errs.Newf(errs.Canceled, "h2: stream reset by peer, code=%d", code))
	c.forgetStream(s.id)
	return nil
}

func (c *Connection) handleGoAway(payload []byte) error {
	if len(payload) < 8 {
		return errFrameSize("h2: GOAWAY payload too short")
	}
	c.goAwayReceived.Store(true)
	return nil
}

func (c *Connection) handlePing(fh FrameHeader, payload []byte) error {
	if len(payload) != 8 {
		return errFrameSize("h2: PING payload must be 8 bytes")
	}
	val := binary.BigEndian.Uint64(payload)
	if fh.hasFlag(FlagAck) {
		c.pingMu.Lock()
		ch, ok := c.pendingPing[val]
		if ok {
			delete(c.pendingPing, val)
		}
		c.pingMu.Unlock()
		if ok {
			close(ch)
		}
		return nil
	}
	return c.writeFrame(FrameHeader{Type: FramePing, Flags: FlagAck}, payload)
}

func (c *Connection) lookupStream(id uint32) *Stream {
	c.streamsMu.Lock()
	defer c.streamsMu.Unlock()
	return c.streams[id]
}

func (c *Connection) teardown(err error) {
	c.closeOnce.Do(func() {
		if err != nil {
			c.lastErr.Store(err)
		}
		c.streamsMu.Lock()
		for _, s := range c.streams {
			s.closeBoth(err)
		}
		c.streamsMu.Unlock()
		close(c.incoming)
		close(c.done)
	})
}

// Close tears the connection down immediately (spec §4.F ungraceful close).
func (c *Connection) Close() error {
	c.teardown(nil)
	return c.transport.Close()
}

// SendWindow returns the connection-level send window's current available
// credit, for metrics snapshotting (spec §4.F flow control).
func (c *Connection) SendWindow() int64 {
	return c.connSendWindow.available()
}

// ActiveStreams returns the number of streams currently tracked in the
// stream table, for metrics snapshotting.
func (c *Connection) ActiveStreams() int32 {
	return c.active.Load()
}

// Err returns the error that ended the connection, if any.
func (c *Connection) Err() error {
	if v := c.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// StreamBody adapts s.Inbound() into a body.Body for application code.
func StreamBody(s *Stream) body.Body {
	return &body.PipeBody{P: s.Inbound(), Hint: body.SizeHint{}}
}
