// Package h2 implements the HTTP/2 engine (spec §4.F): frame parsing and
// emission, HPACK header compression, per-stream state machines, flow
// control, and connection-wide settings/concurrency/GOAWAY/PING handling.
// Grounded primarily on the dgrr/http2 source captured in the retrieval
// pack's other_examples (frame type constants, settings bookkeeping) and on
// packetd-packetd's protocol/phttp2 package (per-stream state machine,
// header validation) — see DESIGN.md for the full grounding ledger. HPACK
// itself wraps golang.org/x/net/http2/hpack rather than being hand-rolled
// (h2/hpack.go).
package h2

import (
	"encoding/binary"
	"errors"
)

// FrameType is the one-byte HTTP/2 frame type (RFC 7540 §6), ported from the
// constant block in other_examples' dgrr-http2/http2.go.
type FrameType uint8

const (
	FrameData         FrameType = 0x0
	FrameHeaders      FrameType = 0x1
	FramePriority     FrameType = 0x2
	FrameRSTStream    FrameType = 0x3
	FrameSettings     FrameType = 0x4
	FramePushPromise  FrameType = 0x5
	FramePing         FrameType = 0x6
	FrameGoAway       FrameType = 0x7
	FrameWindowUpdate FrameType = 0x8
	FrameContinuation FrameType = 0x9
)

// Frame flags (RFC 7540 §6, one bit per frame type's meaning).
const (
	FlagEndStream  uint8 = 0x1
	FlagAck        uint8 = 0x1 // SETTINGS / PING
	FlagEndHeaders uint8 = 0x4
	FlagPadded     uint8 = 0x8
	FlagPriority   uint8 = 0x20
)

// ErrorCode is an HTTP/2 error code (RFC 7540 §7).
type ErrorCode uint32

const (
	ErrNo                 ErrorCode = 0x0
	ErrProtocol           ErrorCode = 0x1
	ErrInternal           ErrorCode = 0x2
	ErrFlowControl        ErrorCode = 0x3
	ErrSettingsTimeout    ErrorCode = 0x4
	ErrStreamClosed       ErrorCode = 0x5
	ErrFrameSize          ErrorCode = 0x6
	ErrRefusedStream      ErrorCode = 0x7
	ErrCancel             ErrorCode = 0x8
	ErrCompression        ErrorCode = 0x9
	ErrConnect            ErrorCode = 0xa
	ErrEnhanceYourCalm    ErrorCode = 0xb
	ErrInadequateSecurity ErrorCode = 0xc
	ErrHTTP11Required     ErrorCode = 0xd
)

const frameHeaderLen = 9

// ClientPreface is the mandatory connection preface (spec §6.1, RFC 7540
// §3.5).
const ClientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

const (
	defaultMaxFrameSize = 1 << 14
	maxMaxFrameSize     = 1<<24 - 1
	maxWindowSize       = 1<<31 - 1
	defaultInitialWindow = 1<<16 - 1
)

// FrameHeader is the common 9-byte frame prefix.
type FrameHeader struct {
	Length   uint32 // 24 bits
	Type     FrameType
	Flags    uint8
	StreamID uint32 // 31 bits (top bit reserved)
}

func (fh FrameHeader) hasFlag(f uint8) bool { return fh.Flags&f != 0 }

// ErrFrameTooLarge signals a frame whose declared length exceeds the
// negotiated SETTINGS_MAX_FRAME_SIZE.
var ErrFrameTooLarge = errors.New("h2: frame exceeds max frame size")

// ParseFrameHeader decodes a 9-byte frame header from buf.
func ParseFrameHeader(buf []byte) FrameHeader {
	length := uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
	return FrameHeader{
		Length:   length,
		Type:     FrameType(buf[3]),
		Flags:    buf[4],
		StreamID: binary.BigEndian.Uint32(buf[5:9]) & 0x7fffffff,
	}
}

// WriteFrameHeader encodes fh into a 9-byte header, appended to dst.
func WriteFrameHeader(dst []byte, fh FrameHeader) []byte {
	dst = append(dst,
		byte(fh.Length>>16), byte(fh.Length>>8), byte(fh.Length),
		byte(fh.Type), fh.Flags,
	)
	var sid [4]byte
	binary.BigEndian.PutUint32(sid[:], fh.StreamID&0x7fffffff)
	return append(dst, sid[:]...)
}
