package h2

import "encoding/binary"

// Settings identifiers (RFC 7540 §6.5.2).
const (
	settingHeaderTableSize      uint16 = 0x1
	settingEnablePush           uint16 = 0x2
	settingMaxConcurrentStreams uint16 = 0x3
	settingInitialWindowSize    uint16 = 0x4
	settingMaxFrameSize         uint16 = 0x5
	settingMaxHeaderListSize    uint16 = 0x6
)

// Settings is one peer's negotiated SETTINGS values (RFC 7540 §6.5,
// spec §4.F "SETTINGS negotiation"). Each side of a connection tracks two:
// the settings it has sent (locally desired, ACK-pending until acked) and
// the settings the peer has sent (remote, applied immediately on receipt
// per §6.5 "values... take effect... as soon as the endpoint... has sent
// the... acknowledgement", read the other way for values WE received: they
// apply as soon as we've processed the frame, no ACK needed on our side
// before using them).
type Settings struct {
	HeaderTableSize      uint32
	EnablePush           bool
	MaxConcurrentStreams uint32
	InitialWindowSize    uint32
	MaxFrameSize         uint32
	MaxHeaderListSize    uint32
}

// DefaultSettings are the RFC 7540 §6.5.2 defaults before any SETTINGS frame
// is processed.
func DefaultSettings() Settings {
	return Settings{
		HeaderTableSize:      4096,
		EnablePush:           true,
		MaxConcurrentStreams: 1 << 32 - 1, // "unlimited" sentinel
		InitialWindowSize:    defaultInitialWindow,
		MaxFrameSize:         defaultMaxFrameSize,
		MaxHeaderListSize:    1 << 32 - 1,
	}
}

// serverDefaults is what this engine advertises as a server (spec §4.F): push
// disabled (the engine never sends PUSH_PROMISE) and a conservative
// concurrent-stream cap, matching spec §5's single-flight-per-connection
// admission policy generalized to a small pool instead of one.
func serverDefaults(maxConcurrent uint32) Settings {
	s := DefaultSettings()
	s.EnablePush = false
	s.MaxConcurrentStreams = maxConcurrent
	return s
}

// clientDefaults is what this engine advertises as a client: push refused
// (spec §4.F "PUSH_PROMISE refusal") via EnablePush=false, signaling the peer
// not to bother.
func clientDefaults() Settings {
	s := DefaultSettings()
	s.EnablePush = false
	return s
}

// decodeSettingsPayload parses a SETTINGS frame payload (6 bytes per entry:
// 2-byte identifier, 4-byte value) applying each recognized entry onto s,
// and returns the delta to InitialWindowSize (new - old) the caller must
// apply to all open stream send-windows per RFC 7540 §6.9.2.
func decodeSettingsPayload(s *Settings, payload []byte) (windowDelta int32, err error) {
	if len(payload)%6 != 0 {
		return 0, errFrameSize("SETTINGS payload not a multiple of 6")
	}
	prevWindow := s.InitialWindowSize
	for i := 0; i+6 <= len(payload); i += 6 {
		id := binary.BigEndian.Uint16(payload[i : i+2])
		val := binary.BigEndian.Uint32(payload[i+2 : i+6])
		switch id {
		case settingHeaderTableSize:
			s.HeaderTableSize = val
		case settingEnablePush:
			if val > 1 {
				return 0, errProtocol("SETTINGS_ENABLE_PUSH must be 0 or 1")
			}
			s.EnablePush = val == 1
		case settingMaxConcurrentStreams:
			s.MaxConcurrentStreams = val
		case settingInitialWindowSize:
			if val > maxWindowSize {
				return 0, errFlowControl("SETTINGS_INITIAL_WINDOW_SIZE exceeds 2^31-1")
			}
			s.InitialWindowSize = val
		case settingMaxFrameSize:
			if val < defaultMaxFrameSize || val > maxMaxFrameSize {
				return 0, errProtocol("SETTINGS_MAX_FRAME_SIZE out of range")
			}
			s.MaxFrameSize = val
		case settingMaxHeaderListSize:
			s.MaxHeaderListSize = val
		default:
			// Unknown settings identifiers are ignored, per RFC 7540 §6.5.2.
		}
	}
	return int32(s.InitialWindowSize) - int32(prevWindow), nil
}

// encodeSettingsPayload serializes every field of s as a SETTINGS entry.
func encodeSettingsPayload(s Settings) []byte {
	buf := make([]byte, 0, 36)
	put := func(id uint16, val uint32) {
		var e [6]byte
		binary.BigEndian.PutUint16(e[0:2], id)
		binary.BigEndian.PutUint32(e[2:6], val)
		buf = append(buf, e[:]...)
	}
	put(settingHeaderTableSize, s.HeaderTableSize)
	if s.EnablePush {
		put(settingEnablePush, 1)
	} else {
		put(settingEnablePush, 0)
	}
	put(settingMaxConcurrentStreams, s.MaxConcurrentStreams)
	put(settingInitialWindowSize, s.InitialWindowSize)
	put(settingMaxFrameSize, s.MaxFrameSize)
	put(settingMaxHeaderListSize, s.MaxHeaderListSize)
	return buf
}

type h2Error struct {
	code ErrorCode
	msg  string
}

func (e *h2Error) Error() string { return e.msg }

func errFrameSize(msg string) error   { return &h2Error{code: ErrFrameSize, msg: msg} }
func errProtocol(msg string) error    { return &h2Error{code: ErrProtocol, msg: msg} }
func errFlowControl(msg string) error { return &h2Error{code: ErrFlowControl, msg: msg} }
func errCompression(msg string) error { return &h2Error{code: ErrCompression, msg: msg} }

// CodeOf extracts the ErrorCode an internal h2 error should be reported as
// in GOAWAY/RST_STREAM, defaulting to INTERNAL_ERROR for anything else.
func CodeOf(err error) ErrorCode {
	if he, ok := err.(*h2Error); ok {
		return he.code
	}
	return ErrInternal
}
