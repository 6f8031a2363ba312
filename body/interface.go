package body

import "context"

// Body is the consumer-facing view of a message body (spec §6.2's consumed
// "Body" trait: "an iterator-like trait yielding Result<Chunk> frames and
// finally an optional trailer map, plus a size_hint").
type Body interface {
	Next(ctx context.Context) ([]byte, error)
	Trailers(ctx context.Context) map[string][]string
	SizeHint() SizeHint
}

// PipeBody adapts a *Pipe into the Body interface for application code that
// doesn't need the producer-side Grant/SendData methods.
type PipeBody struct {
	P    *Pipe
	Hint SizeHint
}

func (b *PipeBody) Next(ctx context.Context) ([]byte, error) {
	c, err := b.P.Next(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	// Release credit for the bytes just handed to the consumer, the real
	// read-progress signal spec §4.B's credit model describes: the producer
	// (h1.Decoder/h2.Stream) only blocks in SendData once the outstanding
	// unconsumed bytes exceed the initial grant.
	b.P.Grant(int64(len(c)))
	return []byte(c), nil
}

func (b *PipeBody) Trailers(ctx context.Context) map[string][]string {
	h := b.P.Trailers(ctx)
	if h == nil {
		return nil
	}
	out := make(map[string][]string, h.Len())
	h.Range(func(k, v string) { out[k] = append(out[k], v) })
	return out
}

func (b *PipeBody) SizeHint() SizeHint { return b.Hint }

var _ Body = (*PipeBody)(nil)
