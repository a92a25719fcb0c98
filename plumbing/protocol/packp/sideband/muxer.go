package sideband

import (
	"io"

	"github.com/gitforge/forge/plumbing/format/pktline"
)

// Muxer implements io.Writer, splitting pack-data writes into pkt-line
// packets no larger than the Type's MaxPackedSize and tagging them with
// the pack-data channel byte.
type Muxer struct {
	t Type
	w io.Writer
}

// NewMuxer returns a new Muxer of the given Type, writing to w.
func NewMuxer(t Type, w io.Writer) *Muxer {
	return &Muxer{t: t, w: w}
}

// Write implements io.Writer, chunking p across the pack-data channel.
func (m *Muxer) Write(p []byte) (int, error) {
	chunkSize := m.t.MaxPackedSize() - 1

	var written int
	for len(p) > 0 {
		n := len(p)
		if n > chunkSize {
			n = chunkSize
		}

		wn, err := m.WriteChannel(PackData, p[:n])
		written += wn
		if err != nil {
			return written, err
		}

		p = p[n:]
	}

	return written, nil
}

// WriteChannel writes a single pkt-line packet on the given channel,
// returning the number of bytes of p written.
func (m *Muxer) WriteChannel(ch Channel, p []byte) (int, error) {
	if _, err := pktline.WritePacket(m.w, ch.WithPayload(p)); err != nil {
		return 0, err
	}

	return len(p), nil
}
