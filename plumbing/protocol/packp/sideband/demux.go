package sideband

import (
	"errors"
	"fmt"
	"io"

	"github.com/gitforge/forge/plumbing/format/pktline"
)

// ErrMaxPackedExceeded is returned when a sideband packet is bigger than
// the maximum allowed by its Type.
var ErrMaxPackedExceeded = errors.New("max. packed size exceeded")

// Progress is where human readable progress messages sent by a remote
// server during fetch/push are written.
type Progress io.Writer

// Demuxer implements io.Reader, demultiplexing pack data, progress
// messages and error messages read from an underlying pkt-line stream.
type Demuxer struct {
	t Type
	r io.Reader

	// Progress, if set, receives the content of progress-message
	// packets as they arrive.
	Progress io.Writer

	pending []byte
	err     error
}

// NewDemuxer returns a new Demuxer of the given Type, reading from r.
func NewDemuxer(t Type, r io.Reader) *Demuxer {
	return &Demuxer{t: t, r: r}
}

// Read implements io.Reader, returning pack-data channel content.
func (d *Demuxer) Read(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}

	for len(d.pending) == 0 {
		if err := d.nextPacket(); err != nil {
			d.err = err
			return 0, err
		}
	}

	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

// nextPacket reads packets until it finds one with pack-data content,
// consuming progress messages along the way.
func (d *Demuxer) nextPacket() error {
	_, payload, err := pktline.ReadPacket(d.r)
	if err != nil {
		return err
	}

	if len(payload) == 0 {
		return d.nextPacket()
	}

	if len(payload) > d.t.MaxPackedSize() {
		return ErrMaxPackedExceeded
	}

	content := payload[1:]
	switch Channel(payload[0]) {
	case PackData:
		d.pending = content
		return nil
	case ProgressMessage:
		if d.Progress != nil {
			if _, err := d.Progress.Write(content); err != nil {
				return err
			}
		}
		return d.nextPacket()
	case ErrorMessage:
		return fmt.Errorf("unexpected error: %s", content)
	default:
		return fmt.Errorf("unknown channel %s", payload)
	}
}
