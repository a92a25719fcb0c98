package idxfile

import (
	"crypto"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gitforge/forge/plumbing/hash"
)

// Encoder writes MemoryIndex structs to an output stream.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns a new stream encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode encodes idx into the encoder's writer, returning the number of
// bytes written.
func (e *Encoder) Encode(idx *MemoryIndex) (int, error) {
	if idx == nil {
		return 0, fmt.Errorf("nil index")
	}

	h := hash.New(crypto.SHA1)
	if idx.size() == hash.SHA256_Size {
		h = hash.New(crypto.SHA256)
	}

	counter := &countingWriter{w: e.w}
	if err := Encode(counter, h, idx); err != nil {
		return counter.n, err
	}

	return counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

// Encode writes idx to w in idx v2 format, using h to produce the trailing
// idx checksum.
func Encode(w io.Writer, h hash.Hash, idx *MemoryIndex) error {
	if w == nil {
		return fmt.Errorf("nil writer")
	}

	if idx == nil {
		return fmt.Errorf("nil index")
	}

	if idx.Version != 0 && idx.Version != VersionSupported {
		return fmt.Errorf("unsupported version %d", idx.Version)
	}

	mw := io.MultiWriter(w, h)

	if err := encodeHeader(mw); err != nil {
		return err
	}

	if err := encodeFanout(mw, idx); err != nil {
		return err
	}

	if err := encodeNames(mw, idx); err != nil {
		return err
	}

	if err := encodeCRC32(mw, idx); err != nil {
		return err
	}

	if err := encodeOffsets(mw, idx); err != nil {
		return err
	}

	return encodeChecksums(w, h, idx)
}

func encodeHeader(w io.Writer) error {
	if _, err := w.Write(idxHeader); err != nil {
		return err
	}

	return binary.Write(w, binary.BigEndian, uint32(VersionSupported))
}

func encodeFanout(w io.Writer, idx *MemoryIndex) error {
	for _, c := range idx.Fanout {
		if err := binary.Write(w, binary.BigEndian, c); err != nil {
			return err
		}
	}

	return nil
}

func encodeNames(w io.Writer, idx *MemoryIndex) error {
	for k := 0; k < fanout; k++ {
		pos := idx.FanoutMapping[k]
		if pos == noMapping {
			continue
		}

		if pos >= len(idx.Names) {
			return fmt.Errorf("malformed IDX file: invalid position %d", pos)
		}

		if _, err := w.Write(idx.Names[pos]); err != nil {
			return err
		}
	}

	return nil
}

func encodeCRC32(w io.Writer, idx *MemoryIndex) error {
	for k := 0; k < fanout; k++ {
		pos := idx.FanoutMapping[k]
		if pos == noMapping {
			continue
		}

		if pos >= len(idx.CRC32) {
			return fmt.Errorf("malformed IDX file: invalid CRC32 index %d", pos)
		}

		if _, err := w.Write(idx.CRC32[pos]); err != nil {
			return err
		}
	}

	return nil
}

func encodeOffsets(w io.Writer, idx *MemoryIndex) error {
	for k := 0; k < fanout; k++ {
		pos := idx.FanoutMapping[k]
		if pos == noMapping {
			continue
		}

		if pos >= len(idx.Offset32) {
			return fmt.Errorf("malformed IDX file: invalid offset32 index %d", pos)
		}

		if _, err := w.Write(idx.Offset32[pos]); err != nil {
			return err
		}
	}

	if len(idx.Offset64) > 0 {
		if _, err := w.Write(idx.Offset64); err != nil {
			return err
		}
	}

	return nil
}

func encodeChecksums(w io.Writer, h hash.Hash, idx *MemoryIndex) error {
	if _, err := w.Write(idx.PackfileChecksum.Bytes()); err != nil {
		return err
	}

	if _, err := w.Write(h.Sum(nil)); err != nil {
		return err
	}

	return nil
}
