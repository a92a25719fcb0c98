package idxfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

var idxHeader = []byte{255, 't', 'O', 'c'}

// ErrUnknownIdxFormat is returned by Decode when the idx file does not
// start with the expected magic bytes.
var ErrUnknownIdxFormat = errors.New("unknown idx format")

// Decoder reads and decodes idx files from an input stream.
type Decoder struct {
	r io.Reader
}

// NewDecoder builds a new idx file decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads from the stream and decodes the content into the MemoryIndex
// struct.
func (d *Decoder) Decode(idx *MemoryIndex) error {
	flow := []func(*MemoryIndex) error{
		d.readHeader,
		d.readFanout,
		d.readObjectNames,
		d.readCRC32,
		d.readOffsets,
		d.readChecksums,
	}

	for _, f := range flow {
		if err := f(idx); err != nil {
			return err
		}
	}

	return nil
}

func (d *Decoder) readHeader(idx *MemoryIndex) error {
	var header [4]byte
	if _, err := io.ReadFull(d.r, header[:]); err != nil {
		return err
	}

	if header != [4]byte{idxHeader[0], idxHeader[1], idxHeader[2], idxHeader[3]} {
		return ErrUnknownIdxFormat
	}

	var version uint32
	if err := binary.Read(d.r, binary.BigEndian, &version); err != nil {
		return err
	}

	if version != VersionSupported {
		return ErrUnsupportedVersion
	}

	idx.Version = version
	return nil
}

func (d *Decoder) readFanout(idx *MemoryIndex) error {
	for k := 0; k < fanout; k++ {
		idx.FanoutMapping[k] = noMapping

		if err := binary.Read(d.r, binary.BigEndian, &idx.Fanout[k]); err != nil {
			return err
		}
	}

	return nil
}

func (d *Decoder) readObjectNames(idx *MemoryIndex) error {
	last := uint32(0)
	bucket := -1

	for k := 0; k < fanout; k++ {
		n := idx.Fanout[k] - last
		last = idx.Fanout[k]
		if n == 0 {
			continue
		}

		bucket++
		idx.FanoutMapping[k] = bucket

		buf := make([]byte, int(n)*idx.size())
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return err
		}

		idx.Names = append(idx.Names, buf)
	}

	return nil
}

func (d *Decoder) readCRC32(idx *MemoryIndex) error {
	last := uint32(0)
	for k := 0; k < fanout; k++ {
		n := idx.Fanout[k] - last
		last = idx.Fanout[k]
		if n == 0 {
			continue
		}

		buf := make([]byte, n*4)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return err
		}

		idx.CRC32 = append(idx.CRC32, buf)
	}

	return nil
}

func (d *Decoder) readOffsets(idx *MemoryIndex) error {
	last := uint32(0)
	numLarge := 0

	for k := 0; k < fanout; k++ {
		n := idx.Fanout[k] - last
		last = idx.Fanout[k]
		if n == 0 {
			continue
		}

		buf := make([]byte, n*4)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return err
		}

		for i := uint32(0); i < n; i++ {
			if be32(buf[i*4:])&isO64Mask != 0 {
				numLarge++
			}
		}

		idx.Offset32 = append(idx.Offset32, buf)
	}

	if numLarge > 0 {
		idx.Offset64 = make([]byte, numLarge*8)
		if _, err := io.ReadFull(d.r, idx.Offset64); err != nil {
			return err
		}
	}

	return nil
}

func (d *Decoder) readChecksums(idx *MemoryIndex) error {
	idx.PackfileChecksum.ResetBySize(idx.size())
	buf := make([]byte, idx.size())
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return err
	}
	_, _ = idx.PackfileChecksum.Write(buf)

	idx.IdxChecksum.ResetBySize(idx.size())
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return err
	}
	_, _ = idx.IdxChecksum.Write(buf)

	return nil
}
