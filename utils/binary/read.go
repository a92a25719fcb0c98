package binary

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gitforge/forge/plumbing"
)

const (
	maskContinue = 0x80
	maskLength   = 0x7f
	shiftBits    = 7

	sniffLen = 8000
)

// Read reads the binary representation of data from r into data, using
// BigEndian order.
func Read(r io.Reader, data ...interface{}) error {
	for _, v := range data {
		if err := binary.Read(r, binary.BigEndian, v); err != nil {
			return err
		}
	}

	return nil
}

// ReadUint64 reads 8 bytes from r and returns them as a BigEndian uint64.
func ReadUint64(r io.Reader) (uint64, error) {
	var v uint64
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, err
	}

	return v, nil
}

// ReadUint32 reads 4 bytes from r and returns them as a BigEndian uint32.
func ReadUint32(r io.Reader) (uint32, error) {
	var v uint32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, err
	}

	return v, nil
}

// ReadUint16 reads 2 bytes from r and returns them as a BigEndian uint16.
func ReadUint16(r io.Reader) (uint16, error) {
	var v uint16
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, err
	}

	return v, nil
}

// ReadUvarint reads a base-128 varint from r, as defined by encoding/binary.
func ReadUvarint(r io.ByteReader) (uint64, error) {
	return binary.ReadUvarint(r)
}

// ReadUntil reads from r until delim is found, returning everything read
// before it. The delimiter itself is consumed but not included in the
// result.
func ReadUntil(r io.Reader, delim byte) ([]byte, error) {
	if br, ok := r.(*bufio.Reader); ok {
		return ReadUntilFromBufioReader(br, delim)
	}

	var buf [1]byte
	value := make([]byte, 0, 16)
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}

		if buf[0] == delim {
			return value, nil
		}

		value = append(value, buf[0])
	}
}

// ReadUntilFromBufioReader reads from r until delim is found, returning
// everything read before it.
func ReadUntilFromBufioReader(r *bufio.Reader, delim byte) ([]byte, error) {
	value, err := r.ReadBytes(delim)
	if err != nil {
		return nil, err
	}

	return value[:len(value)-1], nil
}

// ReadVariableWidthInt reads the variable width integer encoding used by
// the packfile format for entry sizes and OFS_DELTA offsets.
func ReadVariableWidthInt(r io.Reader) (int64, error) {
	var c byte
	if err := Read(r, &c); err != nil {
		return 0, err
	}

	var value = int64(c & maskLength)
	for c&maskContinue > 0 {
		if err := Read(r, &c); err != nil {
			return 0, err
		}

		value++
		value = (value << shiftBits) | int64(c&maskLength)
	}

	return value, nil
}

// ReadHash reads a hash of the given byte size from r.
func ReadHash(r io.Reader, size int) (plumbing.Hash, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return plumbing.ZeroHash, err
	}

	h, ok := plumbing.FromBytes(buf)
	if !ok {
		return plumbing.ZeroHash, fmt.Errorf("invalid hash size: %d", size)
	}

	return h, nil
}

// IsBinary detects if data read from r looks like binary content, scanning
// at most sniffLen bytes for a NUL byte. It never returns an error for a
// clean EOF.
func IsBinary(r io.Reader) (bool, error) {
	reader := bufio.NewReader(r)

	for c := 0; c < sniffLen; c++ {
		b, err := reader.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, err
		}

		if b == 0 {
			return true, nil
		}
	}

	return false, nil
}
