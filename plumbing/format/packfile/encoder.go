package packfile

import (
	"compress/zlib"
	"crypto/sha1"
	"io"

	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/storer"
	"github.com/gitforge/forge/utils/binary"
)

// Encoder gets the data from the storage and write it into the writer in PACK
// format
type Encoder struct {
	selector     *deltaSelector
	w            *offsetWriter
	zw           *zlib.Writer
	hasher       plumbing.Hasher
	useRefDeltas bool
}

// NewEncoder creates a new packfile encoder that writes objects fetched
// from s into w. When useRefDeltas is true, deltas reference their base by
// hash (REF_DELTA); otherwise they reference it by a backward byte offset
// into the pack being written (OFS_DELTA).
func NewEncoder(w io.Writer, s storer.EncodedObjectStorer, useRefDeltas bool) *Encoder {
	h := plumbing.Hasher{
		Hash: sha1.New(),
	}
	mw := io.MultiWriter(w, h)
	ow := newOffsetWriter(mw)
	zw := zlib.NewWriter(mw)
	return &Encoder{
		selector:     newDeltaSelector(s),
		w:            ow,
		zw:           zw,
		hasher:       h,
		useRefDeltas: useRefDeltas,
	}
}

// Encode creates a packfile containing all the objects referenced in
// hashes and writes it to the writer in the Encoder. packWindow controls
// how many preceding objects are considered as delta bases for each
// object; 0 disables delta compression entirely.
func (e *Encoder) Encode(hashes []plumbing.Hash, packWindow uint) (plumbing.Hash, error) {
	objects, err := e.selector.ObjectsToPack(hashes, packWindow)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return e.encode(objects)
}

func (e *Encoder) encode(objects []*ObjectToPack) (plumbing.Hash, error) {
	if err := e.head(len(objects)); err != nil {
		return plumbing.ZeroHash, err
	}

	for _, o := range objects {
		if err := e.entry(o); err != nil {
			return plumbing.ZeroHash, err
		}
	}

	return e.footer()
}

func (e *Encoder) head(numEntries int) error {
	return binary.Write(
		e.w,
		signature,
		int32(VersionSupported),
		int32(numEntries),
	)
}

// entry writes o to the pack, first recursively writing its delta base (if
// any) so OFS_DELTA offsets and object ordering stay consistent. If the
// base's own chain loops back to o, the base is written in full instead,
// breaking the cycle.
func (e *Encoder) entry(o *ObjectToPack) error {
	if o.IsWritten() {
		return nil
	}

	if o.IsDelta() && !o.Base.IsWritten() {
		if o.Base.writing {
			o.BackToOriginal()
		} else {
			o.writing = true
			err := e.entry(o.Base)
			o.writing = false
			if err != nil {
				return err
			}
		}
	}

	return e.writeEntry(o)
}

func (e *Encoder) writeEntry(o *ObjectToPack) error {
	offset := e.w.Offset()
	o.Offset = offset
	o.written = true

	entryType := o.Object.Type()
	if o.IsDelta() {
		if e.useRefDeltas {
			entryType = plumbing.REFDeltaObject
		} else {
			entryType = plumbing.OFSDeltaObject
		}
	}

	if err := e.entryHead(entryType, o.Object.Size()); err != nil {
		return err
	}

	if o.IsDelta() {
		var err error
		if e.useRefDeltas {
			err = e.writeRefDeltaHeader(o.Base.Hash())
		} else {
			err = e.writeOfsDeltaHeader(offset, o.Base.Offset)
		}
		if err != nil {
			return err
		}
	}

	e.zw.Reset(e.w)
	or, err := o.Object.Reader()
	if err != nil {
		return err
	}

	if _, err := io.Copy(e.zw, or); err != nil {
		return err
	}

	return e.zw.Close()
}

func (e *Encoder) writeRefDeltaHeader(source plumbing.Hash) error {
	return binary.Write(e.w, source)
}

func (e *Encoder) writeOfsDeltaHeader(deltaOffset, baseOffset int64) error {
	return binary.WriteVariableWidthInt(e.w, deltaOffset-baseOffset)
}

func (e *Encoder) entryHead(typeNum plumbing.ObjectType, size int64) error {
	t := int64(typeNum)
	header := []byte{}
	c := (t << firstLengthBits) | (size & maskFirstLength)
	size >>= firstLengthBits
	for {
		if size == 0 {
			break
		}
		header = append(header, byte(c|maskContinue))
		c = size & int64(maskLength)
		size >>= lengthBits
	}

	header = append(header, byte(c))
	_, err := e.w.Write(header)

	return err
}

func (e *Encoder) footer() (plumbing.Hash, error) {
	h := e.hasher.Sum()
	return h, binary.Write(e.w, h)
}

type offsetWriter struct {
	w      io.Writer
	offset int64
}

func newOffsetWriter(w io.Writer) *offsetWriter {
	return &offsetWriter{w: w}
}

func (ow *offsetWriter) Write(p []byte) (n int, err error) {
	n, err = ow.w.Write(p)
	ow.offset += int64(n)
	return n, err
}

func (ow *offsetWriter) Offset() int64 {
	return ow.offset
}
