// Package idxfile implements encoding and decoding of packfile idx files.
package idxfile

import (
	"errors"
	"io"
	"sort"

	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/hash"
)

const (
	// VersionSupported is the only idx version supported.
	VersionSupported = 2

	fanout    = 256
	noMapping = -1
)

var (
	// ErrUnsupportedVersion is returned by Decode when the idx file reports
	// a version different from VersionSupported.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrMalformedIdxFile is returned when the idx file is corrupt.
	ErrMalformedIdxFile = errors.New("malformed IDX file")
)

// Index represents an index of a packfile.
type Index interface {
	// Contains checks whether the given hash is in the index.
	Contains(h plumbing.Hash) (bool, error)
	// FindOffset finds the offset in the packfile for the object with
	// the given hash.
	FindOffset(h plumbing.Hash) (int64, error)
	// FindCRC32 finds the CRC32 of the object with the given hash.
	FindCRC32(h plumbing.Hash) (uint32, error)
	// FindHash finds the hash for the object with the given offset.
	FindHash(o int64) (plumbing.Hash, error)
	// Count returns the number of entries in the index.
	Count() (int64, error)
	// Entries returns an iterator to retrieve all index entries.
	Entries() (EntryIter, error)
	// EntriesByOffset returns an iterator to retrieve all index entries
	// ordered by offset.
	EntriesByOffset() (EntryIter, error)
}

// Entry is the in memory representation of an object's entry in an idx file.
type Entry struct {
	Hash   plumbing.Hash
	CRC32  uint32
	Offset uint64
}

// EntryIter is an iterator that will return the entries in a packfile index.
type EntryIter interface {
	// Next returns the next entry in the packfile index.
	Next() (*Entry, error)
	// Close closes the iterator.
	Close() error
}

// MemoryIndex is the in memory representation of an idx file.
type MemoryIndex struct {
	Version uint32

	Fanout        [fanout]uint32
	FanoutMapping [fanout]int

	Names    [][]byte
	CRC32    [][]byte
	Offset32 [][]byte
	Offset64 []byte

	PackfileChecksum plumbing.Hash
	IdxChecksum      plumbing.Hash

	hashSize   int
	offsetHash map[int64]plumbing.Hash
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex returns an empty MemoryIndex ready to be filled by a
// Decoder, sized for hashes of hashSize bytes.
func NewMemoryIndex(hashSize int) *MemoryIndex {
	return &MemoryIndex{Version: VersionSupported, hashSize: hashSize}
}

func (idx *MemoryIndex) size() int {
	if idx.hashSize != 0 {
		return idx.hashSize
	}

	return hash.SHA1_Size
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func be64(b []byte) uint64 {
	return uint64(b[0])<<56 | uint64(b[1])<<48 | uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 | uint64(b[6])<<8 | uint64(b[7])
}

const isO64Mask = uint32(1) << 31

// globalPosition returns the position of the pos-th entry of bucket
// relative to the whole set of entries, in hash order.
func (idx *MemoryIndex) globalPosition(bucket, pos int) int {
	total := 0
	for fan := 0; fan < bucket; fan++ {
		b := idx.FanoutMapping[fan]
		if b == noMapping {
			continue
		}

		total += len(idx.Names[b]) / idx.size()
	}

	return total + pos
}

func (idx *MemoryIndex) objectOffset(pos int) (uint64, error) {
	bucket, offsetInBucket, err := idx.bucketPosition(pos)
	if err != nil {
		return 0, err
	}

	if len(idx.Offset32[bucket]) < (offsetInBucket+1)*4 {
		return 0, plumbing.ErrObjectNotFound
	}

	offset32 := be32(idx.Offset32[bucket][offsetInBucket*4:])
	if offset32&isO64Mask == 0 {
		return uint64(offset32), nil
	}

	offset64Index := int(offset32 &^ isO64Mask)
	if len(idx.Offset64) < (offset64Index+1)*8 {
		return 0, ErrMalformedIdxFile
	}

	return be64(idx.Offset64[offset64Index*8:]), nil
}

// bucketPosition maps a global position (0-indexed, in hash order) to the
// bucket and the offset within that bucket's byte slices.
func (idx *MemoryIndex) bucketPosition(pos int) (bucket, offsetInBucket int, err error) {
	i := 0
	for fan := 0; fan < fanout; fan++ {
		b := idx.FanoutMapping[fan]
		if b == noMapping {
			continue
		}

		n := len(idx.Names[b]) / idx.size()
		if pos < i+n {
			return b, pos - i, nil
		}

		i += n
	}

	return 0, 0, plumbing.ErrObjectNotFound
}

func (idx *MemoryIndex) findHashInBucket(bucket int, h plumbing.Hash) (int, bool) {
	hashSize := idx.size()
	names := idx.Names[bucket]
	want := h.Bytes()

	n := len(names) / hashSize
	for i := 0; i < n; i++ {
		cur := names[i*hashSize : (i+1)*hashSize]
		cmp := compareBytes(cur, want)
		if cmp == 0 {
			return i, true
		}
		if cmp > 0 {
			break
		}
	}

	return 0, false
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}

	return len(a) - len(b)
}

// Contains implements the Index interface.
func (idx *MemoryIndex) Contains(h plumbing.Hash) (bool, error) {
	_, err := idx.FindOffset(h)
	if err == plumbing.ErrObjectNotFound {
		return false, nil
	}

	return err == nil, err
}

// FindOffset implements the Index interface.
func (idx *MemoryIndex) FindOffset(h plumbing.Hash) (int64, error) {
	b := h.Bytes()
	if len(b) == 0 {
		return 0, plumbing.ErrObjectNotFound
	}

	bucket := idx.FanoutMapping[int(b[0])]
	if bucket == noMapping {
		return 0, plumbing.ErrObjectNotFound
	}

	pos, ok := idx.findHashInBucket(bucket, h)
	if !ok {
		return 0, plumbing.ErrObjectNotFound
	}

	off, err := idx.objectOffset(idx.globalPosition(bucket, pos))
	if err != nil {
		return 0, err
	}

	return int64(off), nil
}

// FindCRC32 implements the Index interface.
func (idx *MemoryIndex) FindCRC32(h plumbing.Hash) (uint32, error) {
	b := h.Bytes()
	if len(b) == 0 {
		return 0, plumbing.ErrObjectNotFound
	}

	bucket := idx.FanoutMapping[int(b[0])]
	if bucket == noMapping {
		return 0, plumbing.ErrObjectNotFound
	}

	pos, ok := idx.findHashInBucket(bucket, h)
	if !ok {
		return 0, plumbing.ErrObjectNotFound
	}

	if len(idx.CRC32[bucket]) < (pos+1)*4 {
		return 0, ErrMalformedIdxFile
	}

	return be32(idx.CRC32[bucket][pos*4:]), nil
}

// FindHash implements the Index interface.
func (idx *MemoryIndex) FindHash(o int64) (plumbing.Hash, error) {
	if idx.offsetHash == nil {
		idx.buildOffsetHash()
	}

	h, ok := idx.offsetHash[o]
	if !ok {
		return plumbing.ZeroHash, plumbing.ErrObjectNotFound
	}

	return h, nil
}

func (idx *MemoryIndex) buildOffsetHash() {
	idx.offsetHash = make(map[int64]plumbing.Hash)

	hashSize := idx.size()
	for bucket, names := range idx.Names {
		n := len(names) / hashSize
		for i := 0; i < n; i++ {
			pos := idx.globalPosition(bucket, i)
			off, err := idx.objectOffset(pos)
			if err != nil {
				continue
			}

			var h plumbing.Hash
			h.ResetBySize(hashSize)
			_, _ = h.Write(names[i*hashSize : (i+1)*hashSize])
			idx.offsetHash[int64(off)] = h
		}
	}
}

// Count implements the Index interface.
func (idx *MemoryIndex) Count() (int64, error) {
	return int64(idx.Fanout[fanout-1]), nil
}

// Entries implements the Index interface.
func (idx *MemoryIndex) Entries() (EntryIter, error) {
	count, err := idx.Count()
	if err != nil {
		return nil, err
	}

	hashSize := idx.size()
	entries := make([]*Entry, 0, count)
	for bucket, names := range idx.Names {
		n := len(names) / hashSize
		for i := 0; i < n; i++ {
			pos := idx.globalPosition(bucket, i)
			off, err := idx.objectOffset(pos)
			if err != nil {
				return nil, err
			}

			var crc uint32
			if len(idx.CRC32[bucket]) >= (i+1)*4 {
				crc = be32(idx.CRC32[bucket][i*4:])
			}

			var h plumbing.Hash
			h.ResetBySize(hashSize)
			_, _ = h.Write(names[i*hashSize : (i+1)*hashSize])

			entries = append(entries, &Entry{Hash: h, Offset: off, CRC32: crc})
		}
	}

	return &sliceEntryIter{entries: entries}, nil
}

// EntriesByOffset implements the Index interface.
func (idx *MemoryIndex) EntriesByOffset() (EntryIter, error) {
	iter, err := idx.Entries()
	if err != nil {
		return nil, err
	}

	all := iter.(*sliceEntryIter).entries
	sorted := entriesByOffset(all)
	sort.Sort(sorted)

	return &sliceEntryIter{entries: sorted}, nil
}

// sliceEntryIter iterates over a fixed, precomputed slice of entries.
// idxfileEntryOffsetIter is an alias used by the on-demand ReaderAtIndex.
type sliceEntryIter struct {
	entries []*Entry
	pos     int
}

type idxfileEntryOffsetIter = sliceEntryIter

func (i *sliceEntryIter) Next() (*Entry, error) {
	if i.pos >= len(i.entries) {
		return nil, io.EOF
	}

	e := i.entries[i.pos]
	i.pos++
	return e, nil
}

func (i *sliceEntryIter) Close() error {
	i.pos = len(i.entries)
	return nil
}

// entriesByOffset sorts entries by their packfile offset.
type entriesByOffset []*Entry

func (e entriesByOffset) Len() int           { return len(e) }
func (e entriesByOffset) Less(i, j int) bool { return e[i].Offset < e[j].Offset }
func (e entriesByOffset) Swap(i, j int)      { e[i], e[j] = e[j], e[i] }
