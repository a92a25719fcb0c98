// Package diff implements rename and copy detection over tree-change
// lists, independent of any patch-rendering or merkle-tree-diff
// porcelain.
package diff

import (
	"hash/adler32"
	"io"
	"sort"

	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/object"
	"github.com/gitforge/forge/plumbing/storer"
)

// ChangeKind classifies a single tree-change record.
type ChangeKind int

const (
	Insert ChangeKind = iota
	Delete
	Modify
	Rename
	Copy
)

func (k ChangeKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case Modify:
		return "modify"
	case Rename:
		return "rename"
	case Copy:
		return "copy"
	default:
		return "unknown"
	}
}

// Change is a single add, delete, modify, rename or copy between two
// trees. FromPath/FromHash are zero for an Insert; ToPath/ToHash are
// zero for a Delete.
type Change struct {
	Kind     ChangeKind
	FromPath string
	FromHash plumbing.Hash
	ToPath   string
	ToHash   plumbing.Hash
	// Score is the content-similarity percentage (0-100) that produced
	// a Rename or Copy. Zero for Insert/Delete/Modify.
	Score int
}

const blockSize = 64

// Options configures DetectRenames. Zero value is the git default:
// RenameThreshold 60, MaxFiles 200, everything else off.
type Options struct {
	// RenameThreshold is the minimum similarity score (0-100) for a
	// delete/add pair to be promoted to a rename.
	RenameThreshold int
	// FindCopiesHarder also considers Unchanged entries as copy
	// sources, at additional cost.
	FindCopiesHarder bool
	// Unchanged entries are only consulted when FindCopiesHarder is
	// set.
	Unchanged []Change
	// MaxFiles bounds the cost of content-similarity detection: if
	// either the add or delete set exceeds it, only exact-SHA renames
	// are emitted.
	MaxFiles int
	// RewriteThreshold, if non-zero, splits a Modify whose similarity
	// falls below it into a Delete+Insert pair before rename detection
	// runs.
	RewriteThreshold int
}

func (o Options) renameThreshold() int {
	if o.RenameThreshold == 0 {
		return 60
	}
	return o.RenameThreshold
}

func (o Options) maxFiles() int {
	if o.MaxFiles == 0 {
		return 200
	}
	return o.MaxFiles
}

// DetectRenames takes a list of Insert/Delete/Modify changes and
// returns a list with delete+add pairs promoted to Rename (or Copy,
// when find_copies_harder sources from an unchanged entry) wherever
// their similarity score meets the configured threshold. Changes that
// are not part of a promoted pair are passed through unchanged.
func DetectRenames(s storer.EncodedObjectStorer, changes []Change, opts Options) ([]Change, error) {
	var (
		dels    []Change
		adds    []Change
		rest    []Change
	)

	for _, c := range changes {
		switch c.Kind {
		case Delete:
			dels = append(dels, c)
		case Insert:
			adds = append(adds, c)
		case Modify:
			if opts.RewriteThreshold > 0 {
				score, err := similarityOf(s, c.FromHash, c.ToHash)
				if err != nil {
					return nil, err
				}
				if score < opts.RewriteThreshold {
					dels = append(dels, Change{Kind: Delete, FromPath: c.FromPath, FromHash: c.FromHash})
					adds = append(adds, Change{Kind: Insert, ToPath: c.ToPath, ToHash: c.ToHash})
					continue
				}
			}
			rest = append(rest, c)
		default:
			rest = append(rest, c)
		}
	}

	out := append([]Change(nil), rest...)

	// Exact-hash pass always runs, regardless of MaxFiles: it is O(n)
	// with a hash map and needs no content comparison.
	byHash := make(map[plumbing.Hash][]int, len(dels))
	for i, d := range dels {
		byHash[d.FromHash] = append(byHash[d.FromHash], i)
	}

	usedDel := make([]bool, len(dels))
	usedAdd := make([]bool, len(adds))

	for ai, a := range adds {
		cands := byHash[a.ToHash]
		for _, di := range cands {
			if usedDel[di] {
				continue
			}
			usedDel[di] = true
			usedAdd[ai] = true
			out = append(out, Change{
				Kind:     Rename,
				FromPath: dels[di].FromPath,
				FromHash: dels[di].FromHash,
				ToPath:   a.ToPath,
				ToHash:   a.ToHash,
				Score:    100,
			})
			break
		}
	}

	skipContent := len(dels) > opts.maxFiles() || len(adds) > opts.maxFiles()

	if !skipContent {
		type pair struct {
			di, ai int
			score  int
			source Change
			kind   ChangeKind
		}

		var pairs []pair

		sources := make([]Change, len(dels))
		copy(sources, dels)
		sourceIsDelete := make([]bool, len(dels))
		for i := range sourceIsDelete {
			sourceIsDelete[i] = true
		}

		if opts.FindCopiesHarder {
			for _, u := range opts.Unchanged {
				sources = append(sources, u)
				sourceIsDelete = append(sourceIsDelete, false)
			}
		}

		for ai, a := range adds {
			if usedAdd[ai] {
				continue
			}
			for si, src := range sources {
				if sourceIsDelete[si] && usedDel[si] {
					continue
				}
				score, err := similarityOf(s, src.FromHash, a.ToHash)
				if err != nil {
					return nil, err
				}
				if score < opts.renameThreshold() {
					continue
				}
				kind := Copy
				if sourceIsDelete[si] {
					kind = Rename
				}
				pairs = append(pairs, pair{di: si, ai: ai, score: score, source: src, kind: kind})
			}
		}

		sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

		usedSource := make([]bool, len(sources))
		for _, p := range pairs {
			if usedAdd[p.ai] || usedSource[p.di] {
				continue
			}
			if p.kind == Rename && usedDel[p.di] {
				continue
			}
			usedAdd[p.ai] = true
			usedSource[p.di] = true
			if p.kind == Rename {
				usedDel[p.di] = true
			}

			out = append(out, Change{
				Kind:     p.kind,
				FromPath: p.source.FromPath,
				FromHash: p.source.FromHash,
				ToPath:   adds[p.ai].ToPath,
				ToHash:   adds[p.ai].ToHash,
				Score:    p.score,
			})
		}
	}

	for i, d := range dels {
		if !usedDel[i] {
			out = append(out, d)
		}
	}
	for i, a := range adds {
		if !usedAdd[i] {
			out = append(out, a)
		}
	}

	return out, nil
}

func similarityOf(s storer.EncodedObjectStorer, from, to plumbing.Hash) (int, error) {
	if from == to {
		return 100, nil
	}

	oldContent, err := blobContent(s, from)
	if err != nil {
		return 0, err
	}
	newContent, err := blobContent(s, to)
	if err != nil {
		return 0, err
	}

	return similarity(oldContent, newContent), nil
}

func blobContent(s storer.EncodedObjectStorer, h plumbing.Hash) ([]byte, error) {
	if h.IsZero() {
		return nil, nil
	}

	blob, err := object.GetBlob(s, h)
	if err != nil {
		return nil, err
	}

	r, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// similarity scores two byte slices as the percentage of 64-byte
// line-block hashes they share, 0-100.
func similarity(oldContent, newContent []byte) int {
	if len(oldContent) == 0 && len(newContent) == 0 {
		return 100
	}

	oldBlocks := blockHashes(oldContent)
	newBlocks := blockHashes(newContent)

	freq := make(map[uint32]int, len(oldBlocks))
	for _, h := range oldBlocks {
		freq[h]++
	}

	shared := 0
	for _, h := range newBlocks {
		if freq[h] > 0 {
			freq[h]--
			shared++
		}
	}

	total := len(oldBlocks)
	if len(newBlocks) > total {
		total = len(newBlocks)
	}
	if total == 0 {
		return 100
	}

	return shared * 100 / total
}

func blockHashes(content []byte) []uint32 {
	if len(content) == 0 {
		return nil
	}

	blocks := make([]uint32, 0, (len(content)+blockSize-1)/blockSize)
	for off := 0; off < len(content); off += blockSize {
		end := off + blockSize
		if end > len(content) {
			end = len(content)
		}
		blocks = append(blocks, adler32.Checksum(content[off:end]))
	}

	return blocks
}
