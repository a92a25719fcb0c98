package object

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/filemode"
	"github.com/gitforge/forge/plumbing/storer"
)

const (
	maxTreeDepth      = 1024
	startingStackSize = 8
)

// ErrMaxTreeDepth is returned when the maximum tree depth is exceeded while
// walking a tree recursively.
var ErrMaxTreeDepth = errors.New("maximum tree depth exceeded")

// ErrFileNotFound is returned by Tree.File when the path cannot be found.
var ErrFileNotFound = errors.New("file not found")

// ErrDirectoryNotFound is returned by Tree.Tree when the path cannot be
// found or is not a directory.
var ErrDirectoryNotFound = errors.New("directory not found")

// ErrEntryNotFound is returned by Tree.FindEntry when an entry cannot be
// found.
var ErrEntryNotFound = errors.New("entry not found")

// TreeEntry represents a file or directory inside a Tree.
type TreeEntry struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash
}

// Tree is basically like a directory, it references a bunch of other
// trees and/or blobs.
type Tree struct {
	Entries []TreeEntry
	Hash    plumbing.Hash

	s storer.EncodedObjectStorer
	m map[string]*TreeEntry
}

// ID returns the object ID of the tree, the hash of its content.
func (t *Tree) ID() plumbing.Hash {
	return t.Hash
}

// Type returns the type of the object, always plumbing.TreeObject.
func (t *Tree) Type() plumbing.ObjectType {
	return plumbing.TreeObject
}

// Decode transforms a plumbing.EncodedObject into a Tree struct.
func (t *Tree) Decode(o plumbing.EncodedObject) (err error) {
	if err := checkObjectType(o, plumbing.TreeObject); err != nil {
		return err
	}

	t.Hash = o.Hash()
	if o.Size() == 0 {
		t.Entries = nil
		return nil
	}

	reader, err := o.Reader()
	if err != nil {
		return err
	}
	defer ioutilCheckClose(reader, &err)

	hashSize := o.Hash().Size()
	r := bufio.NewReader(reader)
	t.Entries = nil

	for {
		str, err := r.ReadString(' ')
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		str = strings.TrimSuffix(str, " ")

		mode, err := filemode.New(str)
		if err != nil {
			return err
		}

		name, err := r.ReadString(0)
		if err != nil && err != io.EOF {
			return err
		}
		name = strings.TrimSuffix(name, "\x00")

		var hashBytes [32]byte
		if _, err := io.ReadFull(r, hashBytes[:hashSize]); err != nil {
			return err
		}

		var h plumbing.Hash
		if _, err := h.Write(hashBytes[:hashSize]); err != nil {
			return err
		}

		t.Entries = append(t.Entries, TreeEntry{
			Name: name,
			Mode: mode,
			Hash: h,
		})
	}

	return nil
}

// Encode transforms a Tree into a plumbing.EncodedObject.
func (t *Tree) Encode(o plumbing.EncodedObject) error {
	o.SetType(plumbing.TreeObject)
	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, entry := range t.Entries {
		if _, err := fmt.Fprintf(w, "%o %s", uint32(entry.Mode), entry.Name); err != nil {
			return err
		}
		if _, err := w.Write([]byte{0x00}); err != nil {
			return err
		}
		if _, err := w.Write(entry.Hash.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

// File returns the hash of the file identified by the `path` argument.
// The path is interpreted as relative to the tree receiver.
func (t *Tree) File(path string) (*File, error) {
	e, err := t.FindEntry(path)
	if err != nil {
		return nil, ErrFileNotFound
	}

	blob, err := GetBlob(t.s, e.Hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}

	return NewFile(path, e.Mode, blob), nil
}

// Size returns the plaintext size of an object, without reading it into
// memory.
func (t *Tree) Size(path string) (int64, error) {
	e, err := t.FindEntry(path)
	if err != nil {
		return 0, err
	}

	return t.s.EncodedObjectSize(e.Hash)
}

// Tree navigates the tree to find the tree pointed at by path, which must
// be a relative path of a sub-directory.
func (t *Tree) Tree(path string) (*Tree, error) {
	entry, err := t.FindEntry(path)
	if err != nil {
		return nil, ErrDirectoryNotFound
	}

	if !entry.Mode.IsFile() {
		tree, err := GetTree(t.s, entry.Hash)
		if err != nil {
			if errors.Is(err, plumbing.ErrObjectNotFound) {
				return nil, ErrDirectoryNotFound
			}
			return nil, err
		}

		return tree, nil
	}

	return nil, ErrDirectoryNotFound
}

// TreeEntryFile returns the *File for a given *TreeEntry.
func (t *Tree) TreeEntryFile(entry *TreeEntry) (*File, error) {
	blob, err := GetBlob(t.s, entry.Hash)
	if err != nil {
		return nil, err
	}

	return NewFile(entry.Name, entry.Mode, blob), nil
}

// FindEntry searches a TreeEntry in this tree or any subtree, given a
// relative path.
func (t *Tree) FindEntry(path string) (*TreeEntry, error) {
	pathParts := strings.Split(path, "/")

	var tree *Tree
	var err error

	tree = t
	for i, part := range pathParts {
		if i == len(pathParts)-1 {
			e, ok := tree.entry(part)
			if !ok {
				return nil, ErrEntryNotFound
			}

			return e, nil
		}

		tree, err = tree.Tree(part)
		if err != nil {
			return nil, err
		}
	}

	return nil, ErrEntryNotFound
}

func (t *Tree) entry(name string) (*TreeEntry, bool) {
	t.buildMap()
	entry, ok := t.m[name]
	return entry, ok
}

func (t *Tree) buildMap() {
	if t.m != nil {
		return
	}

	t.m = make(map[string]*TreeEntry, len(t.Entries))
	for i := range t.Entries {
		t.m[t.Entries[i].Name] = &t.Entries[i]
	}
}

// Files returns a FileIter allowing to iterate over the Tree, recursively,
// including files from all the subtrees.
func (t *Tree) Files() *FileIter {
	return NewFileIter(t.s, t)
}

// treeEntryIter faciliates depth-first post-order traversal of Nodes.
type treeEntryIter struct {
	t   *Tree
	pos int
}

// TreeWalker provides a way to iterate over the entries of a tree.
type TreeWalker struct {
	stack     []treeEntryIter
	base      string
	recursive bool
	seen      map[plumbing.Hash]bool

	s   storer.EncodedObjectStorer
	t   *Tree
}

// NewTreeWalker returns a new TreeWalker for the given tree. It is the
// caller's responsibility to call Close once finished with the tree walker.
func NewTreeWalker(t *Tree, recursive bool, seen map[plumbing.Hash]bool) *TreeWalker {
	stack := make([]treeEntryIter, 0, startingStackSize)
	stack = append(stack, treeEntryIter{t, 0})

	return &TreeWalker{
		stack:     stack,
		recursive: recursive,
		seen:      seen,
		s:         t.s,
		t:         t,
	}
}

// Next returns the next object from the tree. Files are read in the order
// they appear in the tree. Directories are included in the iteration when
// recursive is false, or descended into and their own entries returned
// when recursive is true.
func (w *TreeWalker) Next() (name string, entry TreeEntry, err error) {
	for {
		current := len(w.stack) - 1
		if current < 0 {
			return "", TreeEntry{}, io.EOF
		}

		if current > maxTreeDepth {
			return "", TreeEntry{}, ErrMaxTreeDepth
		}

		ctei := &w.stack[current]
		if ctei.pos >= len(ctei.t.Entries) {
			w.stack = w.stack[:current]
			if len(w.base) != 0 {
				w.base = path.Dir(w.base)
				if w.base == "." {
					w.base = ""
				}
			}
			continue
		}

		entry = ctei.t.Entries[ctei.pos]
		ctei.pos++

		name = path.Join(w.base, entry.Name)
		if !entry.Mode.IsFile() {
			if w.seen[entry.Hash] {
				continue
			}

			if w.recursive {
				tree, err := GetTree(w.s, entry.Hash)
				if err != nil {
					return "", TreeEntry{}, err
				}

				w.seen[entry.Hash] = true
				w.stack = append(w.stack, treeEntryIter{tree, 0})
				w.base = name
				continue
			}
		}

		return name, entry, nil
	}
}

// Tree returns the tree that the tree walker is currently in.
func (w *TreeWalker) Tree() *Tree {
	current := len(w.stack) - 1
	if current < 0 {
		return nil
	}

	return w.stack[current].t
}

// Close releases any resources used by the TreeWalker.
func (w *TreeWalker) Close() {
	w.stack = nil
}

func ioutilCheckClose(c io.Closer, err *error) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

// DecodeTree decodes an encoded object into a *Tree.
func DecodeTree(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (*Tree, error) {
	t := &Tree{s: s}
	if err := t.Decode(o); err != nil {
		return nil, err
	}

	return t, nil
}
