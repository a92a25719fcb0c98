package object

import (
	"bufio"
	"io"

	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/filemode"
	"github.com/gitforge/forge/plumbing/storer"
)

// File represents a file (blob) in a tree, at a given path, with a mode.
type File struct {
	// Name is the path of the file, relative to the root of the tree it
	// was obtained from.
	Name string
	// Mode is the file mode.
	Mode filemode.FileMode
	// Hash is the hash of the blob this file points to.
	Hash plumbing.Hash

	blob *Blob
}

// NewFile returns a File for the given blob, at the given path and mode.
func NewFile(name string, m filemode.FileMode, b *Blob) *File {
	return &File{Name: name, Mode: m, Hash: b.Hash, blob: b}
}

// ID returns the hash of the blob this file points to, same as Hash.
func (f *File) ID() plumbing.Hash {
	return f.Hash
}

// Reader returns a reader for reading the content of the file.
func (f *File) Reader() (io.ReadCloser, error) {
	return f.blob.Reader()
}

// Contents reads and returns the content of the file as a string.
func (f *File) Contents() (content string, err error) {
	reader, err := f.Reader()
	if err != nil {
		return "", err
	}
	defer ioutilCheckClose(reader, &err)

	content, err = readAll(reader)
	return
}

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// IsBinary returns whether the file is binary or not.
func (f *File) IsBinary() (bin bool, err error) {
	reader, err := f.Reader()
	if err != nil {
		return false, err
	}
	defer ioutilCheckClose(reader, &err)

	return isBinary(reader)
}

// Lines returns a slice of lines from the contents of a file, stripping
// out the last empty line if present.
func (f *File) Lines() ([]string, error) {
	content, err := f.Contents()
	if err != nil {
		return nil, err
	}

	splits := splitLines(content)
	if len(splits) > 0 && splits[len(splits)-1] == "" {
		return splits[:len(splits)-1], nil
	}

	return splits, nil
}

func splitLines(content string) []string {
	var lines []string
	start := 0
	for i, r := range content {
		if r == '\n' {
			lines = append(lines, content[start:i])
			start = i + 1
		}
	}
	lines = append(lines, content[start:])
	return lines
}

// FileIter provides an iterator for the files in a tree, recursively
// descending into subtrees, skipping empty directories and submodules.
type FileIter struct {
	s       storer.EncodedObjectStorer
	stack   []*treeEntryIter
	base    string
	seen    map[plumbing.Hash]bool
}

// NewFileIter takes a storer.EncodedObjectStorer and a Tree and returns a
// FileIter that iterates over all files contained in the tree, recursively.
func NewFileIter(s storer.EncodedObjectStorer, t *Tree) *FileIter {
	return &FileIter{s: s, stack: []*treeEntryIter{{t, 0}}, seen: make(map[plumbing.Hash]bool)}
}

// Next moves the iterator to the next file and returns it. If there are no
// more files, it returns io.EOF.
func (iter *FileIter) Next() (*File, error) {
	for {
		current := len(iter.stack) - 1
		if current < 0 {
			return nil, io.EOF
		}

		top := iter.stack[current]
		if top.pos >= len(top.t.Entries) {
			iter.stack = iter.stack[:current]
			continue
		}

		entry := top.t.Entries[top.pos]
		top.pos++

		if entry.Mode == filemode.Submodule {
			continue
		}

		if entry.Mode.IsFile() {
			blob, err := GetBlob(iter.s, entry.Hash)
			if err != nil {
				return nil, err
			}

			return NewFile(entry.Name, entry.Mode, blob), nil
		}

		if iter.seen[entry.Hash] {
			continue
		}

		subtree, err := GetTree(iter.s, entry.Hash)
		if err != nil {
			return nil, err
		}

		iter.seen[entry.Hash] = true
		iter.stack = append(iter.stack, &treeEntryIter{subtree, 0})
	}
}

// ForEach calls cb for each file contained in this iter until an error
// happens or the end of the iter is reached. If ErrStop is sent the
// iteration is stopped but no error is returned.
func (iter *FileIter) ForEach(cb func(*File) error) error {
	for {
		f, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(f); err != nil {
			if err == storer.ErrStop {
				return nil
			}
			return err
		}
	}
}

// Close releases any resources used by the iterator.
func (iter *FileIter) Close() {
	iter.stack = nil
}

func isBinary(r io.Reader) (bin bool, err error) {
	reader := bufio.NewReader(r)
	for {
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
