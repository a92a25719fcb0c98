// Package filemode implements the git file modes, as used in git trees and
// the index.
package filemode

import (
	"fmt"
	"os"
	"strconv"
)

// A FileMode represents the unix mode of a git tree or index entry.
type FileMode uint32

const (
	Empty      FileMode = 0
	Dir        FileMode = 0o40000
	Regular    FileMode = 0o100644
	Deprecated FileMode = 0o100664
	Executable FileMode = 0o100755
	Symlink    FileMode = 0o120000
	Submodule  FileMode = 0o160000
)

// New takes the octal string representation of a FileMode and returns
// the FileMode and a nil error, otherwise, if it cannot be parsed
// an error is returned and Empty.
func New(s string) (FileMode, error) {
	m := FileMode(0)
	err := m.UnmarshalText([]byte(s))
	return m, err
}

// NewFromOSFileMode returns the FileMode used by git to represent the given
// os.FileMode, as it would be stored in the index.
func NewFromOSFileMode(m os.FileMode) (FileMode, error) {
	if m.IsRegular() {
		if isSetTemporary(m) {
			return Empty, fmt.Errorf("no equivalent file mode: %s", m)
		}

		if isExecutable(m) {
			return Executable, nil
		}
		return Regular, nil
	}

	if m.IsDir() {
		return Dir, nil
	}

	if isSymlink(m) {
		return Symlink, nil
	}

	return Empty, fmt.Errorf("no equivalent file mode: %s", m)
}

func isExecutable(m os.FileMode) bool {
	return m&0o111 != 0
}

func isSymlink(m os.FileMode) bool {
	return m&os.ModeSymlink != 0
}

func isSetTemporary(m os.FileMode) bool {
	return m&(os.ModeTemporary|os.ModeDevice|os.ModeNamedPipe|os.ModeSocket|os.ModeCharDevice) != 0
}

// Bytes return a slice of 4 bytes with the mode in little endian encoding,
// as stored in a commitgraph/tree-delta style encoding.
func (m FileMode) Bytes() []byte {
	return []byte{
		byte(m & 0xff),
		byte((m >> 8) & 0xff),
		byte((m >> 16) & 0xff),
		byte((m >> 24) & 0xff),
	}
}

// IsMalformed returns if the FileMode should not appear in a git tree
// object. Only Empty, Dir, Regular, Deprecated, Executable, Symlink and
// Submodule are well formed.
func (m FileMode) IsMalformed() bool {
	switch m {
	case Dir, Regular, Deprecated, Executable, Symlink, Submodule:
		return false
	default:
		return true
	}
}

// String returns the octal representation, as used by git, i.e. always with
// a leading 0, and exactly 7 digits.
func (m FileMode) String() string {
	return fmt.Sprintf("%07o", uint32(m))
}

// IsRegular return if the FileMode represents that a TreeEntry is a regular
// file, either executable or not.
func (m FileMode) IsRegular() bool {
	return m == Regular || m == Deprecated
}

// IsFile returns if the FileMode represents that a TreeEntry is a file, this
// is, a regular file, an executable or a symlink.
func (m FileMode) IsFile() bool {
	return m == Regular || m == Deprecated || m == Executable || m == Symlink
}

// ToOSFileMode returns the os.FileMode that this FileMode should be mapped
// to, when checking out a repository on disk.
func (m FileMode) ToOSFileMode() (os.FileMode, error) {
	switch m {
	case Dir, Submodule:
		return os.ModePerm | os.ModeDir, nil
	case Regular, Deprecated:
		return os.FileMode(0o644), nil
	case Executable:
		return os.FileMode(0o755), nil
	case Symlink:
		return os.ModePerm | os.ModeSymlink, nil
	default:
		return os.FileMode(0), fmt.Errorf("malformed file mode: %s", m)
	}
}

// UnmarshalText parses an octal string representation of a FileMode.
func (m *FileMode) UnmarshalText(text []byte) error {
	n, err := strconv.ParseUint(string(text), 8, 32)
	if err != nil {
		return err
	}

	*m = FileMode(n)
	return nil
}

// MarshalText returns the octal string representation of the FileMode.
func (m FileMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
