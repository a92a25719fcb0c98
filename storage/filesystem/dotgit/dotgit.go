// Package dotgit provides an abstraction over a git repository's on-disk
// ".git" directory: loose and packed objects, refs, config, index, shallow
// and submodule data.
//
// https://github.com/git/git/blob/master/Documentation/gitrepository-layout.txt
package dotgit

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"

	"github.com/gitforge/forge/plumbing"
	formatcfg "github.com/gitforge/forge/plumbing/format/config"
)

const (
	suffix         = ".git"
	packedRefsPath = "packed-refs"
	configPath     = "config"
	indexPath      = "index"
	shallowPath    = "shallow"
	modulePath     = "modules"

	objectsPath = "objects"
	packPath    = "pack"
	refsPath    = "refs"

	branchesPath = "branches"
	hooksPath    = "hooks"
	infoPath     = "info"
	remotesPath  = "remotes"
	logsPath     = "logs"
	worktreesPath = "worktrees"

	packExt = ".pack"
	idxExt  = ".idx"

	objectsInfoPath = "info"

	tmpObjdirPrefix = "tmp_objdir-incoming-"
	incomingPrefix  = "incoming-"
)

var (
	// ErrNotFound is returned by New when the path is not found.
	ErrNotFound = errors.New("path not found")
	// ErrIdxNotFound is returned when the idx file is not found.
	ErrIdxNotFound = errors.New("idx file not found")
	// ErrPackfileNotFound is returned by ObjectPack/ObjectPackIdx when the
	// packfile or its index is not found.
	ErrPackfileNotFound = errors.New("packfile not found")
	// ErrConfigNotFound is returned by Config when the config file is not
	// found.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrIsDir is returned by readReferenceFile when the path requested
	// turns out to be a directory, not a reference file.
	ErrIsDir = errors.New("reference path is a directory")
	// ErrEmptyRefFile is returned when a reference file is empty, either
	// because it does not exist or it has zero size.
	ErrEmptyRefFile = errors.New("ref file is empty")
	// ErrPackedRefsDuplicatedRef is returned when a duplicated reference is
	// found in the packed-refs file. This is usually the case for
	// corrupted git repositories.
	ErrPackedRefsDuplicatedRef = errors.New("duplicated ref found in packed-refs file")
	// ErrPackedRefsBadFormat is returned when the packed-refs file is
	// malformed.
	ErrPackedRefsBadFormat = errors.New("malformed packed-refs file")
)

var incomingDirRegExp = regexp.MustCompile(`^(?:` + tmpObjdirPrefix + `|` + incomingPrefix + `)`)

// Options holds configuration for a DotGit value.
type Options struct {
	// ExclusiveAccess means that the filesystem is not modified externally
	// while the repo is open, allowing some performance optimizations
	// (such as caching packfile lists indefinitely).
	ExclusiveAccess bool

	// KeepDescriptors makes the file descriptors of opened packfiles
	// kept open between calls, instead of being opened and closed on
	// every access. Close must be called to release them.
	KeepDescriptors bool

	// MaxOpenDescriptors limits the number of file descriptors kept open
	// when KeepDescriptors is set. A value <= 0 means unbounded.
	MaxOpenDescriptors int

	// AlternatesFS is the filesystem alternates paths are resolved
	// against, instead of the repository's own filesystem. Used when the
	// repository's fs.Root() is not a real OS path.
	AlternatesFS billy.Filesystem

	// ObjectFormat selects the hash algorithm used for new objects.
	ObjectFormat formatcfg.ObjectFormat
}

// The DotGit type represents a local git repository on disk. This type is
// not zero-value-safe, use the New or NewWithOptions functions to
// initialize it.
type DotGit struct {
	options Options
	fs      billy.Filesystem

	cachedPackList   []plumbing.Hash
	cachedPackListMu sync.Mutex

	packList []plumbing.Hash

	packfilesMu sync.Mutex
	packfiles   map[plumbing.Hash]billy.File

	objectFormat formatcfg.ObjectFormat
}

// New returns a DotGit value ready to be used. The fs argument must point
// at the repository's ".git" directory.
func New(fs billy.Filesystem) *DotGit {
	return NewWithOptions(fs, Options{})
}

// NewWithOptions is like New but allows configuration via Options.
func NewWithOptions(fs billy.Filesystem, o Options) *DotGit {
	of := o.ObjectFormat
	if of == formatcfg.UnsetObjectFormat {
		of = formatcfg.DefaultObjectFormat
	}

	return &DotGit{
		options:      o,
		fs:           fs,
		objectFormat: of,
	}
}

// Close releases any file descriptors kept open by KeepDescriptors.
func (d *DotGit) Close() error {
	d.packfilesMu.Lock()
	defer d.packfilesMu.Unlock()

	var firstErr error
	for hash, f := range d.packfiles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.packfiles, hash)
	}

	return firstErr
}

// SetObjectFormat changes the hash algorithm used for new objects written
// through this DotGit value.
func (d *DotGit) SetObjectFormat(of formatcfg.ObjectFormat) error {
	d.objectFormat = of
	return nil
}

// Initialize creates the directory layout of an empty repository.
func (d *DotGit) Initialize() error {
	mustExist := []string{
		d.fs.Join(objectsPath, objectsInfoPath),
		d.fs.Join(objectsPath, packPath),
		d.fs.Join(refsPath, "heads"),
		d.fs.Join(refsPath, "tags"),
	}

	for _, path := range mustExist {
		if _, err := d.fs.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return err
		}

		if err := d.fs.MkdirAll(path, 0o755); err != nil {
			return err
		}
	}

	return nil
}

// ConfigWriter returns a writer for the repository's config file.
func (d *DotGit) ConfigWriter() (billy.File, error) {
	return d.fs.Create(configPath)
}

// Config returns a reader for the repository's config file.
func (d *DotGit) Config() (billy.File, error) {
	f, err := d.fs.Open(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	return f, nil
}

// IndexWriter returns a writer for the repository's index file.
func (d *DotGit) IndexWriter() (billy.File, error) {
	return d.fs.Create(indexPath)
}

// Index returns a reader for the repository's index file.
func (d *DotGit) Index() (billy.File, error) {
	return d.fs.Open(indexPath)
}

// Shallow returns a reader for the repository's shallow file, or nil if
// the repository is not a shallow clone.
func (d *DotGit) Shallow() (billy.File, error) {
	_, err := d.fs.Stat(shallowPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	return d.fs.Open(shallowPath)
}

// ShallowWriter returns a writer for the repository's shallow file.
func (d *DotGit) ShallowWriter() (billy.File, error) {
	return d.fs.Create(shallowPath)
}

// Module returns the filesystem rooted at the given submodule's git
// directory, under this repository's "modules" directory.
func (d *DotGit) Module(name string) (billy.Filesystem, error) {
	return d.fs.Chroot(d.fs.Join(modulePath, name))
}

// NewObject returns a writer for a new loose object.
func (d *DotGit) NewObject() (*ObjectWriter, error) {
	return newObjectWriter(d.fs)
}

// NewObjectPack returns a writer for a new packfile; closing it also
// builds and writes out the corresponding index and reverse-index files.
func (d *DotGit) NewObjectPack() (*PackWriter, error) {
	return newPackWrite(d.fs)
}

// ObjectPacks returns the hashes of the packfiles present in this
// repository.
func (d *DotGit) ObjectPacks() ([]plumbing.Hash, error) {
	if d.options.ExclusiveAccess {
		d.cachedPackListMu.Lock()
		defer d.cachedPackListMu.Unlock()

		if d.cachedPackList != nil {
			return d.cachedPackList, nil
		}
	}

	packs, err := d.objectPacks()
	if err != nil {
		return nil, err
	}

	if d.options.ExclusiveAccess {
		d.cachedPackList = packs
	}

	return packs, nil
}

func (d *DotGit) objectPacks() ([]plumbing.Hash, error) {
	packDir := d.fs.Join(objectsPath, packPath)
	files, err := d.fs.ReadDir(packDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var packs []plumbing.Hash
	for _, f := range files {
		n := f.Name()
		if f.IsDir() || !strings.HasSuffix(n, packExt) || !strings.HasPrefix(n, "pack-") {
			continue
		}

		h := plumbing.NewHash(n[5 : len(n)-len(packExt)])
		if h.IsZero() {
			continue
		}

		packs = append(packs, h)
	}

	sort.Sort(plumbing.HashSlice(packs))

	return packs, nil
}

func (d *DotGit) packFilename(hash plumbing.Hash, ext string) string {
	return d.fs.Join(objectsPath, packPath, fmt.Sprintf("pack-%s%s", hash.String(), ext))
}

// ObjectPack returns the packfile for the given hash.
func (d *DotGit) ObjectPack(hash plumbing.Hash) (billy.File, error) {
	if d.options.KeepDescriptors {
		d.packfilesMu.Lock()
		defer d.packfilesMu.Unlock()

		if d.packfiles == nil {
			d.packfiles = make(map[plumbing.Hash]billy.File)
		}

		if f, ok := d.packfiles[hash]; ok {
			return f, nil
		}
	}

	pack, err := d.fs.Open(d.packFilename(hash, packExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPackfileNotFound
		}
		return nil, err
	}

	if d.options.KeepDescriptors {
		d.packfiles[hash] = pack
	}

	return pack, nil
}

// ObjectPackIdx returns the index file for the given packfile hash.
func (d *DotGit) ObjectPackIdx(hash plumbing.Hash) (billy.File, error) {
	idx, err := d.fs.Open(d.packFilename(hash, idxExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPackfileNotFound
		}
		return nil, err
	}

	return idx, nil
}

func isHex(s string) bool {
	for _, b := range []byte(s) {
		switch {
		case b >= '0' && b <= '9':
		case b >= 'a' && b <= 'f':
		case b >= 'A' && b <= 'F':
		default:
			return false
		}
	}

	return true
}

// Objects returns the hashes of all loose objects, sorted ascending.
func (d *DotGit) Objects() ([]plumbing.Hash, error) {
	files, err := d.fs.ReadDir(objectsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var objects []plumbing.Hash
	for _, f := range files {
		if !f.IsDir() || len(f.Name()) != 2 || !isHex(f.Name()) {
			continue
		}

		base := f.Name()
		entries, err := d.fs.ReadDir(d.fs.Join(objectsPath, base))
		if err != nil {
			return nil, err
		}

		for _, o := range entries {
			if o.IsDir() {
				continue
			}
			objects = append(objects, plumbing.NewHash(base+o.Name()))
		}
	}

	sort.Sort(plumbing.HashSlice(objects))

	return objects, nil
}

// ObjectsWithPrefix returns the hashes of loose objects whose byte
// representation starts with prefix. An empty prefix returns every
// object, same as Objects.
func (d *DotGit) ObjectsWithPrefix(prefix []byte) ([]plumbing.Hash, error) {
	if len(prefix) == 0 {
		return d.Objects()
	}

	objects, err := d.Objects()
	if err != nil {
		return nil, err
	}

	upper, overflowed := incBytes(prefix)

	var out []plumbing.Hash
	for _, h := range objects {
		if h.HasPrefix(prefix) {
			out = append(out, h)
			continue
		}

		if !overflowed && h.Compare(upper) >= 0 {
			break
		}
	}

	return out, nil
}

// incBytes returns in incremented by one, treating it as a big-endian
// unsigned integer, and whether the increment overflowed.
func incBytes(in []byte) ([]byte, bool) {
	out := make([]byte, len(in))
	copy(out, in)

	for i := len(out) - 1; i >= 0; i-- {
		if out[i] == 0xff {
			out[i] = 0
			continue
		}

		out[i]++
		return out, false
	}

	return out, true
}

func (d *DotGit) objectPath(h plumbing.Hash) string {
	hex := h.String()
	return d.fs.Join(objectsPath, hex[0:2], hex[2:h.HexSize()])
}

// findIncomingObject looks for a loose object under a concurrently-running
// `git repack`/`git prune`'s staging directory: objects/tmp_objdir-incoming-*
// (git >= 2.35) or objects/incoming-* (older git).
func (d *DotGit) findIncomingObject(h plumbing.Hash) (string, error) {
	hex := h.String()

	entries, err := d.fs.ReadDir(objectsPath)
	if err != nil {
		return "", err
	}

	for _, e := range entries {
		if !e.IsDir() || !incomingDirRegExp.MatchString(e.Name()) {
			continue
		}

		path := d.fs.Join(objectsPath, e.Name(), hex[0:2], hex[2:h.HexSize()])
		if _, err := d.fs.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", os.ErrNotExist
}

// Object returns the loose object file for the given hash.
func (d *DotGit) Object(h plumbing.Hash) (billy.File, error) {
	f, err := d.fs.Open(d.objectPath(h))
	if err == nil {
		return f, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	path, ferr := d.findIncomingObject(h)
	if ferr != nil {
		return nil, err
	}

	return d.fs.Open(path)
}

// ObjectStat returns the os.FileInfo for the given loose object's file.
func (d *DotGit) ObjectStat(h plumbing.Hash) (os.FileInfo, error) {
	fi, err := d.fs.Stat(d.objectPath(h))
	if err == nil {
		return fi, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	path, ferr := d.findIncomingObject(h)
	if ferr != nil {
		return nil, err
	}

	return d.fs.Stat(path)
}

// ObjectDelete removes the given loose object's file.
func (d *DotGit) ObjectDelete(h plumbing.Hash) error {
	path := d.objectPath(h)
	err := d.fs.Remove(path)
	if err == nil || !os.IsNotExist(err) {
		return err
	}

	incoming, ferr := d.findIncomingObject(h)
	if ferr != nil {
		return err
	}

	return d.fs.Remove(incoming)
}

// Alternates returns a DotGit for every alternate object directory listed
// in objects/info/alternates.
func (d *DotGit) Alternates() ([]*DotGit, error) {
	altpath := d.fs.Join(objectsPath, objectsInfoPath, "alternates")

	f, err := d.fs.Open(altpath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	altFS := d.options.AlternatesFS
	if altFS == nil {
		altFS = d.fs
	}

	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")

	seen := make(map[string]bool)
	var alternates []*DotGit
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// An alternates entry names an "objects" directory; the
		// corresponding .git directory is its parent. Non-absolute
		// entries are relative to the directory holding the
		// alternates file itself, i.e. objects/info.
		objectsDir := line
		if !filepath.IsAbs(objectsDir) {
			objectsDir = filepath.Join(d.fs.Root(), objectsPath, objectsInfoPath, objectsDir)
		}
		objectsDir = filepath.Clean(objectsDir)
		gitDir := filepath.Dir(objectsDir)

		root := altFS.Root()
		relDir, err := filepath.Rel(root, gitDir)
		if err != nil || relDir == ".." || strings.HasPrefix(relDir, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("alternate path %q is outside of %q", gitDir, root)
		}
		relDir = filepath.Clean(relDir)

		if _, err := altFS.Stat(relDir); err != nil {
			return nil, err
		}

		if seen[relDir] {
			continue
		}
		seen[relDir] = true

		altDirFS, err := altFS.Chroot(relDir)
		if err != nil {
			return nil, err
		}

		alternates = append(alternates, NewWithOptions(altDirFS, d.options))
	}

	return alternates, nil
}
