package dotgit

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/storage"
	"github.com/gitforge/forge/utils/ioutil"
)

// SetRef writes a reference to its loose file, creating or truncating it
// as needed. When old is non-nil, the write only proceeds if the
// reference currently on disk (or in packed-refs) matches old; otherwise
// storage.ErrReferenceHasChanged is returned.
func (d *DotGit) SetRef(r, old *plumbing.Reference) error {
	return d.setRef(r.Name().String(), refFileContent(r), old)
}

func refFileContent(r *plumbing.Reference) string {
	switch r.Type() {
	case plumbing.SymbolicReference:
		return "ref: " + r.Target().String() + "\n"
	default:
		return r.Hash().String() + "\n"
	}
}

// Ref returns the reference with the given name, looking first at loose
// ref files and falling back to packed-refs.
func (d *DotGit) Ref(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	return d.ref(name)
}

func (d *DotGit) ref(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	ref, err := d.readReferenceFile(".", name.String())
	if err == nil {
		return ref, nil
	}

	refs, err := d.findPackedRefs()
	if err != nil {
		return nil, err
	}

	for _, ref := range refs {
		if ref.Name() == name {
			return ref, nil
		}
	}

	return nil, plumbing.ErrReferenceNotFound
}

// RemoveRef deletes the named reference, from its loose file and/or from
// packed-refs, whichever it is found in.
func (d *DotGit) RemoveRef(name plumbing.ReferenceName) error {
	path := d.fs.Join(".", name.String())

	err := d.fs.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return d.rewritePackedRefsWithoutRef(name)
}

// Refs scans the git directory collecting every reference: packed refs,
// loose refs, and symbolic refs found as plain files (HEAD, remote HEADs).
// HEAD, when present, is always returned first.
func (d *DotGit) Refs() ([]*plumbing.Reference, error) {
	var refs []*plumbing.Reference
	seen := make(map[plumbing.ReferenceName]bool)

	if err := d.addRefFromHEAD(&refs, seen); err != nil {
		return nil, err
	}

	if err := d.addRefsFromRefDir(&refs, seen); err != nil {
		return nil, err
	}

	if err := d.addRefsFromPackedRefs(&refs, seen); err != nil {
		return nil, err
	}

	return refs, nil
}

func (d *DotGit) addRefFromHEAD(refs *[]*plumbing.Reference, seen map[plumbing.ReferenceName]bool) error {
	ref, err := d.readReferenceFile(".", "HEAD")
	if err != nil {
		if os.IsNotExist(err) || err == ErrIsDir {
			return nil
		}
		return err
	}

	*refs = append(*refs, ref)
	seen[ref.Name()] = true
	return nil
}

func (d *DotGit) addRefsFromRefDir(refs *[]*plumbing.Reference, seen map[plumbing.ReferenceName]bool) error {
	return d.walkLooseRefs(refsPath, func(name string) error {
		rn := plumbing.ReferenceName(name)
		if seen[rn] {
			return nil
		}

		ref, err := d.readReferenceFile(".", name)
		if err != nil {
			if os.IsNotExist(err) || err == ErrIsDir {
				return nil
			}
			return err
		}

		*refs = append(*refs, ref)
		seen[rn] = true
		return nil
	})
}

// walkLooseRefs calls cb with the slash-separated reference name of every
// regular file found recursively under root.
func (d *DotGit) walkLooseRefs(root string, cb func(name string) error) error {
	entries, err := d.fs.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		full := d.fs.Join(root, e.Name())
		if e.IsDir() {
			if err := d.walkLooseRefs(full, cb); err != nil {
				return err
			}
			continue
		}

		if err := cb(full); err != nil {
			return err
		}
	}

	return nil
}

func (d *DotGit) addRefsFromPackedRefs(refs *[]*plumbing.Reference, seen map[plumbing.ReferenceName]bool) error {
	packed, err := d.findPackedRefs()
	if err != nil {
		return err
	}

	for _, ref := range packed {
		if seen[ref.Name()] {
			continue
		}

		*refs = append(*refs, ref)
		seen[ref.Name()] = true
	}

	return nil
}

// CountLooseRefs returns the number of loose reference files under refs/.
func (d *DotGit) CountLooseRefs() (int, error) {
	count := 0
	err := d.walkLooseRefs(refsPath, func(string) error {
		count++
		return nil
	})

	return count, err
}

// PackRefs moves every loose reference into packed-refs, leaving HEAD (and
// any other top-level symbolic references) untouched.
func (d *DotGit) PackRefs() error {
	var loose []*plumbing.Reference
	if err := d.walkLooseRefs(refsPath, func(name string) error {
		ref, err := d.readReferenceFile(".", name)
		if err != nil {
			return err
		}
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		loose = append(loose, ref)
		return nil
	}); err != nil {
		return err
	}

	if len(loose) == 0 {
		return nil
	}

	packed, err := d.findPackedRefs()
	if err != nil {
		return err
	}

	merged := make(map[plumbing.ReferenceName]*plumbing.Reference, len(packed)+len(loose))
	for _, ref := range packed {
		merged[ref.Name()] = ref
	}
	for _, ref := range loose {
		merged[ref.Name()] = ref
	}

	names := make([]plumbing.ReferenceName, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}

	if err := d.writePackedRefs(names, merged); err != nil {
		return err
	}

	for _, ref := range loose {
		if err := d.fs.Remove(ref.Name().String()); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

func (d *DotGit) writePackedRefs(names []plumbing.ReferenceName, refs map[plumbing.ReferenceName]*plumbing.Reference) error {
	tmp, err := d.fs.TempFile("", "packed-refs")
	if err != nil {
		return err
	}

	if _, err := tmp.Write([]byte("# pack-refs with: peeled fully-peeled \n")); err != nil {
		return err
	}

	sortReferenceNames(names)
	for _, name := range names {
		ref := refs[name]
		if _, err := tmp.Write([]byte(ref.Hash().String() + " " + name.String() + "\n")); err != nil {
			return err
		}
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	pr, err := d.openAndLockPackedRefs(true)
	if err != nil {
		return err
	}
	defer ioutil.CheckClose(pr, &err)

	tmpForRename, err := d.fs.Open(tmp.Name())
	if err != nil {
		return err
	}
	defer tmpForRename.Close()

	return d.rewritePackedRefsWhileLocked(tmpForRename, pr)
}

func sortReferenceNames(names []plumbing.ReferenceName) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
}

// readReferenceFile reads the reference stored at path/name, relative to
// this repository's root.
func (d *DotGit) readReferenceFile(path, name string) (*plumbing.Reference, error) {
	full := d.fs.Join(path, name)

	st, err := d.fs.Stat(full)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, ErrIsDir
	}

	f, err := d.fs.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return d.readReferenceFrom(f, name)
}

func (d *DotGit) readReferenceFrom(rd io.Reader, name string) (*plumbing.Reference, error) {
	b, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	line := strings.TrimSpace(string(b))
	if line == "" {
		return nil, ErrEmptyRefFile
	}

	return plumbing.NewReferenceFromStrings(name, line), nil
}

// checkReferenceAndTruncate reads f's current content. An empty file (one
// that never held a loose reference) is reported as ErrEmptyRefFile. When
// old is non-nil, the content must also match old's value, or
// storage.ErrReferenceHasChanged is returned. Otherwise f is truncated,
// ready for the caller to write the new content.
func (d *DotGit) checkReferenceAndTruncate(f billy.File, old *plumbing.Reference) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	b, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	line := strings.TrimSpace(string(b))
	if line == "" {
		return ErrEmptyRefFile
	}

	if old != nil {
		current := plumbing.NewReferenceFromStrings(old.Name().String(), line)
		if current.Type() != old.Type() || current.Hash() != old.Hash() || current.Target() != old.Target() {
			return storage.ErrReferenceHasChanged
		}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	return f.Truncate(0)
}

// findPackedRefs returns every reference listed in the packed-refs file.
// A missing packed-refs file is not an error; it simply yields no refs.
func (d *DotGit) findPackedRefs() ([]*plumbing.Reference, error) {
	f, err := d.fs.Open(packedRefsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	return d.findPackedRefsInFile(f)
}

func (d *DotGit) findPackedRefsInFile(f billy.File) ([]*plumbing.Reference, error) {
	s := bufio.NewScanner(f)

	var refs []*plumbing.Reference
	seen := make(map[plumbing.ReferenceName]bool)

	for s.Scan() {
		line := s.Text()
		if line == "" {
			continue
		}

		if line[0] == '#' {
			continue
		}

		if line[0] == '^' {
			// Peeled tag target hash; not represented separately.
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 || !plumbing.IsHash(parts[0]) {
			return nil, ErrPackedRefsBadFormat
		}

		name := plumbing.ReferenceName(parts[1])
		if seen[name] {
			return nil, ErrPackedRefsDuplicatedRef
		}
		seen[name] = true

		refs = append(refs, plumbing.NewReferenceFromStrings(parts[1], parts[0]))
	}

	if err := s.Err(); err != nil {
		return nil, err
	}

	return refs, nil
}

// openAndLockPackedRefs opens (and, capabilities permitting, locks) the
// packed-refs file for a rewrite. If the file does not exist and doCreate
// is false, it returns (nil, nil).
func (d *DotGit) openAndLockPackedRefs(doCreate bool) (billy.File, error) {
	mode := d.openAndLockPackedRefsMode()

	if doCreate {
		mode |= os.O_CREATE
	}

	f, err := d.fs.OpenFile(packedRefsPath, mode, 0o666)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	if err := f.Lock(); err != nil {
		_ = f.Close()
		return nil, err
	}

	return f, nil
}

// rewritePackedRefsWithoutRef rewrites packed-refs omitting name, if
// packed-refs exists at all.
func (d *DotGit) rewritePackedRefsWithoutRef(name plumbing.ReferenceName) (err error) {
	pr, err := d.openAndLockPackedRefs(false)
	if err != nil {
		return err
	}
	if pr == nil {
		return nil
	}
	defer ioutil.CheckClose(pr, &err)

	return d.rewritePackedRefsWithoutRefWhileLocked(pr, name)
}

func (d *DotGit) rewritePackedRefsWithoutRefWhileLocked(pr billy.File, name plumbing.ReferenceName) error {
	if _, err := pr.Seek(0, io.SeekStart); err != nil {
		return err
	}

	refs, err := d.findPackedRefsInFile(pr)
	if err != nil {
		return err
	}

	found := false
	kept := make([]*plumbing.Reference, 0, len(refs))
	for _, ref := range refs {
		if ref.Name() == name {
			found = true
			continue
		}
		kept = append(kept, ref)
	}

	if !found {
		return nil
	}

	tmp, err := d.fs.TempFile("", "packed-refs")
	if err != nil {
		return err
	}

	if _, err := tmp.Write([]byte("# pack-refs with: peeled fully-peeled \n")); err != nil {
		_ = tmp.Close()
		return err
	}

	for _, ref := range kept {
		if _, err := tmp.Write([]byte(ref.Hash().String() + " " + ref.Name().String() + "\n")); err != nil {
			_ = tmp.Close()
			return err
		}
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	tmpForRename, err := d.fs.Open(tmp.Name())
	if err != nil {
		return err
	}
	defer tmpForRename.Close()

	return d.rewritePackedRefsWhileLocked(tmpForRename, pr)
}
