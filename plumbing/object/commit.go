package object

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/storer"
)

// ErrParentNotFound is returned by Commit.Parent when the requested index
// is out of range.
var ErrParentNotFound = errors.New("commit parent not found")

const (
	beginpgp = "-----BEGIN PGP SIGNATURE-----"
	endpgp   = "-----END PGP SIGNATURE-----"
)

// MessageEncoding represents the encoding of a commit's message, recorded
// in the optional "encoding" header when it isn't UTF-8.
type MessageEncoding string

// defaultUtf8CommitMessageEncoding is used when a commit carries an
// explicit "encoding" header naming UTF-8, which is otherwise the
// implicit default and may be omitted.
const defaultUtf8CommitMessageEncoding MessageEncoding = "UTF-8"

// ExtraHeader is a key/value pair for a commit header this package does
// not otherwise interpret (e.g. "change-id", or anything a newer Git adds).
type ExtraHeader struct {
	Key   string
	Value string
}

// Commit points to a single tree, marking it as what the project looked
// like at a certain point in time. It contains meta-information about
// that point in time, such as a timestamp, the author of the changes
// since the last commit, a message describing the changes and
// information about its parent(s), if any.
type Commit struct {
	// Hash of the commit object.
	Hash plumbing.Hash
	// Author is the original author of the commit.
	Author Signature
	// Committer is the one performing the commit, might be different
	// from Author.
	Committer Signature
	// MergeTag is the embedded tag object when a merge commit carries
	// one (from the "mergetag" header).
	MergeTag string
	// PGPSignature is the PGP signature of the commit, if any.
	PGPSignature string
	// Encoding is the explicit message encoding, when the "encoding"
	// header is present.
	Encoding MessageEncoding
	// ExtraHeaders holds any header this type does not otherwise model.
	ExtraHeaders []ExtraHeader
	// Message is the commit message, contains arbitrary text.
	Message string
	// TreeHash is the hash of the root tree of the commit.
	TreeHash plumbing.Hash
	// ParentHashes are the hashes of the parent commits.
	ParentHashes []plumbing.Hash

	s storer.EncodedObjectStorer
}

// ID returns the object ID of the commit, the hash of its content.
func (c *Commit) ID() plumbing.Hash {
	return c.Hash
}

// Type returns the type of the object, always plumbing.CommitObject.
func (c *Commit) Type() plumbing.ObjectType {
	return plumbing.CommitObject
}

// Decode transforms a plumbing.EncodedObject into a Commit struct.
func (c *Commit) Decode(o plumbing.EncodedObject) (err error) {
	if err := checkObjectType(o, plumbing.CommitObject); err != nil {
		return err
	}

	c.Hash = o.Hash()

	reader, err := o.Reader()
	if err != nil {
		return err
	}
	defer ioutilCheckClose(reader, &err)

	r := bufio.NewReader(reader)
	for {
		line, rerr := r.ReadString('\n')
		if rerr != nil && rerr != io.EOF {
			return rerr
		}

		hasNL := strings.HasSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\n")

		if len(line) == 0 {
			message, merr := io.ReadAll(r)
			if merr != nil {
				return merr
			}

			c.Message = string(message)
			break
		}

		split := strings.SplitN(line, " ", 2)
		key := split[0]
		rest := ""
		if len(split) > 1 {
			rest = split[1]
		}

		switch key {
		case "tree":
			c.TreeHash = plumbing.NewHash(rest)
		case "parent":
			c.ParentHashes = append(c.ParentHashes, plumbing.NewHash(rest))
		case "author":
			c.Author.Decode([]byte(rest))
		case "committer":
			c.Committer.Decode([]byte(rest))
		case "encoding":
			c.Encoding = MessageEncoding(rest)
		case "mergetag":
			value, merr := readHeaderBlock(r, rest)
			if merr != nil {
				return merr
			}
			c.MergeTag = value
		case "gpgsig":
			value, serr := readHeaderBlock(r, rest)
			if serr != nil {
				return serr
			}
			c.PGPSignature = value
		default:
			if len(line) > 0 && line[0] == ' ' {
				content := strings.TrimPrefix(line, " ")
				if n := len(c.ExtraHeaders); n > 0 && c.ExtraHeaders[n-1].Value != "" {
					c.ExtraHeaders[n-1].Value += "\n" + content
				} else {
					c.ExtraHeaders = append(c.ExtraHeaders, ExtraHeader{Value: content})
				}
			} else {
				c.ExtraHeaders = append(c.ExtraHeaders, ExtraHeader{Key: key, Value: rest})
			}
		}

		if !hasNL {
			break
		}
	}

	return nil
}

// readHeaderBlock reads a multi-line header value: first is the text
// already consumed after the header key, then every subsequent line that
// begins with exactly one leading space (stripped) is appended, joined
// by "\n", until a line without a leading space is found.
func readHeaderBlock(r *bufio.Reader, first string) (string, error) {
	lines := []string{first}

	for {
		peek, err := r.Peek(1)
		if err != nil || len(peek) == 0 || peek[0] != ' ' {
			break
		}

		line, err := r.ReadString('\n')
		line = strings.TrimPrefix(line, " ")
		line = strings.TrimSuffix(line, "\n")
		lines = append(lines, line)
		if err != nil {
			break
		}
	}

	return strings.Join(lines, "\n"), nil
}

// Encode transforms a Commit into a plumbing.EncodedObject.
func (c *Commit) Encode(o plumbing.EncodedObject) error {
	return c.encode(o, true)
}

// EncodeWithoutSignature is like Encode but omits the gpgsig header, used
// to compute the digest that a PGP signature is taken over.
func (c *Commit) EncodeWithoutSignature(o plumbing.EncodedObject) error {
	return c.encode(o, false)
}

func (c *Commit) encode(o plumbing.EncodedObject, includeSignature bool) error {
	o.SetType(plumbing.CommitObject)
	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := fmt.Fprintf(w, "tree %s\n", c.TreeHash.String()); err != nil {
		return err
	}

	for _, parent := range c.ParentHashes {
		if _, err := fmt.Fprintf(w, "parent %s\n", parent.String()); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "author %s\n", c.Author.String()); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "committer %s\n", c.Committer.String()); err != nil {
		return err
	}

	if c.Encoding != "" {
		if _, err := fmt.Fprintf(w, "encoding %s\n", c.Encoding); err != nil {
			return err
		}
	}

	if c.MergeTag != "" {
		if err := writeHeaderBlock(w, "mergetag", c.MergeTag); err != nil {
			return err
		}
	}

	for _, h := range c.ExtraHeaders {
		switch {
		case h.Key == "":
			if _, err := fmt.Fprintf(w, " %s\n", h.Value); err != nil {
				return err
			}
		case h.Value == "":
			if _, err := fmt.Fprintf(w, "%s\n", h.Key); err != nil {
				return err
			}
		default:
			if err := writeHeaderBlock(w, h.Key, h.Value); err != nil {
				return err
			}
		}
	}

	if includeSignature && c.PGPSignature != "" {
		if err := writeHeaderBlock(w, "gpgsig", c.PGPSignature); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	if _, err := fmt.Fprint(w, c.Message); err != nil {
		return err
	}

	return nil
}

// writeHeaderBlock writes a (possibly multi-line) header value using the
// "<key> <first line>\n(' ' <line>\n)*" continuation convention.
func writeHeaderBlock(w io.Writer, key, value string) error {
	lines := strings.Split(value, "\n")

	if _, err := fmt.Fprintf(w, "%s %s\n", key, lines[0]); err != nil {
		return err
	}

	for _, line := range lines[1:] {
		if _, err := fmt.Fprintf(w, " %s\n", line); err != nil {
			return err
		}
	}

	return nil
}

// Tree returns the tree from the commit.
func (c *Commit) Tree() (*Tree, error) {
	return GetTree(c.s, c.TreeHash)
}

// Parents returns a CommitIter to the parent Commits.
func (c *Commit) Parents() CommitIter {
	return NewCommitIter(c.s, NewCommitPreIterator(c.ParentHashes, c.s))
}

// Parent returns the ith parent of a commit.
func (c *Commit) Parent(i int) (*Commit, error) {
	if len(c.ParentHashes) == 0 || i > len(c.ParentHashes)-1 {
		return nil, ErrParentNotFound
	}

	return GetCommit(c.s, c.ParentHashes[i])
}

// NumParents returns the number of parents in a commit.
func (c *Commit) NumParents() int {
	return len(c.ParentHashes)
}

// File returns the file with the specified path, walking the commit's
// tree.
func (c *Commit) File(path string) (*File, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	return tree.File(path)
}

// Files returns a FileIter for all the files in the commit's tree.
func (c *Commit) Files() (*FileIter, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	return tree.Files(), nil
}

// Less reports whether c sorts before rhs, ordered by committer time then
// author time then hash, each ascending.
func (c *Commit) Less(rhs *Commit) bool {
	cmp := c.Committer.When.Compare(rhs.Committer.When)
	if cmp == 0 {
		cmp = c.Author.When.Compare(rhs.Author.When)
	}
	if cmp == 0 {
		cmp = c.Hash.Compare(rhs.Hash.Bytes())
	}

	return cmp < 0
}

// Verify verifies the PGP signature of the commit against the given
// armored key ring and returns the signing entity on success.
func (c *Commit) Verify(armoredKeyRing string) (*openpgp.Entity, error) {
	keyRingReader := strings.NewReader(armoredKeyRing)
	keyring, err := openpgp.ReadArmoredKeyRing(keyRingReader)
	if err != nil {
		return nil, err
	}

	encoded := &plumbing.MemoryObject{}
	if err := c.EncodeWithoutSignature(encoded); err != nil {
		return nil, err
	}

	content, err := encoded.Reader()
	if err != nil {
		return nil, err
	}

	signature := strings.NewReader(c.PGPSignature)

	return openpgp.CheckArmoredDetachedSignature(keyring, content, signature, nil)
}

// String returns a git-log style representation.
func (c *Commit) String() string {
	return fmt.Sprintf(
		"%s %s\nAuthor: %s <%s>\nDate:   %s\n\n%s\n",
		plumbing.CommitObject, c.Hash, c.Author.Name, c.Author.Email,
		c.Author.When.Format(DateFormat), indent(c.Message),
	)
}

func indent(t string) string {
	var output []string
	for _, line := range strings.Split(t, "\n") {
		if len(line) != 0 {
			line = "    " + line
		}

		output = append(output, line)
	}

	return strings.Join(output, "\n")
}

// DateFormat is the format used by Commit.String for the author date.
const DateFormat = "Mon Jan 2 15:04:05 2006 -0700"

// DecodeCommit decodes an encoded object into a *Commit.
func DecodeCommit(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (*Commit, error) {
	c := &Commit{s: s}
	if err := c.Decode(o); err != nil {
		return nil, err
	}

	return c, nil
}

// Signature identifies who and when authored or committed something.
type Signature struct {
	// Name represents a person name, it is an arbitrary string.
	Name string
	// Email is an email, but it cannot be assumed to be well-formed.
	Email string
	// When is the timestamp of the signature.
	When time.Time
}

// Decode decodes a byte slice into a Signature. It expects the format
// "Name <email> unixtime +zone".
func (s *Signature) Decode(b []byte) {
	open := bytes.LastIndexByte(b, '<')
	close := bytes.LastIndexByte(b, '>')
	if open == -1 || close == -1 || open > close {
		s.Name = string(b)
		return
	}

	s.Name = strings.TrimSpace(string(b[:open]))
	s.Email = string(b[open+1 : close])

	hasTime := close+2 < len(b)
	if !hasTime {
		return
	}

	timeAndZone := strings.Fields(string(b[close+2:]))
	if len(timeAndZone) == 0 {
		return
	}

	zone := "+0000"
	if len(timeAndZone) > 1 {
		zone = timeAndZone[1]
	}

	s.decodeTimeAndLocation(timeAndZone[0], zone)
}

func (s *Signature) decodeTimeAndLocation(tm, zone string) {
	seconds, err := strconv.ParseInt(tm, 10, 64)
	if err != nil {
		return
	}

	loc := parseTimezone(zone)
	s.When = time.Unix(seconds, 0).In(loc)
}

func parseTimezone(zone string) *time.Location {
	if len(zone) != 5 {
		return time.FixedZone("", 0)
	}

	sign := 1
	switch zone[0] {
	case '-':
		sign = -1
	case '+':
		sign = 1
	default:
		return time.FixedZone("", 0)
	}

	hours, err1 := strconv.Atoi(zone[1:3])
	minutes, err2 := strconv.Atoi(zone[3:5])
	if err1 != nil || err2 != nil {
		return time.FixedZone("", 0)
	}

	offset := sign * (hours*3600 + minutes*60)
	return time.FixedZone(zone, offset)
}

// String returns a Signature serialized as "Name <email> unixtime +zone".
func (s *Signature) String() string {
	_, offset := s.When.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}

	offset /= 60
	hours := offset / 60
	minutes := offset % 60

	return fmt.Sprintf("%s <%s> %d %s%02d%02d",
		s.Name, s.Email, s.When.Unix(), sign, hours, minutes)
}

// CommitIter is a generic closable interface for iterating over Commits.
type CommitIter interface {
	Next() (*Commit, error)
	ForEach(func(*Commit) error) error
	Close()
}

type commitIter struct {
	storer.EncodedObjectIter
	s storer.EncodedObjectStorer
}

// NewCommitIter takes a storer.EncodedObjectStorer and a
// storer.EncodedObjectIter and returns a CommitIter that iterates over
// all commits contained in the storer.EncodedObjectIter.
func NewCommitIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) CommitIter {
	return &commitIter{iter, s}
}

func (iter *commitIter) Next() (*Commit, error) {
	obj, err := iter.EncodedObjectIter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeCommit(iter.s, obj)
}

func (iter *commitIter) ForEach(cb func(*Commit) error) error {
	return iter.EncodedObjectIter.ForEach(func(obj plumbing.EncodedObject) error {
		c, err := DecodeCommit(iter.s, obj)
		if err != nil {
			return err
		}

		return cb(c)
	})
}

// commitPreIterator is a commit iterator over a list of hashes, resolving
// each hash to its commit lazily as Next is called.
type commitPreIterator struct {
	hashes []plumbing.Hash
	pos    int
	s      storer.EncodedObjectStorer
}

// NewCommitPreIterator returns a storer.EncodedObjectIter-compatible
// iterator over the given hashes.
func NewCommitPreIterator(hashes []plumbing.Hash, s storer.EncodedObjectStorer) storer.EncodedObjectIter {
	return &commitPreIterator{hashes: hashes, s: s}
}

func (iter *commitPreIterator) Next() (plumbing.EncodedObject, error) {
	if iter.pos >= len(iter.hashes) {
		return nil, io.EOF
	}

	h := iter.hashes[iter.pos]
	iter.pos++

	return iter.s.EncodedObject(plumbing.CommitObject, h)
}

func (iter *commitPreIterator) ForEach(cb func(plumbing.EncodedObject) error) error {
	for {
		obj, err := iter.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := cb(obj); err != nil {
			if err == storer.ErrStop {
				return nil
			}
			return err
		}
	}
}

func (iter *commitPreIterator) Close() {}
