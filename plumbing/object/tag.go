package object

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/storer"
)

// Tag represents an annotated tag object. It points to a single git
// object of any type and contains meta-information about the tag, such
// as the tagger, tag date and a message.
type Tag struct {
	// Hash of the tag.
	Hash plumbing.Hash
	// Name of the tag.
	Name string
	// Tagger is the one who created the tag.
	Tagger Signature
	// Message is an arbitrary text message.
	Message string
	// PGPSignature is the PGP signature of the tag, if any. Unlike a
	// commit's gpgsig header, a tag's signature is not a separate header:
	// it trails the message directly, so Decode/Encode split and
	// concatenate it at that boundary rather than as a header block.
	PGPSignature string
	// TargetType is the object type of the target.
	TargetType plumbing.ObjectType
	// Target is the hash of the target object.
	Target plumbing.Hash

	s storer.EncodedObjectStorer
}

// ID returns the object ID of the tag, the hash of its content.
func (t *Tag) ID() plumbing.Hash {
	return t.Hash
}

// Type returns the type of the object, always plumbing.TagObject.
func (t *Tag) Type() plumbing.ObjectType {
	return plumbing.TagObject
}

// Decode transforms a plumbing.EncodedObject into a Tag struct.
func (t *Tag) Decode(o plumbing.EncodedObject) (err error) {
	if err := checkObjectType(o, plumbing.TagObject); err != nil {
		return err
	}

	t.Hash = o.Hash()

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

		line = strings.TrimSuffix(line, "\n")
		if len(line) == 0 {
			rest, merr := io.ReadAll(r)
			if merr != nil {
				return merr
			}

			t.Message, t.PGPSignature = splitTagSignature(string(rest))
			break
		}

		split := strings.SplitN(line, " ", 2)
		switch split[0] {
		case "object":
			t.Target = plumbing.NewHash(split[1])
		case "type":
			typ, terr := plumbing.ParseObjectType(split[1])
			if terr != nil {
				return terr
			}
			t.TargetType = typ
		case "tag":
			t.Name = split[1]
		case "tagger":
			t.Tagger.Decode([]byte(split[1]))
		}

		if rerr == io.EOF {
			break
		}
	}

	return nil
}

// splitTagSignature splits a tag's trailing content into the message
// proper and an embedded PGP signature, if one is present.
func splitTagSignature(rest string) (message, signature string) {
	idx := strings.Index(rest, beginpgp)
	if idx == -1 {
		return rest, ""
	}

	return rest[:idx], rest[idx:]
}

// Encode transforms a Tag into a plumbing.EncodedObject.
func (t *Tag) Encode(o plumbing.EncodedObject) error {
	return t.encode(o, true)
}

// EncodeWithoutSignature is like Encode but omits the embedded PGP
// signature, used to compute the digest a detached signature is taken
// over.
func (t *Tag) EncodeWithoutSignature(o plumbing.EncodedObject) error {
	return t.encode(o, false)
}

func (t *Tag) encode(o plumbing.EncodedObject, includeSignature bool) error {
	o.SetType(plumbing.TagObject)
	w, err := o.Writer()
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := fmt.Fprintf(w, "object %s\n", t.Target.String()); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "type %s\n", t.TargetType.String()); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "tag %s\n", t.Name); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "tagger %s\n", t.Tagger.String()); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	if _, err := fmt.Fprint(w, t.Message); err != nil {
		return err
	}

	if includeSignature && t.PGPSignature != "" {
		if _, err := fmt.Fprint(w, t.PGPSignature); err != nil {
			return err
		}
	}

	return nil
}

// Commit returns the target commit of the tag. It returns an error if
// the target is not a commit.
func (t *Tag) Commit() (*Commit, error) {
	if t.TargetType != plumbing.CommitObject {
		return nil, ErrUnsupportedObject
	}

	return GetCommit(t.s, t.Target)
}

// Tree returns the tag's target as a Tree, when applicable.
func (t *Tag) Tree() (*Tree, error) {
	if t.TargetType != plumbing.TreeObject {
		return nil, ErrUnsupportedObject
	}

	return GetTree(t.s, t.Target)
}

// Blob returns the tag's target as a Blob, when applicable.
func (t *Tag) Blob() (*Blob, error) {
	if t.TargetType != plumbing.BlobObject {
		return nil, ErrUnsupportedObject
	}

	return GetBlob(t.s, t.Target)
}

// Object returns the tag's target object, decoding it to its concrete
// type.
func (t *Tag) Object() (Object, error) {
	o, err := t.s.EncodedObject(t.TargetType, t.Target)
	if err != nil {
		return nil, err
	}

	return DecodeObject(t.s, o)
}

// Verify verifies the PGP signature of the tag against the given
// armored key ring and returns the signing entity on success.
func (t *Tag) Verify(armoredKeyRing string) (*openpgp.Entity, error) {
	keyRingReader := strings.NewReader(armoredKeyRing)
	keyring, err := openpgp.ReadArmoredKeyRing(keyRingReader)
	if err != nil {
		return nil, err
	}

	encoded := &plumbing.MemoryObject{}
	if err := t.EncodeWithoutSignature(encoded); err != nil {
		return nil, err
	}

	content, err := encoded.Reader()
	if err != nil {
		return nil, err
	}

	signature := strings.NewReader(t.PGPSignature)

	return openpgp.CheckArmoredDetachedSignature(keyring, content, signature, nil)
}

// String returns the meta information contained in the tag as a
// formatted string. When the tag's target is a commit, the commit's
// own formatted output is appended, mirroring how git log shows an
// annotated tag inline with the commit it points to.
func (t *Tag) String() string {
	s := fmt.Sprintf(
		"tag %s\nTagger: %s <%s>\nDate:   %s\n\n%s\n",
		t.Name, t.Tagger.Name, t.Tagger.Email,
		t.Tagger.When.Format(DateFormat), t.Message,
	)

	if t.TargetType == plumbing.CommitObject {
		if c, err := t.Commit(); err == nil {
			s += c.String()
		}
	}

	return s
}

// DecodeTag decodes an encoded object into a *Tag.
func DecodeTag(s storer.EncodedObjectStorer, o plumbing.EncodedObject) (*Tag, error) {
	t := &Tag{s: s}
	if err := t.Decode(o); err != nil {
		return nil, err
	}

	return t, nil
}

// TagIter provides an iterator for a set of tags.
type TagIter struct {
	storer.EncodedObjectIter
	s storer.EncodedObjectStorer
}

// NewTagIter takes a storer.EncodedObjectStorer and a
// storer.EncodedObjectIter and returns a *TagIter that iterates over all
// tags contained in the storer.EncodedObjectIter.
func NewTagIter(s storer.EncodedObjectStorer, iter storer.EncodedObjectIter) *TagIter {
	return &TagIter{iter, s}
}

// Next moves the iterator to the next tag and returns it. If there are no
// more tags, it returns io.EOF.
func (iter *TagIter) Next() (*Tag, error) {
	obj, err := iter.EncodedObjectIter.Next()
	if err != nil {
		return nil, err
	}

	return DecodeTag(iter.s, obj)
}

// ForEach call the cb function for each tag contained on this iter until
// an error happens or the end of the iter is reached. If ErrStop is sent
// the iteration is stop but no error is returned.
func (iter *TagIter) ForEach(cb func(*Tag) error) error {
	return iter.EncodedObjectIter.ForEach(func(obj plumbing.EncodedObject) error {
		t, err := DecodeTag(iter.s, obj)
		if err != nil {
			return err
		}

		return cb(t)
	})
}
