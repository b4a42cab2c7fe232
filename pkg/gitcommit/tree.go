package gitcommit

import (
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/pkg/errors"
)

// blobChange is the worktree content of one path to commit.
type blobChange struct {
	path    string
	data    []byte
	mode    filemode.FileMode
	hash    plumbing.Hash
	modTime time.Time
}

func newBlobChange(path string, data []byte, mode filemode.FileMode, modTime time.Time) *blobChange {
	return &blobChange{
		path:    path,
		data:    data,
		mode:    mode,
		hash:    plumbing.ComputeHash(plumbing.BlobObject, data),
		modTime: modTime,
	}
}

// treeIndex holds the entries of one tree keyed by name.
type treeIndex map[string]object.TreeEntry

func indexTree(t *object.Tree) treeIndex {
	idx := make(treeIndex)
	if t == nil {
		return idx
	}
	for _, e := range t.Entries {
		idx[e.Name] = e
	}
	return idx
}

// sorted returns the entries in canonical git order: byte order of the name, with
// directories compared as if their name ended in "/".
func (idx treeIndex) sorted() []object.TreeEntry {
	entries := make([]object.TreeEntry, 0, len(idx))
	for _, e := range idx {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return sortKey(entries[i]) < sortKey(entries[j])
	})
	return entries
}

func sortKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}

// treePlan is the new content of one tree level. Planning reads the existing trees only;
// nothing is written until write is called.
type treePlan struct {
	entries  treeIndex
	subtrees map[string]*treePlan
	blobs    []*blobChange
	modified bool
}

// planTree merges changes (keyed by slash-separated path relative to this level) into
// the existing tree t, which may be nil. It returns the full paths of modified files,
// prefixed with prefix.
func planTree(s storer.EncodedObjectStorer, t *object.Tree, prefix string, changes map[string]*blobChange) (*treePlan, []string, error) {
	plan := &treePlan{
		entries:  indexTree(t),
		subtrees: make(map[string]*treePlan),
	}

	nested := make(map[string]map[string]*blobChange)
	var modified []string
	for p, c := range changes {
		dir, rest, ok := strings.Cut(p, "/")
		if ok {
			if nested[dir] == nil {
				nested[dir] = make(map[string]*blobChange)
			}
			nested[dir][rest] = c
			continue
		}

		if existing, found := plan.entries[p]; found && existing.Hash == c.hash {
			continue
		}
		plan.entries[p] = object.TreeEntry{Name: p, Mode: c.mode, Hash: c.hash}
		plan.blobs = append(plan.blobs, c)
		plan.modified = true
		modified = append(modified, prefix+p)
	}

	for dir, sub := range nested {
		var subtree *object.Tree
		if existing, found := plan.entries[dir]; found && existing.Mode == filemode.Dir {
			var err error
			if subtree, err = object.GetTree(s, existing.Hash); err != nil {
				return nil, nil, errors.Wrapf(err, "reading tree %s%s", prefix, dir)
			}
		}
		subplan, subModified, err := planTree(s, subtree, prefix+dir+"/", sub)
		if err != nil {
			return nil, nil, err
		}
		if !subplan.modified {
			continue
		}
		plan.subtrees[dir] = subplan
		plan.modified = true
		modified = append(modified, subModified...)
	}

	sort.Strings(modified)
	return plan, modified, nil
}

// write stores the modified blobs and every modified tree bottom-up and returns the
// hash of this level's tree.
func (p *treePlan) write(s storer.EncodedObjectStorer) (plumbing.Hash, error) {
	for _, b := range p.blobs {
		if _, err := writeBlob(s, b.data); err != nil {
			return plumbing.ZeroHash, errors.Wrapf(err, "writing blob for %s", b.path)
		}
	}
	for name, sub := range p.subtrees {
		h, err := sub.write(s)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		p.entries[name] = object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: h}
	}

	t := &object.Tree{Entries: p.entries.sorted()}
	obj := s.NewEncodedObject()
	if err := t.Encode(obj); err != nil {
		return plumbing.ZeroHash, errors.Wrap(err, "encoding tree")
	}
	return s.SetEncodedObject(obj)
}

func writeBlob(s storer.EncodedObjectStorer, data []byte) (plumbing.Hash, error) {
	obj := s.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	return s.SetEncodedObject(obj)
}
