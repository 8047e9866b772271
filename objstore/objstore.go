// Package objstore implements the loose object store: the fan-out
// directory layout git uses under .git/objects to persist individual
// zlib-compressed objects.
package objstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goclone/gogit/githash"
	"github.com/goclone/gogit/internal/cache"
	"github.com/goclone/gogit/internal/errutil"
	"github.com/goclone/gogit/internal/readutil"
	"github.com/goclone/gogit/object"
	"github.com/goclone/gogit/objcodec"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"
)

// ErrObjectNotFound is returned when an object cannot be found anywhere
// in the store.
var ErrObjectNotFound = errors.New("object not found")

// cacheSize is the number of objects kept in the in-memory read cache.
const cacheSize = 256

// Store is a fan-out loose object store rooted at a .git/objects
// directory: objects/<aa>/<38hex>.
type Store struct {
	fs   afero.Fs
	root string

	cache *cache.LRU
}

// New returns a Store persisting objects under objectsDir (typically
// $GIT_DIR/objects) using fs.
func New(fs afero.Fs, objectsDir string) *Store {
	return &Store{
		fs:    fs,
		root:  objectsDir,
		cache: cache.NewLRU(cacheSize),
	}
}

func (s *Store) path(oid githash.Oid) string {
	sha := oid.String()
	return filepath.Join(s.root, sha[:2], sha[2:])
}

// Has returns whether an object exists in the store.
func (s *Store) Has(oid githash.Oid) (bool, error) {
	if _, found := s.cache.Get(oid); found {
		return true, nil
	}
	_, err := s.fs.Stat(s.path(oid))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, xerrors.Errorf("could not stat object: %w", err)
}

// Get returns the canonical form ("<type> <size>\x00<content>") of the
// object identified by oid.
func (s *Store) Get(oid githash.Oid) (canonical []byte, err error) {
	typ, content, err := s.GetContent(oid)
	if err != nil {
		return nil, err
	}
	return object.New(typ, content).Canonical(), nil
}

// GetContent returns the type and raw content of the object identified
// by oid.
func (s *Store) GetContent(oid githash.Oid) (typ object.Type, content []byte, err error) {
	if cached, found := s.cache.Get(oid); found {
		o := cached.(*object.Object)
		return o.Type(), o.Bytes(), nil
	}

	p := s.path(oid)
	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil, xerrors.Errorf("%s: %w", oid, ErrObjectNotFound)
		}
		return 0, nil, xerrors.Errorf("could not open object %s: %w", oid, err)
	}
	defer errutil.Close(f, &err)

	raw, _, err := objcodec.Inflate(f)
	if err != nil {
		return 0, nil, xerrors.Errorf("could not decompress object %s: %w", oid, err)
	}

	typ, content, err = parseCanonical(raw)
	if err != nil {
		return 0, nil, xerrors.Errorf("could not parse object %s: %w", oid, err)
	}

	s.cache.Add(oid, object.New(typ, content))
	return typ, content, nil
}

// parseCanonical splits a loose object's decompressed bytes
// ("<type> <size>\x00<content>") into its type and content.
func parseCanonical(raw []byte) (typ object.Type, content []byte, err error) {
	typBytes := readutil.ReadTo(raw, ' ')
	if typBytes == nil {
		return 0, nil, xerrors.Errorf("could not find object type")
	}
	typ, err = object.NewTypeFromString(string(typBytes))
	if err != nil {
		return 0, nil, xerrors.Errorf("unsupported type %s: %w", typBytes, err)
	}

	pos := len(typBytes) + 1
	sizeBytes := readutil.ReadTo(raw[pos:], 0)
	if sizeBytes == nil {
		return 0, nil, xerrors.Errorf("could not find object size")
	}
	size, err := strconv.Atoi(string(sizeBytes))
	if err != nil {
		return 0, nil, xerrors.Errorf("invalid size %s: %w", sizeBytes, err)
	}
	pos += len(sizeBytes) + 1
	content = raw[pos:]
	if len(content) != size {
		return 0, nil, xerrors.Errorf("object declares size %d, has %d", size, len(content))
	}
	return typ, content, nil
}

// Put persists an object's canonical form ("<type> <size>\x00<content>",
// as returned by object.Object.Canonical) and returns its Oid. Put is
// idempotent: writing the same content twice is a no-op the second time.
func (s *Store) Put(canonical []byte) (githash.Oid, error) {
	oid := githash.Sum(canonical)

	found, err := s.Has(oid)
	if err != nil {
		return githash.NullOid, xerrors.Errorf("could not check for existing object %s: %w", oid, err)
	}
	if found {
		return oid, nil
	}

	typ, content, err := parseCanonical(canonical)
	if err != nil {
		return githash.NullOid, xerrors.Errorf("could not parse object %s: %w", oid, err)
	}

	var buf bytes.Buffer
	if err := objcodec.Deflate(&buf, canonical); err != nil {
		return githash.NullOid, xerrors.Errorf("could not compress object %s: %w", oid, err)
	}

	p := s.path(oid)
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return githash.NullOid, xerrors.Errorf("could not create directory for object %s: %w", oid, err)
	}
	// git objects are read-only once written
	if err := afero.WriteFile(s.fs, p, buf.Bytes(), 0o444); err != nil {
		return githash.NullOid, xerrors.Errorf("could not persist object %s: %w", oid, err)
	}

	s.cache.Add(oid, object.New(typ, content))
	return oid, nil
}

// PutRaw builds an object of the given kind from content and persists
// its canonical form.
func (s *Store) PutRaw(kind object.Type, content []byte) (githash.Oid, error) {
	return s.Put(object.New(kind, content).Canonical())
}
