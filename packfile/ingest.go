// Package packfile decodes the packfiles exchanged over git's
// smart-HTTP wire protocol: a header, a sequence of (possibly
// deltified) object records, and a trailing SHA-1 checksum.
package packfile

import (
	"errors"
	"log"

	"github.com/goclone/gogit/githash"
	"github.com/goclone/gogit/object"
	"github.com/goclone/gogit/objstore"
	"golang.org/x/xerrors"
)

// errSkipRecord marks a delta whose base could never be resolved
// because it refers to an offset that doesn't exist in this pack.
// Unlike ErrUnresolvedBase, which fails the whole ingest, this is
// dropped with a warning so the rest of the pack still gets ingested.
var errSkipRecord = errors.New("delta base permanently unresolvable")

// resyncWindow bounds how many bytes Ingest's error recovery will scan
// forward past a failed record before giving up and failing the whole
// ingest. This is a heuristic kept for bug-compatibility with malformed
// packs observed in the wild, not a correctness guarantee.
const resyncWindow = 1000

// Stats summarizes what Ingest persisted.
type Stats struct {
	// ObjectCount is the number of objects declared in the packfile
	// header.
	ObjectCount int
	// Resolved is the number of records (deltas included) that were
	// successfully turned into objects and persisted.
	Resolved int
}

// Ingest decodes every record in data (a full, in-memory packfile byte
// stream with its header and footer) and persists the resulting
// objects into store.
//
// Packfiles interleave regular objects with OFS/REF deltas in whatever
// order the sender chose, and a delta's base may itself be another
// delta still waiting to be resolved. Ingest makes two passes: the
// first walks every record in stream order, persisting regular objects
// right away and recording deltas (keyed by both their offset and,
// once resolved, their oid) into a queue; the second repeatedly drains
// that queue, resolving any delta whose base has become available,
// until a full pass makes no progress.
//
// A REF-delta whose base is not in the pack is resolved against store
// (a thin pack whose bases the receiver already has); one whose base
// oid is found in neither the pack nor store is reported via
// ErrUnresolvedBase.
func Ingest(store *objstore.Store, data []byte) (*Stats, error) {
	count, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	byOffset := make(map[uint64]*Record, count)
	byOid := make(map[githash.Oid]object.Type, count)

	stats := &Stats{ObjectCount: int(count)}
	var pending []*Record

	offset := uint64(HeaderSize)
	for i := uint32(0); i < count; i++ {
		rec, err := ReadRecord(data, offset)
		if err != nil {
			resynced, newOffset := resync(data, offset)
			if !resynced {
				return nil, xerrors.Errorf("could not read record %d/%d: %w", i+1, count, err)
			}
			log.Printf("packfile: skipped %d byte(s) resyncing after a corrupt record at offset %d", newOffset-offset, offset)
			rec, err = ReadRecord(data, newOffset)
			if err != nil {
				return nil, xerrors.Errorf("could not read record %d/%d after resync: %w", i+1, count, err)
			}
		}
		byOffset[rec.Offset] = rec
		offset = rec.NextOffset

		if rec.IsDelta() {
			pending = append(pending, rec)
			continue
		}

		oid, err := store.PutRaw(rec.Kind, rec.Data)
		if err != nil {
			return nil, xerrors.Errorf("could not persist object at offset %d: %w", rec.Offset, err)
		}
		byOid[oid] = rec.Kind
		stats.Resolved++
	}

	for len(pending) > 0 {
		var next []*Record
		progress := false

		for _, rec := range pending {
			baseKind, baseContent, ok, err := resolveBase(store, byOffset, byOid, rec)
			if err != nil {
				if errors.Is(err, errSkipRecord) {
					progress = true
					continue
				}
				return nil, err
			}
			if !ok {
				next = append(next, rec)
				continue
			}

			content, err := applyDelta(baseContent, rec.Data)
			if err != nil {
				return nil, xerrors.Errorf("could not apply delta at offset %d: %w", rec.Offset, err)
			}

			oid, err := store.PutRaw(baseKind, content)
			if err != nil {
				return nil, xerrors.Errorf("could not persist delta-resolved object at offset %d: %w", rec.Offset, err)
			}
			byOid[oid] = baseKind
			// record the resolved kind/content on the record itself so
			// later deltas based on this record's offset can reuse it
			// without round-tripping through the store.
			rec.Kind = baseKind
			rec.Data = content
			progress = true
			stats.Resolved++
		}

		if !progress {
			return nil, xerrors.Errorf("%d delta(s) could not be resolved: %w", len(next), ErrUnresolvedBase)
		}
		pending = next
	}

	return stats, nil
}

// resync scans forward from offset, one byte at a time, up to
// resyncWindow bytes, looking for a position where a record can be read
// successfully. Used to recover from a single corrupt or misparsed
// record without failing the whole ingest.
func resync(data []byte, offset uint64) (ok bool, newOffset uint64) {
	for skip := uint64(1); skip <= resyncWindow; skip++ {
		candidate := offset + skip
		if candidate >= uint64(len(data)) {
			return false, 0
		}
		if _, err := ReadRecord(data, candidate); err == nil {
			return true, candidate
		}
	}
	return false, 0
}

// resolveBase looks up the base object for a delta record, either by
// offset (OFS-delta) or by oid (REF-delta). ok is false when the base
// hasn't been resolved yet.
func resolveBase(
	store *objstore.Store,
	byOffset map[uint64]*Record,
	byOid map[githash.Oid]object.Type,
	rec *Record,
) (kind object.Type, content []byte, ok bool, err error) {
	switch rec.Kind { //nolint:exhaustive // only the 2 delta kinds reach here
	case object.ObjectDeltaOFS:
		base, found := byOffset[rec.BaseOffset]
		if !found {
			log.Printf("packfile: ofs-delta at offset %d references unknown offset %d, skipping", rec.Offset, rec.BaseOffset)
			return 0, nil, false, errSkipRecord
		}
		if base.IsDelta() {
			return 0, nil, false, nil
		}
		return base.Kind, base.Data, true, nil
	case object.ObjectDeltaRef:
		if kind, found := byOid[rec.BaseOid]; found {
			_, content, err := store.GetContent(rec.BaseOid)
			if err != nil {
				return 0, nil, false, xerrors.Errorf("could not load resolved base %s: %w", rec.BaseOid, err)
			}
			return kind, content, true, nil
		}
		// the base might already live in the destination store (e.g. a
		// previous, unrelated push); fall back to it before giving up.
		found, err := store.Has(rec.BaseOid)
		if err != nil {
			return 0, nil, false, err
		}
		if !found {
			return 0, nil, false, nil
		}
		kind, content, err := store.GetContent(rec.BaseOid)
		if err != nil {
			return 0, nil, false, err
		}
		return kind, content, true, nil
	default:
		return 0, nil, false, xerrors.Errorf("record at offset %d is not a delta", rec.Offset)
	}
}
