package tracking

import "github.com/google/uuid"

// Snapshot is a point-in-time read of a pending record's checks and
// auxiliary fields, waiting to be merged into the checklist catalog.
type Snapshot struct {
	RecordID   uuid.UUID
	Identifier string
	Checks     map[string]bool
	Color      string
	RAL        string
}

// SnapshotBuffer holds at most one unapplied snapshot per screen instance.
// The catalog fetch and the pending-status fetch complete in arbitrary
// order; both completion paths call DrainInto, and whichever runs second
// with both sides present performs the merge.
type SnapshotBuffer struct {
	pending *Snapshot
}

// Offer stores the latest snapshot, overwriting any previous unapplied one.
// Last-offered wins; this is a deliberate simplification, not a queue.
func (b *SnapshotBuffer) Offer(snapshot Snapshot) {
	b.pending = &snapshot
}

// Pending reports whether a snapshot is buffered and not yet applied.
func (b *SnapshotBuffer) Pending() bool {
	return b.pending != nil
}

// DrainInto applies the buffered snapshot's checks to the catalog by column
// key and clears the buffer. It is a no-op returning (zero, false) when the
// catalog has not loaded yet or nothing is buffered; it is safe to call
// repeatedly from both the catalog-load and snapshot-arrival paths.
// A catalog key missing from the snapshot means unchecked, never an error.
func (b *SnapshotBuffer) DrainInto(catalog *Catalog) (Snapshot, bool) {
	if b.pending == nil || catalog.Empty() {
		return Snapshot{}, false
	}

	snapshot := *b.pending
	b.pending = nil

	for _, section := range catalog.Sections() {
		for _, item := range section.Items {
			catalog.SetByKey(item.Key, snapshot.Checks[item.Key])
		}
	}

	return snapshot, true
}
