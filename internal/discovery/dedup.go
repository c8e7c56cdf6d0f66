package discovery

import (
	"sort"
	"time"

	"github.com/STRATINT/followbot/internal/models"
)

// Archive is the read side of the followed-handles archive.
type Archive interface {
	Contains(handle string) bool
}

// Deduplicator collects kept handles across sources. The first source to
// keep a handle owns it; archived handles are never accepted.
type Deduplicator struct {
	archive Archive
	kept    map[string]models.Candidate
}

// NewDeduplicator returns a Deduplicator filtering against archive.
func NewDeduplicator(archive Archive) *Deduplicator {
	return &Deduplicator{
		archive: archive,
		kept:    make(map[string]models.Candidate),
	}
}

// IsNew reports whether handle still needs evaluation: not archived and not
// already kept by an earlier source.
func (d *Deduplicator) IsNew(handle string) bool {
	if d.archive.Contains(handle) {
		return false
	}
	_, seen := d.kept[handle]
	return !seen
}

// Mark keeps handle, attributing it to source. It returns false if the
// handle was archived or already kept.
func (d *Deduplicator) Mark(handle, source string, at time.Time) bool {
	if !d.IsNew(handle) {
		return false
	}
	d.kept[handle] = models.Candidate{Handle: handle, Source: source, DiscoveredAt: at}
	return true
}

// Size returns the number of kept handles.
func (d *Deduplicator) Size() int {
	return len(d.kept)
}

// Result returns the kept candidates sorted by handle.
func (d *Deduplicator) Result() models.CandidateSet {
	set := make(models.CandidateSet, 0, len(d.kept))
	for _, c := range d.kept {
		set = append(set, c)
	}
	sort.Slice(set, func(i, j int) bool { return set[i].Handle < set[j].Handle })
	return set
}
