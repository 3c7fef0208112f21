package regions

import (
	"fmt"

	"pdf-tagger/geometry"
)

// DefaultOverlapBuffer is the slack, in canvas pixels, applied to every overlap test.
const DefaultOverlapBuffer = 1.0

// Resolution is the user's answer to a merge decision.
type Resolution string

const (
	ResolutionMerge     Resolution = "merge"
	ResolutionReplace   Resolution = "replace"
	ResolutionAddAnyway Resolution = "add"
	ResolutionCancel    Resolution = "cancel"
)

// Decision is a candidate held back because it overlaps committed regions.
type Decision struct {
	ID          string   `json:"id"`
	Candidate   Region   `json:"candidate"`
	Overlapping []Region `json:"overlapping"`
}

// Outcome reports what happened to a submitted candidate or a resolved decision.
// Exactly one of Committed and Decision is set, except after a cancel where both are nil.
type Outcome struct {
	Committed *Region   `json:"committed,omitempty"`
	Decision  *Decision `json:"decision,omitempty"`
	Removed   []string  `json:"removed,omitempty"`
}

// Resolver guards commits of drawn or edited regions against overlaps with the
// ungrouped regions of the same page. At most one decision is pending at a time.
type Resolver struct {
	tree    *Tree
	buffer  float64
	pending *Decision
}

func NewResolver(tree *Tree) *Resolver {
	return &Resolver{tree: tree, buffer: DefaultOverlapBuffer}
}

// Submit commits candidate straight away when it overlaps nothing, and otherwise
// parks it as the pending decision.
func (r *Resolver) Submit(candidate Region) (Outcome, error) {
	t := r.tree
	t.mu.Lock()
	defer t.mu.Unlock()

	if r.pending != nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrDecisionPending, r.pending.ID)
	}
	if candidate.IsSection() {
		return Outcome{}, fmt.Errorf("%w: sections are not drawn", ErrInvalidRegion)
	}
	candidate = candidate.Clone()
	if candidate.ID == "" {
		candidate.ID = t.newID(candidate.Kind)
	}
	if err := candidate.Validate(); err != nil {
		return Outcome{}, err
	}
	if err := claimIDs(collectIDs(t.items), candidate); err != nil {
		return Outcome{}, err
	}

	overlapping := r.overlappingLocked(candidate)
	if len(overlapping) == 0 {
		committed, err := t.addLocked(candidate)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Committed: &committed}, nil
	}

	r.pending = &Decision{
		ID:          t.newID("decision"),
		Candidate:   candidate,
		Overlapping: overlapping,
	}
	d := r.pending.clone()
	return Outcome{Decision: &d}, nil
}

// Pending returns the decision waiting for the user, if any.
func (r *Resolver) Pending() (Decision, bool) {
	r.tree.mu.RLock()
	defer r.tree.mu.RUnlock()
	if r.pending == nil {
		return Decision{}, false
	}
	return r.pending.clone(), true
}

// Discard drops the pending decision, if any, without committing it.
func (r *Resolver) Discard() bool {
	r.tree.mu.Lock()
	defer r.tree.mu.Unlock()
	had := r.pending != nil
	r.pending = nil
	return had
}

// Resolve applies the user's choice to the pending decision. Every resolution clears
// the decision, including one that fails to commit; a failed commit leaves the tree
// as it was before the call.
func (r *Resolver) Resolve(decisionID string, res Resolution) (Outcome, error) {
	t := r.tree
	t.mu.Lock()
	defer t.mu.Unlock()

	d := r.pending
	if d == nil || d.ID != decisionID {
		return Outcome{}, fmt.Errorf("%w: %s", ErrNoDecision, decisionID)
	}

	switch res {
	case ResolutionCancel:
		r.pending = nil
		return Outcome{}, nil
	case ResolutionAddAnyway:
		r.pending = nil
		committed, err := t.addLocked(d.Candidate)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Committed: &committed}, nil
	case ResolutionReplace:
		r.pending = nil
		return r.swapLocked(regionIDs(d.Overlapping), d.Candidate)
	case ResolutionMerge:
		r.pending = nil
		merged := r.mergeLocked(d)
		return r.swapLocked(merged.MergedFrom, merged)
	default:
		return Outcome{}, fmt.Errorf("unknown resolution %q", res)
	}
}

func (r *Resolver) overlappingLocked(candidate Region) []Region {
	var out []Region
	for _, existing := range r.tree.items {
		if existing.IsSection() || existing.Page != candidate.Page {
			continue
		}
		if geometry.Overlap(existing.Box, candidate.Box, r.buffer) {
			out = append(out, existing.Clone())
		}
	}
	return out
}

// mergeLocked builds the region replacing the candidate and the overlapped regions
// that are still ungrouped. Geometry is their exact union; semantics come from the candidate.
func (r *Resolver) mergeLocked(d *Decision) Region {
	boxes := []geometry.Box{d.Candidate.Box}
	var from []string
	for _, o := range d.Overlapping {
		current, parent := r.tree.locate(o.ID)
		if current == nil || parent != nil {
			continue
		}
		boxes = append(boxes, current.Box)
		from = append(from, o.ID)
	}
	// boxes always holds the candidate
	u, _ := geometry.Union(boxes...)

	merged := d.Candidate.Clone()
	merged.ID = r.tree.newID(KindMerged)
	merged.Kind = KindMerged
	merged.Box = u
	merged.Table = nil
	merged.AltText = ""
	merged.Label = MergedLabel(d.Candidate, d.Overlapping)
	merged.MergedFrom = from
	return merged
}

// swapLocked removes ids and commits replacement as one step. If the commit fails the
// removed regions are put back.
func (r *Resolver) swapLocked(ids []string, replacement Region) (Outcome, error) {
	t := r.tree
	before := cloneAll(t.items)
	removed := r.removeAllLocked(ids)
	committed, err := t.addLocked(replacement)
	if err != nil {
		t.items = before
		return Outcome{}, err
	}
	return Outcome{Committed: &committed, Removed: removed}, nil
}

func (r *Resolver) removeAllLocked(ids []string) []string {
	var removed []string
	for _, id := range ids {
		if r.tree.removeLocked(id) {
			removed = append(removed, id)
		}
	}
	return removed
}

func regionIDs(items []Region) []string {
	ids := make([]string, len(items))
	for i, r := range items {
		ids[i] = r.ID
	}
	return ids
}

// MergedLabel names a merge result: both names when a single region was absorbed,
// a count otherwise.
func MergedLabel(candidate Region, overlapping []Region) string {
	if len(overlapping) == 1 {
		return fmt.Sprintf("Merged: %s + %s", overlapping[0].Label, candidate.Label)
	}
	return fmt.Sprintf("Merged %d elements", len(overlapping)+1)
}

func (d *Decision) clone() Decision {
	return Decision{
		ID:          d.ID,
		Candidate:   d.Candidate.Clone(),
		Overlapping: cloneAll(d.Overlapping),
	}
}
