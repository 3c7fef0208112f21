package regions

import (
	"fmt"
	"strings"
	"sync"

	"pdf-tagger/geometry"
)

// Tree is the single owner of a document's regions. Top-level items are either
// sections or ungrouped regions; sections hold one level of children.
type Tree struct {
	mu    sync.RWMutex
	items []Region
	newID IDGenerator
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithIDGenerator replaces the default UUID based ids.
func WithIDGenerator(gen IDGenerator) TreeOption {
	return func(t *Tree) { t.newID = gen }
}

func NewTree(opts ...TreeOption) *Tree {
	t := &Tree{newID: UUIDGenerator}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewID hands out an id from the tree's generator.
func (t *Tree) NewID(kind Kind) string {
	return t.newID(kind)
}

// AddRegion validates r and stores it. A non-section region fully enclosed by a
// section on the same page becomes that section's last child; everything else is
// appended at top level. An empty id is filled in.
func (t *Tree) AddRegion(r Region) (Region, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addLocked(r)
}

func (t *Tree) addLocked(r Region) (Region, error) {
	r = r.Clone()
	r.SectionName = ""
	if r.ID == "" {
		r.ID = t.newID(r.Kind)
	}
	if err := r.Validate(); err != nil {
		return Region{}, err
	}

	seen := collectIDs(t.items)
	if err := claimIDs(seen, r); err != nil {
		return Region{}, err
	}

	if !r.IsSection() {
		for i := range t.items {
			s := &t.items[i]
			if s.IsSection() && s.Page == r.Page && geometry.Contains(s.Box, r.Box) {
				s.Children = append(s.Children, r)
				s.refit()
				return r.Clone(), nil
			}
		}
	} else {
		r.refit()
	}

	t.items = append(t.items, r)
	return r.Clone(), nil
}

// UpdateRegion merges patch into the region with the given id, wherever it lives.
// An unknown id is ignored. A patch that would leave the region invalid is rejected
// and nothing changes.
func (t *Tree) UpdateRegion(id string, patch Patch) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	target, parent := t.locate(id)
	if target == nil {
		return nil
	}
	next := patch.apply(target.Clone())
	if err := next.Validate(); err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	*target = next
	if parent != nil {
		parent.refit()
	} else if target.IsSection() {
		target.refit()
	}
	return nil
}

// RemoveRegion deletes the region with the given id and reports whether it existed.
// Removing a section removes its children with it.
func (t *Tree) RemoveRegion(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeLocked(id)
}

func (t *Tree) removeLocked(id string) bool {
	for i := range t.items {
		if t.items[i].ID == id {
			t.items = append(t.items[:i:i], t.items[i+1:]...)
			return true
		}
		s := &t.items[i]
		if !s.IsSection() {
			continue
		}
		for j := range s.Children {
			if s.Children[j].ID == id {
				s.Children = append(s.Children[:j:j], s.Children[j+1:]...)
				s.refit()
				return true
			}
		}
	}
	return false
}

// AddSection appends a new empty, auto-sized section.
func (t *Tree) AddSection(name string) (Region, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Region{}, ErrBlankName
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addLocked(Region{
		ID:       t.newID(KindSection),
		Kind:     KindSection,
		Label:    name,
		AutoSize: true,
	})
}

// Get returns a copy of the region with the given id.
func (t *Tree) Get(id string) (Region, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, _ := t.locate(id)
	if r == nil {
		return Region{}, false
	}
	return r.Clone(), true
}

// Snapshot returns a deep copy of the whole tree.
func (t *Tree) Snapshot() []Region {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneAll(t.items)
}

// Len counts leaf regions, children of sections included.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return countLeaves(t.items)
}

// Replace swaps the whole tree, as when a saved template is opened.
func (t *Tree) Replace(items []Region) error {
	if err := ValidateTree(items); err != nil {
		return err
	}
	next := cloneAll(items)
	for i := range next {
		if next[i].IsSection() {
			next[i].refit()
		}
	}
	t.mu.Lock()
	t.items = next
	t.mu.Unlock()
	return nil
}

// ApplyMove applies a drag-and-drop move and reports whether anything changed.
func (t *Tree) ApplyMove(m Move) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	next, ok := Reorder(t.items, m)
	if !ok {
		return false
	}
	t.items = next
	for i := range t.items {
		if t.items[i].IsSection() {
			t.items[i].refit()
		}
	}
	return true
}

// Renumber assigns reading order 1..n to the children of a section, in their
// current order. An empty sectionID renumbers the ungrouped regions.
func (t *Tree) Renumber(sectionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	assign := func(r *Region, n int) {
		o := n
		r.ReadingOrder = &o
	}
	if sectionID == "" {
		n := 0
		for i := range t.items {
			if !t.items[i].IsSection() {
				n++
				assign(&t.items[i], n)
			}
		}
		return true
	}
	for i := range t.items {
		s := &t.items[i]
		if s.IsSection() && s.ID == sectionID {
			for j := range s.Children {
				assign(&s.Children[j], j+1)
			}
			return true
		}
	}
	return false
}

// SeedDetected stores detected regions that are not already present, skipping any
// candidate within tolerance pixels of an existing region of the same kind and page.
// It returns the regions actually added.
func (t *Tree) SeedDetected(candidates []Region, tolerance float64) []Region {
	t.mu.Lock()
	defer t.mu.Unlock()

	novel := Deduplicate(Flatten(t.items), candidates, tolerance)
	added := make([]Region, 0, len(novel))
	for _, c := range novel {
		r, err := t.addLocked(c)
		if err != nil {
			continue
		}
		added = append(added, r)
	}
	return added
}

// locate finds a region by id. parent is set when the region is a section child.
func (t *Tree) locate(id string) (target, parent *Region) {
	for i := range t.items {
		r := &t.items[i]
		if r.ID == id {
			return r, nil
		}
		for j := range r.Children {
			if r.Children[j].ID == id {
				return &r.Children[j], r
			}
		}
	}
	return nil, nil
}

// refit recomputes an auto-sized section's box and page from its children.
func (r *Region) refit() {
	if !r.IsSection() || !r.AutoSize || len(r.Children) == 0 {
		return
	}
	boxes := make([]geometry.Box, len(r.Children))
	for i, c := range r.Children {
		boxes[i] = c.Box
	}
	u, err := geometry.Union(boxes...)
	if err != nil {
		return
	}
	r.Box = u
	r.Page = r.Children[0].Page
}

// ValidateTree checks every structural invariant of a full item list.
func ValidateTree(items []Region) error {
	seen := make(map[string]struct{})
	for _, r := range items {
		if err := r.Validate(); err != nil {
			return err
		}
		if err := claimIDs(seen, r); err != nil {
			return err
		}
	}
	return nil
}

func collectIDs(items []Region) map[string]struct{} {
	seen := make(map[string]struct{})
	for _, r := range items {
		seen[r.ID] = struct{}{}
		for _, c := range r.Children {
			seen[c.ID] = struct{}{}
		}
	}
	return seen
}

func claimIDs(seen map[string]struct{}, r Region) error {
	ids := []string{r.ID}
	for _, c := range r.Children {
		ids = append(ids, c.ID)
	}
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: missing id", ErrInvalidRegion)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func countLeaves(items []Region) int {
	n := 0
	for _, r := range items {
		if r.IsSection() {
			n += len(r.Children)
		} else {
			n++
		}
	}
	return n
}
