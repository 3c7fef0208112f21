package regions

import (
	"fmt"
	"strings"
)

// ContainerKind names one of the lists a drag can start or end in.
type ContainerKind string

const (
	ContainerSections  ContainerKind = "sections"
	ContainerUngrouped ContainerKind = "ungrouped-items"
	ContainerSection   ContainerKind = "section"
)

const sectionContainerPrefix = "section-"

// Container identifies a list: the top-level sections, the top-level ungrouped
// regions, or one section's children.
type Container struct {
	Kind      ContainerKind `json:"kind"`
	SectionID string        `json:"section_id,omitempty"`
}

// ParseContainer reads the droppable ids used by the editor: "sections",
// "ungrouped-items" and "section-<id>".
func ParseContainer(droppableID string) (Container, error) {
	switch {
	case droppableID == string(ContainerSections):
		return Container{Kind: ContainerSections}, nil
	case droppableID == string(ContainerUngrouped):
		return Container{Kind: ContainerUngrouped}, nil
	case strings.HasPrefix(droppableID, sectionContainerPrefix) && len(droppableID) > len(sectionContainerPrefix):
		return Container{Kind: ContainerSection, SectionID: strings.TrimPrefix(droppableID, sectionContainerPrefix)}, nil
	}
	return Container{}, fmt.Errorf("unknown container %q", droppableID)
}

func (c Container) String() string {
	if c.Kind == ContainerSection {
		return sectionContainerPrefix + c.SectionID
	}
	return string(c.Kind)
}

// Location is a position inside a container.
type Location struct {
	Container Container `json:"container"`
	Index     int       `json:"index"`
}

// Move describes one drag-and-drop gesture.
type Move struct {
	Source      Location `json:"source"`
	Destination Location `json:"destination"`
}

// Reorder returns the tree that results from m, leaving items untouched. When the move
// cannot be applied (unknown section, index out of range, a section dropped into a
// section) it returns items and false.
func Reorder(items []Region, m Move) ([]Region, bool) {
	next := cloneAll(items)
	var ok bool
	if m.Source.Container.Kind == ContainerSections {
		next, ok = moveSection(next, m)
	} else {
		next, ok = moveItem(next, m)
	}
	if !ok {
		return items, false
	}
	return next, true
}

func moveSection(items []Region, m Move) ([]Region, bool) {
	if m.Destination.Container.Kind != ContainerSections {
		return nil, false
	}
	positions := indexesOf(items, Region.IsSection)
	src := m.Source.Index
	if src < 0 || src >= len(positions) {
		return nil, false
	}
	section := items[positions[src]]
	items = removeAt(items, positions[src])

	positions = indexesOf(items, Region.IsSection)
	at, ok := insertionPoint(items, positions, m.Destination.Index)
	if !ok {
		return nil, false
	}
	return insertAt(items, at, section), true
}

func moveItem(items []Region, m Move) ([]Region, bool) {
	src, dst := m.Source.Container, m.Destination.Container
	if dst.Kind == ContainerSections {
		return nil, false
	}

	var moved Region
	switch src.Kind {
	case ContainerUngrouped:
		positions := indexesOf(items, isUngrouped)
		if m.Source.Index < 0 || m.Source.Index >= len(positions) {
			return nil, false
		}
		moved = items[positions[m.Source.Index]]
		items = removeAt(items, positions[m.Source.Index])
	case ContainerSection:
		s := findSection(items, src.SectionID)
		if s < 0 || m.Source.Index < 0 || m.Source.Index >= len(items[s].Children) {
			return nil, false
		}
		moved = items[s].Children[m.Source.Index]
		items[s].Children = removeAt(items[s].Children, m.Source.Index)
	default:
		return nil, false
	}

	switch dst.Kind {
	case ContainerUngrouped:
		at, ok := insertionPoint(items, indexesOf(items, isUngrouped), m.Destination.Index)
		if !ok {
			return nil, false
		}
		return insertAt(items, at, moved), true
	case ContainerSection:
		s := findSection(items, dst.SectionID)
		if s < 0 || m.Destination.Index < 0 || m.Destination.Index > len(items[s].Children) {
			return nil, false
		}
		items[s].Children = insertAt(items[s].Children, m.Destination.Index, moved)
		return items, true
	}
	return nil, false
}

func isUngrouped(r Region) bool { return !r.IsSection() }

func indexesOf(items []Region, keep func(Region) bool) []int {
	var out []int
	for i, r := range items {
		if keep(r) {
			out = append(out, i)
		}
	}
	return out
}

// insertionPoint maps an index within a filtered view of items back onto items.
// Index len(positions) means after the last member, or the end when there is none.
func insertionPoint(items []Region, positions []int, index int) (int, bool) {
	switch {
	case index < 0 || index > len(positions):
		return 0, false
	case index < len(positions):
		return positions[index], true
	case len(positions) == 0:
		return len(items), true
	default:
		return positions[len(positions)-1] + 1, true
	}
}

func findSection(items []Region, id string) int {
	for i, r := range items {
		if r.IsSection() && r.ID == id {
			return i
		}
	}
	return -1
}

func removeAt(items []Region, i int) []Region {
	out := make([]Region, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func insertAt(items []Region, i int, r Region) []Region {
	out := make([]Region, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, r)
	return append(out, items[i:]...)
}
