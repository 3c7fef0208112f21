package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture: [s1{a,b}, u1, s2{c}, u2]
func reorderFixture() []Region {
	return []Region{
		{ID: "s1", Kind: KindSection, Label: "One", Children: []Region{
			textRegion("a", 1, 0, 0, 10, 10),
			textRegion("b", 1, 0, 20, 10, 10),
		}},
		textRegion("u1", 1, 100, 0, 10, 10),
		{ID: "s2", Kind: KindSection, Label: "Two", Children: []Region{
			textRegion("c", 1, 0, 40, 10, 10),
		}},
		textRegion("u2", 1, 100, 20, 10, 10),
	}
}

func loc(id string, index int) Location {
	c, err := ParseContainer(id)
	if err != nil {
		panic(err)
	}
	return Location{Container: c, Index: index}
}

func TestParseContainer(t *testing.T) {
	tests := []struct {
		in      string
		want    Container
		wantErr bool
	}{
		{"sections", Container{Kind: ContainerSections}, false},
		{"ungrouped-items", Container{Kind: ContainerUngrouped}, false},
		{"section-abc-123", Container{Kind: ContainerSection, SectionID: "abc-123"}, false},
		{"section-", Container{}, true},
		{"board", Container{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseContainer(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.in, got.String())
		})
	}
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name     string
		move     Move
		topLevel []string
		children map[string][]string
	}{
		{
			name:     "section to the end",
			move:     Move{Source: loc("sections", 0), Destination: loc("sections", 1)},
			topLevel: []string{"u1", "s2", "s1", "u2"},
			children: map[string][]string{"s1": {"a", "b"}, "s2": {"c"}},
		},
		{
			name:     "section to the front",
			move:     Move{Source: loc("sections", 1), Destination: loc("sections", 0)},
			topLevel: []string{"s2", "s1", "u1", "u2"},
			children: map[string][]string{"s1": {"a", "b"}, "s2": {"c"}},
		},
		{
			name:     "reorder within a section",
			move:     Move{Source: loc("section-s1", 0), Destination: loc("section-s1", 1)},
			topLevel: []string{"s1", "u1", "s2", "u2"},
			children: map[string][]string{"s1": {"b", "a"}, "s2": {"c"}},
		},
		{
			name:     "section child to another section",
			move:     Move{Source: loc("section-s1", 1), Destination: loc("section-s2", 0)},
			topLevel: []string{"s1", "u1", "s2", "u2"},
			children: map[string][]string{"s1": {"a"}, "s2": {"b", "c"}},
		},
		{
			name:     "section child to ungrouped end",
			move:     Move{Source: loc("section-s2", 0), Destination: loc("ungrouped-items", 2)},
			topLevel: []string{"s1", "u1", "s2", "u2", "c"},
			children: map[string][]string{"s1": {"a", "b"}, "s2": {}},
		},
		{
			name:     "ungrouped into a section",
			move:     Move{Source: loc("ungrouped-items", 1), Destination: loc("section-s1", 1)},
			topLevel: []string{"s1", "u1", "s2"},
			children: map[string][]string{"s1": {"a", "u2", "b"}, "s2": {"c"}},
		},
		{
			name:     "reorder ungrouped",
			move:     Move{Source: loc("ungrouped-items", 1), Destination: loc("ungrouped-items", 0)},
			topLevel: []string{"s1", "u2", "u1", "s2"},
			children: map[string][]string{"s1": {"a", "b"}, "s2": {"c"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			items := reorderFixture()
			got, ok := Reorder(items, tc.move)
			require.True(t, ok)
			assert.Equal(t, tc.topLevel, ids(got))
			for _, r := range got {
				if r.IsSection() {
					assert.Equal(t, tc.children[r.ID], ids(r.Children), r.ID)
				}
			}
			assert.Equal(t, countLeaves(items), countLeaves(got))
			assert.Equal(t, reorderFixture(), items, "input must not be modified")
		})
	}
}

func TestReorderRejectsInvalidMoves(t *testing.T) {
	tests := []struct {
		name string
		move Move
	}{
		{"unknown source section", Move{Source: loc("section-zz", 0), Destination: loc("ungrouped-items", 0)}},
		{"unknown destination section", Move{Source: loc("ungrouped-items", 0), Destination: loc("section-zz", 0)}},
		{"source index out of range", Move{Source: loc("section-s1", 5), Destination: loc("ungrouped-items", 0)}},
		{"negative index", Move{Source: loc("ungrouped-items", -1), Destination: loc("ungrouped-items", 0)}},
		{"destination past the end", Move{Source: loc("ungrouped-items", 0), Destination: loc("section-s2", 9)}},
		{"section into a section", Move{Source: loc("sections", 0), Destination: loc("section-s2", 0)}},
		{"item into the sections list", Move{Source: loc("ungrouped-items", 0), Destination: loc("sections", 0)}},
		{"zero container", Move{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			items := reorderFixture()
			got, ok := Reorder(items, tc.move)
			assert.False(t, ok)
			assert.Equal(t, reorderFixture(), got)
		})
	}
}

func TestTreeApplyMove(t *testing.T) {
	tree := newTestTree()
	require.NoError(t, tree.Replace(reorderFixture()))

	assert.True(t, tree.ApplyMove(Move{Source: loc("section-s1", 0), Destination: loc("ungrouped-items", 0)}))
	assert.False(t, tree.ApplyMove(Move{Source: loc("section-gone", 0), Destination: loc("ungrouped-items", 0)}))

	snap := tree.Snapshot()
	assert.Equal(t, []string{"s1", "a", "u1", "s2", "u2"}, ids(snap))
	assert.Equal(t, 5, tree.Len())
}
