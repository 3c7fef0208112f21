package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-tagger/geometry"
)

func TestResolverCommitsWithoutOverlap(t *testing.T) {
	tree := newTestTree()
	res := NewResolver(tree)

	out, err := res.Submit(textRegion("a", 1, 0, 0, 50, 50))
	require.NoError(t, err)
	require.NotNil(t, out.Committed)
	assert.Nil(t, out.Decision)

	// same spot on another page does not conflict
	out, err = res.Submit(textRegion("b", 2, 0, 0, 50, 50))
	require.NoError(t, err)
	require.NotNil(t, out.Committed)

	// two pixels away clears the one pixel buffer
	out, err = res.Submit(textRegion("c", 1, 52, 0, 50, 50))
	require.NoError(t, err)
	require.NotNil(t, out.Committed)
	assert.Equal(t, 3, tree.Len())
}

func TestResolverTouchingEdgesConflict(t *testing.T) {
	tree := newTestTree()
	res := NewResolver(tree)
	_, err := res.Submit(textRegion("a", 1, 0, 0, 50, 50))
	require.NoError(t, err)

	out, err := res.Submit(textRegion("b", 1, 50, 0, 50, 50))
	require.NoError(t, err)
	assert.NotNil(t, out.Decision)
}

func TestResolverResolutions(t *testing.T) {
	first := textRegion("first", 1, 0, 0, 50, 50)
	second := textRegion("second", 1, 40, 0, 50, 50)

	tests := []struct {
		name       string
		resolution Resolution
		check      func(t *testing.T, tree *Tree, out Outcome)
	}{
		{
			name:       "replace keeps only the new box",
			resolution: ResolutionReplace,
			check: func(t *testing.T, tree *Tree, out Outcome) {
				snap := tree.Snapshot()
				assert.Equal(t, []string{"second"}, ids(snap))
				assert.Equal(t, []string{"first"}, out.Removed)
			},
		},
		{
			name:       "add anyway keeps both",
			resolution: ResolutionAddAnyway,
			check: func(t *testing.T, tree *Tree, out Outcome) {
				assert.Equal(t, []string{"first", "second"}, ids(tree.Snapshot()))
			},
		},
		{
			name:       "cancel discards the candidate",
			resolution: ResolutionCancel,
			check: func(t *testing.T, tree *Tree, out Outcome) {
				assert.Nil(t, out.Committed)
				assert.Equal(t, []string{"first"}, ids(tree.Snapshot()))
			},
		},
		{
			name:       "merge unions the geometry",
			resolution: ResolutionMerge,
			check: func(t *testing.T, tree *Tree, out Outcome) {
				snap := tree.Snapshot()
				require.Len(t, snap, 1)
				merged := snap[0]
				assert.Equal(t, KindMerged, merged.Kind)
				assert.Equal(t, geometry.Box{X: 0, Y: 0, Width: 90, Height: 50}, merged.Box)
				assert.Equal(t, "Merged: first + second", merged.Label)
				assert.Equal(t, TagParagraph, merged.SemanticTag)
				assert.Equal(t, []string{"first"}, merged.MergedFrom)
				assert.NotEqual(t, "second", merged.ID)
				assert.NotEqual(t, "first", merged.ID)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tree := newTestTree()
			res := NewResolver(tree)

			_, err := res.Submit(first)
			require.NoError(t, err)

			out, err := res.Submit(second)
			require.NoError(t, err)
			require.Nil(t, out.Committed, "an overlapping candidate must not be committed before a decision")
			require.NotNil(t, out.Decision)
			assert.Equal(t, []string{"first"}, ids(out.Decision.Overlapping))
			assert.Equal(t, 1, tree.Len())

			out, err = res.Resolve(out.Decision.ID, tc.resolution)
			require.NoError(t, err)
			tc.check(t, tree, out)

			_, pending := res.Pending()
			assert.False(t, pending)
		})
	}
}

func TestResolverMergeManyLabel(t *testing.T) {
	tree := newTestTree()
	res := NewResolver(tree)
	for _, r := range []Region{
		textRegion("a", 1, 0, 0, 20, 20),
		textRegion("b", 1, 40, 0, 20, 20),
	} {
		_, err := res.Submit(r)
		require.NoError(t, err)
	}

	out, err := res.Submit(textRegion("wide", 1, 10, 5, 40, 10))
	require.NoError(t, err)
	require.NotNil(t, out.Decision)

	out, err = res.Resolve(out.Decision.ID, ResolutionMerge)
	require.NoError(t, err)
	assert.Equal(t, "Merged 3 elements", out.Committed.Label)
	assert.Equal(t, geometry.Box{X: 0, Y: 0, Width: 60, Height: 20}, out.Committed.Box)
	assert.ElementsMatch(t, []string{"a", "b"}, out.Removed)
	assert.Equal(t, 1, tree.Len())
}

func TestResolverBlocksWhilePending(t *testing.T) {
	tree := newTestTree()
	res := NewResolver(tree)
	_, err := res.Submit(textRegion("a", 1, 0, 0, 50, 50))
	require.NoError(t, err)
	out, err := res.Submit(textRegion("b", 1, 10, 10, 50, 50))
	require.NoError(t, err)
	require.NotNil(t, out.Decision)

	_, err = res.Submit(textRegion("c", 1, 300, 300, 10, 10))
	assert.ErrorIs(t, err, ErrDecisionPending)

	_, err = res.Resolve("not-the-decision", ResolutionCancel)
	assert.ErrorIs(t, err, ErrNoDecision)

	pending, ok := res.Pending()
	require.True(t, ok)
	assert.Equal(t, out.Decision.ID, pending.ID)

	_, err = res.Resolve(pending.ID, ResolutionCancel)
	require.NoError(t, err)
	_, err = res.Resolve(pending.ID, ResolutionCancel)
	assert.ErrorIs(t, err, ErrNoDecision)
}

func TestResolverIgnoresSectionChildren(t *testing.T) {
	tree := newTestTree()
	require.NoError(t, tree.Replace([]Region{{
		ID: "s1", Kind: KindSection, Label: "Body",
		Children: []Region{textRegion("child", 1, 0, 0, 50, 50)},
	}}))
	res := NewResolver(tree)

	out, err := res.Submit(textRegion("new", 1, 300, 300, 10, 10))
	require.NoError(t, err)
	assert.NotNil(t, out.Committed)

	out, err = res.Submit(textRegion("over-child", 1, 10, 10, 10, 10))
	require.NoError(t, err)
	assert.NotNil(t, out.Committed)
}

func TestResolverRejectsDegenerate(t *testing.T) {
	res := NewResolver(newTestTree())
	_, err := res.Submit(textRegion("flat", 1, 0, 0, 10, 0))
	assert.ErrorIs(t, err, ErrDegenerate)
	_, pending := res.Pending()
	assert.False(t, pending)
}

func TestResolverDiscard(t *testing.T) {
	tree := newTestTree()
	res := NewResolver(tree)
	_, err := res.Submit(textRegion("a", 1, 0, 0, 50, 50))
	require.NoError(t, err)
	out, err := res.Submit(textRegion("b", 1, 10, 10, 50, 50))
	require.NoError(t, err)
	require.NotNil(t, out.Decision)

	assert.True(t, res.Discard())
	assert.False(t, res.Discard())
	_, pending := res.Pending()
	assert.False(t, pending)
	assert.Equal(t, 1, tree.Len())

	out, err = res.Submit(textRegion("c", 2, 0, 0, 10, 10))
	require.NoError(t, err)
	assert.NotNil(t, out.Committed)
}

func TestResolverRejectsTakenID(t *testing.T) {
	tree := newTestTree()
	res := NewResolver(tree)
	_, err := tree.AddRegion(textRegion("a", 1, 0, 0, 50, 50))
	require.NoError(t, err)
	_, err = tree.AddRegion(textRegion("far", 1, 300, 300, 20, 20))
	require.NoError(t, err)

	_, err = res.Submit(textRegion("far", 1, 40, 0, 50, 50))
	assert.ErrorIs(t, err, ErrDuplicateID)
	_, pending := res.Pending()
	assert.False(t, pending)
	assert.Equal(t, []string{"a", "far"}, ids(tree.Snapshot()))
}

func TestResolverFailedCommitLeavesTree(t *testing.T) {
	tests := []struct {
		name       string
		resolution Resolution
		// setup runs between Submit and Resolve and must make the commit fail
		setup func(t *testing.T, tree *Tree)
		want  []string
	}{
		{
			name:       "replace with a candidate id claimed meanwhile",
			resolution: ResolutionReplace,
			setup: func(t *testing.T, tree *Tree) {
				_, err := tree.AddRegion(textRegion("second", 1, 300, 300, 20, 20))
				require.NoError(t, err)
			},
			want: []string{"taken", "first", "second"},
		},
		{
			name:       "merge into an id that is already in use",
			resolution: ResolutionMerge,
			setup:      func(t *testing.T, tree *Tree) {},
			want:       []string{"taken", "first"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seq := sequentialIDs()
			tree := NewTree(WithIDGenerator(func(kind Kind) string {
				if kind == KindMerged {
					return "taken"
				}
				return seq(kind)
			}))
			res := NewResolver(tree)
			_, err := tree.AddRegion(textRegion("taken", 1, 400, 400, 10, 10))
			require.NoError(t, err)
			_, err = tree.AddRegion(textRegion("first", 1, 0, 0, 50, 50))
			require.NoError(t, err)

			out, err := res.Submit(textRegion("second", 1, 40, 0, 50, 50))
			require.NoError(t, err)
			require.NotNil(t, out.Decision)
			tc.setup(t, tree)

			out, err = res.Resolve(out.Decision.ID, tc.resolution)
			assert.ErrorIs(t, err, ErrDuplicateID)
			assert.Nil(t, out.Committed)
			assert.Empty(t, out.Removed)
			assert.Equal(t, tc.want, ids(tree.Snapshot()))
			_, pending := res.Pending()
			assert.False(t, pending)
			assert.NoError(t, ValidateTree(tree.Snapshot()))
		})
	}
}
