package tracetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spans(pairs ...string) []*Span {
	var out []*Span
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, &Span{ID: pairs[i], ParentID: pairs[i+1], Status: StatusRunning})
	}
	return out
}

func ids(list []*Span) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.ID)
	}
	return out
}

func TestBuildForest_ChildrenInInsertionOrder(t *testing.T) {
	roots, stats := BuildForest(spans(
		"root", "",
		"c2", "root",
		"c1", "root",
		"g", "c1",
		"c3", "root",
	))

	require.Len(t, roots, 1)
	assert.Equal(t, []string{"c2", "c1", "c3"}, ids(roots[0].Children))
	assert.Equal(t, []string{"g"}, ids(roots[0].Children[1].Children))
	assert.Equal(t, ForestStats{}, stats)
}

func TestBuildForest_DoesNotMutateInput(t *testing.T) {
	in := spans("a", "", "b", "a")

	roots, _ := BuildForest(in)

	assert.Nil(t, in[0].Children)
	assert.NotSame(t, in[0], roots[0])
	assert.Equal(t, 1, roots[0].Children[0].Index())
}

func TestBuildForest_Cycles(t *testing.T) {
	t.Run("two-span loop", func(t *testing.T) {
		roots, stats := BuildForest(spans("a", "b", "b", "a"))

		require.Len(t, roots, 1)
		assert.Equal(t, "a", roots[0].ID)
		assert.Equal(t, []string{"b"}, ids(roots[0].Children))
		assert.Equal(t, 1, stats.CyclesBroken)
	})

	t.Run("self parent", func(t *testing.T) {
		roots, stats := BuildForest(spans("a", "a", "b", "a"))

		require.Len(t, roots, 1)
		assert.Equal(t, []string{"b"}, ids(roots[0].Children))
		assert.Equal(t, 1, stats.CyclesBroken)
	})

	t.Run("tail hanging off a loop", func(t *testing.T) {
		roots, stats := BuildForest(spans(
			"ok", "",
			"tail", "x",
			"x", "y",
			"y", "z",
			"z", "x",
		))

		assert.Equal(t, []string{"ok", "x"}, ids(roots))
		assert.Equal(t, 1, stats.CyclesBroken)

		count := 0
		res := &Result{RootSpans: roots}
		res.Walk(func(*Span, int) bool {
			count++
			return true
		})
		assert.Equal(t, 5, count)
	})

	t.Run("two separate loops", func(t *testing.T) {
		roots, stats := BuildForest(spans("a", "b", "b", "a", "c", "d", "d", "c"))

		assert.Equal(t, []string{"a", "c"}, ids(roots))
		assert.Equal(t, 2, stats.CyclesBroken)
	})
}

func TestBuildForest_OrphansPromoted(t *testing.T) {
	roots, stats := BuildForest(spans("a", "gone", "b", "", "c", "gone"))

	assert.Equal(t, []string{"a", "b", "c"}, ids(roots))
	assert.Equal(t, 2, stats.OrphansPromoted)
}
