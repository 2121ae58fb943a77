package assetmodel_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/adapterkit/assetmodel"
	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/kvstore"
	"github.com/c360/adapterkit/testutil"
)

func mustBuild(t *testing.T, b *assetmodel.Builder) assetmodel.Node {
	t.Helper()
	node, err := b.Build()
	require.NoError(t, err)
	return node
}

func addNode(t *testing.T, m *assetmodel.Manager, id, name, parent string) {
	t.Helper()
	node := mustBuild(t, assetmodel.NewNode(name).WithID(id).WithParent(parent))
	require.NoError(t, m.AddOrUpdate(context.Background(), node))
}

// checkHasChildren asserts the derivation invariant for every node: a node
// has children exactly when some other node references it as parent.
func checkHasChildren(t *testing.T, m *assetmodel.Manager) {
	t.Helper()
	ctx := context.Background()

	all, err := m.Search(ctx, "*", 1, 0)
	require.NoError(t, err)

	parents := make(map[string]bool)
	for _, n := range all {
		if n.ParentID != "" {
			parents[n.ParentID] = true
		}
	}
	for _, n := range all {
		assert.Equal(t, parents[n.ID], n.HasChildren, "HasChildren mismatch for %s", n.ID)
	}
}

func TestDeleteChildClearsParentFlag(t *testing.T) {
	ctx := context.Background()
	m := assetmodel.NewManager(kvstore.NewInMemory())

	addNode(t, m, "A", "plant", "")
	addNode(t, m, "B", "line-1", "A")

	a, ok, err := m.Get(ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, a.HasChildren)

	require.NoError(t, m.Delete(ctx, "B"))

	a, ok, err = m.Get(ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, a.HasChildren)

	_, ok, err = m.Get(ctx, "B")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecursiveDelete(t *testing.T) {
	ctx := context.Background()
	m := assetmodel.NewManager(kvstore.NewInMemory())

	addNode(t, m, "root", "site", "")
	addNode(t, m, "a", "area-a", "root")
	addNode(t, m, "a1", "unit-a1", "a")
	addNode(t, m, "a2", "unit-a2", "a")
	addNode(t, m, "b", "area-b", "root")

	require.NoError(t, m.Delete(ctx, "a"))

	count, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "a, a1 and a2 are all gone")

	for _, id := range []string{"a", "a1", "a2"} {
		_, ok, err := m.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, "%s should be deleted", id)
	}
	checkHasChildren(t, m)
}

func TestHasChildrenInvariantAcrossOperations(t *testing.T) {
	ctx := context.Background()
	m := assetmodel.NewManager(kvstore.NewInMemory())

	addNode(t, m, "r1", "root-1", "")
	checkHasChildren(t, m)
	addNode(t, m, "r2", "root-2", "")
	checkHasChildren(t, m)
	addNode(t, m, "c1", "child-1", "r1")
	checkHasChildren(t, m)
	addNode(t, m, "c2", "child-2", "r1")
	checkHasChildren(t, m)

	require.NoError(t, m.Move(ctx, "c1", "r2"))
	checkHasChildren(t, m)
	require.NoError(t, m.Move(ctx, "c2", "r2"))
	checkHasChildren(t, m)

	require.NoError(t, m.Delete(ctx, "c1"))
	checkHasChildren(t, m)
	require.NoError(t, m.Delete(ctx, "r2"))
	checkHasChildren(t, m)
}

func TestMoveToCurrentParentIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewCountingStore(nil)
	m := assetmodel.NewManager(store)

	addNode(t, m, "A", "plant", "")
	addNode(t, m, "B", "line", "A")

	before := store.Writes("nodes:B")
	require.NoError(t, m.Move(ctx, "B", "A"))
	assert.Equal(t, before, store.Writes("nodes:B"), "no-op move must not write")
}

func TestMoveRejectsCycles(t *testing.T) {
	ctx := context.Background()
	m := assetmodel.NewManager(kvstore.NewInMemory())

	addNode(t, m, "A", "grandparent", "")
	addNode(t, m, "B", "parent", "A")
	addNode(t, m, "C", "child", "B")

	err := m.Move(ctx, "A", "C")
	require.Error(t, err, "moving a node under its own descendant must fail")
	assert.True(t, errors.IsInvalid(err))

	err = m.Move(ctx, "A", "A")
	require.Error(t, err)

	// The forest is untouched.
	a, _, err := m.Get(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, a.ParentID)
	checkHasChildren(t, m)
}

func TestMoveRejectsUnknownParentAndNode(t *testing.T) {
	ctx := context.Background()
	m := assetmodel.NewManager(kvstore.NewInMemory())

	addNode(t, m, "A", "plant", "")

	require.Error(t, m.Move(ctx, "A", "ghost"))
	require.Error(t, m.Move(ctx, "ghost", "A"))
}

func TestAddRejectsUnknownParent(t *testing.T) {
	ctx := context.Background()
	m := assetmodel.NewManager(kvstore.NewInMemory())

	node := mustBuild(t, assetmodel.NewNode("orphan").WithID("x").WithParent("ghost"))
	err := m.AddOrUpdate(ctx, node)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestUpdateSkipsIndexWrite(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewCountingStore(nil)
	m := assetmodel.NewManager(store)

	addNode(t, m, "A", "plant", "")
	assert.Equal(t, 1, store.Writes("nodes"))

	node := mustBuild(t, assetmodel.NewNode("plant-renamed").WithID("A"))
	require.NoError(t, m.AddOrUpdate(ctx, node))
	assert.Equal(t, 1, store.Writes("nodes"), "pure value update must not rewrite the index")

	require.NoError(t, m.Delete(ctx, "A"))
	assert.Equal(t, 2, store.Writes("nodes"))
}

func TestUpdatePreservesChildrenFlag(t *testing.T) {
	ctx := context.Background()
	m := assetmodel.NewManager(kvstore.NewInMemory())

	addNode(t, m, "A", "plant", "")
	addNode(t, m, "B", "line", "A")

	// Whole-definition replace must re-derive, not trust, HasChildren.
	node := mustBuild(t, assetmodel.NewNode("plant-2").WithID("A"))
	require.NoError(t, m.AddOrUpdate(ctx, node))

	a, _, err := m.Get(ctx, "A")
	require.NoError(t, err)
	assert.True(t, a.HasChildren)
	checkHasChildren(t, m)
}

func TestReparentThroughUpdate(t *testing.T) {
	ctx := context.Background()
	m := assetmodel.NewManager(kvstore.NewInMemory())

	addNode(t, m, "A", "old-parent", "")
	addNode(t, m, "B", "new-parent", "")
	addNode(t, m, "C", "child", "A")

	node := mustBuild(t, assetmodel.NewNode("child").WithID("C").WithParent("B"))
	require.NoError(t, m.AddOrUpdate(ctx, node))
	checkHasChildren(t, m)

	// Update reparenting is subject to the cycle check too.
	cyclic := mustBuild(t, assetmodel.NewNode("new-parent").WithID("B").WithParent("C"))
	require.Error(t, m.AddOrUpdate(ctx, cyclic))
}

func TestBrowseChildrenPaged(t *testing.T) {
	ctx := context.Background()
	m := assetmodel.NewManager(kvstore.NewInMemory())

	addNode(t, m, "root", "site", "")
	for i := range 5 {
		addNode(t, m, fmt.Sprintf("c%d", i), fmt.Sprintf("unit-%d", i), "root")
	}

	roots, err := m.GetRoots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "root", roots[0].ID)

	page1, err := m.GetChildren(ctx, "root", 1, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "unit-0", page1[0].Name)
	assert.Equal(t, "unit-1", page1[1].Name)

	page3, err := m.GetChildren(ctx, "root", 3, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "unit-4", page3[0].Name)
}

func TestRebuildRederivesFlags(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewInMemory()

	m := assetmodel.NewManager(store)
	addNode(t, m, "A", "plant", "")
	addNode(t, m, "B", "line", "A")

	// Simulate a crash that lost B's record but left it listed: the rebuild
	// skips the orphan and must clear A's stale flag in memory.
	require.NoError(t, store.Delete(ctx, "nodes:B"))

	m2 := assetmodel.NewManager(store)
	a, ok, err := m2.Get(ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, a.HasChildren)
}

func TestBuilderValidation(t *testing.T) {
	_, err := assetmodel.NewNode("").Build()
	require.Error(t, err)

	_, err = assetmodel.NewNode("self").WithID("x").WithParent("x").Build()
	require.Error(t, err)

	node, err := assetmodel.NewNode("ok").WithTag("t1").WithProperty("k", "v").Build()
	require.NoError(t, err)
	assert.NotEmpty(t, node.ID)
	assert.Equal(t, "t1", node.TagID)
	assert.False(t, node.HasChildren)
}
