package tags_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/kvstore"
	"github.com/c360/adapterkit/tags"
	"github.com/c360/adapterkit/testutil"
)

func mustBuild(t *testing.T, b *tags.Builder) tags.Definition {
	t.Helper()
	def, err := b.Build()
	require.NoError(t, err)
	return def
}

func TestAddOrUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := tags.NewManager(kvstore.NewInMemory())

	def := mustBuild(t, tags.NewDefinition("Temp").
		WithID("t1").
		WithDescription("boiler temperature").
		WithDataType(tags.DataTypeFloat).
		WithProperty("unit", "celsius").
		WithSnapshotRead())

	require.NoError(t, m.AddOrUpdate(ctx, def))

	got, ok, err := m.Get(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, def, got)

	require.NoError(t, m.Delete(ctx, "t1"))
	_, ok, err = m.Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetTagsResolvesByName(t *testing.T) {
	ctx := context.Background()
	m := tags.NewManager(kvstore.NewInMemory())

	def := mustBuild(t, tags.NewDefinition("Temp").WithID("t1"))
	require.NoError(t, m.AddOrUpdate(ctx, def))

	// A name reference resolves even though the request did not use the ID.
	got, err := m.GetTags(ctx, []string{"Temp"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)

	// Case-insensitive, mixed ID/name, unknowns skipped.
	got, err = m.GetTags(ctx, []string{"t1", "TEMP", "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestUpdateSkipsIndexWrite(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewCountingStore(nil)
	m := tags.NewManager(store)

	def := mustBuild(t, tags.NewDefinition("Temp").WithID("t1"))
	require.NoError(t, m.AddOrUpdate(ctx, def))
	assert.Equal(t, 1, store.Writes("tags"), "first add must write the index")

	def.Description = "updated"
	require.NoError(t, m.AddOrUpdate(ctx, def))
	assert.Equal(t, 1, store.Writes("tags"), "pure value update must not rewrite the index")
	assert.Equal(t, 2, store.Writes("tags:t1"))

	require.NoError(t, m.Delete(ctx, "t1"))
	assert.Equal(t, 2, store.Writes("tags"), "delete must rewrite the index")
}

func TestRenameUpdatesNameLookup(t *testing.T) {
	ctx := context.Background()
	m := tags.NewManager(kvstore.NewInMemory())

	def := mustBuild(t, tags.NewDefinition("Temp").WithID("t1"))
	require.NoError(t, m.AddOrUpdate(ctx, def))

	def.Name = "Pressure"
	require.NoError(t, m.AddOrUpdate(ctx, def))

	_, ok, err := m.GetByName(ctx, "Temp")
	require.NoError(t, err)
	assert.False(t, ok, "old name must stop resolving")

	got, ok, err := m.GetByName(ctx, "pressure")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t1", got.ID)
}

func TestRebuildFromStore(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewInMemory()

	m := tags.NewManager(store)
	for i := range 3 {
		def := mustBuild(t, tags.NewDefinition(fmt.Sprintf("tag-%d", i)).WithID(fmt.Sprintf("t%d", i)))
		require.NoError(t, m.AddOrUpdate(ctx, def))
	}

	// A fresh manager over the same store lazily rebuilds the index.
	m2 := tags.NewManager(store)
	count, err := m2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	got, ok, err := m2.GetByName(ctx, "tag-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t1", got.ID)
}

func TestRebuildSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewInMemory()

	m := tags.NewManager(store)
	require.NoError(t, m.AddOrUpdate(ctx, mustBuild(t, tags.NewDefinition("good").WithID("g1"))))

	// Corrupt one record and list an orphan ID that has no record at all.
	require.NoError(t, store.Write(ctx, "tags:bad", []byte("{not json")))
	require.NoError(t, kvstore.WriteJSON(ctx, store, "tags", []string{"g1", "bad", "orphan"}))

	m2 := tags.NewManager(store)
	count, err := m2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "corrupt and orphaned records are skipped")
}

func TestInitFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewCountingStore(nil)
	m := tags.NewManager(store)

	store.FailReads(errors.ErrStorageUnavailable)
	_, err := m.Count(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))

	// The failure must not be cached: the next call retries the rebuild.
	store.FailReads(nil)
	count, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSearchPagingAndOrdering(t *testing.T) {
	ctx := context.Background()
	m := tags.NewManager(kvstore.NewInMemory())

	names := []string{"pump-3", "Pump-1", "pump-2", "valve-1"}
	for i, name := range names {
		def := mustBuild(t, tags.NewDefinition(name).WithID(fmt.Sprintf("id%d", i)))
		require.NoError(t, m.AddOrUpdate(ctx, def))
	}

	all, err := m.Search(ctx, "pump*", 1, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Pump-1", all[0].Name)
	assert.Equal(t, "pump-2", all[1].Name)
	assert.Equal(t, "pump-3", all[2].Name)

	page2, err := m.Search(ctx, "pump*", 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "pump-3", page2[0].Name)

	empty, err := m.Search(ctx, "pump*", 5, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = m.Search(ctx, "pump*", 0, 2)
	require.Error(t, err)
}

func TestSearchMatchesDescription(t *testing.T) {
	ctx := context.Background()
	m := tags.NewManager(kvstore.NewInMemory())

	def := mustBuild(t, tags.NewDefinition("T100").WithID("t100").WithDescription("inlet flow meter"))
	require.NoError(t, m.AddOrUpdate(ctx, def))

	got, err := m.Search(ctx, "*flow*", 1, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t100", got[0].ID)
}

func TestOnChangeNotifications(t *testing.T) {
	ctx := context.Background()
	m := tags.NewManager(kvstore.NewInMemory())

	type change struct {
		op tags.ChangeOp
		id string
	}
	var changes []change
	m.OnChange(func(op tags.ChangeOp, def tags.Definition) {
		changes = append(changes, change{op, def.ID})
	})

	def := mustBuild(t, tags.NewDefinition("Temp").WithID("t1"))
	require.NoError(t, m.AddOrUpdate(ctx, def))
	require.NoError(t, m.AddOrUpdate(ctx, def))
	require.NoError(t, m.Delete(ctx, "t1"))
	require.NoError(t, m.Delete(ctx, "t1"), "deleting an unknown ID is a no-op")

	require.Len(t, changes, 3)
	assert.Equal(t, change{tags.OpAdded, "t1"}, changes[0])
	assert.Equal(t, change{tags.OpUpdated, "t1"}, changes[1])
	assert.Equal(t, change{tags.OpDeleted, "t1"}, changes[2])
}

func TestReturnedDefinitionsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := tags.NewManager(kvstore.NewInMemory())

	def := mustBuild(t, tags.NewDefinition("Temp").WithID("t1").WithProperty("unit", "C"))
	require.NoError(t, m.AddOrUpdate(ctx, def))

	got, ok, err := m.Get(ctx, "t1")
	require.NoError(t, err)
	require.True(t, ok)
	got.Properties[0].Value = "mutated"

	again, _, err := m.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "C", again.Properties[0].Value)
}

func TestBuilderValidation(t *testing.T) {
	_, err := tags.NewDefinition("").Build()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = tags.NewDefinition("ok").WithDataType(tags.DataType("blob")).Build()
	require.Error(t, err)

	def, err := tags.NewDefinition("ok").Build()
	require.NoError(t, err)
	assert.NotEmpty(t, def.ID, "ID is generated when omitted")
}
