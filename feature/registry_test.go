package feature_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/adapterkit/errors"
	"github.com/c360/adapterkit/feature"
	"github.com/c360/adapterkit/stream"
	"github.com/c360/adapterkit/tags"
)

type stubTagSearch struct {
	searchCalls int
	getCalls    int
}

func (s *stubTagSearch) SearchTags(context.Context, string, int, int) (*stream.Queue[tags.Definition], error) {
	s.searchCalls++
	return stream.FromSlice([]tags.Definition{}), nil
}

func (s *stubTagSearch) GetTags(context.Context, []string) (*stream.Queue[tags.Definition], error) {
	s.getCalls++
	return stream.FromSlice([]tags.Definition{}), nil
}

type stubSnapshotRead struct{}

func (s *stubSnapshotRead) ReadSnapshots(context.Context, []string) (*stream.Queue[tags.Value], error) {
	return stream.FromSlice([]tags.Value{}), nil
}

// multiCapability satisfies two standard capabilities with one object.
type multiCapability struct {
	stubTagSearch
	stubSnapshotRead
}

func TestRegisterAndGet(t *testing.T) {
	r := feature.NewRegistry()
	impl := &stubTagSearch{}

	require.NoError(t, r.Register(feature.StandardDescriptor(feature.URITagSearch), impl))

	got, ok := r.Get(feature.URITagSearch)
	require.True(t, ok)
	assert.Same(t, impl, got)

	_, ok = r.Get(feature.URISnapshotRead)
	assert.False(t, ok)
}

func TestRegisterLastWriteWins(t *testing.T) {
	r := feature.NewRegistry()
	first := &stubTagSearch{}
	second := &stubTagSearch{}

	require.NoError(t, r.Register(feature.StandardDescriptor(feature.URITagSearch), first))
	require.NoError(t, r.Register(feature.StandardDescriptor(feature.URITagSearch), second))

	got, ok := r.Get(feature.URITagSearch)
	require.True(t, ok)
	assert.Same(t, second, got, "second registration replaces the first")
	assert.Len(t, r.URIs(), 1, "never a set containing both")
}

func TestRegisterRejectsNonImplementingObject(t *testing.T) {
	r := feature.NewRegistry()

	// A SnapshotRead-only object under the tag-search URI must fail at
	// registration time, not at call time.
	err := r.Register(feature.StandardDescriptor(feature.URITagSearch), &stubSnapshotRead{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrFeatureUnsupported)

	_, ok := r.Get(feature.URITagSearch)
	assert.False(t, ok)
}

func TestRegisterCapabilityCheckMatrix(t *testing.T) {
	impls := map[string]any{
		"tagSearch":    &stubTagSearch{},
		"snapshotRead": &stubSnapshotRead{},
	}
	satisfies := map[string]map[feature.URI]bool{
		"tagSearch":    {feature.URITagSearch: true, feature.URISnapshotRead: false},
		"snapshotRead": {feature.URITagSearch: false, feature.URISnapshotRead: true},
	}

	for name, impl := range impls {
		for uri, want := range satisfies[name] {
			r := feature.NewRegistry()
			err := r.Register(feature.StandardDescriptor(uri), impl)
			if want {
				assert.NoError(t, err, "%s under %s", name, uri)
			} else {
				assert.Error(t, err, "%s under %s", name, uri)
			}
		}
	}
}

func TestRegisterOneObjectUnderManyIdentities(t *testing.T) {
	r := feature.NewRegistry()
	impl := &multiCapability{}

	require.NoError(t, r.Register(feature.StandardDescriptor(feature.URITagSearch), impl))
	require.NoError(t, r.Register(feature.StandardDescriptor(feature.URISnapshotRead), impl))

	got1, _ := r.Get(feature.URITagSearch)
	got2, _ := r.Get(feature.URISnapshotRead)
	assert.Same(t, got1, got2)
}

func TestRegisterValidation(t *testing.T) {
	r := feature.NewRegistry()

	require.Error(t, r.Register(feature.Descriptor{}, &stubTagSearch{}))
	require.Error(t, r.Register(feature.StandardDescriptor(feature.URITagSearch), nil))
	require.Error(t, r.Register(feature.Descriptor{URI: "x://y", Kind: feature.KindStandard}, &stubTagSearch{}),
		"unknown standard URI is rejected")
}

func TestTryResolveByName(t *testing.T) {
	r := feature.NewRegistry()
	builtin := &stubTagSearch{}
	require.NoError(t, r.Register(feature.StandardDescriptor(feature.URITagSearch), builtin))

	ext, err := feature.NewExtension("vendor://features/tag-search", "tag-search", "clashing extension")
	require.NoError(t, err)
	require.NoError(t, ext.AddOperation(feature.OperationDescriptor{Name: "noop"},
		func(context.Context, []byte) ([]byte, error) { return nil, nil }))
	require.NoError(t, r.RegisterExtension(ext))

	// Short name: the built-in wins over the same-named extension.
	desc, impl, ok := r.TryResolveByName("tag-search")
	require.True(t, ok)
	assert.Equal(t, feature.URITagSearch, desc.URI)
	assert.Same(t, builtin, impl)

	// The fully-qualified URI still reaches the extension.
	desc, impl, ok = r.TryResolveByName("vendor://features/tag-search")
	require.True(t, ok)
	assert.Equal(t, feature.KindExtension, desc.Kind)
	assert.Same(t, ext, impl)

	_, _, ok = r.TryResolveByName("no-such-feature")
	assert.False(t, ok)
}

func TestDescriptors(t *testing.T) {
	r := feature.NewRegistry()
	require.NoError(t, r.Register(feature.StandardDescriptor(feature.URISnapshotRead), &stubSnapshotRead{}))
	require.NoError(t, r.Register(feature.StandardDescriptor(feature.URITagSearch), &stubTagSearch{}))

	descs := r.Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, feature.URISnapshotRead, descs[0].URI, "ordered by URI")
	assert.Equal(t, feature.URITagSearch, descs[1].URI)
}
