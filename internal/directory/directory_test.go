package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"statuspage-sync/internal/cachet"
)

type fakeLister struct {
	components []cachet.Component
	err        error
	pageSizes  []int
}

func (f *fakeLister) ListComponents(ctx context.Context, pageSize int) ([]cachet.Component, error) {
	f.pageSizes = append(f.pageSizes, pageSize)
	return f.components, f.err
}

func TestLookupIsCaseSensitive(t *testing.T) {
	dir := New(&fakeLister{components: []cachet.Component{{ID: 42, Name: "Inventory"}}}, 0, nil)
	idx := dir.Refresh(context.Background())

	id, ok := idx.Lookup("Inventory")
	require.True(t, ok)
	require.Equal(t, 42, id)

	_, ok = idx.Lookup("inventory")
	require.False(t, ok)
}

func TestRefreshRequestsSinglePage(t *testing.T) {
	lister := &fakeLister{}
	New(lister, 0, nil).Refresh(context.Background())
	New(lister, 250, nil).Refresh(context.Background())
	require.Equal(t, []int{cachet.DefaultPageSize, 250}, lister.pageSizes)
}

func TestRefreshFailureIsEmptyIndex(t *testing.T) {
	dir := New(&fakeLister{err: cachet.ErrStoreUnavailable}, 0, nil)
	idx := dir.Refresh(context.Background())
	require.Empty(t, idx)
	_, ok := idx.Lookup("Drift")
	require.False(t, ok)
}

func TestDuplicateNamesKeepLastID(t *testing.T) {
	idx := NewIndex([]cachet.Component{{ID: 1, Name: "Echo"}, {ID: 2, Name: "Echo"}})
	id, ok := idx.Lookup("Echo")
	require.True(t, ok)
	require.Equal(t, 2, id)
}

func TestRefreshRebuildsEveryCall(t *testing.T) {
	lister := &fakeLister{components: []cachet.Component{{ID: 1, Name: "Drift"}}}
	dir := New(lister, 0, nil)
	first := dir.Refresh(context.Background())

	lister.components = nil
	lister.err = errors.New("connection refused")
	second := dir.Refresh(context.Background())

	_, ok := first.Lookup("Drift")
	require.True(t, ok)
	_, ok = second.Lookup("Drift")
	require.False(t, ok)
}
