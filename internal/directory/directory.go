// Package directory resolves Cachet component names to component ids.
package directory

import (
	"context"
	"log/slog"

	"statuspage-sync/internal/cachet"
)

type ComponentLister interface {
	ListComponents(ctx context.Context, pageSize int) ([]cachet.Component, error)
}

// Directory builds a fresh name index from the store on every Refresh. It
// holds no cache between calls, so concurrent callers never share state.
type Directory struct {
	lister   ComponentLister
	pageSize int
	logger   *slog.Logger
}

func New(lister ComponentLister, pageSize int, logger *slog.Logger) *Directory {
	if pageSize <= 0 {
		pageSize = cachet.DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{lister: lister, pageSize: pageSize, logger: logger}
}

// Refresh lists every component in one page and indexes it by name. A failed
// listing is logged and yields an empty index; callers then see every lookup
// as not found instead of an error.
func (d *Directory) Refresh(ctx context.Context) Index {
	components, err := d.lister.ListComponents(ctx, d.pageSize)
	if err != nil {
		d.logger.Error("failed to list components", slog.String("error", err.Error()))
		return Index{}
	}
	return NewIndex(components)
}

// Index maps a case-sensitive component name to its id.
type Index map[string]int

// NewIndex keeps the last id seen for a duplicated name.
func NewIndex(components []cachet.Component) Index {
	idx := make(Index, len(components))
	for _, c := range components {
		idx[c.Name] = c.ID
	}
	return idx
}

func (idx Index) Lookup(name string) (int, bool) {
	id, ok := idx[name]
	return id, ok
}
