package listing

import (
	"context"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/query"
)

// Lister is the subset of the catalog API the list reads from.
type Lister interface {
	ListMovies(ctx context.Context, params catalog.ListParams) (catalog.Page, error)
}

// Load reads the page for s through c and feeds its pagination back into the
// controller, so the page stays inside the server's page count.
func (c *Controller) Load(ctx context.Context, cache *query.Cache, api Lister) (catalog.Page, error) {
	st := c.State()
	page, err := query.Get(ctx, cache, KeyFor(st), fetcher(api, st))
	if err != nil {
		return catalog.Page{}, err
	}
	c.ApplyMeta(page.Meta)
	return page, nil
}

// Mount keeps the entry for s live until the returned func is called.
func Mount(cache *query.Cache, api Lister, s State) func() {
	return query.Mount(cache, KeyFor(s), fetcher(api, s))
}

func fetcher(api Lister, s State) func(context.Context) (catalog.Page, error) {
	params := ParamsFor(s)
	return func(ctx context.Context) (catalog.Page, error) {
		return api.ListMovies(ctx, params)
	}
}
