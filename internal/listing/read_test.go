package listing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/catalog/catalogtest"
	"github.com/five82/marquee/internal/listing"
	"github.com/five82/marquee/internal/query"
)

func TestLoad_AppliesServerPagination(t *testing.T) {
	srv := catalogtest.New(t)
	for i := range 25 {
		srv.Seed(catalog.Movie{Title: "Movie " + string(rune('A'+i))})
	}
	client, err := catalog.NewClient(srv.APIURL())
	require.NoError(t, err)
	cache := query.New(query.Options{RetryDelay: time.Millisecond})
	defer cache.Close()

	c := listing.New()
	page, err := c.Load(context.Background(), cache, client)
	require.NoError(t, err)
	assert.Len(t, page.Movies, 10)
	assert.Equal(t, 3, c.State().TotalPages)

	c.LastPage()
	page, err = c.Load(context.Background(), cache, client)
	require.NoError(t, err)
	assert.Len(t, page.Movies, 5)
	assert.Equal(t, 2, srv.Hits(catalogtest.RouteListMovies))

	c.FirstPage()
	_, err = c.Load(context.Background(), cache, client)
	require.NoError(t, err)
	assert.Equal(t, 2, srv.Hits(catalogtest.RouteListMovies), "first page is still fresh")
}
