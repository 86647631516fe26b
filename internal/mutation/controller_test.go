package mutation_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/catalog/catalogtest"
	"github.com/five82/marquee/internal/listing"
	"github.com/five82/marquee/internal/mutation"
	"github.com/five82/marquee/internal/notify"
	"github.com/five82/marquee/internal/query"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

type recordingCache struct {
	*query.Cache
	mu    sync.Mutex
	calls [][]query.Family
}

func (r *recordingCache) Invalidate(families ...query.Family) {
	r.mu.Lock()
	r.calls = append(r.calls, families)
	r.mu.Unlock()
	r.Cache.Invalidate(families...)
}

func (r *recordingCache) invalidated() [][]query.Family {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]query.Family(nil), r.calls...)
}

type harness struct {
	srv    *catalogtest.Server
	client *catalog.Client
	cache  *recordingCache
	notes  *notify.Center
	fs     afero.Fs
	ctl    *mutation.Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := catalogtest.New(t)
	client, err := catalog.NewClient(srv.APIURL())
	require.NoError(t, err)
	cache := &recordingCache{Cache: query.New(query.Options{RetryDelay: time.Millisecond})}
	t.Cleanup(cache.Close)
	notes := notify.NewCenter()
	fs := afero.NewMemMapFs()
	return &harness{
		srv:    srv,
		client: client,
		cache:  cache,
		notes:  notes,
		fs:     fs,
		ctl:    mutation.New(client, cache, notes, mutation.WithFs(fs)),
	}
}

func (h *harness) lastNote(t *testing.T) notify.Note {
	t.Helper()
	n, ok := h.notes.Latest(time.Now())
	require.True(t, ok, "expected a notification")
	return n
}

func (h *harness) listFetch(params catalog.ListParams) func(context.Context) (catalog.Page, error) {
	return func(ctx context.Context) (catalog.Page, error) {
		return h.client.ListMovies(ctx, params)
	}
}

func TestCreate_RefetchedListShowsNewMovieFirst(t *testing.T) {
	h := newHarness(t)
	h.srv.Seed(catalog.Movie{Title: "Older"}, catalog.Movie{Title: "Old"})
	ctx := context.Background()

	list := listing.New()
	key, params := list.Key(), list.Params()
	unmount := query.Mount(h.cache.Cache, key, h.listFetch(params))
	defer unmount()

	page, err := query.Get(ctx, h.cache.Cache, key, h.listFetch(params))
	require.NoError(t, err)
	require.Equal(t, "Old", page.Movies[0].Title)

	form := mutation.NewForm()
	form.Title = "  Test Film "
	form.VoteAverage = 12
	movie, err := h.ctl.Create(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, "Test Film", movie.Title)
	assert.Equal(t, 10.0, movie.VoteAverage, "rating clamped before submission")
	assert.Equal(t, mutation.Succeeded, h.ctl.Status(mutation.KindCreate))

	note := h.lastNote(t)
	assert.Equal(t, notify.LevelSuccess, note.Level)
	assert.Equal(t, "Movie created successfully!", note.Text)

	require.Equal(t, [][]query.Family{{query.FamilyMovies, query.FamilyDashboardStats}}, h.cache.invalidated())
	h.cache.Wait()

	page, ok := query.Cached[catalog.Page](h.cache.Cache, key)
	require.True(t, ok)
	require.NotEmpty(t, page.Movies)
	assert.Equal(t, "Test Film", page.Movies[0].Title)
	assert.Equal(t, 2, h.srv.Hits(catalogtest.RouteListMovies), "one refetch after the write")
}

func TestDelete_RemovesFromRefetchedList(t *testing.T) {
	h := newHarness(t)
	seeded := h.srv.Seed(catalog.Movie{Title: "Keep"}, catalog.Movie{Title: "Drop"})
	ctx := context.Background()

	params := listing.New().Params()
	key := listing.New().Key()
	unmount := query.Mount(h.cache.Cache, key, h.listFetch(params))
	defer unmount()
	_, err := query.Get(ctx, h.cache.Cache, key, h.listFetch(params))
	require.NoError(t, err)

	require.NoError(t, h.ctl.Delete(ctx, seeded[1].ID))
	h.cache.Wait()

	page, ok := query.Cached[catalog.Page](h.cache.Cache, key)
	require.True(t, ok)
	require.Len(t, page.Movies, 1)
	assert.Equal(t, "Keep", page.Movies[0].Title)
	assert.Equal(t, "Movie deleted successfully!", h.lastNote(t).Text)
}

func TestDelete_FailureKeepsListAndReportsServerMessage(t *testing.T) {
	h := newHarness(t)
	err := h.ctl.Delete(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, catalog.IsNotFound(err))
	assert.Equal(t, mutation.Failed, h.ctl.Status(mutation.KindDelete))
	assert.ErrorIs(t, err, h.ctl.Err(mutation.KindDelete))
	assert.Empty(t, h.cache.invalidated(), "failed writes do not invalidate")

	note := h.lastNote(t)
	assert.Equal(t, notify.LevelError, note.Level)
	assert.Equal(t, "Failed to delete movie: Movie not found", note.Text)
}

func TestUpdate_WritesAreNeverRetried(t *testing.T) {
	h := newHarness(t)
	seeded := h.srv.Seed(catalog.Movie{Title: "Heat"})
	h.srv.FailNext(catalogtest.RouteUpdateMovie, http.StatusInternalServerError, 1)

	form := mutation.FormFromMovie(seeded[0])
	form.Title = "Heat (1995)"
	_, err := h.ctl.Update(context.Background(), seeded[0].ID, form)
	require.Error(t, err)
	assert.Equal(t, 500, catalog.StatusCode(err))
	assert.Equal(t, 1, h.srv.Hits(catalogtest.RouteUpdateMovie))
	assert.Equal(t, "Failed to update movie: injected failure", h.lastNote(t).Text)

	m, _ := h.srv.Movie(seeded[0].ID)
	assert.Equal(t, "Heat", m.Title)

	movie, err := h.ctl.Update(context.Background(), seeded[0].ID, form)
	require.NoError(t, err)
	assert.Equal(t, "Heat (1995)", movie.Title)
	assert.Equal(t, "Movie updated successfully!", h.lastNote(t).Text)
}

func TestSync_TouchesPagesTimesTwentyAndInvalidatesEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run, err := h.ctl.Sync(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 40, run.Touched())
	assert.Equal(t, "Successfully synced 40 movies!", h.lastNote(t).Text)
	assert.Equal(t, []query.Family{
		query.FamilyMovies, query.FamilyDashboardStats, query.FamilyChartData, query.FamilyLastSyncLog,
	}, h.cache.invalidated()[0])

	last, err := h.client.LastSyncLog(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 40, last.Touched())
	assert.True(t, last.Succeeded())

	run, err = h.ctl.Sync(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, run.MoviesAdded)
	assert.Equal(t, 20, run.MoviesUpdated)
}

func TestSync_ClampsPages(t *testing.T) {
	h := newHarness(t)
	_, err := h.ctl.Sync(context.Background(), 0)
	require.NoError(t, err)
	_, err = h.ctl.Sync(context.Background(), 50)
	require.NoError(t, err)

	reqs := h.srv.Requests(catalogtest.RouteSync)
	require.Len(t, reqs, 2)
	assert.Equal(t, "1", reqs[0].Query["pages"][0])
	assert.Equal(t, "10", reqs[1].Query["pages"][0])
}

func TestSync_SecondCallWhilePendingIsBusy(t *testing.T) {
	h := newHarness(t)
	release := h.srv.Hold(catalogtest.RouteSync)

	done := make(chan error, 1)
	go func() {
		_, err := h.ctl.Sync(context.Background(), 1)
		done <- err
	}()
	require.Eventually(t, func() bool { return h.ctl.Pending(mutation.KindSync) }, time.Second, 5*time.Millisecond)

	_, err := h.ctl.Sync(context.Background(), 1)
	assert.ErrorIs(t, err, mutation.ErrBusy)

	// Other kinds are independent.
	assert.False(t, h.ctl.Pending(mutation.KindCreate))

	release()
	require.NoError(t, <-done)
	assert.Equal(t, 1, h.srv.Hits(catalogtest.RouteSync))
	assert.Equal(t, mutation.Succeeded, h.ctl.Status(mutation.KindSync))
}

func TestCreate_ValidationErrorsNeverReachServer(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/img/p.png", pngBytes, 0o644))
	tests := []struct {
		name  string
		edit  func(*mutation.Form)
		field string
	}{
		{"blank title", func(f *mutation.Form) { f.Title = "   " }, "title"},
		{"negative votes", func(f *mutation.Form) { f.Title = "x"; f.VoteCount = -1 }, "vote_count"},
		{"negative popularity", func(f *mutation.Form) { f.Title = "x"; f.Popularity = -0.5 }, "popularity"},
		{"infinite popularity", func(f *mutation.Form) { f.Title = "x"; f.Popularity = math.Inf(1); f.PosterFile = "/img/p.png" }, "popularity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := mutation.NewForm()
			tt.edit(&form)
			_, err := h.ctl.Create(context.Background(), form)
			var verr *mutation.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, notify.LevelError, h.lastNote(t).Level)
		})
	}
	assert.Zero(t, h.srv.Hits(catalogtest.RouteCreateMovie))
	assert.Zero(t, h.srv.Hits(catalogtest.RoutePresign), "nothing is uploaded for an invalid form")
	assert.Zero(t, h.srv.Hits(catalogtest.RoutePutObject))
	assert.Equal(t, mutation.Idle, h.ctl.Status(mutation.KindCreate))
}

func TestCreate_UploadsPosterThenBackdrop(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/img/poster.png", pngBytes, 0o644))
	require.NoError(t, afero.WriteFile(h.fs, "/img/backdrop.png", pngBytes, 0o644))

	form := mutation.NewForm()
	form.Title = "Uploaded"
	form.PosterPath = "/ignored.jpg"
	form.PosterFile = "/img/poster.png"
	form.BackdropFile = "/img/backdrop.png"

	movie, err := h.ctl.Create(context.Background(), form)
	require.NoError(t, err)

	presigns := h.srv.Requests(catalogtest.RoutePresign)
	require.Len(t, presigns, 2)
	assert.Equal(t, "poster.png", presigns[0].Query["filename"][0])
	assert.Equal(t, "image/png", presigns[0].Query["contentType"][0])
	assert.Equal(t, "backdrop.png", presigns[1].Query["filename"][0])

	puts := h.srv.Requests(catalogtest.RoutePutObject)
	require.Len(t, puts, 2)
	assert.Equal(t, "image/png", puts[0].Headers.Get("Content-Type"))
	assert.Equal(t, pngBytes, puts[0].Body)

	assert.True(t, strings.HasPrefix(movie.PosterPath, h.srv.URL+"/public/"), movie.PosterPath)
	assert.Contains(t, movie.PosterPath, "poster.png")
	assert.Contains(t, movie.BackdropPath, "backdrop.png")
}

func TestCreate_UploadFailureAbortsSubmission(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/img/poster.png", pngBytes, 0o644))
	require.NoError(t, afero.WriteFile(h.fs, "/img/backdrop.png", pngBytes, 0o644))
	h.srv.FailNext(catalogtest.RoutePutObject, http.StatusForbidden, 2)

	form := mutation.NewForm()
	form.Title = "Never Saved"
	form.PosterFile = "/img/poster.png"
	form.BackdropFile = "/img/backdrop.png"

	_, err := h.ctl.Create(context.Background(), form)
	var uerr *mutation.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "poster", uerr.Field)
	assert.Equal(t, 403, catalog.StatusCode(err))

	assert.Zero(t, h.srv.Hits(catalogtest.RouteCreateMovie))
	assert.Equal(t, 1, h.srv.Hits(catalogtest.RoutePresign), "backdrop never attempted after poster failure")
	assert.Zero(t, h.srv.MovieCount())
	assert.Equal(t, "Failed to upload image", h.lastNote(t).Text)
	assert.Equal(t, mutation.Failed, h.ctl.Status(mutation.KindCreate))
}

func TestCreate_BackdropFailureDiscardsUploadedPoster(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/img/poster.png", pngBytes, 0o644))

	form := mutation.NewForm()
	form.Title = "Half"
	form.PosterFile = "/img/poster.png"
	form.BackdropFile = "/img/missing.png"

	_, err := h.ctl.Create(context.Background(), form)
	var uerr *mutation.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "backdrop", uerr.Field)
	assert.Zero(t, h.srv.Hits(catalogtest.RouteCreateMovie))
}

func TestLoadImage_RejectsNonImagesAndLargeFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/notes.txt", []byte("plain text, not a picture"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/huge.png", append(pngBytes, make([]byte, mutation.MaxUploadBytes)...), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/ok.png", pngBytes, 0o644))

	_, err := mutation.LoadImage(fs, "/notes.txt")
	assert.ErrorIs(t, err, mutation.ErrNotImage)

	_, err = mutation.LoadImage(fs, "/huge.png")
	assert.ErrorIs(t, err, mutation.ErrTooLarge)

	img, err := mutation.LoadImage(fs, "/ok.png")
	require.NoError(t, err)
	assert.Equal(t, "ok.png", img.Name)
	assert.Equal(t, "image/png", img.ContentType)

	_, err = mutation.LoadImage(fs, "/nope.png")
	assert.Error(t, err)
}

func TestCreate_UploadRejectsTextFileWithMessage(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/poster.jpg", []byte("definitely not a jpeg"), 0o644))
	form := mutation.NewForm()
	form.Title = "Bad Poster"
	form.PosterFile = "/poster.jpg"

	_, err := h.ctl.Create(context.Background(), form)
	assert.True(t, errors.Is(err, mutation.ErrNotImage))
	assert.Equal(t, "Please select a valid image file", h.lastNote(t).Text)
	assert.Zero(t, h.srv.Hits(catalogtest.RoutePresign))
}

func TestStatusTransitionsAndReset(t *testing.T) {
	h := newHarness(t)
	var mu sync.Mutex
	var seen []mutation.Status
	ctl := mutation.New(h.client, h.cache, h.notes, mutation.WithOnChange(func(k mutation.Kind, s mutation.Status) {
		if k == mutation.KindDelete {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		}
	}))

	assert.Equal(t, mutation.Idle, ctl.Status(mutation.KindDelete))
	_ = ctl.Delete(context.Background(), 999)
	ctl.Reset(mutation.KindDelete)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []mutation.Status{mutation.Pending, mutation.Failed, mutation.Idle}, seen)
	assert.NoError(t, ctl.Err(mutation.KindDelete))
	assert.Equal(t, "idle", mutation.Idle.String())
}

func TestFormHelpers(t *testing.T) {
	form := mutation.NewForm()
	assert.Equal(t, "en", form.Language)
	assert.GreaterOrEqual(t, form.TMDBID, int64(0))
	assert.Less(t, form.TMDBID, int64(1_000_000))

	lang := int64(3)
	movie := catalog.Movie{
		ID: 7, TMDBID: 603, Title: "The Matrix", VoteAverage: 8.7, VoteCount: 100,
		LanguageID: &lang, Language: &catalog.Language{ID: 3, Code: "ja", Name: "Japanese"},
	}
	edit := mutation.FormFromMovie(movie)
	assert.Equal(t, "ja", edit.Language)
	assert.Equal(t, int64(603), edit.TMDBID)
	assert.Equal(t, "en", mutation.FormFromMovie(catalog.Movie{Title: "x"}).Language)

	in := mutation.Form{Title: " T ", VoteAverage: -3}.Input()
	assert.Equal(t, "T", in.Title)
	assert.Equal(t, 0.0, in.VoteAverage)
	assert.Equal(t, "en", in.OriginalLanguage)
}
