// Package catalogtest provides an in-memory catalog backend that speaks the
// same REST contract as the production API. Tests across the data layer and
// the UI run against it instead of hand-written HTTP stubs.
package catalogtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/five82/marquee/internal/catalog"
)

// MoviesPerSyncPage mirrors the provider's popular-movies page size.
const MoviesPerSyncPage = 20

// Route names used by Hits and FailNext.
const (
	RouteListMovies   = "GET /movies"
	RouteGetMovie     = "GET /movies/{id}"
	RouteCreateMovie  = "POST /movies"
	RouteUpdateMovie  = "PUT /movies/{id}"
	RouteDeleteMovie  = "DELETE /movies/{id}"
	RouteSync         = "POST /sync/movies"
	RouteLastSyncLog  = "GET /sync/last-log"
	RouteStats        = "GET /dashboard/stats"
	RouteCharts       = "GET /charts"
	RoutePieChart     = "GET /charts/pie"
	RouteColumnChart  = "GET /charts/column"
	RouteMonthlyChart = "GET /charts/monthly/{year}"
	RoutePresign      = "GET /upload/presign"
	RoutePutObject    = "PUT /objects/{name}"
)

// Object is a file stored through a presigned upload.
type Object struct {
	ContentType string
	Body        []byte
}

// Request is a captured request for assertions.
type Request struct {
	Route   string
	Query   map[string][]string
	Headers http.Header
	Body    []byte
}

type fault struct {
	status int
	times  int
}

// Server is a fake catalog API backed by an in-memory store.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	movies   map[int64]catalog.Movie
	nextID   int64
	clock    time.Time
	syncLogs []catalog.SyncLog
	objects  map[string]Object
	hits     map[string]int
	faults   map[string]*fault
	requests []Request
	gate     map[string]chan struct{}
	provider int64
}

// New starts a fake catalog server and registers its shutdown with t.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		movies:   make(map[int64]catalog.Movie),
		nextID:   1,
		clock:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		objects:  make(map[string]Object),
		hits:     make(map[string]int),
		faults:   make(map[string]*fault),
		gate:     make(map[string]chan struct{}),
		provider: 100000,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Server.Close)
	return s
}

// APIURL is the base URL to hand to catalog.NewClient.
func (s *Server) APIURL() string {
	return s.URL + "/api/v1"
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/movies", s.handleList)
		r.Post("/movies", s.handleCreate)
		r.Get("/movies/{id}", s.handleGet)
		r.Put("/movies/{id}", s.handleUpdate)
		r.Delete("/movies/{id}", s.handleDelete)

		r.Post("/sync/movies", s.handleSync)
		r.Get("/sync/last-log", s.handleLastLog)

		r.Get("/dashboard/stats", s.handleStats)

		r.Get("/charts", s.handleCharts)
		r.Get("/charts/pie", s.handlePie)
		r.Get("/charts/column", s.handleColumn)
		r.Get("/charts/monthly/{year}", s.handleMonthly)

		r.Get("/upload/presign", s.handlePresign)
	})
	r.Put("/objects/{name}", s.handlePutObject)
	r.Get("/public/{name}", s.handlePublicObject)
	return r
}

// Seed inserts movies as if they had been created through the API, returning
// the stored copies in insertion order.
func (s *Server) Seed(movies ...catalog.Movie) []catalog.Movie {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Movie, 0, len(movies))
	for _, m := range movies {
		out = append(out, s.insertLocked(m))
	}
	return out
}

// Movie returns a stored movie by id.
func (s *Server) Movie(id int64) (catalog.Movie, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[id]
	return m, ok
}

// MovieCount returns the number of stored movies.
func (s *Server) MovieCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movies)
}

// Object returns an uploaded object by name.
func (s *Server) Object(name string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[name]
	return obj, ok
}

// Hits returns how many times a route was requested, failed requests included.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Requests returns captured requests for a route.
func (s *Server) Requests(route string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, req := range s.requests {
		if req.Route == route {
			out = append(out, req)
		}
	}
	return out
}

// FailNext makes the next n requests to route fail with status.
func (s *Server) FailNext(route string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = &fault{status: status, times: n}
}

// Hold blocks requests to route until the returned release func is called.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gate[route] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gate, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// enter records the request and applies faults and holds. It reports false
// when the request was already answered.
func (s *Server) enter(w http.ResponseWriter, r *http.Request, route string) ([]byte, bool) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.hits[route]++
	s.requests = append(s.requests, Request{
		Route:   route,
		Query:   r.URL.Query(),
		Headers: r.Header.Clone(),
		Body:    body,
	})
	gate := s.gate[route]
	var failStatus int
	if f := s.faults[route]; f != nil && f.times > 0 {
		f.times--
		failStatus = f.status
	}
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return nil, false
		}
	}
	if failStatus != 0 {
		writeError(w, failStatus, "injected failure")
		return nil, false
	}
	return body, true
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.enter(w, r, RouteListMovies); !ok {
		return
	}
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	limit := atoiDefault(q.Get("limit"), 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	search := strings.ToLower(strings.TrimSpace(q.Get("search")))
	sortBy := q.Get("sort_by")
	if sortBy == "" {
		sortBy = "updated_at"
	}
	desc := !strings.EqualFold(q.Get("order"), "ASC")
	start, end := q.Get("start_date"), q.Get("end_date")

	s.mu.Lock()
	var matched []catalog.Movie
	for _, m := range s.movies {
		if search != "" && !strings.Contains(strings.ToLower(m.Title), search) &&
			!strings.Contains(strings.ToLower(m.OriginalTitle), search) {
			continue
		}
		if start != "" && m.ReleaseDate < start {
			continue
		}
		if end != "" && m.ReleaseDate > end {
			continue
		}
		matched = append(matched, m)
	}
	s.mu.Unlock()

	less, ok := movieLess(sortBy)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid sort_by")
		return
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if desc {
			if less(matched[j], matched[i]) {
				return true
			}
			if less(matched[i], matched[j]) {
				return false
			}
			return matched[i].ID > matched[j].ID
		}
		if less(matched[i], matched[j]) {
			return true
		}
		if less(matched[j], matched[i]) {
			return false
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	from := (page - 1) * limit
	if from > total {
		from = total
	}
	to := from + limit
	if to > total {
		to = total
	}
	writeEnvelope(w, http.StatusOK, "Movies retrieved", matched[from:to], &catalog.PaginationMeta{
		CurrentPage: page,
		PerPage:     limit,
		Total:       total,
		TotalPages:  totalPages,
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.enter(w, r, RouteGetMovie); !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	m, ok := s.Movie(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Movie not found")
		return
	}
	writeEnvelope(w, http.StatusOK, "Movie retrieved", m, nil)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := s.enter(w, r, RouteCreateMovie)
	if !ok {
		return
	}
	var input catalog.MovieInput
	if err := json.Unmarshal(body, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if strings.TrimSpace(input.Title) == "" {
		writeError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	s.mu.Lock()
	m := s.insertLocked(applyInput(catalog.Movie{}, input))
	s.mu.Unlock()
	writeEnvelope(w, http.StatusCreated, "Movie created", m, nil)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	body, ok := s.enter(w, r, RouteUpdateMovie)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var input catalog.MovieInput
	if err := json.Unmarshal(body, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	existing, found := s.movies[id]
	if !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Movie not found")
		return
	}
	updated := applyInput(existing, input)
	updated.UpdatedAt = s.tickLocked()
	s.movies[id] = updated
	s.mu.Unlock()
	writeEnvelope(w, http.StatusOK, "Movie updated", updated, nil)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.enter(w, r, RouteDeleteMovie); !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.mu.Lock()
	_, found := s.movies[id]
	delete(s.movies, id)
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "Movie not found")
		return
	}
	writeEnvelope[any](w, http.StatusOK, "Movie deleted", nil, nil)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.enter(w, r, RouteSync); !ok {
		return
	}
	pages := atoiDefault(r.URL.Query().Get("pages"), 1)
	if pages < 1 {
		pages = 1
	}

	s.mu.Lock()
	byTMDB := make(map[int64]int64, len(s.movies))
	for id, m := range s.movies {
		byTMDB[m.TMDBID] = id
	}
	added, updated := 0, 0
	for i := 0; i < pages*MoviesPerSyncPage; i++ {
		tmdbID := s.provider + int64(i)
		if id, exists := byTMDB[tmdbID]; exists {
			m := s.movies[id]
			m.Popularity += 1
			m.UpdatedAt = s.tickLocked()
			s.movies[id] = m
			updated++
			continue
		}
		s.insertLocked(catalog.Movie{
			TMDBID:      tmdbID,
			Title:       fmt.Sprintf("Popular Movie %d", i+1),
			ReleaseDate: fmt.Sprintf("2024-%02d-15", i%12+1),
			PosterPath:  fmt.Sprintf("/poster-%d.jpg", tmdbID),
			VoteAverage: float64(i%10) + 0.5,
			VoteCount:   int64(100 + i),
			Popularity:  float64(1000 - i),
			Language:    &catalog.Language{ID: 1, Code: "en", Name: "English"},
		})
		added++
	}
	log := catalog.SyncLog{
		ID:            int64(len(s.syncLogs) + 1),
		SyncType:      "popular_movies",
		Status:        catalog.SyncStatusSuccess,
		MoviesAdded:   added,
		MoviesUpdated: updated,
		SyncedAt:      s.tickLocked(),
	}
	log.CreatedAt = log.SyncedAt
	s.syncLogs = append(s.syncLogs, log)
	s.mu.Unlock()

	writeEnvelope(w, http.StatusOK, "Sync completed", log, nil)
}

func (s *Server) handleLastLog(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.enter(w, r, RouteLastSyncLog); !ok {
		return
	}
	s.mu.Lock()
	var last *catalog.SyncLog
	if n := len(s.syncLogs); n > 0 {
		copied := s.syncLogs[n-1]
		last = &copied
	}
	s.mu.Unlock()
	writeEnvelope(w, http.StatusOK, "Last sync log", last, nil)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.enter(w, r, RouteStats); !ok {
		return
	}
	s.mu.Lock()
	all := make([]catalog.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		all = append(all, m)
	}
	var lastSync *string
	if n := len(s.syncLogs); n > 0 {
		ts := s.syncLogs[n-1].SyncedAt
		lastSync = &ts
	}
	s.mu.Unlock()

	stats := catalog.DashboardStats{TotalMovies: int64(len(all)), LastSyncTime: lastSync}
	var ratingSum float64
	for _, m := range all {
		ratingSum += m.VoteAverage
		stats.TotalVotes += m.VoteCount
	}
	if len(all) > 0 {
		stats.AverageRating = ratingSum / float64(len(all))
	}
	const listSize = 10
	stats.TopRatedMovies = topN(all, listSize, func(a, b catalog.Movie) bool { return a.VoteAverage > b.VoteAverage })
	stats.MostPopular = topN(all, listSize, func(a, b catalog.Movie) bool { return a.Popularity > b.Popularity })
	stats.RecentlyAdded = topN(all, listSize, func(a, b catalog.Movie) bool { return a.CreatedAt > b.CreatedAt })
	writeEnvelope(w, http.StatusOK, "Dashboard stats", stats, nil)
}

func (s *Server) handleCharts(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.enter(w, r, RouteCharts); !ok {
		return
	}
	q := r.URL.Query()
	data := catalog.ChartData{
		PieChart:    s.pie(),
		ColumnChart: s.columns(q.Get("start_date"), q.Get("end_date")),
	}
	writeEnvelope(w, http.StatusOK, "Chart data", data, nil)
}

func (s *Server) handlePie(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.enter(w, r, RoutePieChart); !ok {
		return
	}
	writeEnvelope(w, http.StatusOK, "Pie chart", s.pie(), nil)
}

func (s *Server) handleColumn(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.enter(w, r, RouteColumnChart); !ok {
		return
	}
	q := r.URL.Query()
	writeEnvelope(w, http.StatusOK, "Column chart", s.columns(q.Get("start_date"), q.Get("end_date")), nil)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.enter(w, r, RouteMonthlyChart); !ok {
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	counts := make([]float64, 12)
	s.mu.Lock()
	for _, m := range s.movies {
		t, err := time.Parse("2006-01-02", m.ReleaseDate)
		if err != nil || t.Year() != year {
			continue
		}
		counts[t.Month()-1]++
	}
	s.mu.Unlock()
	bars := make([]catalog.ColumnBar, 12)
	for i := range bars {
		bars[i] = catalog.ColumnBar{Label: time.Month(i + 1).String()[:3], Value: counts[i]}
	}
	writeEnvelope(w, http.StatusOK, "Monthly chart", bars, nil)
}

func (s *Server) handlePresign(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.enter(w, r, RoutePresign); !ok {
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("filename"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}
	key := fmt.Sprintf("%d-%s", time.Now().UnixNano(), strings.ReplaceAll(name, "/", "_"))
	writeEnvelope(w, http.StatusOK, "Presigned URL generated", catalog.UploadTarget{
		PresignedURL: s.URL + "/objects/" + key + "?signature=test",
		PublicURL:    s.URL + "/public/" + key,
	}, nil)
}

func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	body, ok := s.enter(w, r, RoutePutObject)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	s.objects[name] = Object{ContentType: r.Header.Get("Content-Type"), Body: body}
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePublicObject(w http.ResponseWriter, r *http.Request) {
	obj, ok := s.Object(chi.URLParam(r, "name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	_, _ = w.Write(obj.Body)
}

func (s *Server) pie() []catalog.PieSlice {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]float64{}
	names := map[string]string{}
	for _, m := range s.movies {
		code, name := "unknown", "Unknown"
		if m.Language != nil {
			code, name = m.Language.Code, m.Language.Name
		}
		counts[code]++
		names[code] = name
	}
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	out := make([]catalog.PieSlice, 0, len(codes))
	for _, code := range codes {
		out = append(out, catalog.PieSlice{Label: names[code], Value: counts[code], Code: code})
	}
	return out
}

func (s *Server) columns(start, end string) []catalog.ColumnBar {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]float64{}
	for _, m := range s.movies {
		if len(m.ReleaseDate) < 4 {
			continue
		}
		if start != "" && m.ReleaseDate < start {
			continue
		}
		if end != "" && m.ReleaseDate > end {
			continue
		}
		counts[m.ReleaseDate[:4]]++
	}
	years := make([]string, 0, len(counts))
	for y := range counts {
		years = append(years, y)
	}
	sort.Strings(years)
	out := make([]catalog.ColumnBar, 0, len(years))
	for _, y := range years {
		out = append(out, catalog.ColumnBar{Label: y, Value: counts[y]})
	}
	return out
}

func (s *Server) insertLocked(m catalog.Movie) catalog.Movie {
	m.ID = s.nextID
	s.nextID++
	ts := s.tickLocked()
	if m.CreatedAt == "" {
		m.CreatedAt = ts
	}
	m.UpdatedAt = ts
	s.movies[m.ID] = m
	return m
}

// tickLocked advances the fake clock so every write gets a distinct timestamp.
func (s *Server) tickLocked() string {
	s.clock = s.clock.Add(time.Second)
	return s.clock.Format(time.RFC3339)
}

func applyInput(m catalog.Movie, in catalog.MovieInput) catalog.Movie {
	m.TMDBID = in.TMDBID
	m.Title = in.Title
	m.OriginalTitle = in.OriginalTitle
	m.Overview = in.Overview
	m.ReleaseDate = in.ReleaseDate
	m.PosterPath = in.PosterPath
	m.BackdropPath = in.BackdropPath
	m.VoteAverage = in.VoteAverage
	m.VoteCount = in.VoteCount
	m.Popularity = in.Popularity
	m.Adult = in.Adult
	if code := strings.TrimSpace(in.OriginalLanguage); code != "" {
		m.Language = &catalog.Language{Code: code, Name: strings.ToUpper(code)}
	}
	return m
}

func movieLess(field string) (func(a, b catalog.Movie) bool, bool) {
	switch field {
	case "id":
		return func(a, b catalog.Movie) bool { return a.ID < b.ID }, true
	case "title":
		return func(a, b catalog.Movie) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }, true
	case "release_date":
		return func(a, b catalog.Movie) bool { return a.ReleaseDate < b.ReleaseDate }, true
	case "vote_average":
		return func(a, b catalog.Movie) bool { return a.VoteAverage < b.VoteAverage }, true
	case "popularity":
		return func(a, b catalog.Movie) bool { return a.Popularity < b.Popularity }, true
	case "updated_at":
		return func(a, b catalog.Movie) bool { return a.UpdatedAt < b.UpdatedAt }, true
	}
	return nil, false
}

func topN(movies []catalog.Movie, n int, before func(a, b catalog.Movie) bool) []catalog.Movie {
	sorted := append([]catalog.Movie(nil), movies...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if before(sorted[i], sorted[j]) {
			return true
		}
		if before(sorted[j], sorted[i]) {
			return false
		}
		return sorted[i].ID < sorted[j].ID
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func atoiDefault(value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return n
}

func writeEnvelope[T any](w http.ResponseWriter, status int, message string, data T, meta *catalog.PaginationMeta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(catalog.Envelope[T]{
		Status:  "success",
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(catalog.Envelope[any]{Status: "error", Message: message})
}
