package catalog

import (
	"time"
)

const (
	dateLayout     = "2006-01-02"
	legacyTSLayout = "2006-01-02 15:04:05"
)

// Envelope is the uniform wrapper every catalog endpoint responds with.
type Envelope[T any] struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
	Meta    *PaginationMeta `json:"meta,omitempty"`
}

// PaginationMeta accompanies paginated list responses.
type PaginationMeta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	TotalPages  int `json:"total_pages"`
}

// Language is the original language of a movie.
type Language struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Genre is a provider genre attached to a movie.
type Genre struct {
	ID        int64  `json:"id"`
	TMDBID    int64  `json:"tmdb_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Movie mirrors a catalog record.
type Movie struct {
	ID            int64     `json:"id"`
	TMDBID        int64     `json:"tmdb_id"`
	Title         string    `json:"title"`
	OriginalTitle string    `json:"original_title"`
	Overview      string    `json:"overview"`
	ReleaseDate   string    `json:"release_date"`
	PosterPath    string    `json:"poster_path"`
	BackdropPath  string    `json:"backdrop_path"`
	VoteAverage   float64   `json:"vote_average"`
	VoteCount     int64     `json:"vote_count"`
	Popularity    float64   `json:"popularity"`
	Adult         bool      `json:"adult"`
	LanguageID    *int64    `json:"language_id,omitempty"`
	Language      *Language `json:"language,omitempty"`
	Genres        []Genre   `json:"genres,omitempty"`
	CreatedAt     string    `json:"created_at"`
	UpdatedAt     string    `json:"updated_at"`
}

// LanguageCode returns the movie's language code, or "" when unknown.
func (m Movie) LanguageCode() string {
	if m.Language == nil {
		return ""
	}
	return m.Language.Code
}

// ReleaseYear returns the year part of the release date, or 0.
func (m Movie) ReleaseYear() int {
	if t, err := time.Parse(dateLayout, m.ReleaseDate); err == nil {
		return t.Year()
	}
	if t := parseTime(m.ReleaseDate); !t.IsZero() {
		return t.Year()
	}
	return 0
}

// ParsedUpdatedAt returns the parsed UpdatedAt timestamp.
func (m Movie) ParsedUpdatedAt() time.Time {
	return parseTime(m.UpdatedAt)
}

// ParsedCreatedAt returns the parsed CreatedAt timestamp.
func (m Movie) ParsedCreatedAt() time.Time {
	return parseTime(m.CreatedAt)
}

// MovieInput is the payload for create and update calls.
type MovieInput struct {
	TMDBID           int64   `json:"tmdb_id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int64   `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	Adult            bool    `json:"adult"`
	OriginalLanguage string  `json:"original_language"`
}

// ClampVoteAverage keeps a rating inside the [0,10] scale.
func ClampVoteAverage(v float64) float64 {
	if v != v || v < 0 { // NaN counts as unset
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// Sync outcomes reported by the backend.
const (
	SyncStatusSuccess = "success"
	SyncStatusFailure = "failure"
)

// SyncLog describes one provider import run.
type SyncLog struct {
	ID            int64  `json:"id"`
	SyncType      string `json:"sync_type"`
	Status        string `json:"status"`
	MoviesAdded   int    `json:"movies_added"`
	MoviesUpdated int    `json:"movies_updated"`
	ErrorMessage  string `json:"error_message,omitempty"`
	SyncedAt      string `json:"synced_at"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// Succeeded reports whether the run completed without error.
func (s SyncLog) Succeeded() bool {
	return s.Status == SyncStatusSuccess
}

// Touched is the number of records the run added or updated.
func (s SyncLog) Touched() int {
	return s.MoviesAdded + s.MoviesUpdated
}

// ParsedSyncedAt returns the parsed SyncedAt timestamp.
func (s SyncLog) ParsedSyncedAt() time.Time {
	return parseTime(s.SyncedAt)
}

// DashboardStats is the aggregate snapshot behind the dashboard view.
type DashboardStats struct {
	TotalMovies    int64   `json:"total_movies"`
	AverageRating  float64 `json:"average_rating"`
	TotalVotes     int64   `json:"total_votes"`
	LastSyncTime   *string `json:"last_sync_time"`
	TopRatedMovies []Movie `json:"top_rated_movies"`
	MostPopular    []Movie `json:"most_popular"`
	RecentlyAdded  []Movie `json:"recently_added"`
}

// Capped returns a copy with every movie list trimmed to at most n entries.
func (d DashboardStats) Capped(n int) DashboardStats {
	out := d
	out.TopRatedMovies = capMovies(d.TopRatedMovies, n)
	out.MostPopular = capMovies(d.MostPopular, n)
	out.RecentlyAdded = capMovies(d.RecentlyAdded, n)
	return out
}

// ParsedLastSync returns the last sync time, zero when the catalog never synced.
func (d DashboardStats) ParsedLastSync() time.Time {
	if d.LastSyncTime == nil {
		return time.Time{}
	}
	return parseTime(*d.LastSyncTime)
}

func capMovies(movies []Movie, n int) []Movie {
	if n < 0 {
		n = 0
	}
	if len(movies) <= n {
		return append([]Movie(nil), movies...)
	}
	return append([]Movie(nil), movies[:n]...)
}

// PieSlice is one language bucket of the pie chart.
type PieSlice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Code  string  `json:"code"`
}

// ColumnBar is one time bucket of the column chart.
type ColumnBar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartData bundles both chart series.
type ChartData struct {
	PieChart    []PieSlice  `json:"pie_chart"`
	ColumnChart []ColumnBar `json:"column_chart"`
}

// UploadTarget is a presigned object-storage destination.
type UploadTarget struct {
	PresignedURL string `json:"presigned_url"`
	PublicURL    string `json:"public_url"`
}

// Page is one page of the movie list.
type Page struct {
	Movies []Movie
	Meta   PaginationMeta
}

// TotalPages returns the server's page count, defaulting to 1.
func (p Page) TotalPages() int {
	if p.Meta.TotalPages < 1 {
		return 1
	}
	return p.Meta.TotalPages
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(legacyTSLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
