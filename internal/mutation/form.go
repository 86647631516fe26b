package mutation

import (
	"math"
	"math/rand/v2"
	"strings"

	"github.com/five82/marquee/internal/catalog"
)

// DefaultLanguage is the language preselected for new records.
const DefaultLanguage = "en"

const maxGeneratedTMDBID = 1_000_000

// Form is the editable state of the create/edit dialog. PosterFile and
// BackdropFile are local paths; when set they take precedence over the
// matching *Path field and are uploaded before the record is saved.
type Form struct {
	Title         string
	OriginalTitle string
	Overview      string
	ReleaseDate   string
	PosterPath    string
	BackdropPath  string
	PosterFile    string
	BackdropFile  string
	VoteAverage   float64
	VoteCount     int64
	Popularity    float64
	Adult         bool
	Language      string
	TMDBID        int64
}

// NewForm returns the blank form for a new record with a generated tmdb id.
func NewForm() Form {
	return Form{
		Language: DefaultLanguage,
		TMDBID:   rand.Int64N(maxGeneratedTMDBID),
	}
}

// FormFromMovie prefills the form for editing m.
func FormFromMovie(m catalog.Movie) Form {
	lang := m.LanguageCode()
	if lang == "" {
		lang = DefaultLanguage
	}
	return Form{
		Title:         m.Title,
		OriginalTitle: m.OriginalTitle,
		Overview:      m.Overview,
		ReleaseDate:   m.ReleaseDate,
		PosterPath:    m.PosterPath,
		BackdropPath:  m.BackdropPath,
		VoteAverage:   m.VoteAverage,
		VoteCount:     m.VoteCount,
		Popularity:    m.Popularity,
		Adult:         m.Adult,
		Language:      lang,
		TMDBID:        m.TMDBID,
	}
}

// ValidationError reports a form field the user must fix.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks required fields and numeric ranges. The rating is not
// validated; Input clamps it.
func (f Form) Validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return &ValidationError{Field: "title", Message: "Title is required"}
	}
	if f.VoteCount < 0 {
		return &ValidationError{Field: "vote_count", Message: "Vote count cannot be negative"}
	}
	if math.IsNaN(f.Popularity) || math.IsInf(f.Popularity, 0) {
		return &ValidationError{Field: "popularity", Message: "Popularity must be a number"}
	}
	if f.Popularity < 0 {
		return &ValidationError{Field: "popularity", Message: "Popularity cannot be negative"}
	}
	if f.TMDBID < 0 {
		return &ValidationError{Field: "tmdb_id", Message: "TMDB id cannot be negative"}
	}
	return nil
}

// Input converts the form to a write payload.
func (f Form) Input() catalog.MovieInput {
	lang := strings.TrimSpace(f.Language)
	if lang == "" {
		lang = DefaultLanguage
	}
	return catalog.MovieInput{
		TMDBID:           f.TMDBID,
		Title:            strings.TrimSpace(f.Title),
		OriginalTitle:    strings.TrimSpace(f.OriginalTitle),
		Overview:         f.Overview,
		ReleaseDate:      strings.TrimSpace(f.ReleaseDate),
		PosterPath:       strings.TrimSpace(f.PosterPath),
		BackdropPath:     strings.TrimSpace(f.BackdropPath),
		VoteAverage:      catalog.ClampVoteAverage(f.VoteAverage),
		VoteCount:        f.VoteCount,
		Popularity:       f.Popularity,
		Adult:            f.Adult,
		OriginalLanguage: lang,
	}
}
