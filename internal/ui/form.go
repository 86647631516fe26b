package ui

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/imageurl"
	"github.com/five82/marquee/internal/mutation"
)

// Messages emitted by dialogs.
type (
	// formSubmitMsg asks to save form; id is zero for a new movie.
	formSubmitMsg struct {
		id   int64
		form mutation.Form
	}
	deleteConfirmedMsg struct{ id int64 }
	dateFilterMsg      struct{ start, end string }
	editMovieMsg       struct{ movie catalog.Movie }
)

// Form field indices.
const (
	fieldTitle = iota
	fieldOriginalTitle
	fieldOverview
	fieldReleaseDate
	fieldLanguage
	fieldRating
	fieldVotes
	fieldPopularity
	fieldTMDBID
	fieldPosterPath
	fieldPosterFile
	fieldBackdropPath
	fieldBackdropFile
	fieldAdult
	fieldCount
)

var formLabels = [fieldCount]string{
	"Title *",
	"Original title",
	"Overview",
	"Release date",
	"Language",
	"Rating (0-10)",
	"Vote count",
	"Popularity",
	"TMDB id",
	"Poster URL",
	"Poster file",
	"Backdrop URL",
	"Backdrop file",
	"Adult (y/n)",
}

// formModal edits a movie. It stays open while the save is pending and
// closes only when the Model sees the save succeed.
type formModal struct {
	id        int64
	kind      mutation.Kind
	inputs    []textinput.Model
	focus     int
	err       string
	mutations *mutation.Controller
}

func newFormModal(movie *catalog.Movie, mutations *mutation.Controller) *formModal {
	form := mutation.NewForm()
	kind := mutation.KindCreate
	var id int64
	if movie != nil {
		form = mutation.FormFromMovie(*movie)
		kind = mutation.KindUpdate
		id = movie.ID
	}

	values := [fieldCount]string{
		fieldTitle:         form.Title,
		fieldOriginalTitle: form.OriginalTitle,
		fieldOverview:      form.Overview,
		fieldReleaseDate:   form.ReleaseDate,
		fieldLanguage:      form.Language,
		fieldRating:        strconv.FormatFloat(form.VoteAverage, 'f', -1, 64),
		fieldVotes:         strconv.FormatInt(form.VoteCount, 10),
		fieldPopularity:    strconv.FormatFloat(form.Popularity, 'f', -1, 64),
		fieldTMDBID:        strconv.FormatInt(form.TMDBID, 10),
		fieldPosterPath:    form.PosterPath,
		fieldBackdropPath:  form.BackdropPath,
		fieldAdult:         "n",
	}
	if form.Adult {
		values[fieldAdult] = "y"
	}

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 500
		in.SetValue(values[i])
		inputs[i] = in
	}
	inputs[fieldReleaseDate].Placeholder = "yyyy-mm-dd"
	inputs[fieldPosterFile].Placeholder = "/path/to/poster.jpg"
	inputs[fieldBackdropFile].Placeholder = "/path/to/backdrop.jpg"
	inputs[fieldTitle].Focus()

	return &formModal{id: id, kind: kind, inputs: inputs, mutations: mutations}
}

func (f *formModal) pending() bool {
	return f.mutations != nil && f.mutations.Pending(f.kind)
}

func (f *formModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
		return f, cmd, false
	}

	switch {
	case km.String() == "esc":
		return f, nil, true
	case key.Matches(km, keys.Submit):
		return f, f.submit(), false
	case key.Matches(km, keys.NextField):
		f.setFocus(f.focus + 1)
		return f, nil, false
	case key.Matches(km, keys.PrevField):
		f.setFocus(f.focus - 1)
		return f, nil, false
	case key.Matches(km, keys.Confirm):
		if f.focus == fieldCount-1 {
			return f, f.submit(), false
		}
		f.setFocus(f.focus + 1)
		return f, nil, false
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd, false
}

func (f *formModal) setFocus(i int) {
	f.inputs[f.focus].Blur()
	f.focus = (i%fieldCount + fieldCount) % fieldCount
	f.inputs[f.focus].Focus()
}

// submit parses the fields and asks the Model to save. Nothing is sent
// while a save of the same kind is pending.
func (f *formModal) submit() tea.Cmd {
	if f.pending() {
		return nil
	}
	form, err := f.form()
	if err != nil {
		f.err = err.Error()
		return nil
	}
	f.err = ""
	return msgCmd(formSubmitMsg{id: f.id, form: form})
}

func (f *formModal) form() (mutation.Form, error) {
	v := func(i int) string { return strings.TrimSpace(f.inputs[i].Value()) }
	form := mutation.Form{
		Title:         v(fieldTitle),
		OriginalTitle: v(fieldOriginalTitle),
		Overview:      f.inputs[fieldOverview].Value(),
		ReleaseDate:   v(fieldReleaseDate),
		Language:      v(fieldLanguage),
		PosterPath:    v(fieldPosterPath),
		PosterFile:    v(fieldPosterFile),
		BackdropPath:  v(fieldBackdropPath),
		BackdropFile:  v(fieldBackdropFile),
	}
	var err error
	if form.VoteAverage, err = parseFloatField(v(fieldRating), "Rating"); err != nil {
		return form, err
	}
	if form.Popularity, err = parseFloatField(v(fieldPopularity), "Popularity"); err != nil {
		return form, err
	}
	if form.VoteCount, err = parseIntField(v(fieldVotes), "Vote count"); err != nil {
		return form, err
	}
	if form.TMDBID, err = parseIntField(v(fieldTMDBID), "TMDB id"); err != nil {
		return form, err
	}
	switch strings.ToLower(v(fieldAdult)) {
	case "y", "yes", "true", "1":
		form.Adult = true
	case "", "n", "no", "false", "0":
	default:
		return form, errors.New("Adult must be y or n")
	}
	return form, nil
}

func parseFloatField(s, label string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a number", label)
	}
	return v, nil
}

func parseIntField(s, label string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", label)
	}
	return v, nil
}

func (f *formModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	modalWidth := min(72, max(40, width-8))
	labelStyle := lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color(theme.Muted))
	focusLabel := labelStyle.Foreground(lipgloss.Color(theme.Accent)).Bold(true)

	title := "New Movie"
	if f.kind == mutation.KindUpdate {
		title = fmt.Sprintf("Edit Movie #%d", f.id)
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		style := labelStyle
		if i == f.focus {
			style = focusLabel
		}
		in.Width = modalWidth - 24
		b.WriteString(style.Render(formLabels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case f.pending():
		b.WriteString(styles.WarningText.Render("Saving..."))
	case f.err != "":
		b.WriteString(styles.DangerText.Render(f.err))
	case f.mutations != nil && f.mutations.Status(f.kind) == mutation.Failed:
		if err := f.mutations.Err(f.kind); err != nil {
			b.WriteString(styles.DangerText.Render(truncate(err.Error(), modalWidth-6)))
		}
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("tab next · ctrl+s save · esc cancel"))

	return placeModal(theme, b.String(), modalWidth, width, height)
}

// detailModal shows one movie read-only.
type detailModal struct {
	movie  catalog.Movie
	images imageurl.Normalizer
}

func newDetailModal(movie catalog.Movie, images imageurl.Normalizer) *detailModal {
	return &detailModal{movie: movie, images: images}
}

func (d *detailModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return d, nil, false
	}
	switch {
	case key.Matches(km, keys.Edit):
		return d, msgCmd(editMovieMsg{movie: d.movie}), true
	case km.String() == "esc", km.String() == "q", key.Matches(km, keys.Confirm):
		return d, nil, true
	}
	return d, nil, false
}

func (d *detailModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	modalWidth := min(80, max(40, width-8))
	inner := modalWidth - 6
	mv := d.movie
	row := func(label, value string) string {
		return styles.MutedText.Width(14).Render(label) + styles.Text.Render(truncate(value, inner-14))
	}

	lang := mv.LanguageCode()
	if mv.Language != nil && mv.Language.Name != "" {
		lang = mv.Language.Name + " (" + mv.Language.Code + ")"
	}
	genres := make([]string, 0, len(mv.Genres))
	for _, g := range mv.Genres {
		genres = append(genres, g.Name)
	}
	adult := "No"
	if mv.Adult {
		adult = "Yes"
	}

	lines := []string{
		styles.Text.Bold(true).Render(mv.Title),
		styles.FaintText.Render(mv.OriginalTitle),
		"",
		row("Released", formatDate(mv.ReleaseDate)),
		row("Language", lang),
		row("Genres", strings.Join(genres, ", ")),
		row("Rating", fmt.Sprintf("%s (%s votes)", formatRating(mv.VoteAverage), formatCount(mv.VoteCount))),
		row("Popularity", formatPopularity(mv.Popularity)),
		row("Adult", adult),
		row("TMDB id", strconv.FormatInt(mv.TMDBID, 10)),
		row("Poster", truncateMiddle(d.images.Display(mv.PosterPath, imageurl.SizeMedium, 500, 750), inner-14)),
		row("Backdrop", truncateMiddle(d.images.Display(mv.BackdropPath, imageurl.SizeBackdrop, 1280, 720), inner-14)),
		row("Updated", formatTimestamp(mv.ParsedUpdatedAt())),
		"",
		lipgloss.NewStyle().Width(inner).Foreground(lipgloss.Color(theme.Text)).Render(mv.Overview),
		"",
		styles.FaintText.Render("e edit · esc close"),
	}
	return placeModal(theme, strings.Join(lines, "\n"), modalWidth, width, height)
}

// confirmModal asks before deleting a movie.
type confirmModal struct {
	movie     catalog.Movie
	mutations *mutation.Controller
}

func newConfirmModal(movie catalog.Movie, mutations *mutation.Controller) *confirmModal {
	return &confirmModal{movie: movie, mutations: mutations}
}

func (c *confirmModal) pending() bool {
	return c.mutations != nil && c.mutations.Pending(mutation.KindDelete)
}

func (c *confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch {
	case key.Matches(km, keys.Yes):
		if c.pending() {
			return c, nil, false
		}
		return c, msgCmd(deleteConfirmedMsg{id: c.movie.ID}), false
	case key.Matches(km, keys.No):
		return c, nil, !c.pending()
	}
	return c, nil, false
}

func (c *confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	modalWidth := min(60, max(30, width-8))
	lines := []string{
		styles.DangerText.Bold(true).Render("Delete movie"),
		"",
		styles.Text.Render(fmt.Sprintf("Delete %q? This cannot be undone.", truncate(c.movie.Title, modalWidth-30))),
		"",
	}
	switch {
	case c.pending():
		lines = append(lines, styles.WarningText.Render("Deleting..."))
	case c.mutations != nil && c.mutations.Status(mutation.KindDelete) == mutation.Failed:
		if err := c.mutations.Err(mutation.KindDelete); err != nil {
			lines = append(lines, styles.DangerText.Render(truncate(err.Error(), modalWidth-6)))
		}
		lines = append(lines, styles.FaintText.Render("y retry · n cancel"))
	default:
		lines = append(lines, styles.FaintText.Render("y delete · n cancel"))
	}
	return placeModal(theme, strings.Join(lines, "\n"), modalWidth, width, height)
}

// dateFilterModal edits the release date bounds.
type dateFilterModal struct {
	inputs [2]textinput.Model
	focus  int
}

func newDateFilterModal(start, end string) *dateFilterModal {
	d := &dateFilterModal{}
	for i, v := range []string{start, end} {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = "yyyy-mm-dd"
		in.CharLimit = 10
		in.SetValue(v)
		d.inputs[i] = in
	}
	d.inputs[0].Focus()
	return d
}

func (d *dateFilterModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if ok {
		switch {
		case km.String() == "esc":
			return d, nil, true
		case key.Matches(km, keys.NextField), key.Matches(km, keys.PrevField):
			d.inputs[d.focus].Blur()
			d.focus = 1 - d.focus
			d.inputs[d.focus].Focus()
			return d, nil, false
		case key.Matches(km, keys.Confirm), key.Matches(km, keys.Submit):
			return d, msgCmd(dateFilterMsg{start: d.inputs[0].Value(), end: d.inputs[1].Value()}), true
		}
	}
	var cmd tea.Cmd
	d.inputs[d.focus], cmd = d.inputs[d.focus].Update(msg)
	return d, cmd, false
}

func (d *dateFilterModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	label := lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color(theme.Muted))
	lines := []string{
		styles.Text.Bold(true).Render("Release date"),
		"",
		label.Render("From") + d.inputs[0].View(),
		label.Render("To") + d.inputs[1].View(),
		"",
		styles.FaintText.Render("empty clears · enter apply · esc cancel"),
	}
	return placeModal(theme, strings.Join(lines, "\n"), 44, width, height)
}
