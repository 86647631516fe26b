package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// API is the full set of catalog operations the console relies on.
// *Client implements it; tests and controllers depend on the interface.
type API interface {
	ListMovies(ctx context.Context, params ListParams) (Page, error)
	GetMovie(ctx context.Context, id int64) (*Movie, error)
	CreateMovie(ctx context.Context, input MovieInput) (*Movie, error)
	UpdateMovie(ctx context.Context, id int64, input MovieInput) (*Movie, error)
	DeleteMovie(ctx context.Context, id int64) error

	SyncMovies(ctx context.Context, pages int) (*SyncLog, error)
	LastSyncLog(ctx context.Context) (*SyncLog, error)

	DashboardStats(ctx context.Context) (*DashboardStats, error)

	ChartData(ctx context.Context, startDate, endDate string) (*ChartData, error)
	PieChart(ctx context.Context) ([]PieSlice, error)
	ColumnChart(ctx context.Context, startDate, endDate string) ([]ColumnBar, error)
	MonthlyChart(ctx context.Context, year int) ([]ColumnBar, error)

	Presign(ctx context.Context, filename, contentType string) (*UploadTarget, error)
	PutObject(ctx context.Context, presignedURL string, body []byte, contentType string) error
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the catalog REST API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	logger    *slog.Logger
}

const (
	// DefaultBaseURL is the production catalog endpoint.
	DefaultBaseURL = "https://api.movie.ganipedia.xyz/api/v1"

	defaultUserAgent   = "marquee/0.1"
	defaultContentType = "image/jpeg"
	requestTimeout     = 15 * time.Second
	uploadTimeout      = 2 * time.Minute
	jsonContentType    = "application/json"
	requestIDHeader    = "X-Request-ID"
)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger attaches a structured logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a Client rooted at baseURL. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: requestTimeout},
		userAgent: defaultUserAgent,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListParams are the movie list query parameters. Values pass through to the
// server verbatim; the server decides which sort fields and ranges are valid.
type ListParams struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	Order     string
	StartDate string
	EndDate   string
}

func (p ListParams) values() url.Values {
	values := url.Values{}
	if p.Page > 0 {
		values.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		values.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		values.Set("search", p.Search)
	}
	if p.SortBy != "" {
		values.Set("sort_by", p.SortBy)
	}
	if p.Order != "" {
		values.Set("order", p.Order)
	}
	if p.StartDate != "" {
		values.Set("start_date", p.StartDate)
	}
	if p.EndDate != "" {
		values.Set("end_date", p.EndDate)
	}
	return values
}

// ListMovies retrieves one page of movies.
func (c *Client) ListMovies(ctx context.Context, params ListParams) (Page, error) {
	env, err := call[[]Movie](ctx, c, http.MethodGet, "/movies", params.values(), nil)
	if err != nil {
		return Page{}, err
	}
	page := Page{Movies: env.Data}
	if env.Meta != nil {
		page.Meta = *env.Meta
	}
	return page, nil
}

// GetMovie retrieves a single movie.
func (c *Client) GetMovie(ctx context.Context, id int64) (*Movie, error) {
	env, err := call[Movie](ctx, c, http.MethodGet, moviePath(id), nil, nil)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// CreateMovie stores a new movie and returns it as persisted.
func (c *Client) CreateMovie(ctx context.Context, input MovieInput) (*Movie, error) {
	env, err := call[Movie](ctx, c, http.MethodPost, "/movies", nil, input)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// UpdateMovie replaces the editable fields of a movie.
func (c *Client) UpdateMovie(ctx context.Context, id int64, input MovieInput) (*Movie, error) {
	env, err := call[Movie](ctx, c, http.MethodPut, moviePath(id), nil, input)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// DeleteMovie removes a movie.
func (c *Client) DeleteMovie(ctx context.Context, id int64) error {
	_, err := call[json.RawMessage](ctx, c, http.MethodDelete, moviePath(id), nil, nil)
	return err
}

// SyncMovies asks the backend to import pages of popular movies from the provider.
func (c *Client) SyncMovies(ctx context.Context, pages int) (*SyncLog, error) {
	if pages < 1 {
		pages = 1
	}
	values := url.Values{}
	values.Set("pages", strconv.Itoa(pages))
	env, err := call[SyncLog](ctx, c, http.MethodPost, "/sync/movies", values, nil)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// LastSyncLog returns the most recent sync run, or nil when none happened yet.
func (c *Client) LastSyncLog(ctx context.Context) (*SyncLog, error) {
	env, err := call[*SyncLog](ctx, c, http.MethodGet, "/sync/last-log", nil, nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// DashboardStats retrieves the aggregate dashboard snapshot.
func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	env, err := call[DashboardStats](ctx, c, http.MethodGet, "/dashboard/stats", nil, nil)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// ChartData retrieves both chart series for the given release-date range.
func (c *Client) ChartData(ctx context.Context, startDate, endDate string) (*ChartData, error) {
	env, err := call[ChartData](ctx, c, http.MethodGet, "/charts", dateRange(startDate, endDate), nil)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// PieChart retrieves the per-language distribution.
func (c *Client) PieChart(ctx context.Context) ([]PieSlice, error) {
	env, err := call[[]PieSlice](ctx, c, http.MethodGet, "/charts/pie", nil, nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ColumnChart retrieves the per-period distribution for a date range.
func (c *Client) ColumnChart(ctx context.Context, startDate, endDate string) ([]ColumnBar, error) {
	env, err := call[[]ColumnBar](ctx, c, http.MethodGet, "/charts/column", dateRange(startDate, endDate), nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// MonthlyChart retrieves per-month counts for a year.
func (c *Client) MonthlyChart(ctx context.Context, year int) ([]ColumnBar, error) {
	path := "/charts/monthly/" + strconv.Itoa(year)
	env, err := call[[]ColumnBar](ctx, c, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Presign requests an upload destination for a file.
func (c *Client) Presign(ctx context.Context, filename, contentType string) (*UploadTarget, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, fmt.Errorf("filename required")
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = defaultContentType
	}
	values := url.Values{}
	values.Set("filename", filename)
	values.Set("contentType", contentType)
	env, err := call[UploadTarget](ctx, c, http.MethodGet, "/upload/presign", values, nil)
	if err != nil {
		return nil, err
	}
	if env.Data.PresignedURL == "" || env.Data.PublicURL == "" {
		return nil, fmt.Errorf("presign %s: incomplete upload target", filename)
	}
	return &env.Data, nil
}

// PutObject transfers raw bytes straight to object storage. It does not use
// the API base URL or the JSON headers; the only header is the file's own
// content type.
func (c *Client) PutObject(ctx context.Context, presignedURL string, body []byte, contentType string) error {
	target, err := url.Parse(strings.TrimSpace(presignedURL))
	if err != nil || target.Scheme == "" || target.Host == "" {
		return fmt.Errorf("invalid presigned url %q", presignedURL)
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.ContentLength = int64(len(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPStatusError{Method: http.MethodPut, Path: target.Host + target.Path, StatusCode: resp.StatusCode}
	}
	c.logger.Debug("object uploaded", "host", target.Host, "bytes", len(body))
	return nil
}

func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (Envelope[T], error) {
	var env Envelope[T]
	if c == nil {
		return env, fmt.Errorf("client is nil")
	}

	reqURL := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return env, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return env, fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", jsonContentType)
	req.Header.Set("Accept", jsonContentType)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return env, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(started))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return env, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &HTTPStatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
		var failure Envelope[json.RawMessage]
		if json.Unmarshal(raw, &failure) == nil {
			statusErr.Message = strings.TrimSpace(failure.Message)
		}
		return env, statusErr
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decode response: %w", err)
	}
	return env, nil
}

// HTTPStatusError reports a non-2xx response.
type HTTPStatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "api error"
	}
	msg := fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// StatusCode extracts the HTTP status from err, or 0 when err is not a status error.
func StatusCode(err error) int {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func moviePath(id int64) string {
	return "/movies/" + strconv.FormatInt(id, 10)
}

func dateRange(startDate, endDate string) url.Values {
	values := url.Values{}
	if startDate != "" {
		values.Set("start_date", startDate)
	}
	if endDate != "" {
		values.Set("end_date", endDate)
	}
	return values
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = DefaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
