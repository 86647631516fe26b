// Package dashboard holds the cached reads behind the dashboard and sync
// views: aggregate stats, chart series for a release-date range and the last
// sync run.
package dashboard

import (
	"context"
	"time"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/query"
)

// ListCap is how many movies each dashboard list shows.
const ListCap = 4

// DefaultRangeMonths is the span of the chart range on first display.
const DefaultRangeMonths = 12

const dateLayout = "2006-01-02"

// Reader is the subset of the catalog API the dashboard reads from.
type Reader interface {
	DashboardStats(ctx context.Context) (*catalog.DashboardStats, error)
	ChartData(ctx context.Context, startDate, endDate string) (*catalog.ChartData, error)
	LastSyncLog(ctx context.Context) (*catalog.SyncLog, error)
}

// Range is an inclusive release-date window for the column chart.
type Range struct {
	Start time.Time
	End   time.Time
}

// DefaultRange ends today and starts DefaultRangeMonths earlier.
func DefaultRange(now time.Time) Range {
	end := day(now)
	return Range{Start: end.AddDate(0, -DefaultRangeMonths, 0), End: end}
}

// Shift moves both ends by months.
func (r Range) Shift(months int) Range {
	return Range{Start: r.Start.AddDate(0, months, 0), End: r.End.AddDate(0, months, 0)}
}

// Dates returns the range as yyyy-mm-dd strings.
func (r Range) Dates() (start, end string) {
	return r.Start.Format(dateLayout), r.End.Format(dateLayout)
}

func (r Range) String() string {
	start, end := r.Dates()
	return start + " .. " + end
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StatsKey identifies the dashboard stats entry.
func StatsKey() query.Key {
	return query.NewKey(query.FamilyDashboardStats)
}

// ChartKey identifies the chart entry for r.
func ChartKey(r Range) query.Key {
	start, end := r.Dates()
	return query.NewKey(query.FamilyChartData, start, end)
}

// LastSyncKey identifies the last sync run entry.
func LastSyncKey() query.Key {
	return query.NewKey(query.FamilyLastSyncLog)
}

// Stats reads the dashboard stats through c.
func Stats(ctx context.Context, c *query.Cache, api Reader) (*catalog.DashboardStats, error) {
	return query.Get(ctx, c, StatsKey(), statsFetcher(api))
}

// Charts reads both chart series for r through c.
func Charts(ctx context.Context, c *query.Cache, api Reader, r Range) (*catalog.ChartData, error) {
	return query.Get(ctx, c, ChartKey(r), chartFetcher(api, r))
}

// LastSync reads the most recent sync run through c. A nil run means the
// catalog was never synced.
func LastSync(ctx context.Context, c *query.Cache, api Reader) (*catalog.SyncLog, error) {
	return query.Get(ctx, c, LastSyncKey(), lastSyncFetcher(api))
}

// MountStats keeps the stats entry live until the returned func is called.
func MountStats(c *query.Cache, api Reader) func() {
	return query.Mount(c, StatsKey(), statsFetcher(api))
}

// MountCharts keeps the chart entry for r live.
func MountCharts(c *query.Cache, api Reader, r Range) func() {
	return query.Mount(c, ChartKey(r), chartFetcher(api, r))
}

// MountLastSync keeps the last sync entry live.
func MountLastSync(c *query.Cache, api Reader) func() {
	return query.Mount(c, LastSyncKey(), lastSyncFetcher(api))
}

func statsFetcher(api Reader) func(context.Context) (*catalog.DashboardStats, error) {
	return api.DashboardStats
}

func chartFetcher(api Reader, r Range) func(context.Context) (*catalog.ChartData, error) {
	start, end := r.Dates()
	return func(ctx context.Context) (*catalog.ChartData, error) {
		return api.ChartData(ctx, start, end)
	}
}

func lastSyncFetcher(api Reader) func(context.Context) (*catalog.SyncLog, error) {
	return api.LastSyncLog
}
