package query

import (
	"fmt"
	"strings"
)

// Family groups keys that are invalidated together.
type Family string

// Key families used by the console.
const (
	FamilyMovies         Family = "movies"
	FamilyDashboardStats Family = "dashboard-stats"
	FamilyChartData      Family = "chart-data"
	FamilyLastSyncLog    Family = "last-sync-log"
)

// Key identifies one cached read: a family plus an ordered argument tuple.
// Keys are comparable; two keys are equal iff family and every argument are
// equal.
type Key struct {
	Family Family
	args   string
}

// NewKey builds a key. Arguments are encoded with their Go syntax so that
// ("a,b", "c") and ("a", "b,c") stay distinct.
func NewKey(family Family, args ...any) Key {
	if len(args) == 0 {
		return Key{Family: family}
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprintf("%#v", arg)
	}
	return Key{Family: family, args: strings.Join(parts, ",")}
}

// String renders the key for logs and singleflight.
func (k Key) String() string {
	if k.args == "" {
		return string(k.Family)
	}
	return string(k.Family) + "(" + k.args + ")"
}
