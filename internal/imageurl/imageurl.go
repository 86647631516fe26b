// Package imageurl repairs and resolves the poster and backdrop URLs the
// catalog hands back.
//
// Stored image references come in three shapes: absolute object-storage URLs
// (sometimes malformed by the storage layer), provider-relative paths such as
// "/abc.jpg", and anything else, which is passed through untouched. When none
// of them yields an image the UI shows an inline placeholder instead.
package imageurl

import (
	"fmt"
	"regexp"
	"strings"
)

// ProviderBaseURL serves provider images at precomputed sizes.
const ProviderBaseURL = "https://image.tmdb.org/t/p"

// Size tokens understood by the provider image CDN.
const (
	SizeThumb    = "w200"
	SizeMedium   = "w500"
	SizeBackdrop = "w1280"
	SizeOriginal = "original"
)

// LegacyStorageHost is the object-storage address older records still reference.
const LegacyStorageHost = "31.97.107.126:9000"

// CurrentStorageHost replaces LegacyStorageHost.
const CurrentStorageHost = "storage.bpdabujapijabar.or.id"

var (
	doubleProtocol = regexp.MustCompile(`^(?:https?://){2,}`)
	doubleMovies   = regexp.MustCompile(`(?:/movies){2,}/`)
)

// Normalizer repairs image URLs. The zero value applies only the structural
// repairs; use Default for the production behaviour.
type Normalizer struct {
	// SecurePage upgrades http:// to https:// so images are not blocked as
	// mixed content on a page served over TLS.
	SecurePage bool
	// HostRewrites maps a URL host (with port, if any) to its replacement.
	// Only the host is compared and replaced, never the path.
	HostRewrites map[string]string
}

// DefaultHostRewrites returns the built-in host rewrite table.
func DefaultHostRewrites() map[string]string {
	return map[string]string{LegacyStorageHost: CurrentStorageHost}
}

// Default is the normalizer used by the package-level helpers.
var Default = Normalizer{SecurePage: true, HostRewrites: DefaultHostRewrites()}

// Normalize repairs a possibly malformed absolute URL. It reports false for
// empty input.
func (n Normalizer) Normalize(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	fixed := doubleProtocol.ReplaceAllString(raw, "https://")
	fixed = doubleMovies.ReplaceAllString(fixed, "/movies/")

	if n.SecurePage && strings.HasPrefix(fixed, "http://") {
		fixed = "https://" + strings.TrimPrefix(fixed, "http://")
	}

	// Host rewrites must follow protocol repair.
	fixed = n.rewriteHost(fixed)

	if fixed == "" {
		return "", false
	}
	return fixed, true
}

// Resolve turns a stored image reference into a usable URL at the given size.
func (n Normalizer) Resolve(path, size string) (string, bool) {
	if path == "" {
		return "", false
	}
	if strings.HasPrefix(path, "http") {
		return n.Normalize(path)
	}
	if strings.HasPrefix(path, "/") {
		if size == "" {
			size = SizeThumb
		}
		return ProviderBaseURL + "/" + size + path, true
	}
	return path, true
}

// Display resolves path or falls back to a placeholder of the given box.
func (n Normalizer) Display(path, size string, width, height int) string {
	if resolved, ok := n.Resolve(path, size); ok {
		return resolved
	}
	return Placeholder(width, height)
}

// rewriteHost replaces the authority's host[:port] when it matches a
// configured rewrite exactly. Chains are followed to their end; a host that
// leads into a cycle is left alone.
func (n Normalizer) rewriteHost(raw string) string {
	if len(n.HostRewrites) == 0 {
		return raw
	}
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" || strings.ContainsAny(scheme, "/?#@:") {
		return raw
	}
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	authority, tail := rest[:end], rest[end:]
	userinfo := ""
	if i := strings.LastIndex(authority, "@"); i >= 0 {
		userinfo, authority = authority[:i+1], authority[i+1:]
	}
	host := n.finalHost(authority)
	if host == authority {
		return raw
	}
	return scheme + "://" + userinfo + host + tail
}

func (n Normalizer) finalHost(host string) string {
	if host == "" {
		return host
	}
	seen := map[string]bool{host: true}
	cur := host
	for {
		next, ok := n.HostRewrites[cur]
		if !ok || !validHost(next) {
			return cur
		}
		if seen[next] {
			return host
		}
		seen[next] = true
		cur = next
	}
}

// validHost rejects rewrite targets that would change more than the host.
func validHost(h string) bool {
	return h != "" && !strings.ContainsAny(h, "/?#@ \t")
}

// Normalize repairs raw with the Default normalizer.
func Normalize(raw string) (string, bool) {
	return Default.Normalize(raw)
}

// Resolve resolves path with the Default normalizer.
func Resolve(path, size string) (string, bool) {
	return Default.Resolve(path, size)
}

// Placeholder returns an inline SVG data URL: a gray box of the requested
// size captioned "No Image".
func Placeholder(width, height int) string {
	if width <= 0 {
		width = 200
	}
	if height <= 0 {
		height = 300
	}
	return fmt.Sprintf(
		`data:image/svg+xml,%%3Csvg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d"%%3E`+
			`%%3Crect fill="%%232a2a2a" width="%d" height="%d"/%%3E`+
			`%%3Ctext fill="%%23666" font-family="Arial" font-size="14" x="50%%25" y="50%%25" text-anchor="middle" dominant-baseline="middle"%%3ENo Image%%3C/text%%3E`+
			`%%3C/svg%%3E`,
		width, height, width, height, width, height)
}
