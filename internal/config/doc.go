// Package config loads the console configuration.
//
// Settings come from a TOML file, ~/.config/marquee/config.toml unless a path
// is given. A missing file is not an error: every setting has a default, so
// the console runs against the production catalog without any setup.
//
// Example config.toml:
//
//	api_url = "https://api.movie.ganipedia.xyz/api/v1"
//	log_file = "~/.local/state/marquee/marquee.log"
//	stale_minutes = 5
//	page_size = 10
//	poll_seconds = 30
//	secure_images = true
//
//	[image_host_rewrites]
//	"31.97.107.126:9000" = "storage.bpdabujapijabar.or.id"
//
// The MARQUEE_API_URL environment variable overrides api_url when it is set
// and non-empty. An [image_host_rewrites] table replaces the built-in one.
package config
