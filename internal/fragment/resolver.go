// Package fragment fetches section HTML fragments. The book must load
// unmodified under two hosting regimes — a root-relative local deployment
// and a subpath-prefixed static host — so every fetch tries an ordered
// list of candidate URLs until one answers.
package fragment

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Mode is the detected deployment regime.
type Mode string

const (
	// ModeLocal is a root-relative deployment (localhost or a dedicated
	// host serving the book at /).
	ModeLocal Mode = "local"

	// ModeSubpath is a static host serving the book under a path prefix,
	// e.g. https://example.github.io/physbook/.
	ModeSubpath Mode = "subpath"
)

// DetectMode inspects the page URL and returns the deployment mode and,
// for subpath mode, the path prefix (without trailing slash). There is no
// explicit configuration flag; the hostname and path are the contract.
func DetectMode(page *url.URL) (Mode, string) {
	host := page.Hostname()
	if host == "localhost" || host == "127.0.0.1" || host == "::1" || host == "" {
		return ModeLocal, ""
	}
	// A first path segment on a non-local host means subpath hosting.
	trimmed := strings.Trim(page.Path, "/")
	if trimmed == "" {
		return ModeLocal, ""
	}
	first := trimmed
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		first = trimmed[:i]
	}
	// Page files like index.html at the root are not a prefix.
	if strings.Contains(first, ".") {
		return ModeLocal, ""
	}
	return ModeSubpath, "/" + first
}

// Resolver produces the ordered candidate URLs for a fragment path.
type Resolver struct {
	// Origin is the page origin, e.g. "http://localhost:8080".
	Origin string

	// Mode is the detected deployment mode.
	Mode Mode

	// Prefix is the subpath prefix ("/physbook"), empty in local mode.
	Prefix string

	// Now stamps the cache buster; defaults to time.Now.
	Now func() time.Time
}

// NewResolver builds a resolver for the given page URL.
func NewResolver(page *url.URL) *Resolver {
	mode, prefix := DetectMode(page)
	origin := page.Scheme + "://" + page.Host
	return &Resolver{Origin: origin, Mode: mode, Prefix: prefix}
}

// cacheBuster returns the query suffix that defeats intermediate caching
// during iterative loading.
func (r *Resolver) cacheBuster() string {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return "?v=" + strconv.FormatInt(now().UnixMilli(), 10)
}

// Candidates returns the ordered list of absolute URLs to try for the
// configured relative path. The order differs by deployment mode; both
// modes share the same trailing fallbacks.
func (r *Resolver) Candidates(relPath string) []string {
	cb := r.cacheBuster()
	bare := strings.TrimLeft(relPath, "/")
	rooted := "/" + bare

	var paths []string
	switch r.Mode {
	case ModeSubpath:
		prefixed := r.Prefix + rooted
		paths = append(paths,
			prefixed+cb,
			prefixed,
			relPath+cb,
			relPath,
		)
	default:
		paths = append(paths,
			relPath+cb,
			relPath,
			bare,
			rooted+cb,
			rooted,
		)
	}

	// Common trailing fallbacks: resolve against the origin, then the
	// raw path with leading slashes stripped.
	paths = append(paths, rooted, bare)

	seen := make(map[string]bool, len(paths))
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		u := r.absolute(p)
		if seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

func (r *Resolver) absolute(p string) string {
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		return fmt.Sprintf("%s/%s", r.Origin, p)
	}
	return r.Origin + p
}
