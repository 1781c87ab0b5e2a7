package routes

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Route names used when building links.
const (
	AvatarRoute      = "core.avatar.getAvatar"
	GuestAvatarRoute = "core.GuestAvatar.getAvatar"
	ShowFileRoute    = "files.View.showFile"
)

var ErrRouteNotFound = errors.New("route not found")

// DefaultRoutes maps route names to path patterns. Placeholders are written as {name}.
var DefaultRoutes = map[string]string{
	AvatarRoute:      "/avatar/{userId}/{size}",
	GuestAvatarRoute: "/avatar/guest/{guestName}/{size}",
	ShowFileRoute:    "/apps/files/",
}

// URLGenerator builds links to named routes.
type URLGenerator struct {
	baseURL string
	routes  map[string]string
}

func NewURLGenerator(baseURL string, routes map[string]string) *URLGenerator {
	if routes == nil {
		routes = DefaultRoutes
	}
	return &URLGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		routes:  routes,
	}
}

// LinkToRoute returns the path for the named route. Params matching a placeholder are
// path-escaped into it; the rest are appended as a query string in key order.
func (g *URLGenerator) LinkToRoute(name string, params map[string]string) (string, error) {
	pattern, ok := g.routes[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRouteNotFound, name)
	}

	used := make(map[string]bool, len(params))
	var b strings.Builder
	rest := pattern
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("malformed route pattern %q", pattern)
		}
		key := rest[open+1 : open+end]
		value, ok := params[key]
		if !ok {
			return "", fmt.Errorf("route %s: missing parameter %q", name, key)
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		used[key] = true
		rest = rest[open+end+1:]
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if !used[k] {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		query := make([]string, 0, len(keys))
		for _, k := range keys {
			query = append(query, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
		}
		b.WriteString("?")
		b.WriteString(strings.Join(query, "&"))
	}

	return b.String(), nil
}

// LinkToRouteAbsolute is LinkToRoute prefixed with the configured base URL.
func (g *URLGenerator) LinkToRouteAbsolute(name string, params map[string]string) (string, error) {
	link, err := g.LinkToRoute(name, params)
	if err != nil {
		return "", err
	}
	return g.baseURL + link, nil
}
