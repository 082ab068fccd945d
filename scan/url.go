package scan

import (
	"errors"
	"net/url"
	"strings"
)

// ErrNoEndpoint is returned when no resolver produced a channel URL.
var ErrNoEndpoint = errors.New("no scan channel endpoint could be derived")

// Resolver derives the channel URL for a ticket, or reports false to let the
// next resolver try.
type Resolver func(ticketID string) (string, bool)

// ResolveURL returns the first URL produced by resolvers.
func ResolveURL(ticketID string, resolvers ...Resolver) (string, error) {
	if ticketID == "" {
		return "", errors.New("ticket id must not be empty")
	}
	for _, resolve := range resolvers {
		if resolve == nil {
			continue
		}
		if endpoint, ok := resolve(ticketID); ok {
			return endpoint, nil
		}
	}
	return "", ErrNoEndpoint
}

// FromBase maps an absolute http(s) or ws(s) base URL onto the push scheme.
// Anything that does not parse as an absolute URL is skipped.
func FromBase(raw string) Resolver {
	return func(ticketID string) (string, bool) {
		base := strings.TrimSpace(raw)
		if base == "" {
			return "", false
		}
		u, err := url.Parse(base)
		if err != nil || u.Host == "" {
			return "", false
		}
		scheme, ok := pushScheme(u.Scheme)
		if !ok {
			return "", false
		}
		return buildChannelURL(scheme, u.Host, ticketID), true
	}
}

// FromPage derives scheme and host from the page location the client runs under.
func FromPage(pageURL string) Resolver {
	return func(ticketID string) (string, bool) {
		u, err := url.Parse(strings.TrimSpace(pageURL))
		if err != nil || u.Host == "" {
			return "", false
		}
		scheme := "ws"
		if u.Scheme == "https" || u.Scheme == "wss" {
			scheme = "wss"
		}
		return buildChannelURL(scheme, u.Host, ticketID), true
	}
}

// DefaultResolvers is the lookup order: push base, API base, page location.
func DefaultResolvers(pushBase, apiBase, pageURL string) []Resolver {
	return []Resolver{FromBase(pushBase), FromBase(apiBase), FromPage(pageURL)}
}

func pushScheme(scheme string) (string, bool) {
	switch strings.ToLower(scheme) {
	case "https", "wss":
		return "wss", true
	case "http", "ws":
		return "ws", true
	default:
		return "", false
	}
}

func buildChannelURL(scheme, host, ticketID string) string {
	u := url.URL{
		Scheme:  scheme,
		Host:    host,
		Path:    "/ws/scan/" + ticketID + "/",
		RawPath: "/ws/scan/" + url.PathEscape(ticketID) + "/",
	}
	return u.String()
}
