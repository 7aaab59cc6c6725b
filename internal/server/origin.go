package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// originPolicy decides which browser origins may open a WebSocket.
type originPolicy struct {
	log      *slog.Logger
	allowAll bool
	allowed  map[string]struct{}
}

var errInvalidOrigin = errors.New("origin must be scheme://host")

func newOriginPolicy(log *slog.Logger, origins []string) *originPolicy {
	p := &originPolicy{log: log, allowed: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		p.allow(origin)
	}
	return p
}

// allow adds one configured entry. "*" admits every origin; entries that are
// not scheme://host are logged and skipped.
func (p *originPolicy) allow(entry string) {
	entry = strings.TrimSpace(entry)
	switch entry {
	case "":
		return
	case "*":
		p.allowAll = true
		return
	}

	key, err := originKey(entry)
	if err != nil {
		p.log.Warn("Ignoring invalid origin in configuration", "origin", entry, "error", err)
		return
	}
	p.allowed[key] = struct{}{}
}

// originKey lower-cases the scheme and host of origin, dropping any path.
func originKey(origin string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", errInvalidOrigin, origin)
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), nil
}

// allows reports whether r may be upgraded. A wildcard policy also admits
// clients that send no Origin header at all, such as the terminal client.
func (p *originPolicy) allows(r *http.Request) bool {
	if p.allowAll {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	key, err := originKey(origin)
	if err != nil {
		return false
	}
	_, ok := p.allowed[key]
	return ok
}

func (p *originPolicy) checkOrigin(r *http.Request) bool {
	if p.allows(r) {
		return true
	}

	p.log.Warn("Blocked WebSocket connection from disallowed origin", "origin", r.Header.Get("Origin"))
	return false
}
