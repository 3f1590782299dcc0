package server

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// OriginPolicy decides which Origin headers may upgrade to a WebSocket. A
// configured "*" entry allows every origin; anything else is matched against
// the normalized scheme://host allowlist.
type OriginPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
	log      *zap.Logger
}

// NewOriginPolicy normalizes the configured origins, dropping entries that
// cannot be parsed.
func NewOriginPolicy(origins []string, log *zap.Logger) *OriginPolicy {
	p := &OriginPolicy{
		allowed: make(map[string]struct{}, len(origins)),
		log:     log,
	}
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			p.allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn("ignoring invalid configured origin", zap.String("origin", origin))
			continue
		}
		p.allowed[normalized] = struct{}{}
	}
	return p
}

// Check is the upgrader's CheckOrigin hook.
func (p *OriginPolicy) Check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	if p.allowAll {
		return true
	}
	if _, ok := p.allowed[normalized]; ok {
		return true
	}
	p.log.Warn("blocked websocket upgrade from disallowed origin", zap.String("origin", origin))
	return false
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
