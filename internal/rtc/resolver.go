// Package rtc resolves the ICE server list handed to clients for NAT
// traversal. Resolution is a pure function of the requesting peer id and a
// pluggable configuration source, so deployments can rotate TURN credentials
// without a restart and tests can substitute a map.
package rtc

import (
	"log/slog"
	"os"
	"strings"

	"github.com/adidharmatoru/remo-signal/internal/protocol"
)

// Configuration keys consulted on every resolution.
const (
	envWhitelist      = "ICE_SERVER_WHITELIST"
	envSTUNServers    = "STUN_SERVERS"
	envTURNConfigs    = "TURN_SERVER_CONFIGS"
	envTURNServers    = "TURN_SERVERS"
	envTURNUsername   = "TURN_USERNAME"
	envTURNCredential = "TURN_CREDENTIAL"
)

// Source supplies configuration values. Missing keys return "".
type Source interface {
	Get(key string) string
}

// EnvSource reads the process environment at call time.
type EnvSource struct{}

// Get implements Source.
func (EnvSource) Get(key string) string { return os.Getenv(key) }

// MapSource serves values from a fixed map.
type MapSource map[string]string

// Get implements Source.
func (m MapSource) Get(key string) string { return m[key] }

// Resolver builds ICE server lists from a Source.
type Resolver struct {
	src    Source
	logger *slog.Logger
}

// NewResolver creates a resolver over the given source.
func NewResolver(src Source, logger *slog.Logger) *Resolver {
	return &Resolver{src: src, logger: logger}
}

// Resolve returns the ICE servers for the requesting peer, in order: STUN
// URLs, TURN_SERVER_CONFIGS triples, then the shared-credential TURN set.
// If ICE_SERVER_WHITELIST is non-empty and does not contain the peer id, the
// list is empty.
func (r *Resolver) Resolve(peerID string) []protocol.IceServer {
	servers := make([]protocol.IceServer, 0, 4)

	if whitelist := splitList(r.src.Get(envWhitelist)); len(whitelist) > 0 {
		allowed := false
		for _, id := range whitelist {
			if id == peerID {
				allowed = true
				break
			}
		}
		if !allowed {
			return servers
		}
	}

	for _, url := range splitList(r.src.Get(envSTUNServers)) {
		servers = append(servers, protocol.IceServer{URL: url})
	}

	// TURN_SERVER_CONFIGS entries are url|username|credential triples.
	for _, entry := range splitList(r.src.Get(envTURNConfigs)) {
		parts := strings.Split(entry, "|")
		if len(parts) < 3 {
			r.logger.Warn("skipping malformed TURN server config", "entry", entry)
			continue
		}
		servers = append(servers, protocol.IceServer{
			URL:      strings.TrimSpace(parts[0]),
			Username: strings.TrimSpace(parts[1]),
			Password: strings.TrimSpace(parts[2]),
		})
	}

	// The shared-credential TURN set is honoured only when all three variables
	// are present.
	turnURLs := splitList(r.src.Get(envTURNServers))
	username := strings.TrimSpace(r.src.Get(envTURNUsername))
	credential := strings.TrimSpace(r.src.Get(envTURNCredential))
	if len(turnURLs) > 0 && username != "" && credential != "" {
		for _, url := range turnURLs {
			servers = append(servers, protocol.IceServer{
				URL:      url,
				Username: username,
				Password: credential,
			})
		}
	}

	return servers
}

// splitList splits a comma-separated value, trimming whitespace and dropping
// empty entries.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
