package decision

import (
	"context"
	"net"
	"net/url"
	"strconv"

	"github.com/plugwarden/plugwarden/internal/domain/capability"
	"github.com/plugwarden/plugwarden/internal/domain/conditions"
)

// NetworkChecker decides outbound network call requests against host,
// method, scheme, port, path, and header allow-lists.
type NetworkChecker struct {
	base
}

// NewNetworkChecker creates a network checker.
func NewNetworkChecker(snapshots SnapshotProvider, conds conditions.Evaluator) *NetworkChecker {
	return &NetworkChecker{base{snapshots: snapshots, conds: conds}}
}

// Type returns the capability type this checker serves.
func (c *NetworkChecker) Type() capability.Type { return capability.TypeNetwork }

// Check parses the requested URL once and allows on the first entry whose
// allow-lists all admit it. A URL that cannot be parsed is a malformed
// request, not a policy miss.
func (c *NetworkChecker) Check(ctx context.Context, pluginID string, req capability.Request, evalCtx map[string]any) capability.Result {
	netReq, ok := req.(capability.NetworkRequest)
	if !ok {
		return capability.Deny(capability.ReasonBadRequestType)
	}

	u, err := url.Parse(netReq.URL)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return capability.Deny(capability.ReasonBadRequestType)
	}
	port := urlPort(u)

	entries := c.entries(ctx, pluginID, capability.TypeNetwork)
	if len(entries) == 0 {
		return capability.Deny(capability.ReasonNoCapabilities)
	}

	for _, e := range entries {
		if !e.Active || !c.conditionsOK(ctx, e, evalCtx) {
			continue
		}
		row, ok := e.Row.(*capability.NetworkRow)
		if !ok {
			continue
		}
		if !row.Access {
			continue
		}
		if !capability.ValueAllowed(netReq.Method, row.Methods) {
			continue
		}
		if !capability.ValueAllowed(u.Scheme, row.Schemes) {
			continue
		}
		if !capability.HostAllowed(u.Hostname(), row.Hosts) {
			continue
		}
		if ip := net.ParseIP(u.Hostname()); ip != nil && len(row.IPsAllowed) > 0 {
			if !capability.ValueAllowed(u.Hostname(), row.IPsAllowed) {
				continue
			}
		}
		if !capability.PortAllowed(port, row.Ports) {
			continue
		}
		if !capability.URLPathAllowed(u.Path, row.Paths) {
			continue
		}
		if !headersAllowed(netReq.Headers, row.HeadersAllowed) {
			continue
		}
		return capability.Allow(capability.TypeNetwork, e.ID)
	}

	return capability.Deny(capability.ReasonNoMatch)
}

// urlPort returns the explicit port or the scheme default.
func urlPort(u *url.URL) int {
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			return n
		}
		return -1
	}
	switch u.Scheme {
	case "http", "ws":
		return 80
	case "https", "wss":
		return 443
	}
	return 0
}

// headersAllowed requires every request header name to be declared. An
// empty allow-list is unrestricted.
func headersAllowed(headers map[string]string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for name := range headers {
		if !capability.ValueAllowed(name, allowed) {
			return false
		}
	}
	return true
}
