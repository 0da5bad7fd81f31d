package tenancy

import (
	"net"
	"net/url"
	"strings"
)

// Reserved subdomain labels that never resolve to a tenant. The router owns
// these hosts.
var reservedLabels = map[string]bool{
	"www": true,
	"api": true,
}

// Resolver derives a tenant subdomain from the host of an inbound request.
type Resolver struct {
	// RootDomain is the apex domain of the deployment, e.g. "docgate.io".
	RootDomain string

	// PreviewSuffix is the hostname suffix of ephemeral preview deployments,
	// e.g. ".vercel.app". Preview hosts encode the subdomain before "---".
	PreviewSuffix string
}

// Resolve maps a request URL and Host header to a tenant subdomain.
// It returns "" when the request targets no tenant (root domain, reserved
// labels, unknown custom domains). The function is pure and total: malformed
// input yields "", never an error.
func (rs Resolver) Resolve(requestURL, hostHeader string) string {
	urlHost := hostFromURL(requestURL)
	headerHost := strings.ToLower(stripPort(hostHeader))

	// Local development: *.localhost / 127.0.0.1, URL first, header fallback.
	if isLocalHost(urlHost) || isLocalHost(headerHost) {
		if label := localLabel(urlHost); label != "" {
			return label
		}
		return localLabel(headerHost)
	}

	hostname := urlHost
	if hostname == "" {
		hostname = headerHost
	}
	if hostname == "" {
		return ""
	}

	// Preview deployments encode the subdomain before "---".
	if strings.Contains(hostname, "---") && rs.PreviewSuffix != "" && strings.HasSuffix(hostname, rs.PreviewSuffix) {
		return strings.SplitN(hostname, "---", 2)[0]
	}

	root := strings.ToLower(rs.RootDomain)
	if root == "" || hostname == root {
		return ""
	}

	if label, ok := strings.CutSuffix(hostname, "."+root); ok {
		if reservedLabels[label] {
			return ""
		}
		return label
	}

	// Custom or foreign domain: no tenant.
	return ""
}

// hostFromURL extracts the lowercased host (without port) from a URL string.
func hostFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(stripPort(u.Host))
}

// stripPort removes a trailing :port from a host, tolerating bare hosts.
func stripPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLocalHost(host string) bool {
	return strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1")
}

// localLabel extracts the first label before ".localhost".
// "foo.localhost" yields "foo"; bare "localhost" and "127.0.0.1" yield "".
func localLabel(host string) string {
	rest, ok := strings.CutSuffix(host, ".localhost")
	if !ok {
		return ""
	}
	if i := strings.Index(rest, "."); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
