package tenancy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestResolver() Resolver {
	return Resolver{
		RootDomain:    "docgate.io",
		PreviewSuffix: ".vercel.app",
	}
}

func TestResolve_LocalhostWithLabel(t *testing.T) {
	rs := newTestResolver()
	require.Equal(t, "acme", rs.Resolve("http://acme.localhost:3000/api/v1/tenant", "acme.localhost:3000"))
}

func TestResolve_LocalhostBare(t *testing.T) {
	rs := newTestResolver()
	require.Equal(t, "", rs.Resolve("http://localhost:3000/", "localhost:3000"))
}

func TestResolve_LocalhostLoopbackIP(t *testing.T) {
	rs := newTestResolver()
	require.Equal(t, "", rs.Resolve("http://127.0.0.1:8080/", "127.0.0.1:8080"))
}

func TestResolve_LocalhostFallsBackToHostHeader(t *testing.T) {
	rs := newTestResolver()
	// Server-side request URLs carry only a path; the Host header decides.
	require.Equal(t, "acme", rs.Resolve("/api/v1/tenant", "acme.localhost:3000"))
}

func TestResolve_PreviewDeployment(t *testing.T) {
	rs := newTestResolver()
	require.Equal(t, "acme", rs.Resolve("", "acme---docgate-pr-42.vercel.app"))
}

func TestResolve_PreviewSuffixMismatch(t *testing.T) {
	rs := newTestResolver()
	require.Equal(t, "", rs.Resolve("", "acme---docgate-pr-42.example.dev"))
}

func TestResolve_RootDomain(t *testing.T) {
	rs := newTestResolver()
	require.Equal(t, "", rs.Resolve("", "docgate.io"))
}

func TestResolve_Subdomain(t *testing.T) {
	rs := newTestResolver()
	require.Equal(t, "acme", rs.Resolve("", "acme.docgate.io"))
}

func TestResolve_SubdomainWithPort(t *testing.T) {
	rs := newTestResolver()
	require.Equal(t, "acme", rs.Resolve("", "acme.docgate.io:443"))
}

func TestResolve_ReservedLabels(t *testing.T) {
	rs := newTestResolver()
	require.Equal(t, "", rs.Resolve("", "www.docgate.io"))
	require.Equal(t, "", rs.Resolve("", "api.docgate.io"))
}

func TestResolve_CustomDomain(t *testing.T) {
	rs := newTestResolver()
	require.Equal(t, "", rs.Resolve("", "docs.acme-corp.com"))
}

func TestResolve_CaseInsensitiveHost(t *testing.T) {
	rs := newTestResolver()
	require.Equal(t, "acme", rs.Resolve("", "ACME.DocGate.IO"))
}

func TestResolve_MalformedInputsNeverPanic(t *testing.T) {
	rs := newTestResolver()
	require.Equal(t, "", rs.Resolve("", ""))
	require.Equal(t, "", rs.Resolve("://bad url", "   "))
	require.Equal(t, "", rs.Resolve("", ":::::"))
	require.Equal(t, "", rs.Resolve("", "..."))
}

func TestResolve_SimilarButNotSubdomain(t *testing.T) {
	rs := newTestResolver()
	// Suffix match must be on a label boundary.
	require.Equal(t, "", rs.Resolve("", "evildocgate.io"))
}
