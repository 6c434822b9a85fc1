package parser

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const (
	defaultMinPathSegments = 2
	minSlugLength          = 16
)

// registrableDomain returns eTLD+1 of host, or the bare host for IPs and unknown suffixes.
func registrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" || net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func sameSite(a, b *url.URL) bool {
	return registrableDomain(a.Hostname()) == registrableDomain(b.Hostname())
}

// resolveLink turns href into an absolute http(s) URL relative to base.
func resolveLink(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return nil, false
	}
	if abs.Host == "" {
		return nil, false
	}
	abs.Fragment = ""
	return abs, true
}

// looksLikeArticle accepts deep paths, or a single long hyphenated slug.
func looksLikeArticle(u *url.URL, minSegments int) bool {
	if minSegments <= 0 {
		minSegments = defaultMinPathSegments
	}
	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) >= minSegments {
		return true
	}
	if len(segments) == 1 {
		slug := segments[0]
		return strings.Contains(slug, "-") && len(slug) >= minSlugLength
	}
	return false
}
