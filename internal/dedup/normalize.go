// Package dedup implements the URL, content-hash and near-duplicate checks that keep
// published articles novel.
package dedup

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are removed from every URL; any key starting with "utm_" is removed too.
var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"dclid":   {},
	"gbraid":  {},
	"wbraid":  {},
	"msclkid": {},
	"mc_cid":  {},
	"mc_eid":  {},
	"igshid":  {},
	"yclid":   {},
	"_ga":     {},
	"_gl":     {},
	"ocid":    {},
	"ref_src": {},
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	_, ok := trackingParams[key]
	return ok
}

// NormalizeURL canonicalizes an article URL for duplicate detection.
//
// The host is lowercased, the scheme forced to https, tracking parameters and the fragment
// dropped, and trailing slashes removed from the decoded path. Remaining query pairs are
// kept verbatim, including ones url.ParseQuery would reject, and sorted. Input that does not parse into an absolute URL with a host is
// returned unchanged. NormalizeURL(NormalizeURL(u)) == NormalizeURL(u).
//
// Example:
//
//	input:  "https://Example.com/news/x?utm_source=rss&fbclid=1/"
//	output: "https://example.com/news/x"
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || parsed.Opaque != "" {
		return raw
	}

	parsed.Scheme = "https"
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""

	parsed.RawQuery = stripTracking(parsed.RawQuery)
	parsed.ForceQuery = false

	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawPath = ""

	return parsed.String()
}

// stripTracking drops tracking pairs from a raw query and sorts the rest without re-encoding them.
func stripTracking(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	kept := make([]string, 0, strings.Count(rawQuery, "&")+1)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if isTrackingParam(key) {
			continue
		}
		kept = append(kept, pair)
	}
	sort.Strings(kept)
	return strings.Join(kept, "&")
}
