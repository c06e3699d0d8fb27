package dedup

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters that carry campaign/referral state and
// never change the page a URL points at.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"utm_id":       {},
	"ref":          {},
	"ref_src":      {},
	"fbclid":       {},
	"gclid":        {},
	"igshid":       {},
	"mc_cid":       {},
	"mc_eid":       {},
	"cmpid":        {},
	"s_cid":        {},
}

// CanonicalURL normalizes a URL into a stable dedup key: tracking parameters
// stripped, scheme forced to https, leading "www." removed, host lowercased,
// and a single trailing slash dropped from non-root paths. Canonicalizing an
// already-canonical URL returns the same string. Unparseable input is returned
// unchanged rather than treated as an error.
func CanonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return raw
	}

	q := u.Query()
	for key := range q {
		if _, tracking := trackingParams[strings.ToLower(key)]; tracking {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	u.Scheme = "https"
	host := strings.ToLower(u.Host)
	u.Host = strings.TrimPrefix(host, "www.")

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = ""
	}

	return u.String()
}
