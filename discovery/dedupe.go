package discovery

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"volna/types"
)

// ItemHash returns a stable identity hash for cross-source duplicate
// suppression: sha256(normalizedURL + "|" + normalizedTitle). Two agencies
// syndicating the same story under tracking-tagged URLs collapse to one hash.
func ItemHash(item types.DiscoveredItem) string {
	combined := normalizeURL(item.URL) + "|" + normalizeTitle(item.Title)
	h := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(h[:])
}

func normalizeTitle(t string) string {
	t = strings.TrimSpace(t)
	t = strings.ToLower(t)
	// collapse multiple whitespace
	fields := strings.Fields(t)
	return strings.Join(fields, " ")
}

func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		// fallback: lowercase and trim
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	// Remove common tracking query parameters
	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	out := u.String()
	if strings.HasSuffix(out, "/") {
		out = strings.TrimRight(out, "/")
	}
	return out
}
