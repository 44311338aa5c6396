package service

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/smallbiznis/affiliate/internal/link/domain"
)

// validDestination accepts absolute http(s) URLs only.
func validDestination(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return raw, true
	}
	return "", false
}

// withUTM appends the link's UTM parameters to its destination. Parameters
// already present in the destination query win.
func withUTM(link domain.Link) string {
	u, err := url.Parse(link.DestinationURL)
	if err != nil {
		return link.DestinationURL
	}

	query := u.Query()
	added := false
	for _, p := range []struct {
		key   string
		value *string
	}{
		{"utm_source", link.UTMSource},
		{"utm_medium", link.UTMMedium},
		{"utm_campaign", link.UTMCampaign},
	} {
		if p.value == nil || *p.value == "" || query.Has(p.key) {
			continue
		}
		query.Set(p.key, *p.value)
		added = true
	}
	if !added {
		return link.DestinationURL
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// visitorHash fingerprints a visitor without storing the raw IP address.
func visitorHash(v domain.Visitor) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(v.IP) + "|" + strings.TrimSpace(v.UserAgent)))
	return hex.EncodeToString(sum[:])
}
