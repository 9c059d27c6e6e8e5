package extract

import (
	"net/url"
	"strings"
)

// Classify maps a product URL onto a site profile: hostname suffix first,
// then URL keyword, else generic. It never fails.
func Classify(rawURL string) Profile {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	host := ""
	if u, err := url.Parse(lower); err == nil {
		host = u.Hostname()
	}
	if host != "" {
		for _, sp := range siteProfiles {
			for _, suffix := range sp.hosts {
				if host == suffix || strings.HasSuffix(host, "."+suffix) {
					return sp.name
				}
			}
		}
	}
	for _, sp := range siteProfiles {
		for _, kw := range sp.keywords {
			if strings.Contains(lower, kw) {
				return sp.name
			}
		}
	}
	return ProfileGeneric
}
