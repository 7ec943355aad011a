package harvest

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Denylist drops records whose host is excluded by domain or pattern.
// A nil Denylist excludes nothing.
type Denylist struct {
	domains  map[string]bool
	patterns []*regexp.Regexp
}

// NewDenylist compiles domain and regex rules. Domains match the host
// itself and any subdomain of it; patterns are matched against the host.
func NewDenylist(domains, patterns []string) (*Denylist, error) {
	d := &Denylist{domains: make(map[string]bool, len(domains))}
	for _, dom := range domains {
		dom = strings.ToLower(strings.TrimSpace(dom))
		if dom != "" {
			d.domains[dom] = true
		}
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile denylist pattern %q: %w", p, err)
		}
		d.patterns = append(d.patterns, re)
	}
	return d, nil
}

// Len returns the number of rules.
func (d *Denylist) Len() int {
	if d == nil {
		return 0
	}
	return len(d.domains) + len(d.patterns)
}

// Excludes reports whether rawURL should be kept out of the store.
func (d *Denylist) Excludes(rawURL string) bool {
	if d.Len() == 0 {
		return false
	}
	host := extractHost(rawURL)
	if host == "" {
		return false
	}

	for h := host; h != ""; {
		if d.domains[h] {
			return true
		}
		i := strings.IndexByte(h, '.')
		if i < 0 {
			break
		}
		h = h[i+1:]
	}
	for _, re := range d.patterns {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}

// extractHost pulls the lower-cased hostname from a URL string.
func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
