package config

import "sort"

// sensitiveDomains groups the built-in denylist by category. Subdomains
// of each entry are excluded too.
var sensitiveDomains = map[string][]string{
	"banking": {
		"chase.com", "bankofamerica.com", "wellsfargo.com", "citi.com",
		"usbank.com", "capitalone.com", "ally.com", "pnc.com",
		"navyfederal.org", "truist.com",
	},
	"investing": {
		"schwab.com", "fidelity.com", "vanguard.com", "etrade.com",
		"robinhood.com", "coinbase.com", "kraken.com",
	},
	"payments": {
		"paypal.com", "venmo.com", "zelle.com",
	},
	"passwords": {
		"1password.com", "lastpass.com", "bitwarden.com", "dashlane.com",
		"keepersecurity.com",
	},
	"identity": {
		"accounts.google.com", "login.microsoftonline.com", "login.live.com",
		"okta.com", "auth0.com", "login.gov", "id.me",
	},
	"health": {
		"mychart.com", "healthcare.gov", "medicare.gov", "kp.org",
	},
	"tax": {
		"irs.gov", "ssa.gov", "turbotax.intuit.com", "hrblock.com",
	},
}

// DefaultDenylistDomains returns the built-in list of sensitive domains
// (banking, password managers, identity providers, health and tax
// portals), ordered by category.
func DefaultDenylistDomains() []string {
	categories := make([]string, 0, len(sensitiveDomains))
	for c := range sensitiveDomains {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var out []string
	for _, c := range categories {
		out = append(out, sensitiveDomains[c]...)
	}
	return out
}
