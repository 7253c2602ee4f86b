// Package operator resolves the outbound source address override for a
// destination MSISDN, the way a vumi-style SMPP transport rewrites
// from_addr per-network before handing a message to submit_sm.
package operator

import "strings"

// Table holds the network-resolution configuration: which
// country-code+prefix combinations identify a network, and which source
// MSISDN each network should submit as.
type Table struct {
	// CountryCode replaces a leading "0" on the destination address
	// before prefix lookup, e.g. "27" for South Africa.
	CountryCode string
	// Prefix maps country-code -> (operator-prefix -> network name).
	Prefix map[string]map[string]string
	// Number maps network name -> overriding source MSISDN.
	Number map[string]string
}

// Normalize rewrites a leading "0" on addr to t.CountryCode, matching the
// vumi transport's MSISDN normalization before prefix lookup. Addresses
// that don't start with "0", or when no CountryCode is configured, are
// returned unchanged.
func (t Table) Normalize(addr string) string {
	if t.CountryCode == "" || !strings.HasPrefix(addr, "0") {
		return addr
	}
	return t.CountryCode + strings.TrimPrefix(addr, "0")
}

// ResolveSource returns the source address that should be used for a
// message to destination addr, given the fallback from_addr the message
// already carries. It normalizes addr, then checks increasingly short
// prefixes of it against the configured country code's prefix table;
// the longest matching prefix wins. If no network is identified, or the
// identified network has no configured source number, fallbackFrom is
// returned unchanged.
func (t Table) ResolveSource(addr, fallbackFrom string) string {
	normalized := t.Normalize(addr)
	countryPrefixes, ok := t.Prefix[t.CountryCode]
	if !ok {
		return fallbackFrom
	}
	var bestMatch string
	for prefix := range countryPrefixes {
		if strings.HasPrefix(normalized, prefix) && len(prefix) > len(bestMatch) {
			bestMatch = prefix
		}
	}
	if bestMatch == "" {
		return fallbackFrom
	}
	network := countryPrefixes[bestMatch]
	source, ok := t.Number[network]
	if !ok || source == "" {
		return fallbackFrom
	}
	return source
}
