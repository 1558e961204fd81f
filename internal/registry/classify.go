package registry

import (
	"github.com/vpnsentinel/vpnsentinel/internal/country"
	"github.com/vpnsentinel/vpnsentinel/internal/payload"
)

// classify applies the five ordered checks (bypass, dns-unknown,
// country-unknown, secure, leak) to a single normalized observation,
// given the server's current self IP.
func classify(selfIP string, n payload.Normalized) Class {
	if isKnownIP(n.PublicIP) && isKnownIP(selfIP) && n.PublicIP == selfIP {
		return ClassBypass
	}

	dnsLoc := n.DNSTest.Location
	if dnsLoc == "" || country.Normalize(dnsLoc) == country.Unknown {
		return ClassDNSUnknown
	}

	if country.Normalize(n.Location.Country) == country.Unknown {
		return ClassDNSUnknown
	}

	if country.Equal(dnsLoc, n.Location.Country) {
		return ClassSecure
	}

	return ClassDNSLeak
}

func isKnownIP(ip string) bool {
	return ip != "" && ip != "unknown"
}
