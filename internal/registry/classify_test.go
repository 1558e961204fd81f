package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vpnsentinel/vpnsentinel/internal/payload"
)

func normalized(publicIP, country, dnsLoc string) payload.Normalized {
	return payload.Normalized{
		PublicIP: publicIP,
		Location: payload.Location{Country: country},
		DNSTest:  payload.DNSTest{Location: dnsLoc},
	}
}

func TestClassify_FalsePositiveGuard(t *testing.T) {
	// Romania (full name) vs RO (ISO code): must not read as a leak.
	c := classify("203.0.113.5", normalized("198.51.100.9", "Romania", "RO"))
	assert.Equal(t, ClassSecure, c)
}

func TestClassify_TrueLeak(t *testing.T) {
	c := classify("203.0.113.5", normalized("198.51.100.9", "ES", "DE"))
	assert.Equal(t, ClassDNSLeak, c)
}

func TestClassify_Bypass(t *testing.T) {
	c := classify("203.0.113.5", normalized("203.0.113.5", "ES", "DE"))
	assert.Equal(t, ClassBypass, c, "bypass must win even when DNS countries mismatch")
}

func TestClassify_UnknownPublicIPSkipsBypass(t *testing.T) {
	c := classify("203.0.113.5", normalized("unknown", "RO", "RO"))
	assert.Equal(t, ClassSecure, c)
}

func TestClassify_EmptyCountryIsDNSUnknownNotLeak(t *testing.T) {
	c := classify("203.0.113.5", normalized("198.51.100.9", "", "RO"))
	assert.Equal(t, ClassDNSUnknown, c)
}

func TestClassify_MissingDNSLocationIsUnknown(t *testing.T) {
	c := classify("203.0.113.5", normalized("198.51.100.9", "RO", ""))
	assert.Equal(t, ClassDNSUnknown, c)
}
