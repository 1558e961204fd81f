// Package country normalizes the many encodings geolocation providers and
// DNS-trace endpoints use for country identity into a single canonical
// 2-letter ISO code, so downstream comparisons never produce a false
// DNS-leak alarm over encoding differences alone.
package country

import "strings"

// Unknown is returned when an input cannot be normalized to an ISO code.
const Unknown = "UNKNOWN"

// byName maps lower-cased full English country names to their ISO
// 3166-1 alpha-2 code. Expand here only; never mutated at runtime.
var byName = map[string]string{
	"united states":        "US",
	"united states of america": "US",
	"usa":                  "US",
	"united kingdom":       "GB",
	"great britain":        "GB",
	"england":              "GB",
	"canada":               "CA",
	"mexico":               "MX",
	"brazil":               "BR",
	"argentina":            "AR",
	"chile":                "CL",
	"colombia":             "CO",
	"peru":                 "PE",
	"germany":              "DE",
	"france":               "FR",
	"spain":                "ES",
	"italy":                "IT",
	"portugal":             "PT",
	"netherlands":          "NL",
	"holland":              "NL",
	"belgium":              "BE",
	"switzerland":          "CH",
	"austria":              "AT",
	"sweden":               "SE",
	"norway":               "NO",
	"denmark":              "DK",
	"finland":              "FI",
	"poland":               "PL",
	"romania":              "RO",
	"bulgaria":             "BG",
	"greece":               "GR",
	"hungary":              "HU",
	"czech republic":       "CZ",
	"czechia":              "CZ",
	"slovakia":             "SK",
	"ukraine":              "UA",
	"russia":               "RU",
	"russian federation":   "RU",
	"ireland":              "IE",
	"iceland":              "IS",
	"croatia":              "HR",
	"serbia":               "RS",
	"slovenia":             "SI",
	"estonia":              "EE",
	"latvia":               "LV",
	"lithuania":            "LT",
	"japan":                "JP",
	"china":                "CN",
	"south korea":          "KR",
	"korea, republic of":   "KR",
	"india":                "IN",
	"singapore":            "SG",
	"hong kong":            "HK",
	"taiwan":               "TW",
	"thailand":             "TH",
	"vietnam":              "VN",
	"indonesia":            "ID",
	"malaysia":             "MY",
	"philippines":          "PH",
	"australia":            "AU",
	"new zealand":          "NZ",
	"israel":               "IL",
	"turkey":               "TR",
	"turkiye":              "TR",
	"united arab emirates": "AE",
	"saudi arabia":         "SA",
	"qatar":                "QA",
	"egypt":                "EG",
	"south africa":         "ZA",
	"nigeria":              "NG",
	"kenya":                "KE",
	"morocco":              "MA",
}

// isoCodes is the set of known 2-letter codes. Normalize accepts any
// 2-letter input whether or not it is in this set.
var isoCodes = func() map[string]bool {
	m := make(map[string]bool, len(byName)+8)
	for _, code := range byName {
		m[code] = true
	}
	// the list below repeats the codes already added from byName.
	for _, extra := range []string{"US", "GB", "CA", "MX", "BR", "AR", "CL", "CO", "PE",
		"DE", "FR", "ES", "IT", "PT", "NL", "BE", "CH", "AT", "SE", "NO", "DK", "FI",
		"PL", "RO", "BG", "GR", "HU", "CZ", "SK", "UA", "RU", "IE", "IS", "HR", "RS",
		"SI", "EE", "LV", "LT", "JP", "CN", "KR", "IN", "SG", "HK", "TW", "TH", "VN",
		"ID", "MY", "PH", "AU", "NZ", "IL", "TR", "AE", "SA", "QA", "EG", "ZA", "NG",
		"KE", "MA"} {
		m[extra] = true
	}
	return m
}()

// Normalize converts a full country name or ISO code, in any case or with
// surrounding whitespace, into a canonical uppercase 2-letter code. It
// returns Unknown when the input is empty or unrecognized.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Unknown
	}

	if len(trimmed) == 2 {
		code := strings.ToUpper(trimmed)
		if isoCodes[code] {
			return code
		}
		// Unknown 2-letter combination: still accept it per contract
		// ("2-letter inputs are uppercased and accepted").
		return code
	}

	if code, ok := byName[strings.ToLower(trimmed)]; ok {
		return code
	}

	return Unknown
}

// Equal reports whether a and b normalize to the same non-Unknown code.
func Equal(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == Unknown || nb == Unknown {
		return false
	}
	return na == nb
}
