package geoloc

import (
	"context"
	"net/http"
)

// ipAPIProvider queries ip-api.com/json, the default first attempt in
// auto mode.
type ipAPIProvider struct{ baseURL string }

func NewIPAPIProvider() Provider {
	return ipAPIProvider{baseURL: "http://ip-api.com/json"}
}

func (p ipAPIProvider) Name() string { return "ip-api" }

func (p ipAPIProvider) Fetch(ctx context.Context, client *http.Client) (Location, error) {
	var raw struct {
		Query       string `json:"query"`
		Country     string `json:"country"`
		CountryCode string `json:"countryCode"`
		City        string `json:"city"`
		RegionName  string `json:"regionName"`
		ISP         string `json:"isp"`
		Timezone    string `json:"timezone"`
		Status      string `json:"status"`
	}
	if err := fetchJSON(ctx, client, p.baseURL, &raw); err != nil {
		return Location{}, err
	}
	country := raw.CountryCode
	if country == "" {
		country = raw.Country
	}
	return Location{
		PublicIP: orUnknownIP(raw.Query),
		Country:  orUnknown(country),
		City:     orUnknown(raw.City),
		Region:   orUnknown(raw.RegionName),
		Org:      orUnknown(raw.ISP),
		Timezone: orUnknown(raw.Timezone),
	}, nil
}

// ipinfoProvider queries ipinfo.io/json, the first fallback.
type ipinfoProvider struct{ baseURL string }

func NewIPInfoProvider() Provider {
	return ipinfoProvider{baseURL: "https://ipinfo.io/json"}
}

func (p ipinfoProvider) Name() string { return "ipinfo" }

func (p ipinfoProvider) Fetch(ctx context.Context, client *http.Client) (Location, error) {
	var raw struct {
		IP       string `json:"ip"`
		Country  string `json:"country"`
		City     string `json:"city"`
		Region   string `json:"region"`
		Org      string `json:"org"`
		Timezone string `json:"timezone"`
	}
	if err := fetchJSON(ctx, client, p.baseURL, &raw); err != nil {
		return Location{}, err
	}
	return Location{
		PublicIP: orUnknownIP(raw.IP),
		Country:  orUnknown(raw.Country),
		City:     orUnknown(raw.City),
		Region:   orUnknown(raw.Region),
		Org:      orUnknown(raw.Org),
		Timezone: orUnknown(raw.Timezone),
	}, nil
}

// ipwhoProvider queries ipwho.is, the final fallback.
type ipwhoProvider struct{ baseURL string }

func NewIPWhoProvider() Provider {
	return ipwhoProvider{baseURL: "http://ipwho.is/"}
}

func (p ipwhoProvider) Name() string { return "ipwho" }

func (p ipwhoProvider) Fetch(ctx context.Context, client *http.Client) (Location, error) {
	var raw struct {
		Success     bool   `json:"success"`
		IP          string `json:"ip"`
		CountryCode string `json:"country_code"`
		City        string `json:"city"`
		Region      string `json:"region"`
		Timezone    struct {
			ID string `json:"id"`
		} `json:"timezone"`
		Connection struct {
			ISP string `json:"isp"`
		} `json:"connection"`
	}
	if err := fetchJSON(ctx, client, p.baseURL, &raw); err != nil {
		return Location{}, err
	}
	return Location{
		PublicIP: orUnknownIP(raw.IP),
		Country:  orUnknown(raw.CountryCode),
		City:     orUnknown(raw.City),
		Region:   orUnknown(raw.Region),
		Org:      orUnknown(raw.Connection.ISP),
		Timezone: orUnknown(raw.Timezone.ID),
	}, nil
}

// DefaultProviders returns the fixed fallback order used by auto mode.
func DefaultProviders() []Provider {
	return []Provider{NewIPAPIProvider(), NewIPInfoProvider(), NewIPWhoProvider()}
}

// ByName resolves a single provider for forced mode.
func ByName(name string) (Provider, bool) {
	for _, p := range DefaultProviders() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}
