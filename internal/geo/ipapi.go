package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// IPAPIResolver looks up the country a publisher's domain is served from
// through ipapi.co.
type IPAPIResolver struct {
	Client  *http.Client
	BaseURL string
}

func NewIPAPIResolver(baseURL string, timeout time.Duration) *IPAPIResolver {
	if baseURL == "" {
		baseURL = "https://ipapi.co"
	}
	return &IPAPIResolver{
		Client:  &http.Client{Timeout: timeout},
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

type ipapiResponse struct {
	CountryName string `json:"country_name"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// LookupDomain returns the country name for a registered domain.
func (r *IPAPIResolver) LookupDomain(ctx context.Context, domain string) (string, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return "", errors.New("empty domain")
	}

	endpoint := fmt.Sprintf("%s/%s/json/", r.BaseURL, url.PathEscape(domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%s: %w", domain, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ipapi %s: status %d", domain, resp.StatusCode)
	}

	var out ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ipapi %s: %w", domain, err)
	}
	if out.Error || strings.TrimSpace(out.CountryName) == "" {
		return "", fmt.Errorf("%s: %s: %w", domain, out.Reason, ErrNotFound)
	}
	return strings.TrimSpace(out.CountryName), nil
}

// RegisteredDomain returns eTLD+1 of rawURL's host ("bbc.co.uk" for
// "https://www.bbc.co.uk/news"), or "" when it has none.
func RegisteredDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return d
}
