// Package npi looks providers up in the NPPES NPI Registry.
package npi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/practicehub/practicehub/internal/platform/validate"
)

const (
	DefaultRegistryURL = "https://npiregistry.cms.hhs.gov/api/"
	apiVersion         = "2.1"
	requestTimeout     = 10 * time.Second
)

var (
	ErrNotFound      = errors.New("npi not found in registry")
	ErrInvalidNumber = errors.New("npi must be 10 digits with a valid check digit")
)

// ProviderInfo holds the parts of a registry record the dashboard prefills.
type ProviderInfo struct {
	NPI          string  `json:"npi"`
	Type         string  `json:"type"` // "Individual" or "Organization"
	Name         string  `json:"name"`
	FirstName    string  `json:"first_name,omitempty"`
	LastName     string  `json:"last_name,omitempty"`
	Organization string  `json:"organization,omitempty"`
	Credential   string  `json:"credential,omitempty"`
	TaxonomyCode string  `json:"taxonomy_code,omitempty"`
	TaxonomyDesc string  `json:"taxonomy_desc,omitempty"`
	Address      Address `json:"address"`
	Phone        string  `json:"phone,omitempty"`
	Status       string  `json:"status,omitempty"` // "A" = active
}

type Address struct {
	Line1 string `json:"line1,omitempty"`
	Line2 string `json:"line2,omitempty"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
	Zip   string `json:"zip,omitempty"`
}

// Active reports whether the registry lists the NPI as active.
func (p *ProviderInfo) Active() bool { return p.Status == "" || p.Status == "A" }

type apiResponse struct {
	ResultCount int         `json:"result_count"`
	Results     []apiResult `json:"results"`
	Errors      []struct {
		Description string `json:"description"`
	} `json:"Errors"`
}

type apiResult struct {
	Number          string        `json:"number"`
	EnumerationType string        `json:"enumeration_type"`
	Basic           apiBasic      `json:"basic"`
	Addresses       []apiAddress  `json:"addresses"`
	Taxonomies      []apiTaxonomy `json:"taxonomies"`
}

type apiBasic struct {
	FirstName        string `json:"first_name"`
	MiddleName       string `json:"middle_name"`
	LastName         string `json:"last_name"`
	Credential       string `json:"credential"`
	OrganizationName string `json:"organization_name"`
	Status           string `json:"status"`
}

type apiAddress struct {
	Address1       string `json:"address_1"`
	Address2       string `json:"address_2"`
	City           string `json:"city"`
	State          string `json:"state"`
	PostalCode     string `json:"postal_code"`
	AddressPurpose string `json:"address_purpose"`
	Phone          string `json:"telephone_number"`
}

type apiTaxonomy struct {
	Code    string `json:"code"`
	Desc    string `json:"desc"`
	Primary bool   `json:"primary"`
}

// Client queries the registry over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultRegistryURL
	}
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: requestTimeout}}
}

// Lookup fetches a single NPI. Numbers failing the checksum are rejected
// without a network call.
func (c *Client) Lookup(ctx context.Context, number string) (*ProviderInfo, error) {
	number = strings.TrimSpace(number)
	if !validate.IsNPI(number) {
		return nil, ErrInvalidNumber
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse registry url: %w", err)
	}
	q := u.Query()
	q.Set("version", apiVersion)
	q.Set("number", number)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query npi registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("npi registry returned HTTP %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode npi registry response: %w", err)
	}
	if len(body.Errors) > 0 {
		return nil, fmt.Errorf("npi registry: %s", body.Errors[0].Description)
	}
	if body.ResultCount == 0 || len(body.Results) == 0 {
		return nil, ErrNotFound
	}
	return toProviderInfo(body.Results[0]), nil
}

func toProviderInfo(r apiResult) *ProviderInfo {
	info := &ProviderInfo{NPI: r.Number, Status: r.Basic.Status}

	if r.EnumerationType == "NPI-1" {
		info.Type = "Individual"
		info.FirstName = titleCase(r.Basic.FirstName)
		info.LastName = titleCase(r.Basic.LastName)
		info.Credential = strings.ReplaceAll(strings.TrimSpace(r.Basic.Credential), ".", "")
		info.Name = strings.TrimSpace(strings.Join([]string{info.FirstName, titleCase(r.Basic.MiddleName), info.LastName}, " "))
		info.Name = strings.Join(strings.Fields(info.Name), " ")
	} else {
		info.Type = "Organization"
		info.Organization = strings.TrimSpace(r.Basic.OrganizationName)
		info.Name = info.Organization
	}

	for _, t := range r.Taxonomies {
		if t.Primary {
			info.TaxonomyCode, info.TaxonomyDesc = t.Code, t.Desc
			break
		}
	}
	if info.TaxonomyCode == "" && len(r.Taxonomies) > 0 {
		info.TaxonomyCode, info.TaxonomyDesc = r.Taxonomies[0].Code, r.Taxonomies[0].Desc
	}

	var addr *apiAddress
	for i := range r.Addresses {
		if r.Addresses[i].AddressPurpose == "LOCATION" {
			addr = &r.Addresses[i]
			break
		}
	}
	if addr == nil && len(r.Addresses) > 0 {
		addr = &r.Addresses[0]
	}
	if addr != nil {
		info.Address = Address{
			Line1: addr.Address1,
			Line2: addr.Address2,
			City:  titleCase(addr.City),
			State: strings.ToUpper(addr.State),
			Zip:   formatZip(addr.PostalCode),
		}
		info.Phone = formatPhone(addr.Phone)
	}
	return info
}

// formatZip turns the registry's 9-digit zip into ZIP+4.
func formatZip(z string) string {
	z = strings.TrimSpace(z)
	if len(z) == 9 {
		return z[:5] + "-" + z[5:]
	}
	return z
}

func formatPhone(p string) string {
	d := validate.Digits(p)
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if len(d) != 10 {
		return strings.TrimSpace(p)
	}
	return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:])
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
