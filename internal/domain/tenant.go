package domain

import (
	"net/url"
	"strings"
	"time"
)

// TenantID identifies the account that owns a connected shop and its ingested data
type TenantID uint

// Tenant represents an account with its stored storefront credentials
type Tenant struct {
	ID          TenantID  `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	ShopDomain  string    `json:"shop_domain"`
	AccessToken string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Credentials are the shop domain and admin access token used against the storefront API
type Credentials struct {
	ShopDomain  string
	AccessToken string
}

// Credentials returns the stored storefront credentials of the tenant
func (t *Tenant) Credentials() Credentials {
	return Credentials{ShopDomain: t.ShopDomain, AccessToken: t.AccessToken}
}

// CanIngest reports whether both credential fields are present
func (t *Tenant) CanIngest() bool {
	return t != nil && t.ShopDomain != "" && t.AccessToken != ""
}

// Validate returns a ConfigurationError when a credential field is missing
func (c Credentials) Validate() error {
	if c.ShopDomain == "" || c.AccessToken == "" {
		return &ConfigurationError{Reason: "shopify not configured for tenant"}
	}
	return nil
}

// NormalizeShopDomain turns user input such as "https://Shop.myshopify.com/" into "shop.myshopify.com".
// Host names are case-insensitive, so the result is always lowercase.
func NormalizeShopDomain(raw string) string {
	domain := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		if u, err := url.Parse(domain); err == nil && u.Hostname() != "" {
			domain = u.Hostname()
		}
	}
	return strings.Trim(strings.TrimSpace(domain), "/")
}
