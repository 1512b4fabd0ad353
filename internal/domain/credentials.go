package domain

import "net/http"

// ResourceProbe is the outcome of fetching a single page of one resource
type ResourceProbe struct {
	OK         bool   `json:"ok"`
	StatusCode int    `json:"code"`
	Count      int    `json:"count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CredentialCheck reports whether credentials reach the shop and which resources they can read
type CredentialCheck struct {
	OK         bool          `json:"ok"`
	Shop       string        `json:"shop,omitempty"`
	BaseOK     bool          `json:"baseOk"`
	StatusCode int           `json:"code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Orders     ResourceProbe `json:"orders"`
	Customers  ResourceProbe `json:"customers"`
	Products   ResourceProbe `json:"products"`
}

// Probe returns the probe result for a resource
func (c *CredentialCheck) Probe(resource Resource) ResourceProbe {
	switch resource {
	case ResourceOrders:
		return c.Orders
	case ResourceCustomers:
		return c.Customers
	case ResourceProducts:
		return c.Products
	}
	return ResourceProbe{}
}

// SetProbe stores the probe result for a resource
func (c *CredentialCheck) SetProbe(resource Resource, probe ResourceProbe) {
	switch resource {
	case ResourceOrders:
		c.Orders = probe
	case ResourceCustomers:
		c.Customers = probe
	case ResourceProducts:
		c.Products = probe
	}
}

// Reachable returns the resources whose probe succeeded
func (c *CredentialCheck) Reachable() []Resource {
	var out []Resource
	for _, r := range AllResources() {
		if c.Probe(r).OK {
			out = append(out, r)
		}
	}
	return out
}

// IsAuthFailure reports whether the base probe was rejected for the credentials
func (c *CredentialCheck) IsAuthFailure() bool {
	return c.StatusCode == http.StatusUnauthorized || c.StatusCode == http.StatusForbidden
}
