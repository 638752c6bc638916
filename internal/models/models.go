// Package models provides shared data types for the oil price API.
package models

import (
	"time"
)

// Credential is the stored login record of an API client.
type Credential struct {
	ClientID     string    `db:"client_id"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// AuthPayload is the body of the register and login requests.
type AuthPayload struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// AuthBody is the response of a successful login.
type AuthBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Provider is a website oil prices are scraped from.
type Provider struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	URL         string    `json:"url" db:"url"`
	HTMLElement string    `json:"html_element" db:"html_element"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
	// LastAccessed is bumped on every fetch of a single provider.
	LastAccessed time.Time `json:"last_accessed" db:"last_accessed"`
}

// ProviderInput holds the writable fields of a provider.
type ProviderInput struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	HTMLElement string `json:"html_element"`
}

// DeliveryZone is an area a provider delivers to.
type DeliveryZone struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// DeliveryZoneInput holds the writable fields of a delivery zone.
type DeliveryZoneInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProviderWithZones is a provider together with all zones linked to it.
type ProviderWithZones struct {
	Provider
	Zones []DeliveryZone `json:"zones"`
}

// ProviderZoneRow is one row of the providers-to-zones left outer join.
type ProviderZoneRow struct {
	Provider
	ZoneID          *int64  `db:"zone_id"`
	ZoneName        *string `db:"zone_name"`
	ZoneDescription *string `db:"zone_description"`
}

// Price is a recorded oil price of a provider.
type Price struct {
	ID         int64     `json:"id" db:"id"`
	ProviderID int64     `json:"provider_id" db:"provider_id"`
	Price      float64   `json:"price" db:"price"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// PriceInput is the body of a new price for a provider.
type PriceInput struct {
	Price float64 `json:"price"`
}

// PriceDetails is the reduced price view used in per-provider listings.
type PriceDetails struct {
	Price     float64   `json:"price" db:"price"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PriceQuery filters a per-provider price listing.
type PriceQuery struct {
	Limit  int64
	Offset int64
	// Start and End are exclusive bounds on the creation time.
	Start *time.Time
	End   *time.Time
}

// ScrapingRun is one run of the external scraper.
type ScrapingRun struct {
	ID        int64     `json:"id" db:"id"`
	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time" db:"end_time"`
}

// ScrapingRunInput is the body of a new scraping run.
type ScrapingRunInput struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// StatusResponse is the response for the /status endpoint.
type StatusResponse struct {
	Status          string         `json:"status"`
	UptimeSeconds   int64          `json:"uptime_seconds"`
	Version         string         `json:"version"`
	LastScrapingRun *ScrapingRun   `json:"last_scraping_run,omitempty"`
	Database        DatabaseStatus `json:"database"`
}

// DatabaseStatus holds the database connection status.
type DatabaseStatus struct {
	Connected      bool  `json:"connected"`
	ProvidersCount int64 `json:"providers_stored"`
	ZonesCount     int64 `json:"zones_stored"`
	PricesCount    int64 `json:"prices_stored"`
}
