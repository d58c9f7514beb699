package shipping

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Option is the single canonical shape the rest of the gateway works with,
// regardless of which wire form the upstream produced it in.
type Option struct {
	Carrier            Carrier          `json:"carrier"`
	ShippingRate       Rate             `json:"shipping_rate"`
	ServiceType        string           `json:"service_type"`
	EstimatedDays      string           `json:"estimated_days,omitempty"`
	EstimatedCostUSD   *decimal.Decimal `json:"estimated_cost_usd,omitempty"`
	EstimatedCostLocal *decimal.Decimal `json:"estimated_cost_local,omitempty"`
	UserCurrency       string           `json:"user_currency,omitempty"`
	Currency           string           `json:"currency,omitempty"`
	Approximate        bool             `json:"approximate,omitempty"`
	Raw                json.RawMessage  `json:"raw,omitempty"`
}

type Carrier struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	TrackingURLTemplate string `json:"tracking_url_template,omitempty"`
}

type Rate struct {
	ID        string           `json:"id"`
	RatePerKg *decimal.Decimal `json:"rate_per_kg,omitempty"`
	BaseRate  *decimal.Decimal `json:"base_rate,omitempty"`
}

const defaultServiceType = "standard"
