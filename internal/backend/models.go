package backend

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request statuses the gateway cares about. The full lifecycle is
// server-authoritative; anything else is rendered as-is.
const (
	StatusQuotationReady = "quotation_ready"
	StatusPaid           = "paid"
	StatusCancelled      = "cancelled"
)

type Request struct {
	ID                 string          `json:"id"`
	ProductName        string          `json:"product_name"`
	ProductURL         string          `json:"product_url"`
	Quantity           int             `json:"quantity"`
	Status             string          `json:"status"`
	ExtractedPrice     decimal.Decimal `json:"extracted_price"`
	ExtractedCurrency  string          `json:"extracted_currency"`
	CompanyCost        decimal.Decimal `json:"company_cost"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	GST                decimal.Decimal `json:"gst"`
	TotalCostLocal     decimal.Decimal `json:"total_cost_local"`
	LocalCurrency      string          `json:"local_currency"`
	DestinationCountry string          `json:"destination_country"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type Address struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
	IsDefault    bool   `json:"is_default"`
}

type WalletInfo struct {
	Balance decimal.Decimal `json:"balance"`
}

type RateCalcParams struct {
	WeightKg           decimal.Decimal `json:"weight_kg"`
	DestinationCountry string          `json:"destination_country"`
	Currency           string          `json:"currency"`
}

type CalculatedRate struct {
	Carrier       string           `json:"carrier"`
	CarrierID     string           `json:"carrier_id"`
	EstimatedCost decimal.Decimal  `json:"estimated_cost"`
	BaseCostUSD   *decimal.Decimal `json:"base_cost_usd,omitempty"`
	EstimatedDays string           `json:"estimated_days"`
	Currency      string           `json:"currency"`
}

type PrepareParams struct {
	ShippingAddressID string `json:"shipping_address_id"`
	CarrierID         string `json:"carrier_id"`
	ShippingRateID    string `json:"shipping_rate_id"`
}

type PayParams struct {
	PaymentMethod     string `json:"payment_method"`
	ShippingAddressID string `json:"shipping_address_id"`
	CarrierID         string `json:"carrier_id"`
	ShippingRateID    string `json:"shipping_rate_id"`
	PIN               string `json:"pin,omitempty"`
}

type PayResult struct {
	ApprovalURL   string `json:"approval_url,omitempty"`
	Status        string `json:"status,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}
