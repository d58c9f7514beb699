package shipping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Shape classifies a raw upstream option by the type of its "carrier" key.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeNested        // carrier is an object with at least a name
	ShapeFlat          // carrier is a plain name string
)

// flexID accepts string and numeric ids; upstream is not consistent.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// flexString accepts strings and numbers (estimated_days comes as both).
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("not a string or number: %w", err)
	}
	*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

type nestedCarrier struct {
	ID                  flexID `json:"id"`
	Name                string `json:"name"`
	TrackingURLTemplate string `json:"tracking_url_template"`
	TrackingURL         string `json:"tracking_url"`
}

type nestedRate struct {
	ID          flexID           `json:"id"`
	RatePerKg   *decimal.Decimal `json:"rate_per_kg"`
	BaseRate    *decimal.Decimal `json:"base_rate"`
	BaseCostUSD *decimal.Decimal `json:"base_cost_usd"`
}

type nestedOption struct {
	Carrier            nestedCarrier    `json:"carrier"`
	ShippingRate       *nestedRate      `json:"shipping_rate"`
	RateID             flexID           `json:"rate_id"`
	ServiceType        string           `json:"service_type"`
	EstimatedDays      flexString       `json:"estimated_days"`
	EstimatedCostUSD   *decimal.Decimal `json:"estimated_cost_usd"`
	EstimatedCost      *decimal.Decimal `json:"estimated_cost"`
	EstimatedCostLocal *decimal.Decimal `json:"estimated_cost_local"`
	BaseCostUSD        *decimal.Decimal `json:"base_cost_usd"`
	Currency           string           `json:"currency"`
	UserCurrency       string           `json:"user_currency"`
}

type flatOption struct {
	Carrier            string           `json:"carrier"`
	CarrierID          flexID           `json:"carrier_id"`
	RateID             flexID           `json:"rate_id"`
	ServiceType        string           `json:"service_type"`
	EstimatedDays      flexString       `json:"estimated_days"`
	EstimatedCost      *decimal.Decimal `json:"estimated_cost"`
	EstimatedCostLocal *decimal.Decimal `json:"estimated_cost_local"`
	BaseCostUSD        *decimal.Decimal `json:"base_cost_usd"`
	RatePerKg          *decimal.Decimal `json:"rate_per_kg"`
	WeightKg           *decimal.Decimal `json:"weight_kg"`
	TrackingURL        string           `json:"tracking_url"`
	Currency           string           `json:"currency"`
}

// DetectShape sniffs the "carrier" key without committing to a full decode.
func DetectShape(raw json.RawMessage) Shape {
	var probe struct {
		Carrier json.RawMessage `json:"carrier"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ShapeUnknown
	}
	c := bytes.TrimSpace(probe.Carrier)
	if len(c) == 0 || bytes.Equal(c, []byte("null")) {
		return ShapeUnknown
	}
	switch c[0] {
	case '{':
		var nc nestedCarrier
		if err := json.Unmarshal(c, &nc); err != nil || nc.Name == "" {
			return ShapeUnknown
		}
		return ShapeNested
	case '"':
		var s string
		if err := json.Unmarshal(c, &s); err != nil || s == "" {
			return ShapeUnknown
		}
		return ShapeFlat
	default:
		return ShapeUnknown
	}
}
