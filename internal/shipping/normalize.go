package shipping

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/forwardme/checkout-gateway/internal/backend"
)

// Normalize turns raw upstream option objects into the canonical Option form.
// Objects of unrecognized shape are passed through with only Raw populated so
// nothing the upstream sent is dropped silently.
func Normalize(raws []json.RawMessage, userCurrency string) []Option {
	out := make([]Option, 0, len(raws))
	for _, raw := range raws {
		out = append(out, normalizeOne(raw, userCurrency))
	}
	return out
}

func normalizeOne(raw json.RawMessage, userCurrency string) Option {
	switch DetectShape(raw) {
	case ShapeNested:
		var n nestedOption
		if err := json.Unmarshal(raw, &n); err != nil {
			return passthrough(raw, userCurrency)
		}
		return fromNested(n, raw, userCurrency)
	case ShapeFlat:
		var f flatOption
		if err := json.Unmarshal(raw, &f); err != nil {
			return passthrough(raw, userCurrency)
		}
		return fromFlat(f, raw, userCurrency)
	default:
		return passthrough(raw, userCurrency)
	}
}

func fromNested(n nestedOption, raw json.RawMessage, userCurrency string) Option {
	o := Option{
		Carrier: Carrier{
			ID:                  string(n.Carrier.ID),
			Name:                n.Carrier.Name,
			TrackingURLTemplate: firstNonEmpty(n.Carrier.TrackingURLTemplate, n.Carrier.TrackingURL),
		},
		ServiceType:        firstNonEmpty(n.ServiceType, defaultServiceType),
		EstimatedDays:      string(n.EstimatedDays),
		EstimatedCostLocal: n.EstimatedCostLocal,
		UserCurrency:       firstNonEmpty(n.UserCurrency, userCurrency),
		Currency:           n.Currency,
		Raw:                raw,
	}

	if n.ShippingRate != nil {
		o.ShippingRate = Rate{
			ID:        string(n.ShippingRate.ID),
			RatePerKg: n.ShippingRate.RatePerKg,
			BaseRate:  firstDecimal(n.ShippingRate.BaseRate, n.ShippingRate.BaseCostUSD),
		}
	}
	if o.ShippingRate.ID == "" {
		o.ShippingRate.ID = string(n.RateID)
	}
	if o.ShippingRate.BaseRate == nil {
		o.ShippingRate.BaseRate = n.BaseCostUSD
	}

	o.EstimatedCostUSD = firstDecimal(n.EstimatedCostUSD, n.EstimatedCost)
	return o
}

func fromFlat(f flatOption, raw json.RawMessage, userCurrency string) Option {
	o := Option{
		Carrier: Carrier{
			ID:                  string(f.CarrierID),
			Name:                f.Carrier,
			TrackingURLTemplate: f.TrackingURL,
		},
		ShippingRate: Rate{
			ID:        string(f.RateID),
			RatePerKg: f.RatePerKg,
			BaseRate:  f.BaseCostUSD,
		},
		ServiceType:        firstNonEmpty(f.ServiceType, defaultServiceType),
		EstimatedDays:      string(f.EstimatedDays),
		EstimatedCostLocal: f.EstimatedCostLocal,
		UserCurrency:       userCurrency,
		Currency:           f.Currency,
		Raw:                raw,
	}

	// Flat objects usually carry a total cost but no per-kg rate; derive one
	// from the quoted weight, assuming 1 kg when the upstream left it out.
	if o.ShippingRate.RatePerKg == nil && f.EstimatedCost != nil {
		weight := decimal.NewFromInt(1)
		if f.WeightKg != nil && f.WeightKg.Sign() > 0 {
			weight = *f.WeightKg
		}
		perKg := f.EstimatedCost.Div(weight).Round(2)
		o.ShippingRate.RatePerKg = &perKg
	}

	o.EstimatedCostUSD = costInUSD(f.EstimatedCost, f.Currency, f.BaseCostUSD)
	if o.EstimatedCostLocal == nil && f.EstimatedCost != nil && f.Currency == userCurrency {
		o.EstimatedCostLocal = f.EstimatedCost
	}
	return o
}

func passthrough(raw json.RawMessage, userCurrency string) Option {
	return Option{
		ServiceType:  defaultServiceType,
		UserCurrency: userCurrency,
		Raw:          raw,
	}
}

// FromCalculatedRate converts one generic rate-calculation result into the
// canonical form. Results produced this way are estimates, so the option is
// marked approximate.
func FromCalculatedRate(r backend.CalculatedRate, weightKg decimal.Decimal, userCurrency string) Option {
	cost := r.EstimatedCost

	o := Option{
		Carrier: Carrier{
			ID:   r.CarrierID,
			Name: r.Carrier,
		},
		ShippingRate: Rate{
			BaseRate: r.BaseCostUSD,
		},
		ServiceType:   defaultServiceType,
		EstimatedDays: r.EstimatedDays,
		UserCurrency:  userCurrency,
		Currency:      r.Currency,
		Approximate:   true,
	}

	if weightKg.Sign() > 0 {
		perKg := cost.Div(weightKg).Round(2)
		o.ShippingRate.RatePerKg = &perKg
	}
	o.EstimatedCostUSD = costInUSD(&cost, r.Currency, r.BaseCostUSD)
	if r.Currency == userCurrency {
		o.EstimatedCostLocal = &cost
	}
	return o
}

func costInUSD(cost *decimal.Decimal, currency string, baseUSD *decimal.Decimal) *decimal.Decimal {
	if cost != nil && (currency == "USD" || currency == "") {
		return cost
	}
	return baseUSD
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstDecimal(vals ...*decimal.Decimal) *decimal.Decimal {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
