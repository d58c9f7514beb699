package shipping

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/forwardme/checkout-gateway/internal/backend"
)

func raw(t *testing.T, s string) json.RawMessage {
	t.Helper()
	require.True(t, json.Valid([]byte(s)), "test fixture must be valid json")
	return json.RawMessage(s)
}

func TestDetectShape(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want Shape
	}{
		{"nested", `{"carrier":{"id":1,"name":"DHL"}}`, ShapeNested},
		{"nested without name", `{"carrier":{"id":1}}`, ShapeUnknown},
		{"flat", `{"carrier":"DHL Express"}`, ShapeFlat},
		{"flat empty name", `{"carrier":""}`, ShapeUnknown},
		{"missing carrier", `{"rate_id":5}`, ShapeUnknown},
		{"null carrier", `{"carrier":null}`, ShapeUnknown},
		{"numeric carrier", `{"carrier":42}`, ShapeUnknown},
		{"not an object", `[1,2,3]`, ShapeUnknown},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, DetectShape(raw(t, tc.in)))
		})
	}
}

func TestNormalize_NestedShape(t *testing.T) {
	t.Parallel()

	in := raw(t, `{
		"carrier": {"id": 7, "name": "FedEx", "tracking_url": "https://t/{id}"},
		"shipping_rate": {"id": "r-12", "rate_per_kg": 4.5, "base_cost_usd": 10},
		"service_type": "express",
		"estimated_days": 3,
		"estimated_cost_usd": 25.5,
		"estimated_cost_local": 34.9,
		"currency": "USD"
	}`)

	opts := Normalize([]json.RawMessage{in}, "SGD")
	require.Len(t, opts, 1)
	o := opts[0]

	require.Equal(t, "FedEx", o.Carrier.Name)
	require.Equal(t, "7", o.Carrier.ID)
	require.Equal(t, "https://t/{id}", o.Carrier.TrackingURLTemplate)
	require.Equal(t, "r-12", o.ShippingRate.ID)
	require.NotNil(t, o.ShippingRate.RatePerKg)
	require.True(t, o.ShippingRate.RatePerKg.Equal(decimal.RequireFromString("4.5")))
	require.NotNil(t, o.ShippingRate.BaseRate)
	require.True(t, o.ShippingRate.BaseRate.Equal(decimal.NewFromInt(10)))
	require.Equal(t, "express", o.ServiceType)
	require.Equal(t, "3", o.EstimatedDays)
	require.NotNil(t, o.EstimatedCostUSD)
	require.True(t, o.EstimatedCostUSD.Equal(decimal.RequireFromString("25.5")))
	require.NotNil(t, o.EstimatedCostLocal)
	require.True(t, o.EstimatedCostLocal.Equal(decimal.RequireFromString("34.9")))
	require.Equal(t, "SGD", o.UserCurrency)
	require.JSONEq(t, string(in), string(o.Raw))
}

func TestNormalize_NestedAliases(t *testing.T) {
	t.Parallel()

	// rate id and base cost live at the top level in the older wire form.
	in := raw(t, `{
		"carrier": {"id": "c1", "name": "UPS"},
		"rate_id": 99,
		"base_cost_usd": 8.25,
		"estimated_cost": 19.75
	}`)

	opts := Normalize([]json.RawMessage{in}, "USD")
	require.Len(t, opts, 1)
	o := opts[0]

	require.Equal(t, "UPS", o.Carrier.Name)
	require.Equal(t, "99", o.ShippingRate.ID)
	require.NotNil(t, o.ShippingRate.BaseRate)
	require.True(t, o.ShippingRate.BaseRate.Equal(decimal.RequireFromString("8.25")))
	require.NotNil(t, o.EstimatedCostUSD)
	require.True(t, o.EstimatedCostUSD.Equal(decimal.RequireFromString("19.75")))
	require.Equal(t, defaultServiceType, o.ServiceType)
}

func TestNormalize_FlatShape(t *testing.T) {
	t.Parallel()

	in := raw(t, `{
		"carrier": "DHL Express",
		"carrier_id": "dhl",
		"rate_id": "r1",
		"estimated_cost": 30,
		"weight_kg": 2,
		"estimated_days": "2-4",
		"currency": "USD"
	}`)

	opts := Normalize([]json.RawMessage{in}, "USD")
	require.Len(t, opts, 1)
	o := opts[0]

	require.Equal(t, "DHL Express", o.Carrier.Name)
	require.Equal(t, "dhl", o.Carrier.ID)
	require.Equal(t, "2-4", o.EstimatedDays)
	require.NotNil(t, o.ShippingRate.RatePerKg)
	require.True(t, o.ShippingRate.RatePerKg.Equal(decimal.NewFromInt(15)), "30 / 2kg")
	require.NotNil(t, o.EstimatedCostUSD)
	require.True(t, o.EstimatedCostUSD.Equal(decimal.NewFromInt(30)))
	// user currency matches the quote currency, so the local estimate is known
	require.NotNil(t, o.EstimatedCostLocal)
	require.True(t, o.EstimatedCostLocal.Equal(decimal.NewFromInt(30)))
	require.Equal(t, defaultServiceType, o.ServiceType)
}

func TestNormalize_FlatShape_DefaultWeight(t *testing.T) {
	t.Parallel()

	in := raw(t, `{"carrier":"SF","estimated_cost":12}`)

	opts := Normalize([]json.RawMessage{in}, "SGD")
	require.Len(t, opts, 1)
	require.NotNil(t, opts[0].ShippingRate.RatePerKg)
	require.True(t, opts[0].ShippingRate.RatePerKg.Equal(decimal.NewFromInt(12)), "weight defaults to 1")
	require.Nil(t, opts[0].EstimatedCostLocal, "no currency given, no local estimate")
}

func TestNormalize_RecognizedShapesAlwaysHaveNameAndService(t *testing.T) {
	t.Parallel()

	ins := []json.RawMessage{
		raw(t, `{"carrier":{"id":1,"name":"A"}}`),
		raw(t, `{"carrier":"B"}`),
	}
	for _, o := range Normalize(ins, "USD") {
		require.NotEmpty(t, o.Carrier.Name)
		require.NotEmpty(t, o.ServiceType)
	}
}

func TestNormalize_UnknownShape_Passthrough(t *testing.T) {
	t.Parallel()

	in := raw(t, `{"something":"else","cost":1}`)
	opts := Normalize([]json.RawMessage{in}, "SGD")
	require.Len(t, opts, 1)

	o := opts[0]
	require.Empty(t, o.Carrier.Name)
	require.Equal(t, defaultServiceType, o.ServiceType)
	require.JSONEq(t, string(in), string(o.Raw))
}

func TestNormalize_Empty(t *testing.T) {
	t.Parallel()
	require.Empty(t, Normalize(nil, "USD"))
}

func TestFromCalculatedRate(t *testing.T) {
	t.Parallel()

	r := backend.CalculatedRate{
		Carrier:       "DHL Express",
		CarrierID:     "dhl",
		EstimatedCost: decimal.RequireFromString("12.5"),
		EstimatedDays: "3-5",
		Currency:      "USD",
	}

	o := FromCalculatedRate(r, decimal.RequireFromString("1.5"), "USD")

	require.Equal(t, "DHL Express", o.Carrier.Name)
	require.Equal(t, "dhl", o.Carrier.ID)
	require.True(t, o.Approximate)
	require.NotNil(t, o.EstimatedCostUSD)
	require.True(t, o.EstimatedCostUSD.Equal(decimal.RequireFromString("12.5")))
	require.NotNil(t, o.EstimatedCostLocal)
	require.True(t, o.EstimatedCostLocal.Equal(decimal.RequireFromString("12.5")))
	require.NotNil(t, o.ShippingRate.RatePerKg)
	require.True(t, o.ShippingRate.RatePerKg.Equal(decimal.RequireFromString("8.33")), "12.5 / 1.5 rounded")
	require.Equal(t, "3-5", o.EstimatedDays)
}

func TestFromCalculatedRate_ForeignCurrency(t *testing.T) {
	t.Parallel()

	base := decimal.NewFromInt(9)
	r := backend.CalculatedRate{
		Carrier:       "SingPost",
		CarrierID:     "sp",
		EstimatedCost: decimal.NewFromInt(17),
		BaseCostUSD:   &base,
		Currency:      "SGD",
	}

	o := FromCalculatedRate(r, decimal.NewFromInt(1), "MYR")

	require.Nil(t, o.EstimatedCostLocal, "SGD quote is not a MYR estimate")
	require.NotNil(t, o.EstimatedCostUSD)
	require.True(t, o.EstimatedCostUSD.Equal(base), "falls back to base_cost_usd")
}
