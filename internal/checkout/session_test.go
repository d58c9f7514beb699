package checkout

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/forwardme/checkout-gateway/internal/backend"
	"github.com/forwardme/checkout-gateway/internal/shipping"
)

func dec(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := decimal.RequireFromString(s)
	return &d
}

func TestPayableAmount_LocalEstimate(t *testing.T) {
	t.Parallel()

	req := backend.Request{
		TotalCostLocal: decimal.RequireFromString("100.00"),
		LocalCurrency:  "SGD",
	}
	opt := shipping.Option{EstimatedCostLocal: dec(t, "15.00")}

	amt, err := PayableAmount(req, opt)
	require.NoError(t, err)
	require.Equal(t, "115.00", amt.StringFixed(2))
}

func TestPayableAmount_Rounding(t *testing.T) {
	t.Parallel()

	req := backend.Request{TotalCostLocal: decimal.RequireFromString("10.005"), LocalCurrency: "SGD"}
	opt := shipping.Option{EstimatedCostLocal: dec(t, "0.001")}

	amt, err := PayableAmount(req, opt)
	require.NoError(t, err)
	require.Equal(t, "10.01", amt.StringFixed(2))
}

func TestPayableAmount_USDFallbackOnlyForUSDRequests(t *testing.T) {
	t.Parallel()

	opt := shipping.Option{EstimatedCostUSD: dec(t, "15.00")}

	usdReq := backend.Request{TotalCostLocal: decimal.NewFromInt(100), LocalCurrency: "USD"}
	amt, err := PayableAmount(usdReq, opt)
	require.NoError(t, err)
	require.Equal(t, "115.00", amt.StringFixed(2))

	sgdReq := backend.Request{TotalCostLocal: decimal.NewFromInt(100), LocalCurrency: "SGD"}
	_, err = PayableAmount(sgdReq, opt)
	require.ErrorIs(t, err, ErrNoLocalEstimate, "currencies must not be mixed")
}

func TestPayableAmount_NoEstimateAtAll(t *testing.T) {
	t.Parallel()

	req := backend.Request{TotalCostLocal: decimal.NewFromInt(100), LocalCurrency: "USD"}
	_, err := PayableAmount(req, shipping.Option{})
	require.ErrorIs(t, err, ErrNoLocalEstimate)
}

func TestSessionReset_ClearsEverything(t *testing.T) {
	t.Parallel()

	s := Session{
		Phase:             PhaseProcessing,
		SelectedAddressID: "a1",
		SelectedCarrierID: "c1",
		SelectedRateID:    "r1",
		Preparation:       &Preparation{Source: PreparationLocal},
		PaymentMethod:     MethodWallet,
	}
	now := time.Now()
	s.reset(now)

	require.Equal(t, PhaseIdle, s.Phase)
	require.Empty(t, s.SelectedAddressID)
	require.Empty(t, s.SelectedCarrierID)
	require.Empty(t, s.SelectedRateID)
	require.Nil(t, s.Preparation)
	require.Empty(t, s.PaymentMethod)
	require.Equal(t, now, s.UpdatedAt)
}

func TestSessionBack_KeepsSelections(t *testing.T) {
	t.Parallel()

	s := Session{
		Phase:             PhaseProcessing,
		SelectedAddressID: "a1",
		SelectedCarrierID: "c1",
		SelectedRateID:    "r1",
		Preparation:       &Preparation{Source: PreparationServer},
		PaymentMethod:     MethodPayPal,
	}
	s.backToPreparation(time.Now())

	require.Equal(t, PhasePreparation, s.Phase)
	require.Equal(t, "a1", s.SelectedAddressID)
	require.Equal(t, "c1", s.SelectedCarrierID)
	require.Nil(t, s.Preparation)
	require.Empty(t, s.PaymentMethod)
}
