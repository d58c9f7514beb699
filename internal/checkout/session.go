package checkout

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/forwardme/checkout-gateway/internal/backend"
	"github.com/forwardme/checkout-gateway/internal/shipping"
)

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhasePreparation Phase = "preparation"
	PhaseProcessing  Phase = "processing"
)

type PaymentMethod string

const (
	MethodPayPal PaymentMethod = "paypal"
	MethodWallet PaymentMethod = "wallet"
)

type PreparationSource string

const (
	PreparationServer PreparationSource = "server"
	PreparationLocal  PreparationSource = "local"
)

// Preparation is the ephemeral record produced by the prepare step. Source
// says whether the upstream confirmed it or the gateway synthesized it after
// the optional prepare endpoint failed.
type Preparation struct {
	Source            PreparationSource `json:"source"`
	ShippingAddressID string            `json:"shipping_address_id"`
	CarrierID         string            `json:"carrier_id"`
	ShippingRateID    string            `json:"shipping_rate_id"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency,omitempty"`
	Raw               json.RawMessage   `json:"raw,omitempty"`
}

// Session holds the whole checkout state for one request. It is the only
// state the gateway owns; everything durable lives upstream.
type Session struct {
	ID        string          `json:"id"`
	RequestID string          `json:"request_id"`
	Phase     Phase           `json:"phase"`
	Request   backend.Request `json:"request"`

	Addresses            []backend.Address `json:"addresses"`
	AddressesUnavailable bool              `json:"addresses_unavailable,omitempty"`

	Options            []shipping.Option `json:"shipping_options"`
	OptionsApproximate bool              `json:"shipping_options_approximate,omitempty"`
	OptionsUnavailable bool              `json:"shipping_options_unavailable,omitempty"`

	SelectedAddressID string `json:"selected_address_id,omitempty"`
	SelectedCarrierID string `json:"selected_carrier_id,omitempty"`
	SelectedRateID    string `json:"selected_rate_id,omitempty"`

	Preparation   *Preparation  `json:"preparation,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) selectionsComplete() bool {
	if s.SelectedAddressID == "" {
		return false
	}
	_, ok := s.selectedOption()
	return ok
}

func (s *Session) selectedOption() (shipping.Option, bool) {
	for _, o := range s.Options {
		if o.Carrier.ID != s.SelectedCarrierID {
			continue
		}
		if o.ShippingRate.ID != s.SelectedRateID {
			continue
		}
		if s.SelectedCarrierID == "" && s.SelectedRateID == "" {
			continue
		}
		return o, true
	}
	return shipping.Option{}, false
}

func (s *Session) hasAddress(id string) bool {
	for _, a := range s.Addresses {
		if a.ID == id {
			return true
		}
	}
	return false
}

// reset is the single place all transient checkout state is cleared, so a
// cancel can never leave a half-cleared session behind.
func (s *Session) reset(now time.Time) {
	s.Phase = PhaseIdle
	s.SelectedAddressID = ""
	s.SelectedCarrierID = ""
	s.SelectedRateID = ""
	s.Preparation = nil
	s.PaymentMethod = ""
	s.UpdatedAt = now
}

func (s *Session) backToPreparation(now time.Time) {
	s.Phase = PhasePreparation
	s.Preparation = nil
	s.PaymentMethod = ""
	s.UpdatedAt = now
}

// PayableAmount is the total the user will be charged for a request with the
// given option: total_cost_local plus the option's local estimate, rounded to
// two decimals. The USD figure is accepted only when the request itself is
// priced in USD; summing across currencies is refused.
func PayableAmount(req backend.Request, opt shipping.Option) (decimal.Decimal, error) {
	if opt.EstimatedCostLocal != nil {
		return req.TotalCostLocal.Add(*opt.EstimatedCostLocal).Round(2), nil
	}
	if opt.EstimatedCostUSD != nil && strings.EqualFold(req.LocalCurrency, "USD") {
		return req.TotalCostLocal.Add(*opt.EstimatedCostUSD).Round(2), nil
	}
	return decimal.Decimal{}, ErrNoLocalEstimate
}
