package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/forwardme/checkout-gateway/internal/backend"
	"github.com/forwardme/checkout-gateway/internal/events"
	"github.com/forwardme/checkout-gateway/internal/shipping"
)

type Backend interface {
	ListRequests(ctx context.Context) ([]backend.Request, error)
	GetRequest(ctx context.Context, id string) (backend.Request, error)
	Wallet(ctx context.Context) (backend.WalletInfo, error)
	ListAddresses(ctx context.Context) ([]backend.Address, error)
	ShippingOptions(ctx context.Context, requestID string) ([]json.RawMessage, error)
	CalculateRates(ctx context.Context, p backend.RateCalcParams) ([]backend.CalculatedRate, error)
	PreparePayment(ctx context.Context, requestID string, p backend.PrepareParams) (json.RawMessage, error)
	Pay(ctx context.Context, requestID string, p backend.PayParams) (backend.PayResult, error)
	CancelRequest(ctx context.Context, requestID string) error
}

type Store interface {
	Get(id string) (Session, bool)
	Set(id string, s Session)
	Delete(id string)
}

type EventSink interface {
	Publish(ctx context.Context, e events.Event) error
}

var pinRe = regexp.MustCompile(`^[0-9]{4}$`)

type Service struct {
	backend Backend
	store   Store
	events  EventSink
	logf    func(string, ...any)

	defaultCountry string
	fallbackWeight decimal.Decimal

	now func() time.Time
}

func NewService(b Backend, st Store, sink EventSink, logf func(string, ...any), defaultCountry string, fallbackWeight decimal.Decimal) *Service {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if defaultCountry == "" {
		defaultCountry = "US"
	}
	return &Service{
		backend:        b,
		store:          st,
		events:         sink,
		logf:           logf,
		defaultCountry: defaultCountry,
		fallbackWeight: fallbackWeight,
		now:            time.Now,
	}
}

func (s *Service) Get(_ context.Context, sessionID string) (Session, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// Start opens a checkout session for a request whose quotation has been
// accepted. The address book and the shipping options are fetched
// concurrently; neither depends on the other, and each failure degrades on
// its own (empty list plus an unavailable flag) instead of aborting.
func (s *Service) Start(ctx context.Context, requestID string) (Session, error) {
	req, err := s.backend.GetRequest(ctx, requestID)
	if err != nil {
		return Session{}, err
	}
	if req.Status != backend.StatusQuotationReady {
		return Session{}, fmt.Errorf("%w: status %q", ErrRequestNotPayable, req.Status)
	}

	now := s.now()
	sess := Session{
		ID:        uuid.NewString(),
		RequestID: req.ID,
		Phase:     PhasePreparation,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		addrs, err := s.backend.ListAddresses(ctx)
		if err != nil {
			s.logf("[CHECKOUT] address book: %v", err)
			sess.Addresses = []backend.Address{}
			sess.AddressesUnavailable = true
			return
		}
		sess.Addresses = addrs
		for _, a := range addrs {
			if a.IsDefault {
				sess.SelectedAddressID = a.ID
				break
			}
		}
	}()

	go func() {
		defer wg.Done()
		sess.Options, sess.OptionsApproximate, sess.OptionsUnavailable = s.loadOptions(ctx, req)
	}()

	wg.Wait()

	s.store.Set(sess.ID, sess)
	s.logf("[CHECKOUT] started session=%s request=%s addresses=%d options=%d approx=%t",
		sess.ID, req.ID, len(sess.Addresses), len(sess.Options), sess.OptionsApproximate)
	return sess, nil
}

// loadOptions tries the dedicated options endpoint first and falls through to
// a generic rate calculation when it fails. Only when both fail does the
// session end up with no options at all, which blocks prepare.
func (s *Service) loadOptions(ctx context.Context, req backend.Request) (opts []shipping.Option, approximate, unavailable bool) {
	raws, err := s.backend.ShippingOptions(ctx, req.ID)
	if err == nil {
		return shipping.Normalize(raws, req.LocalCurrency), false, false
	}
	s.logf("[CHECKOUT] shipping options request=%s: %v, trying rate calc", req.ID, err)

	country := req.DestinationCountry
	if country == "" {
		country = s.defaultCountry
	}
	rates, err := s.backend.CalculateRates(ctx, backend.RateCalcParams{
		WeightKg:           s.fallbackWeight,
		DestinationCountry: country,
		Currency:           req.LocalCurrency,
	})
	if err != nil {
		s.logf("[CHECKOUT] rate calc request=%s: %v", req.ID, err)
		return []shipping.Option{}, false, true
	}

	opts = make([]shipping.Option, 0, len(rates))
	for _, r := range rates {
		opts = append(opts, shipping.FromCalculatedRate(r, s.fallbackWeight, req.LocalCurrency))
	}
	return opts, true, false
}

func (s *Service) SelectAddress(_ context.Context, sessionID, addressID string) (Session, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if sess.Phase != PhasePreparation {
		return Session{}, fmt.Errorf("%w: %s", ErrWrongPhase, sess.Phase)
	}
	if !sess.hasAddress(addressID) {
		return Session{}, ErrUnknownAddress
	}
	sess.SelectedAddressID = addressID
	sess.UpdatedAt = s.now()
	s.store.Set(sess.ID, sess)
	return sess, nil
}

func (s *Service) SelectOption(_ context.Context, sessionID, carrierID, rateID string) (Session, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if sess.Phase != PhasePreparation {
		return Session{}, fmt.Errorf("%w: %s", ErrWrongPhase, sess.Phase)
	}

	found := false
	for _, o := range sess.Options {
		if o.Carrier.ID == carrierID && o.ShippingRate.ID == rateID {
			found = true
			break
		}
	}
	if !found {
		return Session{}, ErrUnknownOption
	}

	sess.SelectedCarrierID = carrierID
	sess.SelectedRateID = rateID
	sess.UpdatedAt = s.now()
	s.store.Set(sess.ID, sess)
	return sess, nil
}

// Prepare moves the session into processing. The upstream prepare endpoint is
// optional: when it fails the gateway synthesizes a local preparation so its
// absence never blocks checkout.
func (s *Service) Prepare(ctx context.Context, sessionID string) (Session, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if sess.Phase != PhasePreparation {
		return Session{}, fmt.Errorf("%w: %s", ErrWrongPhase, sess.Phase)
	}
	if !sess.selectionsComplete() {
		return Session{}, ErrSelectionsMissing
	}

	opt, _ := sess.selectedOption()
	prep := Preparation{
		ShippingAddressID: sess.SelectedAddressID,
		CarrierID:         sess.SelectedCarrierID,
		ShippingRateID:    sess.SelectedRateID,
		Currency:          sess.Request.LocalCurrency,
	}

	raw, err := s.backend.PreparePayment(ctx, sess.RequestID, backend.PrepareParams{
		ShippingAddressID: sess.SelectedAddressID,
		CarrierID:         sess.SelectedCarrierID,
		ShippingRateID:    sess.SelectedRateID,
	})
	if err == nil {
		prep.Source = PreparationServer
		prep.Raw = raw
		if amt, cur, ok := serverAmount(raw); ok {
			prep.Amount = amt
			if cur != "" {
				prep.Currency = cur
			}
		} else if amt, aerr := PayableAmount(sess.Request, opt); aerr == nil {
			prep.Amount = amt
		}
	} else {
		s.logf("[CHECKOUT] prepare request=%s: %v, synthesizing locally", sess.RequestID, err)
		amt, aerr := PayableAmount(sess.Request, opt)
		if aerr != nil {
			return Session{}, aerr
		}
		prep.Source = PreparationLocal
		prep.Amount = amt
	}

	sess.Preparation = &prep
	sess.Phase = PhaseProcessing
	sess.UpdatedAt = s.now()
	s.store.Set(sess.ID, sess)
	return sess, nil
}

func serverAmount(raw json.RawMessage) (decimal.Decimal, string, bool) {
	var body struct {
		Amount   *decimal.Decimal `json:"amount"`
		Currency string           `json:"currency"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Amount == nil {
		return decimal.Decimal{}, "", false
	}
	return *body.Amount, body.Currency, true
}

// PayPayPal issues the pay call and hands the approval URL back for the
// caller's redirect. A response without approval_url is an error but does not
// advance or reset the session; the user can simply retry.
func (s *Service) PayPayPal(ctx context.Context, sessionID string) (Session, string, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return Session{}, "", ErrSessionNotFound
	}
	if sess.Phase != PhaseProcessing || sess.Preparation == nil {
		return Session{}, "", fmt.Errorf("%w: %s", ErrWrongPhase, sess.Phase)
	}

	res, err := s.backend.Pay(ctx, sess.RequestID, backend.PayParams{
		PaymentMethod:     string(MethodPayPal),
		ShippingAddressID: sess.Preparation.ShippingAddressID,
		CarrierID:         sess.Preparation.CarrierID,
		ShippingRateID:    sess.Preparation.ShippingRateID,
	})
	if err != nil {
		return Session{}, "", err
	}
	if res.ApprovalURL == "" {
		return Session{}, "", ErrNoApprovalURL
	}

	sess.PaymentMethod = MethodPayPal
	sess.UpdatedAt = s.now()
	s.store.Set(sess.ID, sess)
	return sess, res.ApprovalURL, nil
}

// WalletPaymentResult carries the confirmation plus the refreshed request
// list and wallet balance the client wants right after paying.
type WalletPaymentResult struct {
	Session  Session            `json:"session"`
	Payment  backend.PayResult  `json:"payment"`
	Requests []backend.Request  `json:"requests,omitempty"`
	Wallet   backend.WalletInfo `json:"wallet"`
}

func (s *Service) PayWallet(ctx context.Context, sessionID, pin string) (WalletPaymentResult, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return WalletPaymentResult{}, ErrSessionNotFound
	}
	if sess.Phase != PhaseProcessing || sess.Preparation == nil {
		return WalletPaymentResult{}, fmt.Errorf("%w: %s", ErrWrongPhase, sess.Phase)
	}
	if !pinRe.MatchString(pin) {
		return WalletPaymentResult{}, ErrBadPIN
	}

	prep := *sess.Preparation
	res, err := s.backend.Pay(ctx, sess.RequestID, backend.PayParams{
		PaymentMethod:     string(MethodWallet),
		ShippingAddressID: prep.ShippingAddressID,
		CarrierID:         prep.CarrierID,
		ShippingRateID:    prep.ShippingRateID,
		PIN:               pin,
	})
	if err != nil {
		return WalletPaymentResult{}, err
	}

	s.publish(ctx, events.Event{
		Type:      events.TypeCheckoutCompleted,
		SessionID: sess.ID,
		RequestID: sess.RequestID,
		Amount:    prep.Amount,
		Currency:  prep.Currency,
		CarrierID: prep.CarrierID,
	})

	sess.reset(s.now())
	s.store.Set(sess.ID, sess)

	out := WalletPaymentResult{Session: sess, Payment: res}
	if reqs, err := s.backend.ListRequests(ctx); err != nil {
		s.logf("[CHECKOUT] refresh requests: %v", err)
	} else {
		out.Requests = reqs
	}
	if w, err := s.backend.Wallet(ctx); err != nil {
		s.logf("[CHECKOUT] refresh wallet: %v", err)
	} else {
		out.Wallet = w
	}
	return out, nil
}

// Back leaves processing for another round of selection, dropping the
// preparation but keeping what the user already picked.
func (s *Service) Back(_ context.Context, sessionID string) (Session, error) {
	sess, ok := s.store.Get(sessionID)
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if sess.Phase != PhaseProcessing {
		return Session{}, fmt.Errorf("%w: %s", ErrWrongPhase, sess.Phase)
	}
	sess.backToPreparation(s.now())
	s.store.Set(sess.ID, sess)
	return sess, nil
}

// CancelSession abandons the checkout entirely; the session is gone
// afterwards, like the original's navigate-away.
func (s *Service) CancelSession(_ context.Context, sessionID string) error {
	if _, ok := s.store.Get(sessionID); !ok {
		return ErrSessionNotFound
	}
	s.store.Delete(sessionID)
	return nil
}

// CancelRequest is independent of any checkout session.
func (s *Service) CancelRequest(ctx context.Context, requestID string) ([]backend.Request, error) {
	if err := s.backend.CancelRequest(ctx, requestID); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:      events.TypeRequestCancelled,
		RequestID: requestID,
	})

	reqs, err := s.backend.ListRequests(ctx)
	if err != nil {
		s.logf("[CHECKOUT] refresh requests after cancel: %v", err)
		return nil, nil
	}
	return reqs, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logf("[CHECKOUT] publish %s: %v", e.Type, err)
	}
}
