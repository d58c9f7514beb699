package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/forwardme/checkout-gateway/internal/backend"
	"github.com/forwardme/checkout-gateway/internal/checkout"
	"github.com/forwardme/checkout-gateway/internal/respond"
)

type CheckoutService interface {
	Start(ctx context.Context, requestID string) (checkout.Session, error)
	Get(ctx context.Context, sessionID string) (checkout.Session, error)
	SelectAddress(ctx context.Context, sessionID, addressID string) (checkout.Session, error)
	SelectOption(ctx context.Context, sessionID, carrierID, rateID string) (checkout.Session, error)
	Prepare(ctx context.Context, sessionID string) (checkout.Session, error)
	PayPayPal(ctx context.Context, sessionID string) (checkout.Session, string, error)
	PayWallet(ctx context.Context, sessionID, pin string) (checkout.WalletPaymentResult, error)
	Back(ctx context.Context, sessionID string) (checkout.Session, error)
	CancelSession(ctx context.Context, sessionID string) error
	CancelRequest(ctx context.Context, requestID string) ([]backend.Request, error)
}

type SessionCounter interface {
	Len() int
}

type CheckoutAPI struct {
	svc      CheckoutService
	sessions SessionCounter
	logf     func(string, ...any)
	version  string
}

func New(svc CheckoutService, sessions SessionCounter, logf func(string, ...any), version string) *CheckoutAPI {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &CheckoutAPI{
		svc:      svc,
		sessions: sessions,
		logf:     logf,
		version:  version,
	}
}

const maxIDLen = 100

func (a *CheckoutAPI) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		respond.ErrorWithID(w, http.StatusNotFound, "not_found", "not found", RequestID(r))
	})

	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/checkout", a.handleCheckoutIndex)
	mux.HandleFunc("/checkout/", a.handleCheckout)
	mux.HandleFunc("/requests/", a.handleRequests)

	return WithRequestID(mux)
}

func (a *CheckoutAPI) handleHealthz(w http.ResponseWriter, r *http.Request) {
	reqID := RequestID(r)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
		respond.ErrorWithID(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", reqID)
		return
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"sessions":   a.sessions.Len(),
		"version":    a.version,
		"request_id": reqID,
	})
}

func (a *CheckoutAPI) handleCheckoutIndex(w http.ResponseWriter, r *http.Request) {
	reqID := RequestID(r)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respond.ErrorWithID(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", reqID)
		return
	}

	var body struct {
		RequestID string `json:"request_id"`
	}
	if !decodeBody(w, r, reqID, &body) {
		return
	}
	if body.RequestID == "" || len(body.RequestID) > maxIDLen {
		respond.ErrorWithID(w, http.StatusBadRequest, "bad_request", "bad request_id", reqID)
		return
	}

	sess, err := a.svc.Start(r.Context(), body.RequestID)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, sess)
}

func (a *CheckoutAPI) handleCheckout(w http.ResponseWriter, r *http.Request) {
	reqID := RequestID(r)

	id, action := splitIDAction(strings.TrimPrefix(r.URL.Path, "/checkout/"))
	if id == "" || len(id) > maxIDLen {
		respond.ErrorWithID(w, http.StatusBadRequest, "bad_request", "bad session id", reqID)
		return
	}

	if action == "" {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			respond.ErrorWithID(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", reqID)
			return
		}
		sess, err := a.svc.Get(r.Context(), id)
		if err != nil {
			a.writeErr(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, sess)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respond.ErrorWithID(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", reqID)
		return
	}

	switch action {
	case "address":
		var body struct {
			AddressID string `json:"address_id"`
		}
		if !decodeBody(w, r, reqID, &body) {
			return
		}
		sess, err := a.svc.SelectAddress(r.Context(), id, body.AddressID)
		if err != nil {
			a.writeErr(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, sess)

	case "shipping-option":
		var body struct {
			CarrierID      string `json:"carrier_id"`
			ShippingRateID string `json:"shipping_rate_id"`
		}
		if !decodeBody(w, r, reqID, &body) {
			return
		}
		sess, err := a.svc.SelectOption(r.Context(), id, body.CarrierID, body.ShippingRateID)
		if err != nil {
			a.writeErr(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, sess)

	case "prepare":
		sess, err := a.svc.Prepare(r.Context(), id)
		if err != nil {
			a.writeErr(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, sess)

	case "pay":
		a.handlePay(w, r, id)

	case "back":
		sess, err := a.svc.Back(r.Context(), id)
		if err != nil {
			a.writeErr(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, sess)

	case "cancel":
		if err := a.svc.CancelSession(r.Context(), id); err != nil {
			a.writeErr(w, r, err)
			return
		}
		respond.NoContent(w)

	default:
		respond.ErrorWithID(w, http.StatusNotFound, "not_found", "unknown action", reqID)
	}
}

func (a *CheckoutAPI) handlePay(w http.ResponseWriter, r *http.Request, id string) {
	reqID := RequestID(r)

	var body struct {
		PaymentMethod string `json:"payment_method"`
		PIN           string `json:"pin"`
	}
	if !decodeBody(w, r, reqID, &body) {
		return
	}

	switch checkout.PaymentMethod(body.PaymentMethod) {
	case checkout.MethodPayPal:
		sess, approvalURL, err := a.svc.PayPayPal(r.Context(), id)
		if err != nil {
			a.writeErr(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]any{
			"session":      sess,
			"approval_url": approvalURL,
		})

	case checkout.MethodWallet:
		res, err := a.svc.PayWallet(r.Context(), id, body.PIN)
		if err != nil {
			a.writeErr(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, res)

	default:
		respond.ErrorWithID(w, http.StatusUnprocessableEntity, "validation_failed",
			"payment_method must be paypal or wallet", reqID)
	}
}

func (a *CheckoutAPI) handleRequests(w http.ResponseWriter, r *http.Request) {
	reqID := RequestID(r)

	id, action := splitIDAction(strings.TrimPrefix(r.URL.Path, "/requests/"))
	if id == "" || len(id) > maxIDLen || action != "cancel" {
		respond.ErrorWithID(w, http.StatusNotFound, "not_found", "use /requests/{id}/cancel", reqID)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respond.ErrorWithID(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", reqID)
		return
	}

	reqs, err := a.svc.CancelRequest(r.Context(), id)
	if err != nil {
		a.writeErr(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"cancelled": id,
		"requests":  reqs,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, reqID string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond.ErrorWithID(w, http.StatusBadRequest, "bad_request", "invalid json body", reqID)
		return false
	}
	return true
}

func splitIDAction(rest string) (id, action string) {
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) >= 3 {
		return "", ""
	}
	id = parts[0]
	if len(parts) == 2 {
		action = parts[1]
	}
	return id, action
}

func (a *CheckoutAPI) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	reqID := RequestID(r)

	var apiErr *backend.APIError
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound), errors.Is(err, backend.ErrNotFound):
		respond.ErrorWithID(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, checkout.ErrRequestNotPayable), errors.Is(err, checkout.ErrWrongPhase):
		respond.ErrorWithID(w, http.StatusConflict, "conflict", err.Error(), reqID)
	case errors.Is(err, checkout.ErrSelectionsMissing),
		errors.Is(err, checkout.ErrBadPIN),
		errors.Is(err, checkout.ErrUnknownAddress),
		errors.Is(err, checkout.ErrUnknownOption),
		errors.Is(err, checkout.ErrNoLocalEstimate):
		respond.ErrorWithID(w, http.StatusUnprocessableEntity, "validation_failed", err.Error(), reqID)
	case errors.Is(err, checkout.ErrNoApprovalURL):
		respond.ErrorWithID(w, http.StatusBadGateway, "bad_gateway", err.Error(), reqID)
	case errors.As(err, &apiErr):
		a.logf("upstream error path=%s err=%v", r.URL.Path, err)
		respond.ErrorWithID(w, http.StatusBadGateway, "bad_gateway", err.Error(), reqID)
	default:
		a.logf("internal error path=%s err=%v", r.URL.Path, err)
		respond.ErrorWithID(w, http.StatusInternalServerError, "internal", "internal error", reqID)
	}
}
