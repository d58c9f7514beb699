package checkout

import "errors"

var (
	ErrSessionNotFound   = errors.New("checkout session not found")
	ErrRequestNotPayable = errors.New("request is not ready for payment")
	ErrWrongPhase        = errors.New("operation not allowed in current phase")
	ErrSelectionsMissing = errors.New("address and shipping option must be selected")
	ErrUnknownAddress    = errors.New("address not in fetched address book")
	ErrUnknownOption     = errors.New("shipping option not in fetched list")
	ErrBadPIN            = errors.New("pin must be exactly 4 digits")
	ErrNoApprovalURL     = errors.New("paypal response missing approval_url")
	ErrNoLocalEstimate   = errors.New("no shipping estimate in the request currency")
)
