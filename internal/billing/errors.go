package billing

import "fmt"

// Code is the stable error code exposed to callers. The numeric values are
// part of the caller contract and must never be renumbered; clients switch on
// them regardless of which billing service version sits underneath.
type Code int

const (
	Ok                    Code = 0
	InvalidArguments      Code = -1
	UnableToInitialize    Code = -2
	NotInitialized        Code = -3
	UnknownError          Code = -4
	UserCancelled         Code = -5
	BadResponseFromServer Code = -6
	VerificationFailed    Code = -7 // kept for compatibility, never produced
	ItemUnavailable       Code = -8
	ItemAlreadyOwned      Code = -9
	ItemNotOwned          Code = -10
	ConsumeFailed         Code = -11
	OperationInProgress   Code = -12
)

// String returns the symbolic name of the code.
func (c Code) String() string {
	switch c {
	case Ok:
		return "OK"
	case InvalidArguments:
		return "INVALID_ARGUMENTS"
	case UnableToInitialize:
		return "UNABLE_TO_INITIALIZE"
	case NotInitialized:
		return "BILLING_NOT_INITIALIZED"
	case UnknownError:
		return "UNKNOWN_ERROR"
	case UserCancelled:
		return "USER_CANCELLED"
	case BadResponseFromServer:
		return "BAD_RESPONSE_FROM_SERVER"
	case VerificationFailed:
		return "VERIFICATION_FAILED"
	case ItemUnavailable:
		return "ITEM_UNAVAILABLE"
	case ItemAlreadyOwned:
		return "ITEM_ALREADY_OWNED"
	case ItemNotOwned:
		return "ITEM_NOT_OWNED"
	case ConsumeFailed:
		return "CONSUME_FAILED"
	case OperationInProgress:
		return "OPERATION_IN_PROGRESS"
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Error is a failure translated into the stable taxonomy. The primary signal
// is Code; the vendor code and message that produced it are carried as
// diagnostics so platform-specific handling stays possible.
type Error struct {
	Code          Code
	Message       string
	Op            string
	VendorCode    *ResponseCode
	VendorMessage string
}

func (e *Error) Error() string {
	if e.VendorCode != nil {
		return fmt.Sprintf("%s: %s (code %d, vendor %d)", e.Op, e.Message, int(e.Code), int(*e.VendorCode))
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s (code %d)", e.Op, e.Message, int(e.Code))
	}
	return fmt.Sprintf("%s (code %d)", e.Message, int(e.Code))
}

// NewError builds an Error with no vendor diagnostics.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Translate maps a vendor result onto the stable taxonomy, preserving the raw
// code and message as diagnostics. op names the operation that failed.
func Translate(op string, r Result) *Error {
	var code Code
	switch r.Code {
	case ResponseOK:
		code = Ok
	case ResponseUserCanceled:
		code = UserCancelled
	case ResponseItemUnavailable:
		code = ItemUnavailable
	case ResponseItemAlreadyOwned:
		code = ItemAlreadyOwned
	case ResponseItemNotOwned:
		code = ItemNotOwned
	case ResponseServiceUnavailable, ResponseBillingUnavailable, ResponseNetworkError:
		code = BadResponseFromServer
	case ResponseDeveloperError:
		code = InvalidArguments
	default:
		code = UnknownError
	}
	return translateAs(op, code, r)
}

// translateAs forces the primary code while keeping vendor diagnostics. Used
// where the operation dictates the code, e.g. connect failures are always
// UnableToInitialize and consume failures always ConsumeFailed.
func translateAs(op string, code Code, r Result) *Error {
	vc := r.Code
	msg := r.Message
	if msg == "" {
		msg = code.String()
	}
	return &Error{Code: code, Message: msg, Op: op, VendorCode: &vc, VendorMessage: r.Message}
}

// CodeOf extracts the stable code from err, or UnknownError for foreign errors.
func CodeOf(err error) Code {
	if err == nil {
		return Ok
	}
	if be, ok := err.(*Error); ok {
		return be.Code
	}
	return UnknownError
}

// asErr converts a possibly-nil *Error into a plain error, avoiding the
// typed-nil interface trap on success paths.
func asErr(e *Error) error {
	if e == nil {
		return nil
	}
	return e
}
