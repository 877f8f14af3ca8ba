package billing

// ResponseCode is a raw response code reported by the platform billing service.
type ResponseCode int

const (
	ResponseOK                 ResponseCode = 0
	ResponseUserCanceled       ResponseCode = 1
	ResponseServiceUnavailable ResponseCode = 2
	ResponseBillingUnavailable ResponseCode = 3
	ResponseItemUnavailable    ResponseCode = 4
	ResponseDeveloperError     ResponseCode = 5
	ResponseError              ResponseCode = 6
	ResponseItemAlreadyOwned   ResponseCode = 7
	ResponseItemNotOwned       ResponseCode = 8
	ResponseNetworkError       ResponseCode = 12
)

// Result is the outcome of a single billing service call.
type Result struct {
	Code    ResponseCode
	Message string
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Code == ResponseOK
}

// ProductTypeInApp is the only product type this service handles.
// Subscriptions are rejected at the call boundary.
const ProductTypeInApp = "inapp"

// ProductDetails is the product metadata returned by the billing service.
// PriceMicros is nil when the platform response omits it.
type ProductDetails struct {
	ProductID      string
	Title          string
	Description    string
	FormattedPrice string
	CurrencyCode   string
	PriceMicros    *int64
	Type           string
}

// Purchase is a purchase record as reported by the billing service,
// either through a purchase update or an owned-purchases query.
type Purchase struct {
	OrderID            string
	ProductIDs         []string
	PurchaseToken      string
	PurchaseTimeMillis int64
	Acknowledged       bool
	OriginalJSON       string
	Signature          string
}

// ProductID returns the first product id of the purchase, or "".
func (p Purchase) ProductID() string {
	if len(p.ProductIDs) == 0 {
		return ""
	}
	return p.ProductIDs[0]
}

// ConnectionListener receives session lifecycle events from the billing service.
type ConnectionListener interface {
	// OnSetupFinished is called once per StartConnection attempt.
	OnSetupFinished(r Result)
	// OnServiceDisconnected is called when the service drops the session.
	// It may arrive at any time after setup finished.
	OnServiceDisconnected()
}

// PurchaseUpdateListener receives asynchronous purchase updates. There is
// exactly one listener per session; updates for every launched purchase flow
// arrive through it in the order the service emits them.
type PurchaseUpdateListener func(r Result, purchases []Purchase)

// Client is the capability boundary to the platform billing service.
//
// All methods except LaunchPurchase are asynchronous: implementations must not
// block the caller and must report completion through the callback. Callbacks
// may be invoked on any goroutine; the caller is responsible for redirecting
// them onto its own execution context.
type Client interface {
	// StartConnection establishes the billing session. The listener's
	// OnSetupFinished fires exactly once per call.
	StartConnection(l ConnectionListener)

	// SetPurchaseUpdateListener installs the single purchase update listener
	// for the session. Must be called before any purchase flow is launched.
	SetPurchaseUpdateListener(l PurchaseUpdateListener)

	// QueryProducts fetches metadata for the given product ids, restricted to
	// one product type, as a single batched query.
	QueryProducts(ids []string, productType string, cb func(Result, []ProductDetails))

	// LaunchPurchase starts the purchase flow for a product. The returned
	// Result only covers the launch itself; the outcome of the flow arrives
	// later through the purchase update listener, unless the launch failed.
	LaunchPurchase(pd ProductDetails) Result

	// Acknowledge confirms a granted purchase with the billing service.
	Acknowledge(token string, cb func(Result))

	// Consume marks a one-time purchase as used up. The callback receives the
	// consumed token back from the service.
	Consume(token string, cb func(Result, string))

	// QueryOwned fetches all currently owned purchases of one product type.
	QueryOwned(productType string, cb func(Result, []Purchase))
}
