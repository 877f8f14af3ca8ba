package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"billing-bridge/internal/billing"
	"billing-bridge/pkg/logging"
)

// StoreClient implements billing.Client against the platform billing service
// over HTTP. Calls POST to the service; purchase updates and disconnects are
// store-initiated and arrive through the notification webhook, which forwards
// them to HandlePurchasesUpdated / HandleDisconnected.
type StoreClient struct {
	baseURL    string
	httpClient *http.Client

	mu               sync.Mutex
	connListener     billing.ConnectionListener
	purchaseListener billing.PurchaseUpdateListener
}

// NewStoreClient creates a store client for the given billing service URL
func NewStoreClient(baseURL string) *StoreClient {
	return &StoreClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// storeResult is the common response envelope of the billing service
type storeResult struct {
	ResponseCode int    `json:"responseCode"`
	DebugMessage string `json:"debugMessage"`
}

func (sr storeResult) toResult() billing.Result {
	return billing.Result{Code: billing.ResponseCode(sr.ResponseCode), Message: sr.DebugMessage}
}

type storeProduct struct {
	ProductID      string `json:"productId"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	FormattedPrice string `json:"formattedPrice"`
	CurrencyCode   string `json:"currencyCode"`
	PriceMicros    *int64 `json:"priceMicros"`
	Type           string `json:"type"`
}

type StorePurchase struct {
	OrderID            string   `json:"orderId"`
	ProductIDs         []string `json:"productIds"`
	PurchaseToken      string   `json:"purchaseToken"`
	PurchaseTimeMillis int64    `json:"purchaseTimeMillis"`
	Acknowledged       bool     `json:"acknowledged"`
	Receipt            string   `json:"receipt"`
	Signature          string   `json:"signature"`
}

func (sp StorePurchase) toPurchase() billing.Purchase {
	return billing.Purchase{
		OrderID:            sp.OrderID,
		ProductIDs:         sp.ProductIDs,
		PurchaseToken:      sp.PurchaseToken,
		PurchaseTimeMillis: sp.PurchaseTimeMillis,
		Acknowledged:       sp.Acknowledged,
		OriginalJSON:       sp.Receipt,
		Signature:          sp.Signature,
	}
}

// StartConnection establishes the billing session
func (sc *StoreClient) StartConnection(l billing.ConnectionListener) {
	sc.mu.Lock()
	sc.connListener = l
	sc.mu.Unlock()

	go func() {
		var out storeResult
		r := sc.post("/v1/session/connect", map[string]interface{}{}, &out, &out)
		l.OnSetupFinished(r)
	}()
}

// SetPurchaseUpdateListener installs the session's purchase update listener
func (sc *StoreClient) SetPurchaseUpdateListener(l billing.PurchaseUpdateListener) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.purchaseListener = l
}

// QueryProducts fetches product metadata as one batched query
func (sc *StoreClient) QueryProducts(ids []string, productType string, cb func(billing.Result, []billing.ProductDetails)) {
	go func() {
		var out struct {
			storeResult
			Products []storeProduct `json:"products"`
		}
		r := sc.post("/v1/products/query", map[string]interface{}{
			"ids":  ids,
			"type": productType,
		}, &out, &out.storeResult)
		if !r.OK() {
			cb(r, nil)
			return
		}
		details := make([]billing.ProductDetails, 0, len(out.Products))
		for _, p := range out.Products {
			details = append(details, billing.ProductDetails{
				ProductID:      p.ProductID,
				Title:          p.Title,
				Description:    p.Description,
				FormattedPrice: p.FormattedPrice,
				CurrencyCode:   p.CurrencyCode,
				PriceMicros:    p.PriceMicros,
				Type:           p.Type,
			})
		}
		cb(r, details)
	}()
}

// LaunchPurchase asks the store to start the purchase flow. Synchronous by
// contract: the result only covers the launch; the flow outcome arrives later
// through the notification webhook.
func (sc *StoreClient) LaunchPurchase(pd billing.ProductDetails) billing.Result {
	var out storeResult
	return sc.post("/v1/purchases/launch", map[string]interface{}{
		"productId": pd.ProductID,
		"type":      billing.ProductTypeInApp,
	}, &out, &out)
}

// Acknowledge confirms a granted purchase
func (sc *StoreClient) Acknowledge(token string, cb func(billing.Result)) {
	go func() {
		var out storeResult
		cb(sc.post("/v1/purchases/acknowledge", map[string]interface{}{
			"purchaseToken": token,
		}, &out, &out))
	}()
}

// Consume marks a one-time purchase as used up
func (sc *StoreClient) Consume(token string, cb func(billing.Result, string)) {
	go func() {
		var out storeResult
		cb(sc.post("/v1/purchases/consume", map[string]interface{}{
			"purchaseToken": token,
		}, &out, &out), token)
	}()
}

// QueryOwned fetches all currently owned purchases
func (sc *StoreClient) QueryOwned(productType string, cb func(billing.Result, []billing.Purchase)) {
	go func() {
		var out struct {
			storeResult
			Purchases []StorePurchase `json:"purchases"`
		}
		r := sc.post("/v1/purchases/owned", map[string]interface{}{
			"type": productType,
		}, &out, &out.storeResult)
		if !r.OK() {
			cb(r, nil)
			return
		}
		purchases := make([]billing.Purchase, 0, len(out.Purchases))
		for _, p := range out.Purchases {
			purchases = append(purchases, p.toPurchase())
		}
		cb(r, purchases)
	}()
}

// StoreNotification is a store-initiated event posted to the notification
// webhook: the outcome of a purchase flow, or a session drop.
type StoreNotification struct {
	Event        string          `json:"event"` // "purchases.updated" or "session.disconnected"
	ResponseCode int             `json:"responseCode"`
	DebugMessage string          `json:"debugMessage"`
	Purchases    []StorePurchase `json:"purchases"`
}

// HandleNotification dispatches a store notification to the session
// listeners. Unknown events are rejected so the store retries are visible.
func (sc *StoreClient) HandleNotification(n StoreNotification) error {
	switch n.Event {
	case "purchases.updated":
		purchases := make([]billing.Purchase, 0, len(n.Purchases))
		for _, p := range n.Purchases {
			purchases = append(purchases, p.toPurchase())
		}
		r := billing.Result{Code: billing.ResponseCode(n.ResponseCode), Message: n.DebugMessage}
		sc.HandlePurchasesUpdated(r, purchases)
		return nil
	case "session.disconnected":
		sc.HandleDisconnected()
		return nil
	default:
		return fmt.Errorf("unknown store notification event: %q", n.Event)
	}
}

// HandlePurchasesUpdated forwards a store-initiated purchase update to the
// session's single listener. Called by the notification webhook handler.
func (sc *StoreClient) HandlePurchasesUpdated(r billing.Result, purchases []billing.Purchase) {
	sc.mu.Lock()
	l := sc.purchaseListener
	sc.mu.Unlock()
	if l == nil {
		logging.Errorf("purchase update received before listener installed - code: %d", r.Code)
		return
	}
	l(r, purchases)
}

// HandleDisconnected forwards a store-initiated session drop
func (sc *StoreClient) HandleDisconnected() {
	sc.mu.Lock()
	l := sc.connListener
	sc.mu.Unlock()
	if l == nil {
		return
	}
	l.OnServiceDisconnected()
}

// post sends a JSON request to the billing service and decodes the response
// into out, which must embed storeResult at envelope. Transport failures
// surface as network errors, unexpected HTTP statuses as service-unavailable;
// both keep the detail as the message.
func (sc *StoreClient) post(path string, body interface{}, out interface{}, envelope *storeResult) billing.Result {
	payload, err := json.Marshal(body)
	if err != nil {
		return billing.Result{Code: billing.ResponseDeveloperError, Message: err.Error()}
	}

	resp, err := sc.httpClient.Post(sc.baseURL+path, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		logging.Errorf("billing service request failed - path: %s: %v", path, err)
		return billing.Result{Code: billing.ResponseNetworkError, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Errorf("billing service returned status %d - path: %s", resp.StatusCode, path)
		return billing.Result{
			Code:    billing.ResponseServiceUnavailable,
			Message: fmt.Sprintf("billing service returned status %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return billing.Result{Code: billing.ResponseError, Message: fmt.Sprintf("failed to parse response: %v", err)}
	}

	logging.Debugf("billing service call - path: %s, code: %d", path, envelope.ResponseCode)
	return envelope.toResult()
}
