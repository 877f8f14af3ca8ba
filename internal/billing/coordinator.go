package billing

import (
	"github.com/google/uuid"

	"billing-bridge/pkg/logging"
)

// Legacy purchase states, kept for the restore projection.
const (
	PurchaseStatePurchased = 0
	PurchaseStateCancelled = 1
	PurchaseStateRefunded  = 2
)

// PurchaseRecord is a completed or restored purchase, normalized from the
// service's representation. Transient; never persisted.
type PurchaseRecord struct {
	OrderID            string
	ProductID          string
	PurchaseToken      string
	PurchaseTimeMillis int64
	Acknowledged       bool
	Receipt            string
	Signature          string
}

// pendingPurchase is the single in-flight buy. The continuation resolves
// exactly once: either from the synchronous launch failure or from the
// purchase update that ends the flow.
type pendingPurchase struct {
	requestID uuid.UUID
	productID string
	done      func(*PurchaseRecord, *Error)
}

// coordinator launches purchase flows and routes purchase updates to the
// pending continuation. It holds the session's single persistent purchase
// listener; routing is by the one-pending-request invariant, never by
// re-subscribing or rebuilding the session. All methods run on the service
// loop.
type coordinator struct {
	client  Client
	conn    *connection
	catalog *catalog
	pending *pendingPurchase
}

// buy validates readiness, catalog presence and the single-flight invariant,
// then launches the purchase flow. A synchronous launch failure discards the
// pending request immediately; no update will follow for that attempt.
func (co *coordinator) buy(productID string, done func(*PurchaseRecord, *Error)) {
	if !co.conn.ready() {
		done(nil, NewError(NotInitialized, "billing is not initialized"))
		return
	}
	if co.pending != nil {
		done(nil, NewError(OperationInProgress, "another purchase is in progress"))
		return
	}
	pd, ok := co.catalog.lookup(productID)
	if !ok {
		done(nil, NewError(ItemUnavailable, "product not loaded"))
		return
	}

	p := &pendingPurchase{requestID: uuid.New(), productID: productID, done: done}
	co.pending = p
	logging.Infof("launching purchase flow - product: %s, request: %s", productID, p.requestID)

	if r := co.client.LaunchPurchase(pd); !r.OK() {
		co.pending = nil
		done(nil, Translate("launchPurchase", r))
	}
}

// purchasesUpdated handles a purchase update from the service. Every branch
// clears the pending request before resolving it, so no failure path can
// leave a dangling request and no request resolves twice.
func (co *coordinator) purchasesUpdated(r Result, purchases []Purchase) {
	p := co.pending
	if p == nil {
		// Updates with no request in flight happen, e.g. for purchases
		// completed outside the app. Restore picks those up.
		logging.Infof("purchase update with no pending request - code: %d, purchases: %d", r.Code, len(purchases))
		return
	}
	co.pending = nil

	switch {
	case r.OK() && len(purchases) > 0:
		for _, purchase := range purchases {
			co.acknowledgeIfNeeded(purchase)
		}
		rec := co.match(p.productID, purchases)
		logging.Infof("purchase flow resolved - product: %s, order: %s", rec.ProductID, rec.OrderID)
		p.done(&rec, nil)
	case r.OK():
		p.done(nil, NewError(UnknownError, "purchase update carried no purchases"))
	default:
		p.done(nil, Translate("purchase", r))
	}
}

// match picks the purchase belonging to the pending product, falling back to
// the first record (there is normally exactly one).
func (co *coordinator) match(productID string, purchases []Purchase) PurchaseRecord {
	chosen := purchases[0]
	for _, purchase := range purchases {
		if purchase.ProductID() == productID {
			chosen = purchase
			break
		}
	}
	return normalizePurchase(chosen)
}

// acknowledgeIfNeeded confirms a granted purchase. The purchase is already
// granted once the service reports it, so an acknowledge failure is logged
// and swallowed rather than surfaced to the buyer.
func (co *coordinator) acknowledgeIfNeeded(p Purchase) {
	if p.Acknowledged {
		return
	}
	token := p.PurchaseToken
	co.client.Acknowledge(token, func(r Result) {
		if !r.OK() {
			logging.Errorf("acknowledge failed - token: %s, code: %d: %s", token, r.Code, r.Message)
		}
	})
}

func normalizePurchase(p Purchase) PurchaseRecord {
	return PurchaseRecord{
		OrderID:            p.OrderID,
		ProductID:          p.ProductID(),
		PurchaseToken:      p.PurchaseToken,
		PurchaseTimeMillis: p.PurchaseTimeMillis,
		Acknowledged:       p.Acknowledged,
		Receipt:            p.OriginalJSON,
		Signature:          p.Signature,
	}
}
