package billing

import (
	"context"
	"encoding/json"
)

// BuyResult is the legacy-shaped outcome of a buy or consume call.
type BuyResult struct {
	TransactionID *string `json:"transactionId"`
	ProductID     *string `json:"productId"`
	Token         string  `json:"token"`
}

// Service is the caller-facing billing facade. Operation names are stable
// regardless of the billing service version underneath. Methods are safe to
// call from any goroutine; internally everything runs on one executor.
type Service struct {
	client  Client
	exec    Executor
	ownLoop *Loop

	conn    *connection
	catalog *catalog
	co      *coordinator
}

// Option configures a Service.
type Option func(*Service)

// WithExecutor replaces the default run loop with a caller-provided execution
// context. Results are delivered on it.
func WithExecutor(e Executor) Option {
	return func(s *Service) { s.exec = e }
}

// NewService wires the billing core around a vendor client. It installs the
// session's single purchase update listener; the listener stays for the life
// of the service and is never re-registered.
func NewService(client Client, opts ...Option) *Service {
	s := &Service{client: client}
	for _, opt := range opts {
		opt(s)
	}
	if s.exec == nil {
		s.ownLoop = NewLoop()
		s.exec = s.ownLoop
	}

	s.catalog = newCatalog()
	s.conn = &connection{client: client, listener: connListener{s}}
	s.co = &coordinator{client: client, conn: s.conn, catalog: s.catalog}

	client.SetPurchaseUpdateListener(func(r Result, purchases []Purchase) {
		s.exec.Submit(func() { s.co.purchasesUpdated(r, purchases) })
	})
	return s
}

// Close stops the service's own run loop, if it created one.
func (s *Service) Close() {
	if s.ownLoop != nil {
		s.ownLoop.Stop()
	}
}

// connListener redirects vendor connection callbacks onto the executor before
// they touch session state.
type connListener struct{ s *Service }

func (l connListener) OnSetupFinished(r Result) {
	l.s.exec.Submit(func() { l.s.conn.setupFinished(r) })
}

func (l connListener) OnServiceDisconnected() {
	l.s.exec.Submit(func() { l.s.conn.disconnected() })
}

// Init establishes the billing session. Idempotent: succeeds immediately when
// the session is already ready.
func (s *Service) Init(ctx context.Context) error {
	ch := make(chan *Error, 1)
	s.exec.Submit(func() {
		s.conn.connect(func(e *Error) { ch <- e })
	})
	select {
	case e := <-ch:
		return asErr(e)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether the session is currently ready.
func (s *Service) Ready() bool {
	ch := make(chan bool, 1)
	s.exec.Submit(func() { ch <- s.conn.ready() })
	return <-ch
}

// GetProductDetails issues one batched one-time-product query, replaces the
// catalog cache with the response and returns the normalized summaries.
func (s *Service) GetProductDetails(ctx context.Context, ids []string) ([]ProductSummary, error) {
	type reply struct {
		products []ProductSummary
		err      *Error
	}
	ch := make(chan reply, 1)
	s.exec.Submit(func() {
		if !s.conn.ready() {
			ch <- reply{err: NewError(NotInitialized, "billing is not initialized")}
			return
		}
		s.client.QueryProducts(ids, ProductTypeInApp, func(r Result, details []ProductDetails) {
			s.exec.Submit(func() {
				if !r.OK() {
					ch <- reply{err: Translate("queryProducts", r)}
					return
				}
				ch <- reply{products: s.catalog.replaceAll(details)}
			})
		})
	})
	select {
	case rep := <-ch:
		return rep.products, asErr(rep.err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Buy runs the purchase flow for a previously queried product. At most one
// buy may be in flight; a second call fails with OperationInProgress while
// the first stays untouched. The continuation behind the returned result
// resolves exactly once even if ctx gives up waiting first.
func (s *Service) Buy(ctx context.Context, productID string) (*BuyResult, error) {
	if productID == "" {
		return nil, NewError(InvalidArguments, "invalid product id")
	}
	type reply struct {
		rec *PurchaseRecord
		err *Error
	}
	ch := make(chan reply, 1)
	s.exec.Submit(func() {
		s.co.buy(productID, func(rec *PurchaseRecord, e *Error) {
			ch <- reply{rec: rec, err: e}
		})
	})
	select {
	case rep := <-ch:
		if rep.err != nil {
			return nil, rep.err
		}
		return &BuyResult{
			TransactionID: optional(rep.rec.OrderID),
			ProductID:     optional(rep.rec.ProductID),
			Token:         rep.rec.PurchaseToken,
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// receiptFields is the subset of the caller-supplied receipt JSON the
// consume path needs.
type receiptFields struct {
	PurchaseToken string `json:"purchaseToken"`
	OrderID       string `json:"orderId"`
	ProductID     string `json:"productId"`
}

// ConsumePurchase consumes the one-time purchase identified by the receipt's
// purchaseToken field. A receipt without a token fails with InvalidArguments
// before the billing service is contacted.
func (s *Service) ConsumePurchase(ctx context.Context, receiptJSON string) (*BuyResult, error) {
	if receiptJSON == "" {
		return nil, NewError(InvalidArguments, "unable to parse purchase token")
	}
	var rec receiptFields
	if err := json.Unmarshal([]byte(receiptJSON), &rec); err != nil || rec.PurchaseToken == "" {
		return nil, NewError(InvalidArguments, "unrecognized purchase token")
	}

	ch := make(chan *Error, 1)
	s.exec.Submit(func() {
		if !s.conn.ready() {
			ch <- NewError(NotInitialized, "billing is not initialized")
			return
		}
		s.client.Consume(rec.PurchaseToken, func(r Result, _ string) {
			s.exec.Submit(func() {
				if !r.OK() {
					ch <- translateAs("consume", ConsumeFailed, r)
					return
				}
				ch <- nil
			})
		})
	})
	select {
	case e := <-ch:
		if e != nil {
			return nil, e
		}
		return &BuyResult{
			TransactionID: optional(rec.OrderID),
			ProductID:     optional(rec.ProductID),
			Token:         rec.PurchaseToken,
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RestorePurchases queries all currently owned one-time purchases. Owning
// nothing yields an empty list, not an error.
func (s *Service) RestorePurchases(ctx context.Context) ([]PurchaseRecord, error) {
	type reply struct {
		records []PurchaseRecord
		err     *Error
	}
	ch := make(chan reply, 1)
	s.exec.Submit(func() {
		if !s.conn.ready() {
			ch <- reply{err: NewError(NotInitialized, "billing is not initialized")}
			return
		}
		s.client.QueryOwned(ProductTypeInApp, func(r Result, purchases []Purchase) {
			s.exec.Submit(func() {
				if !r.OK() {
					ch <- reply{err: Translate("queryOwned", r)}
					return
				}
				records := make([]PurchaseRecord, 0, len(purchases))
				for _, p := range purchases {
					records = append(records, normalizePurchase(p))
				}
				ch <- reply{records: records}
			})
		})
	})
	select {
	case rep := <-ch:
		return rep.records, asErr(rep.err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe is an explicit unsupported-operation stub kept for contract
// compatibility.
func (s *Service) Subscribe(context.Context, string) error {
	return NewError(InvalidArguments, "subscriptions not supported")
}

// optional maps "" to a JSON null.
func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
