package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is a scripted billing service. Callbacks fire synchronously from
// the calling goroutine; the service under test is responsible for funneling
// them onto its own executor.
type fakeClient struct {
	mu sync.Mutex

	setupResult   Result
	queryResult   Result
	queryProducts []ProductDetails
	launchResult  Result
	// launchUpdate, when set, is delivered through the purchase listener
	// right after a successful launch.
	launchUpdate    *purchaseUpdate
	ackResult       Result
	consumeResult   Result
	ownedResult     Result
	owned           []Purchase
	connectCalls    int
	queryCalls      [][]string
	launchedIDs     []string
	ackedTokens     []string
	consumedTokens  []string
	ownedQueryCalls int

	connListener ConnectionListener
	listener     PurchaseUpdateListener
	launched     chan struct{}
}

type purchaseUpdate struct {
	result    Result
	purchases []Purchase
}

func newFakeClient() *fakeClient {
	return &fakeClient{launched: make(chan struct{}, 8)}
}

func (f *fakeClient) StartConnection(l ConnectionListener) {
	f.mu.Lock()
	f.connectCalls++
	f.connListener = l
	r := f.setupResult
	f.mu.Unlock()
	l.OnSetupFinished(r)
}

func (f *fakeClient) SetPurchaseUpdateListener(l PurchaseUpdateListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

func (f *fakeClient) QueryProducts(ids []string, productType string, cb func(Result, []ProductDetails)) {
	f.mu.Lock()
	f.queryCalls = append(f.queryCalls, ids)
	r, details := f.queryResult, f.queryProducts
	f.mu.Unlock()
	cb(r, details)
}

func (f *fakeClient) LaunchPurchase(pd ProductDetails) Result {
	f.mu.Lock()
	f.launchedIDs = append(f.launchedIDs, pd.ProductID)
	r := f.launchResult
	update := f.launchUpdate
	l := f.listener
	f.mu.Unlock()

	select {
	case f.launched <- struct{}{}:
	default:
	}
	if r.OK() && update != nil {
		l(update.result, update.purchases)
	}
	return r
}

func (f *fakeClient) Acknowledge(token string, cb func(Result)) {
	f.mu.Lock()
	f.ackedTokens = append(f.ackedTokens, token)
	r := f.ackResult
	f.mu.Unlock()
	cb(r)
}

func (f *fakeClient) Consume(token string, cb func(Result, string)) {
	f.mu.Lock()
	f.consumedTokens = append(f.consumedTokens, token)
	r := f.consumeResult
	f.mu.Unlock()
	cb(r, token)
}

func (f *fakeClient) QueryOwned(productType string, cb func(Result, []Purchase)) {
	f.mu.Lock()
	f.ownedQueryCalls++
	r, owned := f.ownedResult, f.owned
	f.mu.Unlock()
	cb(r, owned)
}

// deliverUpdate pushes a store-initiated purchase update.
func (f *fakeClient) deliverUpdate(r Result, purchases []Purchase) {
	f.mu.Lock()
	l := f.listener
	f.mu.Unlock()
	l(r, purchases)
}

// disconnect simulates a service-initiated session drop.
func (f *fakeClient) disconnect() {
	f.mu.Lock()
	l := f.connListener
	f.mu.Unlock()
	l.OnServiceDisconnected()
}

type fakeSnapshot struct {
	connectCalls    int
	queryCalls      [][]string
	launchedIDs     []string
	ackedTokens     []string
	consumedTokens  []string
	ownedQueryCalls int
}

func (f *fakeClient) snapshot() fakeSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeSnapshot{
		connectCalls:    f.connectCalls,
		queryCalls:      append([][]string(nil), f.queryCalls...),
		launchedIDs:     append([]string(nil), f.launchedIDs...),
		ackedTokens:     append([]string(nil), f.ackedTokens...),
		consumedTokens:  append([]string(nil), f.consumedTokens...),
		ownedQueryCalls: f.ownedQueryCalls,
	}
}

func micros(v int64) *int64 { return &v }

func coinProduct() ProductDetails {
	return ProductDetails{
		ProductID:      "coin_100",
		Title:          "100 Coins",
		Description:    "A pile of coins",
		FormattedPrice: "$0.99",
		CurrencyCode:   "USD",
		PriceMicros:    micros(990000),
		Type:           ProductTypeInApp,
	}
}

func coinPurchase() Purchase {
	return Purchase{
		OrderID:            "GPA.1234",
		ProductIDs:         []string{"coin_100"},
		PurchaseToken:      "tok-coin-1",
		PurchaseTimeMillis: 1700000000000,
		OriginalJSON:       `{"purchaseToken":"tok-coin-1","orderId":"GPA.1234","productId":"coin_100"}`,
		Signature:          "sig-1",
	}
}

func newTestService(t *testing.T, fc *fakeClient) *Service {
	t.Helper()
	svc := NewService(fc)
	t.Cleanup(svc.Close)
	return svc
}

func newReadyService(t *testing.T, fc *fakeClient) *Service {
	t.Helper()
	svc := newTestService(t, fc)
	require.NoError(t, svc.Init(context.Background()))
	return svc
}

func TestInitIsIdempotentWhenReady(t *testing.T) {
	fc := newFakeClient()
	svc := newReadyService(t, fc)

	require.NoError(t, svc.Init(context.Background()))
	assert.True(t, svc.Ready())
	assert.Equal(t, 1, fc.snapshot().connectCalls, "a ready session must not reconnect")
}

func TestInitFailureIsRecoverable(t *testing.T) {
	fc := newFakeClient()
	fc.setupResult = Result{Code: ResponseBillingUnavailable, Message: "billing unavailable"}
	svc := newTestService(t, fc)

	err := svc.Init(context.Background())
	require.Error(t, err)
	assert.Equal(t, UnableToInitialize, CodeOf(err))

	var berr *Error
	require.ErrorAs(t, err, &berr)
	require.NotNil(t, berr.VendorCode)
	assert.Equal(t, ResponseBillingUnavailable, *berr.VendorCode)
	assert.Equal(t, "billing unavailable", berr.VendorMessage)
	assert.False(t, svc.Ready())

	// Error state recovers by connecting again.
	fc.mu.Lock()
	fc.setupResult = Result{Code: ResponseOK}
	fc.mu.Unlock()
	require.NoError(t, svc.Init(context.Background()))
	assert.True(t, svc.Ready())
	assert.Equal(t, 2, fc.snapshot().connectCalls)
}

func TestOperationsFailFastWithoutInit(t *testing.T) {
	fc := newFakeClient()
	svc := newTestService(t, fc)
	ctx := context.Background()

	_, err := svc.GetProductDetails(ctx, []string{"coin_100"})
	assert.Equal(t, NotInitialized, CodeOf(err))

	_, err = svc.Buy(ctx, "coin_100")
	assert.Equal(t, NotInitialized, CodeOf(err))

	_, err = svc.ConsumePurchase(ctx, `{"purchaseToken":"tok"}`)
	assert.Equal(t, NotInitialized, CodeOf(err))

	_, err = svc.RestorePurchases(ctx)
	assert.Equal(t, NotInitialized, CodeOf(err))

	snap := fc.snapshot()
	assert.Empty(t, snap.queryCalls, "service must not be contacted before ready")
	assert.Empty(t, snap.consumedTokens)
	assert.Zero(t, snap.ownedQueryCalls)
}

func TestDisconnectFailsFastUntilReconnect(t *testing.T) {
	fc := newFakeClient()
	svc := newReadyService(t, fc)

	fc.disconnect()
	assert.False(t, svc.Ready())

	_, err := svc.GetProductDetails(context.Background(), []string{"coin_100"})
	assert.Equal(t, NotInitialized, CodeOf(err))

	require.NoError(t, svc.Init(context.Background()))
	assert.True(t, svc.Ready())
}

func TestQueryReplacesCacheWholesale(t *testing.T) {
	fc := newFakeClient()
	fc.queryProducts = []ProductDetails{coinProduct()}
	svc := newReadyService(t, fc)
	ctx := context.Background()

	products, err := svc.GetProductDetails(ctx, []string{"coin_100"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "coin_100", products[0].ProductID)
	assert.Equal(t, "inapp", products[0].Type)

	// A later query fully replaces the cache; the old id is gone.
	gem := coinProduct()
	gem.ProductID = "gem_10"
	fc.mu.Lock()
	fc.queryProducts = []ProductDetails{gem}
	fc.mu.Unlock()

	_, err = svc.GetProductDetails(ctx, []string{"gem_10"})
	require.NoError(t, err)

	_, err = svc.Buy(ctx, "coin_100")
	assert.Equal(t, ItemUnavailable, CodeOf(err))
}

func TestQueryFailureTranslates(t *testing.T) {
	fc := newFakeClient()
	fc.queryResult = Result{Code: ResponseServiceUnavailable, Message: "down"}
	svc := newReadyService(t, fc)

	_, err := svc.GetProductDetails(context.Background(), []string{"coin_100"})
	assert.Equal(t, BadResponseFromServer, CodeOf(err))
}

func TestProductPriceDecimalDerivation(t *testing.T) {
	noMicros := coinProduct()
	noMicros.ProductID = "mystery_box"
	noMicros.PriceMicros = nil

	fc := newFakeClient()
	fc.queryProducts = []ProductDetails{coinProduct(), noMicros}
	svc := newReadyService(t, fc)

	products, err := svc.GetProductDetails(context.Background(), []string{"coin_100", "mystery_box"})
	require.NoError(t, err)
	require.Len(t, products, 2)

	require.NotNil(t, products[0].PriceAsDecimal)
	assert.Equal(t, "0.99", *products[0].PriceAsDecimal)
	assert.Nil(t, products[1].PriceAsDecimal, "absent micros must stay null, not zero")
}

func TestBuyResolvesAndAcknowledges(t *testing.T) {
	fc := newFakeClient()
	fc.queryProducts = []ProductDetails{coinProduct()}
	fc.launchUpdate = &purchaseUpdate{result: Result{Code: ResponseOK}, purchases: []Purchase{coinPurchase()}}
	svc := newReadyService(t, fc)
	ctx := context.Background()

	_, err := svc.GetProductDetails(ctx, []string{"coin_100"})
	require.NoError(t, err)

	res, err := svc.Buy(ctx, "coin_100")
	require.NoError(t, err)
	assert.Equal(t, "tok-coin-1", res.Token)
	require.NotNil(t, res.TransactionID)
	assert.Equal(t, "GPA.1234", *res.TransactionID)
	require.NotNil(t, res.ProductID)
	assert.Equal(t, "coin_100", *res.ProductID)

	assert.Equal(t, []string{"tok-coin-1"}, fc.snapshot().ackedTokens)
}

func TestBuySkipsAcknowledgedPurchases(t *testing.T) {
	acked := coinPurchase()
	acked.Acknowledged = true

	fc := newFakeClient()
	fc.queryProducts = []ProductDetails{coinProduct()}
	fc.launchUpdate = &purchaseUpdate{result: Result{Code: ResponseOK}, purchases: []Purchase{acked}}
	svc := newReadyService(t, fc)
	ctx := context.Background()

	_, err := svc.GetProductDetails(ctx, []string{"coin_100"})
	require.NoError(t, err)

	_, err = svc.Buy(ctx, "coin_100")
	require.NoError(t, err)
	assert.Empty(t, fc.snapshot().ackedTokens)
}

func TestBuyAcknowledgeFailureIsSwallowed(t *testing.T) {
	fc := newFakeClient()
	fc.queryProducts = []ProductDetails{coinProduct()}
	fc.ackResult = Result{Code: ResponseError, Message: "ack broke"}
	fc.launchUpdate = &purchaseUpdate{result: Result{Code: ResponseOK}, purchases: []Purchase{coinPurchase()}}
	svc := newReadyService(t, fc)
	ctx := context.Background()

	_, err := svc.GetProductDetails(ctx, []string{"coin_100"})
	require.NoError(t, err)

	// The purchase is already granted; the ack failure must not surface.
	res, err := svc.Buy(ctx, "coin_100")
	require.NoError(t, err)
	assert.Equal(t, "tok-coin-1", res.Token)
}

func TestBuyUnknownSKUFailsWithItemUnavailable(t *testing.T) {
	fc := newFakeClient()
	svc := newReadyService(t, fc)

	_, err := svc.Buy(context.Background(), "unknown_sku")
	assert.Equal(t, ItemUnavailable, CodeOf(err))
	assert.Empty(t, fc.snapshot().launchedIDs)
}

func TestBuyUserCancelled(t *testing.T) {
	fc := newFakeClient()
	fc.queryProducts = []ProductDetails{coinProduct()}
	fc.launchUpdate = &purchaseUpdate{result: Result{Code: ResponseUserCanceled, Message: "cancelled"}}
	svc := newReadyService(t, fc)
	ctx := context.Background()

	_, err := svc.GetProductDetails(ctx, []string{"coin_100"})
	require.NoError(t, err)

	_, err = svc.Buy(ctx, "coin_100")
	assert.Equal(t, UserCancelled, CodeOf(err))

	// The pending request is cleared; the next buy goes through.
	fc.mu.Lock()
	fc.launchUpdate = &purchaseUpdate{result: Result{Code: ResponseOK}, purchases: []Purchase{coinPurchase()}}
	fc.mu.Unlock()
	res, err := svc.Buy(ctx, "coin_100")
	require.NoError(t, err)
	assert.Equal(t, "tok-coin-1", res.Token)
}

func TestBuySynchronousLaunchFailure(t *testing.T) {
	fc := newFakeClient()
	fc.queryProducts = []ProductDetails{coinProduct()}
	fc.launchResult = Result{Code: ResponseItemAlreadyOwned, Message: "already owned"}
	svc := newReadyService(t, fc)
	ctx := context.Background()

	_, err := svc.GetProductDetails(ctx, []string{"coin_100"})
	require.NoError(t, err)

	_, err = svc.Buy(ctx, "coin_100")
	require.Error(t, err)
	assert.Equal(t, ItemAlreadyOwned, CodeOf(err))

	var berr *Error
	require.ErrorAs(t, err, &berr)
	require.NotNil(t, berr.VendorCode)
	assert.Equal(t, ResponseItemAlreadyOwned, *berr.VendorCode)

	// No dangling pending request after the synchronous failure.
	fc.mu.Lock()
	fc.launchResult = Result{Code: ResponseOK}
	fc.launchUpdate = &purchaseUpdate{result: Result{Code: ResponseOK}, purchases: []Purchase{coinPurchase()}}
	fc.mu.Unlock()
	_, err = svc.Buy(ctx, "coin_100")
	require.NoError(t, err)
}

func TestSecondBuyWhileOutstandingIsRejected(t *testing.T) {
	fc := newFakeClient()
	fc.queryProducts = []ProductDetails{coinProduct()}
	// Launch succeeds but no update is scripted: the first buy stays pending.
	svc := newReadyService(t, fc)
	ctx := context.Background()

	_, err := svc.GetProductDetails(ctx, []string{"coin_100"})
	require.NoError(t, err)

	type buyOutcome struct {
		res *BuyResult
		err error
	}
	first := make(chan buyOutcome, 1)
	go func() {
		res, err := svc.Buy(ctx, "coin_100")
		first <- buyOutcome{res, err}
	}()

	select {
	case <-fc.launched:
	case <-time.After(2 * time.Second):
		t.Fatal("first buy never launched")
	}

	_, err = svc.Buy(ctx, "coin_100")
	assert.Equal(t, OperationInProgress, CodeOf(err))
	assert.Equal(t, []string{"coin_100"}, fc.snapshot().launchedIDs, "rejected buy must not launch")

	// The outstanding request is untouched and resolves normally.
	fc.deliverUpdate(Result{Code: ResponseOK}, []Purchase{coinPurchase()})
	select {
	case out := <-first:
		require.NoError(t, out.err)
		assert.Equal(t, "tok-coin-1", out.res.Token)
	case <-time.After(2 * time.Second):
		t.Fatal("first buy never resolved")
	}
}

func TestPurchaseUpdateResolvesExactlyOnce(t *testing.T) {
	co := &coordinator{
		client:  newFakeClient(),
		conn:    &connection{state: StateReady},
		catalog: newCatalog(),
	}
	co.catalog.replaceAll([]ProductDetails{coinProduct()})

	resolutions := 0
	co.buy("coin_100", func(*PurchaseRecord, *Error) { resolutions++ })

	update := []Purchase{coinPurchase()}
	co.purchasesUpdated(Result{Code: ResponseOK}, update)
	// A duplicate or unrelated update after resolution is ignored.
	co.purchasesUpdated(Result{Code: ResponseOK}, update)
	co.purchasesUpdated(Result{Code: ResponseError}, nil)

	assert.Equal(t, 1, resolutions)
}

func TestPurchaseUpdateWithoutPurchasesFails(t *testing.T) {
	fc := newFakeClient()
	fc.queryProducts = []ProductDetails{coinProduct()}
	fc.launchUpdate = &purchaseUpdate{result: Result{Code: ResponseOK}}
	svc := newReadyService(t, fc)
	ctx := context.Background()

	_, err := svc.GetProductDetails(ctx, []string{"coin_100"})
	require.NoError(t, err)

	_, err = svc.Buy(ctx, "coin_100")
	assert.Equal(t, UnknownError, CodeOf(err))
}

func TestConsumeRejectsBadReceipts(t *testing.T) {
	fc := newFakeClient()
	svc := newReadyService(t, fc)
	ctx := context.Background()

	for _, receipt := range []string{"", "not json", `{}`, `{"purchaseToken":""}`} {
		_, err := svc.ConsumePurchase(ctx, receipt)
		assert.Equal(t, InvalidArguments, CodeOf(err), "receipt %q", receipt)
	}
	assert.Empty(t, fc.snapshot().consumedTokens, "service must not be contacted for bad receipts")
}

func TestConsumeSuccessEchoesReceiptFields(t *testing.T) {
	fc := newFakeClient()
	svc := newReadyService(t, fc)

	res, err := svc.ConsumePurchase(context.Background(),
		`{"purchaseToken":"tok-coin-1","orderId":"GPA.1234","productId":"coin_100"}`)
	require.NoError(t, err)
	assert.Equal(t, "tok-coin-1", res.Token)
	require.NotNil(t, res.TransactionID)
	assert.Equal(t, "GPA.1234", *res.TransactionID)
	require.NotNil(t, res.ProductID)
	assert.Equal(t, "coin_100", *res.ProductID)
	assert.Equal(t, []string{"tok-coin-1"}, fc.snapshot().consumedTokens)
}

func TestConsumeTokenOnlyReceiptHasNullFields(t *testing.T) {
	fc := newFakeClient()
	svc := newReadyService(t, fc)

	res, err := svc.ConsumePurchase(context.Background(), `{"purchaseToken":"tok-9"}`)
	require.NoError(t, err)
	assert.Nil(t, res.TransactionID)
	assert.Nil(t, res.ProductID)
	assert.Equal(t, "tok-9", res.Token)
}

func TestConsumeFailureTranslates(t *testing.T) {
	fc := newFakeClient()
	fc.consumeResult = Result{Code: ResponseItemNotOwned, Message: "not owned"}
	svc := newReadyService(t, fc)

	_, err := svc.ConsumePurchase(context.Background(), `{"purchaseToken":"tok-9"}`)
	require.Error(t, err)
	assert.Equal(t, ConsumeFailed, CodeOf(err))

	var berr *Error
	require.ErrorAs(t, err, &berr)
	require.NotNil(t, berr.VendorCode)
	assert.Equal(t, ResponseItemNotOwned, *berr.VendorCode)
}

func TestRestoreWithNothingOwnedReturnsEmptyList(t *testing.T) {
	fc := newFakeClient()
	svc := newReadyService(t, fc)

	records, err := svc.RestorePurchases(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestRestoreProjectsOwnedPurchases(t *testing.T) {
	fc := newFakeClient()
	fc.owned = []Purchase{coinPurchase()}
	svc := newReadyService(t, fc)

	records, err := svc.RestorePurchases(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "coin_100", records[0].ProductID)
	assert.Equal(t, "tok-coin-1", records[0].PurchaseToken)
	assert.Equal(t, int64(1700000000000), records[0].PurchaseTimeMillis)
	assert.Equal(t, "sig-1", records[0].Signature)
	assert.NotEmpty(t, records[0].Receipt)
}

func TestSubscribeIsUnsupported(t *testing.T) {
	svc := newReadyService(t, newFakeClient())

	err := svc.Subscribe(context.Background(), "premium_monthly")
	require.Error(t, err)
	assert.Equal(t, InvalidArguments, CodeOf(err))
	assert.Contains(t, err.Error(), "not supported")
}

func TestFullPurchaseScenario(t *testing.T) {
	fc := newFakeClient()
	fc.queryProducts = []ProductDetails{coinProduct()}
	fc.launchUpdate = &purchaseUpdate{result: Result{Code: ResponseOK}, purchases: []Purchase{coinPurchase()}}
	svc := newTestService(t, fc)
	ctx := context.Background()

	require.NoError(t, svc.Init(ctx))

	products, err := svc.GetProductDetails(ctx, []string{"coin_100"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "inapp", products[0].Type)

	bought, err := svc.Buy(ctx, "coin_100")
	require.NoError(t, err)
	require.NotEmpty(t, bought.Token)

	consumed, err := svc.ConsumePurchase(ctx,
		`{"purchaseToken":"`+bought.Token+`","orderId":"GPA.1234","productId":"coin_100"}`)
	require.NoError(t, err)
	assert.Equal(t, bought.Token, consumed.Token)
	assert.Equal(t, "coin_100", *consumed.ProductID)
}
