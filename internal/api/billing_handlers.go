package api

import (
	"net/http"

	"billing-bridge/internal/billing"
	"billing-bridge/internal/response"
	"billing-bridge/internal/services"
	"billing-bridge/pkg/logging"

	"github.com/gin-gonic/gin"
)

// Bridge wires the billing core to the HTTP surface. It only parses call
// arguments and serializes legacy-format responses; billing behavior lives
// in the core.
type Bridge struct {
	Billing  *billing.Service
	Store    *services.StoreClient
	Projects *services.ProjectService
	Notifier *services.PurchaseNotifier
}

// NewBridge creates the handler set around a billing service
func NewBridge(svc *billing.Service, store *services.StoreClient) *Bridge {
	return &Bridge{
		Billing:  svc,
		Store:    store,
		Projects: services.NewProjectService(),
		Notifier: services.NewPurchaseNotifier(),
	}
}

// InitBilling establishes the billing session
// POST /api/billing/init
func (b *Bridge) InitBilling(c *gin.Context) {
	if err := b.Billing.Init(c.Request.Context()); err != nil {
		response.BillingErrorJSON(c, err)
		return
	}
	response.SuccessJSON(c, nil)
}

// GetProductsRequest represents a product details request
type GetProductsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// GetProducts queries product metadata for the given ids
// POST /api/billing/products
func (b *Bridge) GetProducts(c *gin.Context) {
	var req GetProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BillingErrorJSON(c, billing.NewError(billing.InvalidArguments, "Invalid request format: "+err.Error()))
		return
	}

	products, err := b.Billing.GetProductDetails(c.Request.Context(), req.IDs)
	if err != nil {
		response.BillingErrorJSON(c, err)
		return
	}
	response.SuccessJSON(c, products)
}

// BuyRequest represents a buy request
type BuyRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// Buy runs the purchase flow for one product
// POST /api/billing/buy
func (b *Bridge) Buy(c *gin.Context) {
	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BillingErrorJSON(c, billing.NewError(billing.InvalidArguments, "Invalid SKU"))
		return
	}

	result, err := b.Billing.Buy(c.Request.Context(), req.ProductID)
	if err != nil {
		response.BillingErrorJSON(c, err)
		return
	}

	b.notifyPurchase(c.GetString("project_id"), result)
	response.SuccessJSON(c, result)
}

// notifyPurchase posts the completed purchase to the project's webhook, if
// one is configured. Failures never affect the buy response.
func (b *Bridge) notifyPurchase(projectID string, result *billing.BuyResult) {
	if projectID == "" {
		return
	}
	project, err := b.Projects.GetProject(projectID)
	if err != nil {
		logging.Errorf("Purchase webhook skipped, project lookup failed - project: %s: %v", projectID, err)
		return
	}

	transactionID := ""
	if result.TransactionID != nil {
		transactionID = *result.TransactionID
	}
	productID := ""
	if result.ProductID != nil {
		productID = *result.ProductID
	}
	go b.Notifier.NotifyPurchaseCompleted(
		project.WebhookCallbackURL, project.WebhookSecret,
		projectID, transactionID, productID, result.Token)
}

// ConsumeRequest represents a consume request; receipt is the purchase
// receipt JSON containing the purchaseToken
type ConsumeRequest struct {
	Receipt string `json:"receipt" binding:"required"`
}

// Consume consumes a one-time purchase
// POST /api/billing/consume
func (b *Bridge) Consume(c *gin.Context) {
	var req ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BillingErrorJSON(c, billing.NewError(billing.InvalidArguments, "Unable to parse purchase token"))
		return
	}

	result, err := b.Billing.ConsumePurchase(c.Request.Context(), req.Receipt)
	if err != nil {
		response.BillingErrorJSON(c, err)
		return
	}
	response.SuccessJSON(c, result)
}

// RestoredPurchase is the legacy projection of an owned purchase
type RestoredPurchase struct {
	OrderID       string  `json:"orderId"`
	PackageName   string  `json:"packageName"`
	ProductID     string  `json:"productId"`
	PurchaseTime  int64   `json:"purchaseTime"`
	PurchaseState int     `json:"purchaseState"`
	PurchaseToken string  `json:"purchaseToken"`
	Signature     *string `json:"signature"`
	Type          string  `json:"type"`
	Receipt       string  `json:"receipt"`
}

// Restore returns all currently owned one-time purchases
// POST /api/billing/restore
func (b *Bridge) Restore(c *gin.Context) {
	records, err := b.Billing.RestorePurchases(c.Request.Context())
	if err != nil {
		response.BillingErrorJSON(c, err)
		return
	}

	// The projection carries the owning app's package name.
	packageName := ""
	if projectID := c.GetString("project_id"); projectID != "" {
		if project, err := b.Projects.GetProject(projectID); err == nil {
			packageName = project.PackageName
		}
	}

	out := make([]RestoredPurchase, 0, len(records))
	for _, rec := range records {
		var signature *string
		if rec.Signature != "" {
			s := rec.Signature
			signature = &s
		}
		out = append(out, RestoredPurchase{
			OrderID:       rec.OrderID,
			PackageName:   packageName,
			ProductID:     rec.ProductID,
			PurchaseTime:  rec.PurchaseTimeMillis,
			PurchaseState: billing.PurchaseStatePurchased,
			PurchaseToken: rec.PurchaseToken,
			Signature:     signature,
			Type:          billing.ProductTypeInApp,
			Receipt:       rec.Receipt,
		})
	}
	response.SuccessJSON(c, out)
}

// Subscribe is kept for contract compatibility and always fails
// POST /api/billing/subscribe
func (b *Bridge) Subscribe(c *gin.Context) {
	response.BillingErrorJSON(c, b.Billing.Subscribe(c.Request.Context(), ""))
}

// StoreNotificationHandler receives store-initiated events: purchase flow
// outcomes and session drops
// POST /api/store/notifications
func (b *Bridge) StoreNotificationHandler(c *gin.Context) {
	var n services.StoreNotification
	if err := c.ShouldBindJSON(&n); err != nil {
		logging.Errorf("Failed to parse store notification: %v", err)
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid notification format")
		return
	}

	if err := b.Store.HandleNotification(n); err != nil {
		logging.Errorf("Store notification rejected: %v", err)
		response.ErrorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	response.SuccessJSON(c, nil)
}
