package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"billing-bridge/pkg/logging"
)

// PurchaseNotifier sends purchase events to the app backend's webhook
type PurchaseNotifier struct {
	httpClient *http.Client
}

// NewPurchaseNotifier creates a new purchase notifier
func NewPurchaseNotifier() *PurchaseNotifier {
	return &PurchaseNotifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// PurchaseEvent is the payload posted to the app backend
type PurchaseEvent struct {
	Event         string `json:"event"` // "purchase.completed"
	ProjectID     string `json:"project_id"`
	TransactionID string `json:"transaction_id"`
	ProductID     string `json:"product_id"`
	PurchaseToken string `json:"purchase_token"`
	Timestamp     string `json:"timestamp"` // ISO 8601
}

// NotifyPurchaseCompleted sends a purchase.completed event to the project's
// callback URL. Fire-and-forget: the buyer already has the purchase, so
// delivery failures are logged only. Called in a goroutine to avoid blocking
// the buy response.
func (pn *PurchaseNotifier) NotifyPurchaseCompleted(callbackURL, secret, projectID, transactionID, productID, token string) {
	if callbackURL == "" {
		// No webhook configured, skip
		return
	}

	event := PurchaseEvent{
		Event:         "purchase.completed",
		ProjectID:     projectID,
		TransactionID: transactionID,
		ProductID:     productID,
		PurchaseToken: token,
		Timestamp:     time.Now().Format(time.RFC3339),
	}

	pn.sendWithRetry(callbackURL, secret, event)
}

// sendWithRetry sends the event with a retry ladder: 1s, 5s, 30s
func (pn *PurchaseNotifier) sendWithRetry(callbackURL, secret string, event PurchaseEvent) {
	retryDelays := []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second}

	for attempt := 0; attempt < len(retryDelays); attempt++ {
		err := pn.send(callbackURL, secret, event)
		if err == nil {
			logging.Infof("Purchase webhook sent - url: %s, transaction: %s, attempt: %d",
				callbackURL, event.TransactionID, attempt+1)
			return
		}
		logging.Errorf("Purchase webhook attempt %d failed - url: %s: %v", attempt+1, callbackURL, err)
		time.Sleep(retryDelays[attempt])
	}

	logging.Errorf("Purchase webhook gave up - url: %s, transaction: %s", callbackURL, event.TransactionID)
}

// send delivers one webhook attempt, signing the body when a secret is set
func (pn *PurchaseNotifier) send(callbackURL, secret string, event PurchaseEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, callbackURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Webhook-Signature", "sha256="+sign(payload, secret))
	}

	resp, err := pn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// sign computes the HMAC-SHA256 hex signature of the payload
func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
