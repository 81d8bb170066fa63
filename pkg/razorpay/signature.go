package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Razorpay signs checkout callbacks and webhook deliveries with HMAC-SHA256,
// hex encoded. The payment signature covers "<order_id>|<payment_id>", the
// webhook signature covers the raw request body.

// VerifyPaymentSignature checks the signature returned by the checkout flow.
func VerifyPaymentSignature(keySecret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	if keySecret == "" || gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return false
	}
	payload := fmt.Sprintf("%s|%s", gatewayOrderID, gatewayPaymentID)
	return verify(keySecret, []byte(payload), signature)
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header against the
// raw webhook body.
func VerifyWebhookSignature(webhookSecret string, body []byte, signature string) bool {
	if webhookSecret == "" || len(body) == 0 || signature == "" {
		return false
	}
	return verify(webhookSecret, body, signature)
}

func verify(secret string, payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
