package razorpay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kalamandir/kalamandir-backend/pkg/config"
	pkgerrors "github.com/kalamandir/kalamandir-backend/pkg/errors"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
)

type fakeDoer struct {
	requests []*http.Request
	bodies   []string
	status   int
	payload  string
	err      error
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		f.bodies = append(f.bodies, string(raw))
	} else {
		f.bodies = append(f.bodies, "")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(f.payload)),
		Header:     make(http.Header),
	}, nil
}

func testClient(doer *fakeDoer) *Client {
	return &Client{
		http:          doer,
		baseURL:       "https://api.razorpay.test/v1",
		keyID:         "rzp_test_key",
		keySecret:     "key_secret",
		webhookSecret: "webhook_secret",
		logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	if _, err := NewClient(config.RazorpayConfig{KeySecret: "s"}, logg); err == nil {
		t.Fatal("expected key id error")
	}
	if _, err := NewClient(config.RazorpayConfig{KeyID: "k"}, logg); err == nil {
		t.Fatal("expected key secret error")
	}
	if _, err := NewClient(config.RazorpayConfig{KeyID: "k", KeySecret: "s"}, nil); err == nil {
		t.Fatal("expected logger error")
	}
	client, err := NewClient(config.RazorpayConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "s",
		BaseURL:   "https://api.razorpay.com/v1/",
		Timeout:   5 * time.Second,
	}, logg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.KeyID() != "rzp_test_key" {
		t.Fatalf("unexpected key id %s", client.KeyID())
	}
	if client.baseURL != "https://api.razorpay.com/v1" {
		t.Fatalf("expected trailing slash trimmed, got %s", client.baseURL)
	}
}

func TestCreateOrder(t *testing.T) {
	doer := &fakeDoer{
		status:  http.StatusOK,
		payload: `{"id":"order_Nxc4GkV2","amount":50000,"currency":"INR","receipt":"KM-0042","status":"created"}`,
	}
	client := testClient(doer)

	order, err := client.CreateOrder(context.Background(), OrderParams{
		AmountMinor: 50000,
		Receipt:     "KM-0042",
		Notes:       map[string]string{"order_number": "KM-0042"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != "order_Nxc4GkV2" {
		t.Fatalf("unexpected order id %s", order.ID)
	}
	if order.AmountMinor != 50000 {
		t.Fatalf("unexpected amount %d", order.AmountMinor)
	}

	req := doer.requests[0]
	if req.Method != http.MethodPost || req.URL.Path != "/v1/orders" {
		t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
	}
	user, pass, ok := req.BasicAuth()
	if !ok || user != "rzp_test_key" || pass != "key_secret" {
		t.Fatal("expected basic auth with key credentials")
	}

	var sent OrderParams
	if err := json.Unmarshal([]byte(doer.bodies[0]), &sent); err != nil {
		t.Fatalf("decoding sent body: %v", err)
	}
	if sent.Currency != "INR" {
		t.Fatalf("expected INR default, got %s", sent.Currency)
	}
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	client := testClient(&fakeDoer{})
	_, err := client.CreateOrder(context.Background(), OrderParams{AmountMinor: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if domain := pkgerrors.As(err); domain == nil || domain.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestFetchPaymentMapsAPIErrors(t *testing.T) {
	doer := &fakeDoer{
		status:  http.StatusNotFound,
		payload: `{"error":{"code":"BAD_REQUEST_ERROR","description":"payment not found"}}`,
	}
	client := testClient(doer)

	_, err := client.FetchPayment(context.Background(), "pay_missing")
	if err == nil {
		t.Fatal("expected error")
	}
	domain := pkgerrors.As(err)
	if domain == nil || domain.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
	if !strings.Contains(domain.Message(), "payment not found") {
		t.Fatalf("expected gateway description in message, got %s", domain.Message())
	}
}

func TestDoWrapsTransportErrors(t *testing.T) {
	doer := &fakeDoer{err: io.ErrUnexpectedEOF}
	client := testClient(doer)

	_, err := client.FetchPayment(context.Background(), "pay_1")
	if err == nil {
		t.Fatal("expected error")
	}
	if domain := pkgerrors.As(err); domain == nil || domain.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", err)
	}
}

func TestClientSignatureHelpers(t *testing.T) {
	client := testClient(&fakeDoer{})
	body := []byte(`{"event":"payment.captured"}`)
	if !client.VerifyWebhook(body, sign("webhook_secret", body)) {
		t.Fatal("expected webhook signature to verify")
	}
	if !client.VerifyPayment("order_1", "pay_1", sign("key_secret", []byte("order_1|pay_1"))) {
		t.Fatal("expected payment signature to verify")
	}
}
