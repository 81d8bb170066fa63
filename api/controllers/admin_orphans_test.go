package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kalamandir/kalamandir-backend/internal/orphans"
	"github.com/kalamandir/kalamandir-backend/pkg/db/models"
	"github.com/kalamandir/kalamandir-backend/pkg/pagination"
)

type fakeOrphanLister struct {
	params pagination.Params
	list   *orphans.List
	err    error
}

func (f *fakeOrphanLister) List(ctx context.Context, params pagination.Params) (*orphans.List, error) {
	f.params = params
	return f.list, f.err
}

func TestAdminListOrphans(t *testing.T) {
	lister := &fakeOrphanLister{
		list: &orphans.List{Items: []models.OrphanPayment{{
			ID:               uuid.New(),
			GatewayOrderID:   "order_1",
			GatewayPaymentID: "pay_1",
			Amount:           50000,
			Currency:         "INR",
		}}},
	}
	handler := AdminListOrphans(lister, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orphans?limit=10", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if lister.params.Limit != 10 {
		t.Fatalf("limit = %d, want 10", lister.params.Limit)
	}
	var envelope struct {
		Data orphans.List `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.Items[0].GatewayPaymentID != "pay_1" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestAdminListOrphansForwardsCursor(t *testing.T) {
	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()})
	lister := &fakeOrphanLister{list: &orphans.List{}}
	handler := AdminListOrphans(lister, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orphans?cursor="+cursor, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if lister.params.Cursor != cursor {
		t.Fatal("cursor not forwarded to repository")
	}
}

func TestAdminListOrphansRejectsGarbageCursor(t *testing.T) {
	handler := AdminListOrphans(&fakeOrphanLister{list: &orphans.List{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orphans?cursor=%21%21not-base64", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
