package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalamandir/kalamandir-backend/api/middleware"
	"github.com/kalamandir/kalamandir-backend/internal/orders"
	"github.com/kalamandir/kalamandir-backend/pkg/enums"
	pkgerrors "github.com/kalamandir/kalamandir-backend/pkg/errors"
)

func adminRequest(method, target string, body []byte, orderID, staffID string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", orderID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if staffID != "" {
		ctx = middleware.WithStaffID(ctx, staffID)
	}
	return req.WithContext(ctx)
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	orderID := uuid.New()
	staffID := uuid.New()
	svc := &fakeOrdersService{view: &orders.OrderView{OrderID: orderID, OrderStatus: enums.OrderStatusShipped}}
	handler := AdminUpdateOrderStatus(svc, nil)

	body, _ := json.Marshal(map[string]any{"status": "shipped"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodPost, "/api/admin/v1/orders/"+orderID.String()+"/status", body, orderID.String(), staffID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.statusInput == nil || svc.statusInput.Status != enums.OrderStatusShipped {
		t.Fatalf("service did not receive transition: %+v", svc.statusInput)
	}
	if svc.statusInput.ActorID != staffID {
		t.Fatalf("actor id = %s, want %s", svc.statusInput.ActorID, staffID)
	}
}

func TestAdminUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	handler := AdminUpdateOrderStatus(&fakeOrdersService{}, nil)

	body, _ := json.Marshal(map[string]any{"status": "teleported"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodPost, "/status", body, uuid.NewString(), uuid.NewString()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminUpdateOrderStatusStateConflict(t *testing.T) {
	svc := &fakeOrdersService{viewErr: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move order from delivered to shipped")}
	handler := AdminUpdateOrderStatus(svc, nil)

	body, _ := json.Marshal(map[string]any{"status": "shipped"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodPost, "/status", body, uuid.NewString(), uuid.NewString()))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestAdminUpdateOrderStatusMissingStaff(t *testing.T) {
	handler := AdminUpdateOrderStatus(&fakeOrdersService{}, nil)

	body, _ := json.Marshal(map[string]any{"status": "shipped"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodPost, "/status", body, uuid.NewString(), ""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminTrashOrder(t *testing.T) {
	orderID := uuid.New()
	svc := &fakeOrdersService{}
	handler := AdminTrashOrder(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodDelete, "/api/admin/v1/orders/"+orderID.String(), nil, orderID.String(), uuid.NewString()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.trashed) != 1 || svc.trashed[0] != orderID {
		t.Fatalf("trash not forwarded: %v", svc.trashed)
	}
}

func TestAdminTrashOrderNotFound(t *testing.T) {
	svc := &fakeOrdersService{trashErr: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	handler := AdminTrashOrder(svc, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodDelete, "/trash", nil, uuid.NewString(), uuid.NewString()))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
