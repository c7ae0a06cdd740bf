package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	internalorders "github.com/teakline/storefront-backend/internal/orders"
	"github.com/teakline/storefront-backend/pkg/db/models"
	"github.com/teakline/storefront-backend/pkg/enums"
	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
	"github.com/teakline/storefront-backend/pkg/types"
)

type stubOrdersService struct {
	order     *models.Order
	list      []models.Order
	cancelRes *internalorders.CancelResult
	err       error

	gotCancel internalorders.CancelInput
	gotActor  internalorders.ActorContext
}

func (s *stubOrdersService) Get(_ context.Context, _ uuid.UUID, actor internalorders.ActorContext) (*models.Order, error) {
	s.gotActor = actor
	return s.order, s.err
}

func (s *stubOrdersService) List(_ context.Context, _ uuid.UUID, _, _ int) ([]models.Order, error) {
	return s.list, s.err
}

func (s *stubOrdersService) UpdateStatus(_ context.Context, input internalorders.UpdateStatusInput) (*models.Order, error) {
	s.gotActor = input.Actor
	return s.order, s.err
}

func (s *stubOrdersService) MarkPaid(_ context.Context, _ uuid.UUID, actor internalorders.ActorContext, _ *string) (*models.Order, error) {
	s.gotActor = actor
	return s.order, s.err
}

func (s *stubOrdersService) Cancel(_ context.Context, input internalorders.CancelInput) (*internalorders.CancelResult, error) {
	s.gotCancel = input
	if s.err != nil {
		return nil, s.err
	}
	return s.cancelRes, nil
}

func withOrderParam(req *http.Request, orderID uuid.UUID) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderID", orderID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestOrderDetailReturnsOwnOrder(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{
		order: &models.Order{
			ID:            orderID,
			OrderNumber:   "ORD-20250812-ABCDEF",
			UserID:        userID,
			Status:        enums.OrderStatusPending,
			PaymentMethod: enums.PaymentMethodCOD,
			PaymentStatus: enums.PaymentStatusUnpaid,
		},
	}

	req := withOrderParam(authedRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), "", userID), orderID)
	resp := httptest.NewRecorder()
	OrderDetail(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if svc.gotActor.Actor != enums.ActorUser {
		t.Fatalf("actor = %s, want user", svc.gotActor.Actor)
	}
	if svc.gotActor.UserID != userID {
		t.Fatalf("actor user = %s, want %s", svc.gotActor.UserID, userID)
	}
}

func TestOrderDetailRejectsMalformedID(t *testing.T) {
	t.Parallel()
	svc := &stubOrdersService{}
	req := authedRequest(http.MethodGet, "/api/v1/orders/not-a-uuid", "", uuid.New())
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderID", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	resp := httptest.NewRecorder()
	OrderDetail(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestOrderCancelReportsResult(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	orderID := uuid.New()
	svc := &stubOrdersService{
		cancelRes: &internalorders.CancelResult{Restocked: true, Refunded: true},
	}

	req := withOrderParam(authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", `{"reason":"changed my mind"}`, userID), orderID)
	resp := httptest.NewRecorder()
	OrderCancel(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if svc.gotCancel.OrderID != orderID {
		t.Fatalf("cancel order id = %s, want %s", svc.gotCancel.OrderID, orderID)
	}
	if svc.gotCancel.Reason != "changed my mind" {
		t.Fatalf("cancel reason = %q", svc.gotCancel.Reason)
	}
	if svc.gotCancel.Actor.Actor != enums.ActorUser {
		t.Fatalf("actor = %s, want user", svc.gotCancel.Actor.Actor)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data := body.Data.(map[string]any)
	if data["restocked"] != true || data["refunded"] != true {
		t.Fatalf("unexpected payload %v", data)
	}
}

func TestOrderCancelMapsWindowConflict(t *testing.T) {
	t.Parallel()
	svc := &stubOrdersService{
		err: pkgerrors.New(pkgerrors.CodeStateConflict, "cancellation window has passed"),
	}
	orderID := uuid.New()

	req := withOrderParam(authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", `{}`, uuid.New()), orderID)
	resp := httptest.NewRecorder()
	OrderCancel(svc, nil)(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.Code)
	}
}

func TestAdminOrderStatusUsesAdminActor(t *testing.T) {
	t.Parallel()
	orderID := uuid.New()
	svc := &stubOrdersService{
		order: &models.Order{
			ID:            orderID,
			OrderNumber:   "ORD-20250812-ABCDEF",
			Status:        enums.OrderStatusConfirmed,
			PaymentMethod: enums.PaymentMethodGateway,
			PaymentStatus: enums.PaymentStatusPaid,
		},
	}

	req := withOrderParam(authedRequest(http.MethodPost, "/api/v1/admin/orders/"+orderID.String()+"/status", `{"status":"confirmed"}`, uuid.New()), orderID)
	resp := httptest.NewRecorder()
	AdminOrderStatus(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}
	if svc.gotActor.Actor != enums.ActorAdmin {
		t.Fatalf("actor = %s, want admin", svc.gotActor.Actor)
	}
}

func TestAdminOrderStatusRejectsUnknownStatus(t *testing.T) {
	t.Parallel()
	orderID := uuid.New()
	svc := &stubOrdersService{}

	req := withOrderParam(authedRequest(http.MethodPost, "/api/v1/admin/orders/"+orderID.String()+"/status", `{"status":"teleported"}`, uuid.New()), orderID)
	resp := httptest.NewRecorder()
	AdminOrderStatus(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}
