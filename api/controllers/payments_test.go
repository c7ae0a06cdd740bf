package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/teakline/storefront-backend/internal/payments"
	"github.com/teakline/storefront-backend/pkg/db/models"
	"github.com/teakline/storefront-backend/pkg/enums"
	pkgerrors "github.com/teakline/storefront-backend/pkg/errors"
	"github.com/teakline/storefront-backend/pkg/types"
)

type stubPaymentsService struct {
	intent *payments.Intent
	order  *models.Order
	err    error

	gotVerify payments.VerifyInput
}

func (s *stubPaymentsService) CreateIntent(_ context.Context, _, _ uuid.UUID) (*payments.Intent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.intent, nil
}

func (s *stubPaymentsService) VerifyCallback(_ context.Context, input payments.VerifyInput) (*models.Order, error) {
	s.gotVerify = input
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

func TestPaymentIntentReturnsIntent(t *testing.T) {
	t.Parallel()
	orderID := uuid.New()
	svc := &stubPaymentsService{
		intent: &payments.Intent{
			OrderID:        orderID,
			GatewayOrderID: "gw_123",
			AmountCents:    5000,
			Currency:       "INR",
			KeyID:          "key_live",
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/payments/intent", `{"order_id":"`+orderID.String()+`"}`, uuid.New())
	resp := httptest.NewRecorder()
	PaymentIntent(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data := body.Data.(map[string]any)
	if data["gateway_order_id"] != "gw_123" {
		t.Fatalf("unexpected payload %v", data)
	}
}

func TestPaymentVerifyMapsSignatureFailure(t *testing.T) {
	t.Parallel()
	svc := &stubPaymentsService{
		err: pkgerrors.New(pkgerrors.CodeUnauthorized, "payment verification failed"),
	}

	body := `{"gateway_order_id":"gw_1","gateway_payment_id":"pay_1","signature":"deadbeef"}`
	req := authedRequest(http.MethodPost, "/api/v1/payments/verify", body, uuid.New())
	resp := httptest.NewRecorder()
	PaymentVerify(svc, nil)(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.Code)
	}
	if svc.gotVerify.GatewayOrderID != "gw_1" {
		t.Fatalf("verify input not forwarded: %+v", svc.gotVerify)
	}
}

func TestPaymentVerifyRequiresAllFields(t *testing.T) {
	t.Parallel()
	svc := &stubPaymentsService{}

	req := authedRequest(http.MethodPost, "/api/v1/payments/verify", `{"gateway_order_id":"gw_1"}`, uuid.New())
	resp := httptest.NewRecorder()
	PaymentVerify(svc, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.Code)
	}
}

func TestPaymentVerifyReturnsSettledOrder(t *testing.T) {
	t.Parallel()
	orderID := uuid.New()
	svc := &stubPaymentsService{
		order: &models.Order{
			ID:            orderID,
			OrderNumber:   "ORD-20250812-ABCDEF",
			Status:        enums.OrderStatusConfirmed,
			PaymentStatus: enums.PaymentStatusPaid,
		},
	}

	body := `{"gateway_order_id":"gw_1","gateway_payment_id":"pay_1","signature":"feedface"}`
	req := authedRequest(http.MethodPost, "/api/v1/payments/verify", body, uuid.New())
	resp := httptest.NewRecorder()
	PaymentVerify(svc, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.Code, resp.Body.String())
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	data := envelope.Data.(map[string]any)
	if data["payment_status"] != string(enums.PaymentStatusPaid) {
		t.Fatalf("unexpected payload %v", data)
	}
}
