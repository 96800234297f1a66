//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

const testAPIKey = "integration-test-key"

func TestPlaceOrder_NoAuth(t *testing.T) {
	req := orderRequest{
		Items: []lineRequest{{ProductID: "1", Quantity: 1}},
	}
	resp := doPost(t, "/api/orders", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_InvalidKey(t *testing.T) {
	req := orderRequest{
		Items: []lineRequest{{ProductID: "1", Quantity: 1}},
	}
	resp := doPostWithKey(t, "/api/orders", req, "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	resp := doPostWithKey(t, "/api/orders", orderRequest{Items: []lineRequest{}}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	req := orderRequest{
		Items: []lineRequest{{ProductID: "999", Quantity: 1}},
	}
	resp := doPostWithKey(t, "/api/orders", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_ShippingFee(t *testing.T) {
	// Subtotal 649 is under the 1000 free-shipping threshold.
	req := orderRequest{
		Items: []lineRequest{{ProductID: "2", Quantity: 1}},
	}
	resp := doPostWithKey(t, "/api/orders", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.Shipping != 100 {
		t.Errorf("shipping: got %v, want 100", order.Shipping)
	}
	if order.Total != 749 {
		t.Errorf("total: got %v, want 749", order.Total)
	}
}

func TestPlaceOrder_FreeShippingCoupon(t *testing.T) {
	req := orderRequest{
		Items:      []lineRequest{{ProductID: "2", Quantity: 1}},
		CouponCode: "FREESHIP",
	}
	resp := doPostWithKey(t, "/api/orders", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.Shipping != 0 {
		t.Errorf("shipping: got %v, want 0", order.Shipping)
	}
	if order.Discount != 0 {
		t.Errorf("discount: got %v, want 0 (free shipping is not a price cut)", order.Discount)
	}
	if order.Total != 649 {
		t.Errorf("total: got %v, want 649", order.Total)
	}
}

func TestPlaceOrder_WithCoupon(t *testing.T) {
	// 899 + 649 = 1548; MALOVE20 takes 20% = 309.60, floored to 309.
	req := orderRequest{
		Items: []lineRequest{
			{ProductID: "1", Quantity: 1},
			{ProductID: "2", Quantity: 1},
		},
		CouponCode:    "MALOVE20",
		PaymentMethod: "UPI",
	}
	resp := doPostWithKey(t, "/api/orders", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.Subtotal != 1548 {
		t.Errorf("subtotal: got %v, want 1548", order.Subtotal)
	}
	if order.Discount != 309 {
		t.Errorf("discount: got %v, want 309", order.Discount)
	}
	if order.Shipping != 0 {
		t.Errorf("shipping: got %v, want 0", order.Shipping)
	}
	if order.Total != 1239 {
		t.Errorf("total: got %v, want 1239", order.Total)
	}
	if order.Status != "Processing" {
		t.Errorf("status: got %q, want Processing", order.Status)
	}
}

func TestPlaceOrder_CouponRejected(t *testing.T) {
	req := orderRequest{
		Items:      []lineRequest{{ProductID: "2", Quantity: 1}},
		CouponCode: "WELCOME500",
	}
	resp := doPostWithKey(t, "/api/orders", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_ResponseStructure(t *testing.T) {
	req := orderRequest{
		Items: []lineRequest{{ProductID: "1", Quantity: 2}},
	}
	resp := doPostWithKey(t, "/api/orders", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if !strings.HasPrefix(order.ID, "ORD-") {
		t.Errorf("order ID %q missing ORD- prefix", order.ID)
	}
	if !strings.HasPrefix(order.TrackingID, "TRK-") {
		t.Errorf("tracking ID %q missing TRK- prefix", order.TrackingID)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(order.Items))
	}
	item := order.Items[0]
	if item.ProductID != "1" || item.Quantity != 2 || item.Name == "" || item.Price <= 0 {
		t.Errorf("unexpected line item: %+v", item)
	}
}

func TestTrackOrder(t *testing.T) {
	placeReq := orderRequest{
		Items: []lineRequest{{ProductID: "3", Quantity: 1}},
	}
	placeResp := doPostWithKey(t, "/api/orders", placeReq, testAPIKey)
	defer placeResp.Body.Close()
	if placeResp.StatusCode != http.StatusCreated {
		t.Fatalf("place order: expected 201, got %d", placeResp.StatusCode)
	}
	placed := decodeJSON[orderResponse](t, placeResp)

	resp := doGet(t, "/api/orders/"+placed.ID)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	tracked := decodeJSON[orderResponse](t, resp)
	if tracked.ID != placed.ID {
		t.Errorf("id: got %q, want %q", tracked.ID, placed.ID)
	}
	if tracked.TrackingID != placed.TrackingID {
		t.Errorf("tracking id: got %q, want %q", tracked.TrackingID, placed.TrackingID)
	}
	if tracked.Total != placed.Total {
		t.Errorf("total: got %v, want %v", tracked.Total, placed.Total)
	}
}

func TestTrackOrder_NotFound(t *testing.T) {
	resp := doGet(t, "/api/orders/ORD-does-not-exist")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Code != http.StatusNotFound {
		t.Errorf("error code: got %d, want 404", body.Code)
	}
}
