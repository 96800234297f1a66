//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 5 {
		t.Fatalf("expected 5 products, got %d", len(products))
	}

	for _, p := range products {
		if p.ID == "" || p.Name == "" || p.Category == "" {
			t.Errorf("incomplete product: %+v", p)
		}
		if p.Price <= 0 {
			t.Errorf("product %s price: got %v, want > 0", p.ID, p.Price)
		}
	}
}

func TestListProducts_CategoryFilter(t *testing.T) {
	resp := doGet(t, "/api/products?category=Skin")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 1 {
		t.Fatalf("expected 1 Skin product, got %d", len(products))
	}
	if products[0].Category != "Skin" {
		t.Errorf("category: got %q, want Skin", products[0].Category)
	}
}

func TestGetProduct(t *testing.T) {
	resp := doGet(t, "/api/products/1")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.ID != "1" {
		t.Errorf("id: got %q, want 1", p.ID)
	}
	if p.Price != 899 {
		t.Errorf("price: got %v, want 899", p.Price)
	}
	if p.MRP <= p.Price {
		t.Errorf("mrp %v should exceed price %v", p.MRP, p.Price)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	resp := doGet(t, "/api/products/999")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
