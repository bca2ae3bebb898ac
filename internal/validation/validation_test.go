package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

func TestAddToCartRequest_Valid(t *testing.T) {
	v := New()

	req := AddToCartRequest{
		ProductID: "1",
		Name:      "Classic Tee",
		Price:     19.99,
		Size:      "M",
		Quantity:  2,
		ImageURL:  "https://cdn.example.com/tee.jpg",
	}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestAddToCartRequest_FractionalCents(t *testing.T) {
	v := New()

	req := AddToCartRequest{ProductID: "1", Name: "Tee", Price: 19.999, Size: "M", Quantity: 1}
	err := v.Struct(req)
	if err == nil {
		t.Fatal("expected validation error for fractional cents, got nil")
	}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) || ve[0].Tag() != "whole_cents" {
		t.Fatalf("expected whole_cents error, got %v", err)
	}
}

func TestAddToCartRequest_MissingFields(t *testing.T) {
	v := New()

	req := AddToCartRequest{Quantity: 0, Price: -1}
	err := v.Struct(req)
	if err == nil {
		t.Fatal("expected validation errors for missing required fields, got nil")
	}
	fields := validationErrorsToMap(err)
	for _, f := range []string{"product_id", "name", "size", "quantity", "price"} {
		if _, ok := fields[f]; !ok {
			t.Fatalf("expected error for %s, got %v", f, fields)
		}
	}
}

func TestUpdateQuantityRequest(t *testing.T) {
	v := New()
	if err := v.Struct(UpdateQuantityRequest{Quantity: 3}); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	if err := v.Struct(UpdateQuantityRequest{Quantity: 0}); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}

func TestBindAndValidate_WritesBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := New()

	cases := map[string]string{
		"malformed json": `{"try_on_id":`,
		"missing field":  `{"try_on_id":"t1"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/api/try-on/process", strings.NewReader(body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req ProcessTryOnRequest
			if err := BindAndValidate(c, &req, v); err == nil {
				t.Fatal("expected error")
			}
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestBindQueryAndValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := New()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/products?category=shirts&brand=acme", nil)
	var q ListProductsQuery
	if err := BindQueryAndValidate(c, &q, v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Category != "shirts" || q.Brand != "acme" {
		t.Fatalf("query not bound: %+v", q)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/products?category="+strings.Repeat("x", 65), nil)
	var long ListProductsQuery
	if err := BindQueryAndValidate(c, &long, v); err == nil {
		t.Fatal("expected error for oversized category")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
